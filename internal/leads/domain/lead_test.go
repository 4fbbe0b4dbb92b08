package domain

import "testing"

func TestCategoryForScore_Boundaries(t *testing.T) {
	cases := []struct {
		score int
		want  Category
	}{
		{200, CategoryPlatinum},
		{140, CategoryPlatinum},
		{139, CategoryGold},
		{100, CategoryGold},
		{99, CategorySilver},
		{60, CategorySilver},
		{59, CategoryBronze},
		{40, CategoryBronze},
		{39, CategoryNurture},
		{0, CategoryNurture},
	}

	for _, tc := range cases {
		if got := CategoryForScore(tc.score); got != tc.want {
			t.Errorf("CategoryForScore(%d) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestCategoryPriceCents(t *testing.T) {
	cases := map[Category]int64{
		CategoryPlatinum: 25000,
		CategoryGold:     17500,
		CategorySilver:   12500,
		CategoryBronze:   8500,
		CategoryNurture:  0,
	}
	for cat, want := range cases {
		if got := cat.PriceCents(); got != want {
			t.Errorf("%s price = %d, want %d", cat, got, want)
		}
	}
}

func TestStatusTransitions_Monotonic(t *testing.T) {
	allowed := []struct {
		from, to Status
	}{
		{StatusPending, StatusAssigned},
		{StatusPending, StatusNoContractor},
		{StatusPending, StatusContractorsAtCapacity},
		{StatusPending, StatusNurture},
		{StatusAssigned, StatusContacted},
	}
	for _, tc := range allowed {
		if !tc.from.CanTransitionTo(tc.to) {
			t.Errorf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}

	forbidden := []struct {
		from, to Status
	}{
		{StatusAssigned, StatusPending},
		{StatusContacted, StatusAssigned},
		{StatusContacted, StatusPending},
		{StatusNoContractor, StatusAssigned},
		{StatusNurture, StatusAssigned},
		{StatusPending, StatusContacted},
		{StatusPending, StatusPending},
	}
	for _, tc := range forbidden {
		if tc.from.CanTransitionTo(tc.to) {
			t.Errorf("expected %s -> %s to be rejected", tc.from, tc.to)
		}
	}
}

func TestNewLead_NurtureIsTerminalAtCreation(t *testing.T) {
	lead, err := NewLead(30, 15, CategoryNurture, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lead.Status != StatusNurture {
		t.Fatalf("expected nurture status, got %s", lead.Status)
	}
	if lead.PriceCents != 0 {
		t.Fatalf("expected zero price for nurture lead, got %d", lead.PriceCents)
	}
	if err := lead.Advance(StatusAssigned); err == nil {
		t.Fatal("expected nurture lead to reject assignment transition")
	}
}

func TestNewLead_RejectedNeverPersisted(t *testing.T) {
	if _, err := NewLead(0, 0, CategoryRejected, nil); err == nil {
		t.Fatal("expected error constructing rejected lead")
	}
}
