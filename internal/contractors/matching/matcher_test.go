package matching

import (
	"context"
	"testing"

	"leadmarket_backend/internal/contractors/domain"
	leaddomain "leadmarket_backend/internal/leads/domain"
	"leadmarket_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeSource struct {
	contractors []domain.Contractor
	counts      map[uuid.UUID][2]int
}

func (f *fakeSource) EligibleContractors(_ context.Context, _, _ string, _ int64) ([]domain.Contractor, error) {
	return f.contractors, nil
}

func (f *fakeSource) AssignmentCounts(_ context.Context, id uuid.UUID) (int, int, error) {
	c := f.counts[id]
	return c[0], c[1], nil
}

func ptrFloat(v float64) *float64 { return &v }
func ptrInt(v int) *int           { return &v }

func contractor(name string, rating, conversion float64, responseMin int) domain.Contractor {
	return domain.Contractor{
		ID:                    uuid.New(),
		BusinessName:           name,
		Rating:                ptrFloat(rating),
		ConversionRate:        ptrFloat(conversion),
		AvgResponseMinutes:    ptrInt(responseMin),
		PrimarySpecialization: "repair",
	}
}

func testLead(category leaddomain.Category) Lead {
	return Lead{
		ID:          uuid.New(),
		Zip:         "90210",
		ServiceType: "repair",
		Category:    category,
		PriceCents:  category.PriceCents(),
	}
}

func newMatcher(src *fakeSource) *Matcher {
	return New(src, logger.New("test"))
}

func TestMatchNoEligibleContractors(t *testing.T) {
	m := newMatcher(&fakeSource{})

	res, err := m.Match(context.Background(), testLead(leaddomain.CategoryGold))
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if res.Contractor != nil {
		t.Fatal("expected no contractor")
	}
	if res.Reason != ReasonNoContractor {
		t.Errorf("Reason = %q, want %q", res.Reason, ReasonNoContractor)
	}
}

func TestMatchPlatinumPerformanceFallback(t *testing.T) {
	// Nobody clears the platinum bar; the full eligible set must survive
	// rather than the lead going unassigned.
	weak := contractor("Weak Co", 3.2, 0.30, 200)
	src := &fakeSource{
		contractors: []domain.Contractor{weak},
		counts:      map[uuid.UUID][2]int{},
	}
	m := newMatcher(src)

	res, err := m.Match(context.Background(), testLead(leaddomain.CategoryPlatinum))
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if res.Contractor == nil {
		t.Fatal("expected fallback selection, got none")
	}
	if res.Contractor.ID != weak.ID {
		t.Errorf("selected %s, want %s", res.Contractor.BusinessName, weak.BusinessName)
	}
}

func TestMatchPlatinumPerformanceBar(t *testing.T) {
	elite := contractor("Elite Co", 4.6, 0.75, 15)
	weak := contractor("Weak Co", 3.2, 0.30, 200)
	src := &fakeSource{
		contractors: []domain.Contractor{weak, elite},
		counts:      map[uuid.UUID][2]int{},
	}
	m := newMatcher(src)

	res, err := m.Match(context.Background(), testLead(leaddomain.CategoryPlatinum))
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if res.Contractor == nil || res.Contractor.ID != elite.ID {
		t.Errorf("expected elite contractor to be selected over weak one")
	}
}

func TestMatchCapacityExcludesAtDailyCap(t *testing.T) {
	atCap := contractor("At Cap", 4.9, 0.85, 10)
	atCap.MaxLeadsPerDay = ptrInt(5)
	underCap := contractor("Under Cap", 4.0, 0.55, 60)
	underCap.MaxLeadsPerDay = ptrInt(5)

	src := &fakeSource{
		contractors: []domain.Contractor{atCap, underCap},
		counts: map[uuid.UUID][2]int{
			atCap.ID:    {5, 5},
			underCap.ID: {4, 4},
		},
	}
	m := newMatcher(src)

	res, err := m.Match(context.Background(), testLead(leaddomain.CategorySilver))
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if res.Contractor == nil {
		t.Fatal("expected a selection")
	}
	if res.Contractor.ID != underCap.ID {
		t.Errorf("contractor at daily cap must be excluded even with a higher score")
	}
}

func TestMatchCapacityExcludesAtWeeklyCap(t *testing.T) {
	c := contractor("Weekly Capped", 4.9, 0.85, 10)
	c.MaxLeadsPerWeek = ptrInt(20)

	src := &fakeSource{
		contractors: []domain.Contractor{c},
		counts:      map[uuid.UUID][2]int{c.ID: {2, 20}},
	}
	m := newMatcher(src)

	res, err := m.Match(context.Background(), testLead(leaddomain.CategorySilver))
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if res.Contractor != nil {
		t.Fatal("expected no contractor")
	}
	if res.Reason != ReasonAtCapacity {
		t.Errorf("Reason = %q, want %q", res.Reason, ReasonAtCapacity)
	}
}

func TestMatchNoCapMeansUnlimited(t *testing.T) {
	c := contractor("No Cap", 4.0, 0.55, 60)
	src := &fakeSource{
		contractors: []domain.Contractor{c},
		counts:      map[uuid.UUID][2]int{c.ID: {500, 2000}},
	}
	m := newMatcher(src)

	res, err := m.Match(context.Background(), testLead(leaddomain.CategoryBronze))
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if res.Contractor == nil {
		t.Fatal("contractor without caps must never be capacity-filtered")
	}
}

func TestRankPrefersSpecializationMatch(t *testing.T) {
	specialist := contractor("Specialist", 4.0, 0.55, 60)
	generalist := contractor("Generalist", 4.0, 0.55, 60)
	generalist.PrimarySpecialization = "maintenance"

	src := &fakeSource{
		contractors: []domain.Contractor{generalist, specialist},
		counts:      map[uuid.UUID][2]int{},
	}
	m := newMatcher(src)

	res, err := m.Match(context.Background(), testLead(leaddomain.CategorySilver))
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if res.Contractor == nil || res.Contractor.ID != specialist.ID {
		t.Error("specialization match must break otherwise equal scores")
	}
}

func TestRankTieFirstWins(t *testing.T) {
	first := contractor("First", 4.0, 0.55, 60)
	second := contractor("Second", 4.0, 0.55, 60)

	src := &fakeSource{
		contractors: []domain.Contractor{first, second},
		counts:      map[uuid.UUID][2]int{},
	}
	m := newMatcher(src)

	res, err := m.Match(context.Background(), testLead(leaddomain.CategorySilver))
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if res.Contractor == nil || res.Contractor.ID != first.ID {
		t.Error("ties must resolve to the earlier candidate")
	}
}

func TestPriorityScoreLoadBalancing(t *testing.T) {
	c := contractor("Load Test", 4.0, 0.55, 60)
	c.MaxLeadsPerDay = ptrInt(10)

	tests := []struct {
		name  string
		today int
		want  int
	}{
		{"light load", 3, 50 + 10 + 10 + 5 + 15 + 10},
		{"half load", 5, 50 + 10 + 10 + 5 + 10 + 10},
		{"heavy load", 7, 50 + 10 + 10 + 5 + 5 + 10},
		{"near cap", 9, 50 + 10 + 10 + 5 + 0 + 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := priorityScore(&c, contractorLoad{today: tt.today}, "repair")
			if got != tt.want {
				t.Errorf("priorityScore() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPriorityScoreMissingMetrics(t *testing.T) {
	// New contractors with no history score base plus specialization only.
	c := domain.Contractor{ID: uuid.New(), PrimarySpecialization: "repair"}
	got := priorityScore(&c, contractorLoad{}, "repair")
	want := 50 + 15 + 10 // no caps counts as unloaded
	if got != want {
		t.Errorf("priorityScore() = %d, want %d", got, want)
	}
}
