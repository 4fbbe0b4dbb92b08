package scoring

import (
	"strings"
	"testing"

	"leadmarket_backend/internal/leads/domain"
)

func intPtr(n int) *int { return &n }

func TestScore_Deterministic(t *testing.T) {
	in := Input{
		ServiceType:       "emergency_repair",
		Timeline:          "asap",
		BudgetRange:       "over_15000",
		PropertyType:      "commercial",
		SystemIssue:       "complete_failure",
		PropertyAge:       intPtr(35),
		CompletionSeconds: intPtr(120),
	}

	first := Score(in)
	second := Score(in)
	if first.Score != second.Score || first.Confidence != second.Confidence {
		t.Fatalf("scoring is not deterministic: %+v vs %+v", first, second)
	}
}

func TestScore_MaximalInputIsPlatinum(t *testing.T) {
	in := Input{
		ServiceType:       "emergency_repair", // 50
		Timeline:          "asap",             // 40
		BudgetRange:       "over_15000",       // 40
		PropertyType:      "commercial",       // 30
		SystemIssue:       "complete_failure", // 15
		PropertyAge:       intPtr(40),         // 10
		Description:       strings.Repeat("the furnace died, emergency! ", 5), // 10 + 5 urgency
		CompletionSeconds: intPtr(120),                                        // 5
		ValidationFlags:   []string{domain.FlagWorkEmail, domain.FlagLocalPhone}, // 15
	}

	out := Score(in)
	if out.Score != 220 {
		t.Fatalf("expected score 220, got %d", out.Score)
	}
	if out.Category != domain.CategoryPlatinum {
		t.Fatalf("expected PLATINUM, got %s", out.Category)
	}
	if out.PriceCents != 25000 {
		t.Fatalf("expected platinum price 25000, got %d", out.PriceCents)
	}
	if out.Confidence != 95 {
		t.Fatalf("expected confidence capped at 95, got %d", out.Confidence)
	}
}

func TestScore_CategoryBoundaries(t *testing.T) {
	// emergency_repair(50) + asap(40) + 5000_10000(25) = 115 base;
	// vary property type to land on either side of 100.
	gold := Score(Input{
		ServiceType: "emergency_repair",
		Timeline:    "asap",
		BudgetRange: "1000_2500", // 8 -> total 98
		PropertyType: "rental",   // 10 -> 108
	})
	if gold.Score != 108 || gold.Category != domain.CategoryGold {
		t.Fatalf("expected 108/GOLD, got %d/%s", gold.Score, gold.Category)
	}

	silver := Score(Input{
		ServiceType: "repair",     // 30
		Timeline:    "within_week", // 30
		BudgetRange: "2500_5000",   // 15
		PropertyType: "rental",     // 10 -> 85
	})
	if silver.Score != 85 || silver.Category != domain.CategorySilver {
		t.Fatalf("expected 85/SILVER, got %d/%s", silver.Score, silver.Category)
	}

	nurture := Score(Input{
		ServiceType: "inspection", // 10
		Timeline:    "flexible",   // 5
		BudgetRange: "under_1000", // 3
		PropertyType: "apartment", // 8 -> 26
	})
	if nurture.Score != 26 || nurture.Category != domain.CategoryNurture {
		t.Fatalf("expected 26/NURTURE, got %d/%s", nurture.Score, nurture.Category)
	}
	if nurture.PriceCents != 0 {
		t.Fatalf("nurture leads are free, got %d", nurture.PriceCents)
	}
}

func TestScore_DescriptionBonuses(t *testing.T) {
	base := Input{
		ServiceType:  "repair",
		Timeline:     "flexible",
		BudgetRange:  "under_1000",
		PropertyType: "condo",
	}

	none := Score(base)

	short := base
	short.Description = strings.Repeat("x", 60)
	if got := Score(short).Score - none.Score; got != 5 {
		t.Fatalf("expected +5 for 50-100 char description, got +%d", got)
	}

	long := base
	long.Description = strings.Repeat("x", 150)
	longOut := Score(long)
	if got := longOut.Score - none.Score; got != 10 {
		t.Fatalf("expected +10 for >100 char description, got +%d", got)
	}
	if !contains(longOut.Flags, domain.FlagDetailedDescription) {
		t.Fatal("expected detailed_description flag")
	}

	urgent := base
	urgent.Description = strings.Repeat("x", 150) + " please help"
	urgentOut := Score(urgent)
	if got := urgentOut.Score - none.Score; got != 15 {
		t.Fatalf("expected +15 for long urgent description, got +%d", got)
	}
	if !contains(urgentOut.Flags, domain.FlagUrgencyKeywords) {
		t.Fatal("expected urgency_keywords flag")
	}

	// Multiple keywords still count once.
	multi := base
	multi.Description = "URGENT emergency, need help today"
	if got := Score(multi).Score - none.Score; got != 5 {
		t.Fatalf("expected single +5 urgency bonus, got +%d", got)
	}
}

func TestScore_CompletionTimeQuality(t *testing.T) {
	base := Input{
		ServiceType:  "repair",
		Timeline:     "flexible",
		BudgetRange:  "under_1000",
		PropertyType: "condo",
	}
	none := Score(base)

	cases := []struct {
		seconds int
		bonus   int
	}{
		{59, 0},
		{60, 5},
		{300, 5},
		{301, 2},
		{45, 0},
	}
	for _, tc := range cases {
		in := base
		in.CompletionSeconds = intPtr(tc.seconds)
		if got := Score(in).Score - none.Score; got != tc.bonus {
			t.Errorf("completion %ds: expected +%d, got +%d", tc.seconds, tc.bonus, got)
		}
	}
}

func TestScore_ConfidenceAlwaysInRange(t *testing.T) {
	inputs := []Input{
		{},
		{ServiceType: "emergency_repair", Timeline: "asap", BudgetRange: "over_15000", PropertyType: "commercial"},
		{
			ServiceType: "emergency_repair", Timeline: "asap", BudgetRange: "over_15000",
			PropertyType: "commercial", SystemIssue: "complete_failure", PropertyAge: intPtr(50),
			Description:       strings.Repeat("emergency now help ", 20),
			CompletionSeconds: intPtr(90),
			ValidationFlags:   []string{domain.FlagWorkEmail, domain.FlagLocalPhone},
		},
		{ValidationFlags: []string{domain.FlagWorkEmail, domain.FlagLocalPhone}},
	}
	for i, in := range inputs {
		out := Score(in)
		if out.Confidence < 0 || out.Confidence > 95 {
			t.Errorf("case %d: confidence %d out of [0,95]", i, out.Confidence)
		}
	}
}

func TestScore_UnknownEnumValuesScoreZero(t *testing.T) {
	out := Score(Input{
		ServiceType:  "underwater_basket_weaving",
		Timeline:     "someday",
		BudgetRange:  "priceless",
		PropertyType: "castle",
	})
	if out.Score != 0 {
		t.Fatalf("expected zero score for unknown enums, got %d", out.Score)
	}
	if out.Category != domain.CategoryNurture {
		t.Fatalf("expected NURTURE, got %s", out.Category)
	}
}

func contains(flags []string, want string) bool {
	for _, f := range flags {
		if f == want {
			return true
		}
	}
	return false
}
