// Package scoring converts validated lead attributes into a score, category,
// price and confidence. Scoring is a pure function: the same input always
// produces the same output, and the result is fixed at lead creation.
package scoring

import (
	"strings"

	"leadmarket_backend/internal/leads/domain"
)

// Additive point tables per axis. The maximum total is around 200.
var serviceTypePoints = map[string]int{
	"emergency_repair": 50,
	"full_replacement": 40,
	"new_installation": 35,
	"repair":           30,
	"maintenance":      15,
	"inspection":       10,
}

var timelinePoints = map[string]int{
	"asap":            40,
	"within_week":     30,
	"within_month":    20,
	"within_3_months": 10,
	"flexible":        5,
}

var budgetPoints = map[string]int{
	"over_15000":  40,
	"10000_15000": 32,
	"5000_10000":  25,
	"2500_5000":   15,
	"1000_2500":   8,
	"under_1000":  3,
}

var propertyTypePoints = map[string]int{
	"commercial":    30,
	"single_family": 25,
	"multi_family":  20,
	"townhouse":     15,
	"condo":         12,
	"rental":        10,
	"apartment":     8,
}

var systemIssuePoints = map[string]int{
	"complete_failure":    15,
	"frequent_breakdowns": 10,
	"intermittent":        8,
	"poor_performance":    5,
}

// urgencyKeywords earn a description bonus. Case-insensitive substring match.
var urgencyKeywords = []string{
	"emergency", "urgent", "asap", "immediately", "today", "now", "help",
}

// Input carries the validated attributes the scorer reads.
type Input struct {
	ServiceType  string
	Timeline     string
	BudgetRange  string
	PropertyType string
	Description  string
	PropertyAge  *int
	SystemIssue  string

	// CompletionSeconds is the client-reported form fill duration.
	CompletionSeconds *int

	// Flags noted by validation (work_email, local_phone).
	ValidationFlags []string
}

// Output is the scoring result.
type Output struct {
	Score      int
	Category   domain.Category
	PriceCents int64
	Confidence int
	Flags      []string
}

// Score computes the additive score and derives category, price and
// confidence from it.
func Score(in Input) Output {
	flags := append([]string(nil), in.ValidationFlags...)
	total := 0

	total += serviceTypePoints[strings.ToLower(in.ServiceType)]
	total += timelinePoints[strings.ToLower(in.Timeline)]
	total += budgetPoints[strings.ToLower(in.BudgetRange)]
	total += propertyTypePoints[strings.ToLower(in.PropertyType)]

	if hasFlag(flags, domain.FlagWorkEmail) {
		total += 10
	}
	if hasFlag(flags, domain.FlagLocalPhone) {
		total += 5
	}

	total += propertyAgePoints(in.PropertyAge)
	total += systemIssuePoints[strings.ToLower(in.SystemIssue)]

	descPts, descFlags := descriptionPoints(in.Description)
	total += descPts
	flags = append(flags, descFlags...)

	completionPts, completionFlag := completionPoints(in.CompletionSeconds)
	total += completionPts
	if completionFlag != "" {
		flags = append(flags, completionFlag)
	}

	category := domain.CategoryForScore(total)

	return Output{
		Score:      total,
		Category:   category,
		PriceCents: category.PriceCents(),
		Confidence: confidence(total, flags),
		Flags:      flags,
	}
}

// propertyAgePoints rewards older properties: more likely to need replacement.
func propertyAgePoints(age *int) int {
	if age == nil {
		return 0
	}
	switch {
	case *age >= 30:
		return 10
	case *age >= 20:
		return 7
	case *age >= 10:
		return 4
	default:
		return 0
	}
}

func descriptionPoints(description string) (int, []string) {
	var flags []string
	pts := 0

	trimmed := strings.TrimSpace(description)
	switch {
	case len(trimmed) > 100:
		pts += 10
		flags = append(flags, domain.FlagDetailedDescription)
	case len(trimmed) >= 50:
		pts += 5
	}

	lower := strings.ToLower(trimmed)
	for _, kw := range urgencyKeywords {
		if strings.Contains(lower, kw) {
			pts += 5
			flags = append(flags, domain.FlagUrgencyKeywords)
			break
		}
	}

	return pts, flags
}

// completionPoints rewards a deliberate form fill: 60-300s suggests a real
// person reading the questions. Faster fills already passed the 30s bot gate.
func completionPoints(seconds *int) (int, string) {
	if seconds == nil {
		return 0, ""
	}
	switch {
	case *seconds >= 60 && *seconds <= 300:
		return 5, domain.FlagThoughtfulCompletion
	case *seconds > 300:
		return 2, ""
	default:
		return 0, ""
	}
}

// confidence maps the score into [0,95]: a base proportional to the score
// capped at 90, plus up to 10 from quality flags, hard-capped at 95.
func confidence(score int, flags []string) int {
	base := score * 100 / 200
	if base > 90 {
		base = 90
	}

	bonus := 0
	if hasFlag(flags, domain.FlagWorkEmail) {
		bonus += 3
	}
	if hasFlag(flags, domain.FlagDetailedDescription) {
		bonus += 3
	}
	if hasFlag(flags, domain.FlagLocalPhone) {
		bonus += 2
	}
	if hasFlag(flags, domain.FlagThoughtfulCompletion) {
		bonus += 2
	}

	total := base + bonus
	if total > 95 {
		total = 95
	}
	if total < 0 {
		total = 0
	}
	return total
}

func hasFlag(flags []string, want string) bool {
	for _, f := range flags {
		if f == want {
			return true
		}
	}
	return false
}
