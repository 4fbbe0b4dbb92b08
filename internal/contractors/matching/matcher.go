// Package matching selects the best contractor for a scored lead through a
// three-stage funnel: eligibility, performance, capacity. Survivor counts are
// logged and exported at each stage for observability.
package matching

import (
	"context"

	"leadmarket_backend/internal/contractors/domain"
	leaddomain "leadmarket_backend/internal/leads/domain"
	"leadmarket_backend/internal/metrics"
	"leadmarket_backend/platform/logger"

	"github.com/google/uuid"
)

// Outcome reason strings recorded on the lead when no contractor is selected.
const (
	ReasonNoContractor = "no_contractor_available"
	ReasonAtCapacity   = "contractors_at_capacity"
)

// Lead carries the lead attributes matching reads.
type Lead struct {
	ID          uuid.UUID
	Zip         string
	ServiceType string
	Category    leaddomain.Category
	PriceCents  int64
}

// Result is the matching outcome: a selected contractor, or a reason.
type Result struct {
	Contractor *domain.Contractor
	Reason     string
}

// ContractorSource provides candidate contractors and their load.
type ContractorSource interface {
	// EligibleContractors returns contractors passing the subscription-aware
	// eligibility filter: active, accepting, verified, payment method on
	// file, covering the zip, holding the specialization, credit balance
	// covering the lead price, and under their monthly tier cap.
	EligibleContractors(ctx context.Context, zip, serviceType string, priceCents int64) ([]domain.Contractor, error)

	// AssignmentCounts returns how many assignments the contractor received
	// today and in the current week.
	AssignmentCounts(ctx context.Context, contractorID uuid.UUID) (today, week int, err error)
}

// performanceBar is a category-dependent minimum performance requirement.
type performanceBar struct {
	minRating      float64
	minConversion  float64
	maxResponseMin int
}

var performanceBars = map[leaddomain.Category]performanceBar{
	leaddomain.CategoryPlatinum: {minRating: 4.5, minConversion: 0.70, maxResponseMin: 20},
	leaddomain.CategoryGold:     {minRating: 4.0, minConversion: 0.55, maxResponseMin: 120},
}

// Matcher runs the funnel.
type Matcher struct {
	source ContractorSource
	log    *logger.Logger
}

// New creates a Matcher.
func New(source ContractorSource, log *logger.Logger) *Matcher {
	return &Matcher{source: source, log: log}
}

// Match selects one contractor for the lead, or a reason why none qualified.
func (m *Matcher) Match(ctx context.Context, lead Lead) (Result, error) {
	leadID := lead.ID.String()

	// Stage 1: eligibility.
	eligible, err := m.source.EligibleContractors(ctx, lead.Zip, lead.ServiceType, lead.PriceCents)
	if err != nil {
		return Result{}, err
	}
	m.log.FunnelStage(leadID, "eligibility", len(eligible))
	metrics.MatchFunnelSurvivors.WithLabelValues("eligibility").Observe(float64(len(eligible)))

	if len(eligible) == 0 {
		metrics.MatchOutcomes.WithLabelValues(ReasonNoContractor).Inc()
		return Result{Reason: ReasonNoContractor}, nil
	}

	// Stage 2: category-dependent performance bar, falling back to the full
	// eligible set when nobody clears it. A lead is never rejected for lack
	// of elite contractors.
	performers := m.filterPerformance(eligible, lead.Category)
	if len(performers) == 0 {
		performers = eligible
	}
	m.log.FunnelStage(leadID, "performance", len(performers))
	metrics.MatchFunnelSurvivors.WithLabelValues("performance").Observe(float64(len(performers)))

	// Stage 3: daily/weekly capacity.
	available, loads, err := m.filterCapacity(ctx, performers)
	if err != nil {
		return Result{}, err
	}
	m.log.FunnelStage(leadID, "capacity", len(available))
	metrics.MatchFunnelSurvivors.WithLabelValues("capacity").Observe(float64(len(available)))

	if len(available) == 0 {
		metrics.MatchOutcomes.WithLabelValues(ReasonAtCapacity).Inc()
		return Result{Reason: ReasonAtCapacity}, nil
	}

	selected := m.rank(available, loads, lead)
	m.log.Info("contractor selected",
		"lead_id", leadID,
		"contractor_id", selected.ID.String(),
	)
	metrics.MatchOutcomes.WithLabelValues("matched").Inc()

	return Result{Contractor: selected}, nil
}

func (m *Matcher) filterPerformance(candidates []domain.Contractor, category leaddomain.Category) []domain.Contractor {
	bar, ok := performanceBars[category]
	if !ok {
		return candidates
	}

	out := make([]domain.Contractor, 0, len(candidates))
	for _, c := range candidates {
		if c.RatingOrWorst() >= bar.minRating &&
			c.ConversionOrWorst() >= bar.minConversion &&
			c.ResponseMinutesOrWorst() <= bar.maxResponseMin {
			out = append(out, c)
		}
	}
	return out
}

type contractorLoad struct {
	today int
	week  int
}

func (m *Matcher) filterCapacity(ctx context.Context, candidates []domain.Contractor) ([]domain.Contractor, map[uuid.UUID]contractorLoad, error) {
	out := make([]domain.Contractor, 0, len(candidates))
	loads := make(map[uuid.UUID]contractorLoad, len(candidates))

	for _, c := range candidates {
		today, week, err := m.source.AssignmentCounts(ctx, c.ID)
		if err != nil {
			return nil, nil, err
		}
		loads[c.ID] = contractorLoad{today: today, week: week}

		if c.MaxLeadsPerDay != nil && today >= *c.MaxLeadsPerDay {
			continue
		}
		if c.MaxLeadsPerWeek != nil && week >= *c.MaxLeadsPerWeek {
			continue
		}
		out = append(out, c)
	}
	return out, loads, nil
}

// rank assigns the additive priority score and returns the highest scorer.
// Ties go to the earlier candidate in input order.
func (m *Matcher) rank(candidates []domain.Contractor, loads map[uuid.UUID]contractorLoad, lead Lead) *domain.Contractor {
	best := 0
	var selected *domain.Contractor

	for i := range candidates {
		c := &candidates[i]
		score := priorityScore(c, loads[c.ID], lead.ServiceType)
		if selected == nil || score > best {
			best = score
			selected = c
		}
	}
	return selected
}

func priorityScore(c *domain.Contractor, load contractorLoad, serviceType string) int {
	score := 50

	switch rating := c.RatingOrWorst(); {
	case rating >= 4.8:
		score += 20
	case rating >= 4.5:
		score += 15
	case rating >= 4.0:
		score += 10
	}

	switch conversion := c.ConversionOrWorst(); {
	case conversion >= 0.80:
		score += 20
	case conversion >= 0.70:
		score += 15
	case conversion >= 0.55:
		score += 10
	}

	switch response := c.ResponseMinutesOrWorst(); {
	case response <= 15:
		score += 15
	case response <= 30:
		score += 10
	case response <= 60:
		score += 5
	}

	switch usage := dailyUsage(c, load); {
	case usage <= 0.30:
		score += 15
	case usage <= 0.50:
		score += 10
	case usage <= 0.70:
		score += 5
	}

	if c.PrimarySpecialization == serviceType {
		score += 10
	}

	return score
}

// dailyUsage is the fraction of the daily cap already used. Contractors
// without a cap are treated as unloaded.
func dailyUsage(c *domain.Contractor, load contractorLoad) float64 {
	if c.MaxLeadsPerDay == nil || *c.MaxLeadsPerDay <= 0 {
		return 0
	}
	return float64(load.today) / float64(*c.MaxLeadsPerDay)
}
