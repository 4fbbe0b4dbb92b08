// Package notification sends contractor-facing email and SMS in response to
// domain events. Domain modules publish events; this module owns delivery, so
// no service layer depends on a mail or SMS provider directly.
package notification

import (
	"context"
	"fmt"

	contractordomain "leadmarket_backend/internal/contractors/domain"
	"leadmarket_backend/internal/email"
	"leadmarket_backend/internal/events"
	"leadmarket_backend/internal/sms"
	"leadmarket_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ContractorReader looks up contractor contact details for events that do not
// carry them in the payload.
type ContractorReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (contractordomain.Contractor, error)
}

// Module wires domain events to email and SMS delivery.
type Module struct {
	emailSender email.Sender
	smsSender   sms.Sender
	contractors ContractorReader
	log         *logger.Logger
}

// NewModule creates the notification module.
func NewModule(emailSender email.Sender, smsSender sms.Sender, contractors ContractorReader, log *logger.Logger) *Module {
	return &Module{
		emailSender: emailSender,
		smsSender:   smsSender,
		contractors: contractors,
		log:         log,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "notification"
}

// RegisterHandlers subscribes to all relevant domain events on the event bus.
func (m *Module) RegisterHandlers(bus *events.InMemoryBus) {
	bus.Subscribe(events.LeadAssigned{}.EventName(), m)
	bus.Subscribe(events.LeadNoContractor{}.EventName(), m)
	bus.Subscribe(events.CallBilled{}.EventName(), m)
	bus.Subscribe(events.TrackingPoolExhausted{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.LeadAssigned:
		return m.handleLeadAssigned(ctx, e)
	case events.LeadNoContractor:
		return m.handleLeadNoContractor(ctx, e)
	case events.CallBilled:
		return m.handleCallBilled(ctx, e)
	case events.TrackingPoolExhausted:
		return m.handleTrackingPoolExhausted(ctx, e)
	default:
		m.log.Warn("unhandled event type", "event", event.EventName())
		return nil
	}
}

func (m *Module) handleLeadAssigned(ctx context.Context, e events.LeadAssigned) error {
	trackingNumber := ""
	if e.TrackingNumber != nil {
		trackingNumber = *e.TrackingNumber
	}

	// Email and SMS go out in parallel; one channel failing must not block
	// the other. Delivery errors are logged, never propagated.
	g, gctx := errgroup.WithContext(ctx)

	if e.ContractorEmail != "" {
		g.Go(func() error {
			err := m.emailSender.SendNewLeadEmail(gctx, e.ContractorEmail, email.NewLeadEmailData{
				ContractorName:   e.ContractorName,
				ServiceType:      e.ServiceType,
				Category:         e.Category,
				City:             e.City,
				State:            e.State,
				Zip:              e.Zip,
				Timeline:         e.Timeline,
				PriceCents:       e.PriceCents,
				TrackingNumber:   trackingNumber,
				ResponseDeadline: e.ResponseDeadline,
			})
			if err != nil {
				m.log.Error("new lead email failed",
					"lead_id", e.LeadID.String(),
					"contractor_id", e.ContractorID.String(),
					"error", err,
				)
			}
			return nil
		})
	}

	if e.ContractorPhone != "" {
		g.Go(func() error {
			body := fmt.Sprintf("New %s lead in %s, %s.", e.ServiceType, e.City, e.State)
			if trackingNumber != "" {
				body = fmt.Sprintf("%s Call the homeowner at %s before %s.",
					body, trackingNumber, e.ResponseDeadline.Format("3:04 PM Jan 2"))
			}
			if err := m.smsSender.Send(gctx, e.ContractorPhone, body); err != nil {
				m.log.Error("new lead sms failed",
					"lead_id", e.LeadID.String(),
					"contractor_id", e.ContractorID.String(),
					"error", err,
				)
			}
			return nil
		})
	}

	return g.Wait()
}

// handleLeadNoContractor is visibility only. The lead is already persisted
// with a terminal status, so there is nothing to deliver yet; nurture
// campaigns pick these up out of band.
func (m *Module) handleLeadNoContractor(_ context.Context, e events.LeadNoContractor) error {
	m.log.Warn("lead went unassigned",
		"lead_id", e.LeadID.String(),
		"reason", e.Reason,
	)
	return nil
}

func (m *Module) handleCallBilled(ctx context.Context, e events.CallBilled) error {
	contractor, err := m.contractors.GetByID(ctx, e.ContractorID)
	if err != nil {
		return fmt.Errorf("load contractor for billing email: %w", err)
	}

	if e.ChargeStatus == "failed" {
		if err := m.emailSender.SendChargeFailedEmail(ctx, contractor.Email, contractor.BusinessName, e.AmountCents); err != nil {
			m.log.Error("charge failed email failed",
				"billing_record_id", e.BillingRecordID.String(),
				"error", err,
			)
		}
		return nil
	}

	if err := m.emailSender.SendCallBilledEmail(ctx, contractor.Email, contractor.BusinessName, e.AmountCents, e.DurationSeconds); err != nil {
		m.log.Error("call billed email failed",
			"billing_record_id", e.BillingRecordID.String(),
			"error", err,
		)
	}
	return nil
}

func (m *Module) handleTrackingPoolExhausted(_ context.Context, e events.TrackingPoolExhausted) error {
	m.log.Error("tracking number pool exhausted",
		"lead_id", e.LeadID.String(),
	)
	return nil
}
