// Package email sends transactional email to contractors over SMTP.
package email

import (
	"context"
	"time"

	"leadmarket_backend/platform/logger"
)

// NewLeadEmailData carries everything the new-lead notification renders.
type NewLeadEmailData struct {
	ContractorName   string
	ServiceType      string
	Category         string
	City             string
	State            string
	Zip              string
	Timeline         string
	PriceCents       int64
	TrackingNumber   string
	ResponseDeadline time.Time
}

// Sender delivers contractor-facing notification emails.
type Sender interface {
	SendNewLeadEmail(ctx context.Context, toEmail string, data NewLeadEmailData) error
	SendCallBilledEmail(ctx context.Context, toEmail, contractorName string, amountCents int64, durationSeconds int) error
	SendChargeFailedEmail(ctx context.Context, toEmail, contractorName string, amountCents int64) error
}

// NoopSender is used when email delivery is disabled. It logs instead of
// sending so the notification flow stays observable in development.
type NoopSender struct {
	log *logger.Logger
}

// NewNoopSender creates a sender that drops all email.
func NewNoopSender(log *logger.Logger) *NoopSender {
	return &NoopSender{log: log}
}

func (s *NoopSender) SendNewLeadEmail(_ context.Context, toEmail string, data NewLeadEmailData) error {
	s.log.Info("email disabled, dropping new lead email", "to", toEmail, "service_type", data.ServiceType)
	return nil
}

func (s *NoopSender) SendCallBilledEmail(_ context.Context, toEmail, _ string, amountCents int64, _ int) error {
	s.log.Info("email disabled, dropping call billed email", "to", toEmail, "amount_cents", amountCents)
	return nil
}

func (s *NoopSender) SendChargeFailedEmail(_ context.Context, toEmail, _ string, amountCents int64) error {
	s.log.Info("email disabled, dropping charge failed email", "to", toEmail, "amount_cents", amountCents)
	return nil
}
