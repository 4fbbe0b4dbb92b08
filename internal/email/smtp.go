package email

import (
	"context"
	"fmt"
	"net"
	"time"

	"leadmarket_backend/platform/config"

	gomail "github.com/wneessen/go-mail"
)

// SMTPSender implements Sender using a direct SMTP connection via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender creates a new SMTPSender from the email configuration.
func NewSMTPSender(cfg config.EmailConfig) *SMTPSender {
	return &SMTPSender{
		host:      cfg.GetSMTPHost(),
		port:      cfg.GetSMTPPort(),
		username:  cfg.GetSMTPUsername(),
		password:  cfg.GetSMTPPassword(),
		fromName:  cfg.GetEmailFromName(),
		fromEmail: cfg.GetEmailFromAddress(),
	}
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

func (s *SMTPSender) SendNewLeadEmail(ctx context.Context, toEmail string, data NewLeadEmailData) error {
	subject := fmt.Sprintf(subjectNewLeadFmt, data.ServiceType, data.City, data.State)
	content, err := renderEmailTemplate("new_lead.html", newLeadEmailData{
		baseEmailData: baseEmailData{
			Title:   "New lead assigned",
			Heading: "You have a new lead",
		},
		ContractorName:    data.ContractorName,
		ServiceType:       data.ServiceType,
		Category:          data.Category,
		Location:          fmt.Sprintf("%s, %s %s", data.City, data.State, data.Zip),
		Timeline:          data.Timeline,
		PriceFormatted:    formatCurrencyUSD(data.PriceCents),
		TrackingNumber:    data.TrackingNumber,
		DeadlineFormatted: data.ResponseDeadline.Format("Mon Jan 2, 3:04 PM MST"),
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}

func (s *SMTPSender) SendCallBilledEmail(ctx context.Context, toEmail, contractorName string, amountCents int64, durationSeconds int) error {
	content, err := renderEmailTemplate("call_billed.html", callBilledEmailData{
		baseEmailData: baseEmailData{
			Title:   "Call billed",
			Heading: "Your lead call was billed",
		},
		ContractorName:  contractorName,
		AmountFormatted: formatCurrencyUSD(amountCents),
		DurationSeconds: durationSeconds,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectCallBilled, content)
}

func (s *SMTPSender) SendChargeFailedEmail(ctx context.Context, toEmail, contractorName string, amountCents int64) error {
	subject := fmt.Sprintf(subjectChargeFailedFmt, formatCurrencyUSD(amountCents))
	content, err := renderEmailTemplate("charge_failed.html", chargeFailedEmailData{
		baseEmailData: baseEmailData{
			Title:   "Payment failed",
			Heading: "We could not collect a payment",
		},
		ContractorName:  contractorName,
		AmountFormatted: formatCurrencyUSD(amountCents),
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}

var (
	_ Sender = (*SMTPSender)(nil)
	_ Sender = (*NoopSender)(nil)
)
