// Package sms sends text messages to contractors through the Twilio
// Messages API. The same account powers the call tracking webhooks.
package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"leadmarket_backend/platform/config"
	"leadmarket_backend/platform/logger"
)

const apiBaseURL = "https://api.twilio.com/2010-04-01"

// Sender delivers a single SMS message.
type Sender interface {
	Send(ctx context.Context, to, body string) error
}

// TwilioSender sends SMS through the Twilio REST API with a plain form POST.
type TwilioSender struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	client     *http.Client
}

// NewTwilioSender creates a Twilio-backed SMS sender.
func NewTwilioSender(cfg config.SMSConfig) *TwilioSender {
	return &TwilioSender{
		accountSID: cfg.GetTwilioAccountSID(),
		authToken:  cfg.GetTwilioAuthToken(),
		from:       cfg.GetTwilioMessagingFrom(),
		baseURL:    apiBaseURL,
		client:     &http.Client{Timeout: 15 * time.Second},
	}
}

type twilioMessage struct {
	SID          string  `json:"sid"`
	Status       string  `json:"status"`
	ErrorMessage *string `json:"error_message"`
	Message      string  `json:"message"`
}

// Send submits the message for delivery. Twilio queues messages, so a nil
// error means accepted, not delivered.
func (s *TwilioSender) Send(ctx context.Context, to, body string) error {
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", s.from)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", s.baseURL, s.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.accountSID, s.authToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read sms response: %w", err)
	}

	var msg twilioMessage
	if err := json.Unmarshal(respBody, &msg); err != nil {
		return fmt.Errorf("decode sms response: %w", err)
	}

	if resp.StatusCode >= 400 {
		reason := msg.Message
		if msg.ErrorMessage != nil {
			reason = *msg.ErrorMessage
		}
		return fmt.Errorf("sms rejected: %s", reason)
	}

	return nil
}

// NoopSender is used when SMS delivery is disabled.
type NoopSender struct {
	log *logger.Logger
}

// NewNoopSender creates a sender that drops all messages.
func NewNoopSender(log *logger.Logger) *NoopSender {
	return &NoopSender{log: log}
}

func (s *NoopSender) Send(_ context.Context, to, _ string) error {
	s.log.Info("sms disabled, dropping message", "to", to)
	return nil
}

var (
	_ Sender = (*TwilioSender)(nil)
	_ Sender = (*NoopSender)(nil)
)
