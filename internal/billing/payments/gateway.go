// Package payments defines the charge gateway port and its implementations.
package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"leadmarket_backend/platform/config"

	"github.com/google/uuid"
)

// Gateway charges a contractor's card on file for a qualifying call.
// Implementations must be idempotent on idempotencyKey: re-submitting the
// same key returns the original charge instead of creating a second one.
type Gateway interface {
	Charge(ctx context.Context, contractorID uuid.UUID, amountCents int64, description, idempotencyKey string) (chargeID string, err error)
}

// StripeGateway charges through the Stripe HTTP API. No SDK is used; the
// charge call is a single form POST with an Idempotency-Key header.
type StripeGateway struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewStripe creates a Stripe-backed gateway.
func NewStripe(cfg config.PaymentConfig) *StripeGateway {
	return &StripeGateway{
		apiKey:  cfg.GetStripeAPIKey(),
		baseURL: strings.TrimRight(cfg.GetStripeAPIBaseURL(), "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type stripeCharge struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Charge creates a Stripe charge against the contractor's default payment
// method. The contractor id doubles as the Stripe customer reference set
// during onboarding.
func (g *StripeGateway) Charge(ctx context.Context, contractorID uuid.UUID, amountCents int64, description, idempotencyKey string) (string, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amountCents, 10))
	form.Set("currency", "usd")
	form.Set("customer", "ctr_"+contractorID.String())
	form.Set("description", description)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/charges", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build charge request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Idempotency-Key", idempotencyKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("charge request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read charge response: %w", err)
	}

	var charge stripeCharge
	if err := json.Unmarshal(body, &charge); err != nil {
		return "", fmt.Errorf("decode charge response: %w", err)
	}

	if resp.StatusCode >= 400 || charge.Status == "failed" {
		msg := charge.Status
		if charge.Error != nil {
			msg = charge.Error.Message
		}
		return "", &DeclinedError{Message: msg}
	}

	return charge.ID, nil
}

// DeclinedError reports a charge the gateway rejected. The billing record is
// still written; the charge goes to dunning.
type DeclinedError struct {
	Message string
}

func (e *DeclinedError) Error() string {
	return "charge declined: " + e.Message
}

// DisabledGateway declines every charge. Used when no payment provider is
// configured, typically in development.
type DisabledGateway struct{}

// Charge always reports a declined charge.
func (DisabledGateway) Charge(context.Context, uuid.UUID, int64, string, string) (string, error) {
	return "", &DeclinedError{Message: "payment gateway disabled"}
}
