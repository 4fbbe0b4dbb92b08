// Package transport parses provider webhook payloads and defines the billing
// admin API shapes. Twilio posts application/x-www-form-urlencoded forms.
package transport

import (
	"net/http"
	"strconv"
	"strings"
)

// VoiceWebhook is the inbound-call webhook subset the call proxy reads.
type VoiceWebhook struct {
	CallSid string
	From    string
	To      string
}

// StatusWebhook is the dial-outcome webhook subset billing reads.
type StatusWebhook struct {
	CallSid         string
	From            string
	To              string
	CallStatus      string
	DurationSeconds int
}

// ParseVoiceWebhook extracts the inbound call fields from the request form.
func ParseVoiceWebhook(r *http.Request) (VoiceWebhook, error) {
	if err := r.ParseForm(); err != nil {
		return VoiceWebhook{}, err
	}
	return VoiceWebhook{
		CallSid: strings.TrimSpace(r.PostFormValue("CallSid")),
		From:    strings.TrimSpace(r.PostFormValue("From")),
		To:      strings.TrimSpace(r.PostFormValue("To")),
	}, nil
}

// ParseStatusWebhook extracts the dial outcome from the request form.
// Twilio reports the bridged duration in DialCallDuration; CallDuration is
// the fallback for providers that only send the call total.
func ParseStatusWebhook(r *http.Request) (StatusWebhook, error) {
	if err := r.ParseForm(); err != nil {
		return StatusWebhook{}, err
	}

	duration := r.PostFormValue("DialCallDuration")
	if duration == "" {
		duration = r.PostFormValue("CallDuration")
	}
	seconds, _ := strconv.Atoi(strings.TrimSpace(duration))

	status := r.PostFormValue("DialCallStatus")
	if status == "" {
		status = r.PostFormValue("CallStatus")
	}

	return StatusWebhook{
		CallSid:         strings.TrimSpace(r.PostFormValue("CallSid")),
		From:            strings.TrimSpace(r.PostFormValue("From")),
		To:              strings.TrimSpace(r.PostFormValue("To")),
		CallStatus:      strings.TrimSpace(status),
		DurationSeconds: seconds,
	}, nil
}

// DisputeRequest opens a dispute on a billing record.
type DisputeRequest struct {
	Reason string `json:"reason" binding:"required,min=10,max=500"`
}

// ResolveDisputeRequest settles an open dispute.
type ResolveDisputeRequest struct {
	Resolution  string `json:"resolution" binding:"required,oneof=credited partial_credit denied"`
	CreditCents int64  `json:"creditCents" binding:"omitempty,min=0"`
}
