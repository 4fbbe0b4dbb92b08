package twiml

import (
	"strings"
	"testing"
)

func TestConnect(t *testing.T) {
	out, err := Connect("+13105551234", "https://api.example.com/webhooks/twilio/status")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	for _, want := range []string{
		"<Response>",
		"<Dial",
		`record="record-from-answer"`,
		`timeout="30"`,
		`action="https://api.example.com/webhooks/twilio/status"`,
		"<Number>+13105551234</Number>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestDecline(t *testing.T) {
	out, err := Decline("This number is no longer active.")
	if err != nil {
		t.Fatalf("Decline() error = %v", err)
	}

	if !strings.Contains(out, "This number is no longer active.") {
		t.Errorf("output missing message:\n%s", out)
	}
	if !strings.Contains(out, "<Reject") {
		t.Errorf("output missing Reject verb:\n%s", out)
	}
	if strings.Index(out, "<Say") > strings.Index(out, "<Reject") {
		t.Error("Say must precede Reject")
	}
}
