// Package twiml is a minimal Twilio Markup Language response builder.
// It intentionally avoids any provider SDK dependency; only the verbs the
// call proxy needs are modeled.
package twiml

import (
	"bytes"
	"encoding/xml"
)

type response struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any    `xml:",any"`
}

type say struct {
	XMLName xml.Name `xml:"Say"`
	Voice   string   `xml:"voice,attr,omitempty"`
	Text    string   `xml:",chardata"`
}

type reject struct {
	XMLName xml.Name `xml:"Reject"`
	Reason  string   `xml:"reason,attr,omitempty"`
}

type dial struct {
	XMLName        xml.Name `xml:"Dial"`
	Record         string   `xml:"record,attr,omitempty"`
	TimeoutSeconds int      `xml:"timeout,attr,omitempty"`
	StatusCallback string   `xml:"action,attr,omitempty"`
	Number         string   `xml:"Number,omitempty"`
}

// Connect renders TwiML that bridges the caller to the given number. The
// provider posts the call outcome to statusCallback when the dial finishes.
func Connect(number, statusCallback string) (string, error) {
	return render(response{Verbs: []any{dial{
		Record:         "record-from-answer",
		TimeoutSeconds: 30,
		StatusCallback: statusCallback,
		Number:         number,
	}}})
}

// Decline renders TwiML that reads a short message and rejects the call.
// Used for unmapped numbers and unauthorized callers.
func Decline(message string) (string, error) {
	return render(response{Verbs: []any{
		say{Voice: "alice", Text: message},
		reject{Reason: "rejected"},
	}})
}

func render(r response) (string, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
