package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title   string
	Heading string
}

type newLeadEmailData struct {
	baseEmailData
	ContractorName    string
	ServiceType       string
	Category          string
	Location          string
	Timeline          string
	PriceFormatted    string
	TrackingNumber    string
	DeadlineFormatted string
}

type callBilledEmailData struct {
	baseEmailData
	ContractorName  string
	AmountFormatted string
	DurationSeconds int
}

type chargeFailedEmailData struct {
	baseEmailData
	ContractorName  string
	AmountFormatted string
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}

func formatCurrencyUSD(cents int64) string {
	return fmt.Sprintf("$%.2f", float64(cents)/100)
}
