// Package validation performs structural and fraud checks on raw lead
// submissions before scoring. Checks return rejection reason strings, not
// errors; a rejected submission is never persisted.
package validation

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"leadmarket_backend/internal/leads/domain"
	"leadmarket_backend/platform/logger"
	"leadmarket_backend/platform/phone"
)

const (
	duplicateWindow = 7 * 24 * time.Hour
	// minCompletionSeconds is the bot heuristic: forms filled faster than
	// this are rejected.
	minCompletionSeconds = 30
	// maxDailySubmissionsPerIP caps submissions from one address per day.
	maxDailySubmissionsPerIP = 5
)

// RawLead is the unvalidated submission as received at the HTTP boundary.
type RawLead struct {
	FirstName    string
	LastName     string
	Email        string
	Phone        string
	Address      string
	City         string
	State        string
	Zip          string
	ServiceType  string
	Timeline     string
	BudgetRange  string
	PropertyType string

	Description           string
	PropertyAge           *int
	SystemIssue           string
	FormCompletionSeconds *int
	IP                    string
}

// Result aggregates the outcome of all checks.
type Result struct {
	Valid  bool
	Errors []string
	// Flags are quality signals (work_email, local_phone) consumed by scoring.
	Flags []string
}

// DuplicateChecker looks up recent submission history in the store.
type DuplicateChecker interface {
	// RecentDuplicateExists reports whether a lead with the same email, or
	// the same phone when the email differs, was submitted since the cutoff.
	RecentDuplicateExists(ctx context.Context, email, phoneDigits string, since time.Time) (bool, error)
}

// SubmissionCounter tracks per-IP submission volume for the current day.
type SubmissionCounter interface {
	// Record counts this submission and returns the day's running total
	// for the address, including this one.
	Record(ctx context.Context, ip string) (int, error)
}

// Checker runs the full validation suite. History-dependent checks
// (duplicates, IP volume) fail open when their backing store is unavailable:
// losing fraud history must not take lead intake down.
type Checker struct {
	dupes   DuplicateChecker
	counter SubmissionCounter
	log     *logger.Logger
	now     func() time.Time
}

// NewChecker creates a validation checker.
func NewChecker(dupes DuplicateChecker, counter SubmissionCounter, log *logger.Logger) *Checker {
	return &Checker{dupes: dupes, counter: counter, log: log, now: time.Now}
}

var (
	nameRegex  = regexp.MustCompile(`^[A-Za-z][A-Za-z '\-]{1,49}$`)
	emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	zipRegex   = regexp.MustCompile(`^\d{5}$`)

	placeholderNames = []string{"asdf", "qwer", "test", "zxcv", "abcd"}
)

var requiredFields = []struct {
	name string
	get  func(RawLead) string
}{
	{"first_name", func(r RawLead) string { return r.FirstName }},
	{"last_name", func(r RawLead) string { return r.LastName }},
	{"email", func(r RawLead) string { return r.Email }},
	{"phone", func(r RawLead) string { return r.Phone }},
	{"address", func(r RawLead) string { return r.Address }},
	{"city", func(r RawLead) string { return r.City }},
	{"state", func(r RawLead) string { return r.State }},
	{"zip", func(r RawLead) string { return r.Zip }},
	{"service_type", func(r RawLead) string { return r.ServiceType }},
	{"timeline", func(r RawLead) string { return r.Timeline }},
	{"budget_range", func(r RawLead) string { return r.BudgetRange }},
	{"property_type", func(r RawLead) string { return r.PropertyType }},
}

// Validate runs every check and aggregates rejection reasons. A missing
// required field rejects immediately, skipping all further checks.
func (c *Checker) Validate(ctx context.Context, raw RawLead) Result {
	var res Result

	for _, f := range requiredFields {
		if strings.TrimSpace(f.get(raw)) == "" {
			res.Errors = append(res.Errors, fmt.Sprintf("missing required field: %s", f.name))
		}
	}
	if len(res.Errors) > 0 {
		return res
	}

	c.checkNames(raw, &res)
	c.checkEmail(raw, &res)
	c.checkPhone(raw, &res)
	c.checkZip(raw, &res)
	c.checkBudgetPlausibility(raw, &res)
	c.checkBotTiming(raw, &res)
	c.checkDuplicate(ctx, raw, &res)
	c.checkSubmissionRate(ctx, raw, &res)

	res.Valid = len(res.Errors) == 0
	return res
}

func (c *Checker) checkNames(raw RawLead, res *Result) {
	for _, field := range []struct{ label, value string }{
		{"first name", raw.FirstName},
		{"last name", raw.LastName},
	} {
		name := strings.TrimSpace(field.value)
		if !nameRegex.MatchString(name) {
			res.Errors = append(res.Errors, fmt.Sprintf("%s must be 2-50 letters", field.label))
			continue
		}
		lower := strings.ToLower(name)
		for _, p := range placeholderNames {
			if strings.Contains(lower, p) {
				res.Errors = append(res.Errors, fmt.Sprintf("%s looks like placeholder text", field.label))
				break
			}
		}
		if hasRepeatedRun(lower, 4) {
			res.Errors = append(res.Errors, fmt.Sprintf("%s looks like keyboard mashing", field.label))
		}
	}
}

func (c *Checker) checkEmail(raw RawLead, res *Result) {
	email := strings.ToLower(strings.TrimSpace(raw.Email))
	if !emailRegex.MatchString(email) {
		res.Errors = append(res.Errors, "email address is not valid")
		return
	}

	at := strings.LastIndex(email, "@")
	emailDomain := email[at+1:]

	if disposableDomains[emailDomain] {
		res.Errors = append(res.Errors, "disposable email addresses are not accepted")
		return
	}
	if correct, ok := domainTypos[emailDomain]; ok {
		res.Errors = append(res.Errors, fmt.Sprintf("email domain looks misspelled, did you mean @%s?", correct))
		return
	}
	if !freeMailDomains[emailDomain] {
		res.Flags = append(res.Flags, domain.FlagWorkEmail)
	}
}

func (c *Checker) checkPhone(raw RawLead, res *Result) {
	digits := phone.Digits(raw.Phone)

	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) != 10 {
		res.Errors = append(res.Errors, "phone number must be 10 digits")
		return
	}
	if allSameDigit(digits) || isSequentialRun(digits) || fakePhones[digits] {
		res.Errors = append(res.Errors, "phone number looks fake")
		return
	}

	areaCode := digits[:3]
	if areaCode == "000" || areaCode == "555" || areaCode[0] == '1' {
		res.Errors = append(res.Errors, "phone area code is not valid")
		return
	}

	state := strings.ToUpper(strings.TrimSpace(raw.State))
	for _, code := range stateAreaCodes[state] {
		if code == areaCode {
			res.Flags = append(res.Flags, domain.FlagLocalPhone)
			break
		}
	}
}

func (c *Checker) checkZip(raw RawLead, res *Result) {
	zip := strings.TrimSpace(raw.Zip)
	if !zipRegex.MatchString(zip) {
		res.Errors = append(res.Errors, "zip code must be 5 digits")
		return
	}

	// Sparse table: states without an entry skip this check, never reject.
	state := strings.ToUpper(strings.TrimSpace(raw.State))
	prefixes, ok := stateZipPrefixes[state]
	if !ok {
		return
	}
	prefix := zip[:3]
	for _, p := range prefixes {
		if p == prefix {
			return
		}
	}
	res.Errors = append(res.Errors, fmt.Sprintf("zip code does not match state %s", state))
}

func (c *Checker) checkBudgetPlausibility(raw RawLead, res *Result) {
	properties := implausiblePairs[strings.ToLower(raw.BudgetRange)]
	property := strings.ToLower(raw.PropertyType)
	for _, p := range properties {
		if p == property {
			res.Errors = append(res.Errors, "budget is implausible for this property type")
			return
		}
	}
}

func (c *Checker) checkBotTiming(raw RawLead, res *Result) {
	if raw.FormCompletionSeconds != nil && *raw.FormCompletionSeconds < minCompletionSeconds {
		res.Errors = append(res.Errors, "form was completed too quickly")
	}
}

func (c *Checker) checkDuplicate(ctx context.Context, raw RawLead, res *Result) {
	if c.dupes == nil {
		return
	}
	email := strings.ToLower(strings.TrimSpace(raw.Email))
	digits := phone.LastTen(raw.Phone)

	exists, err := c.dupes.RecentDuplicateExists(ctx, email, digits, c.now().Add(-duplicateWindow))
	if err != nil {
		c.log.Error("duplicate check unavailable, skipping", "error", err)
		return
	}
	if exists {
		res.Errors = append(res.Errors, "a request from this contact was already submitted recently")
	}
}

func (c *Checker) checkSubmissionRate(ctx context.Context, raw RawLead, res *Result) {
	if c.counter == nil || strings.TrimSpace(raw.IP) == "" {
		return
	}
	count, err := c.counter.Record(ctx, raw.IP)
	if err != nil {
		c.log.Error("submission counter unavailable, skipping", "error", err)
		return
	}
	if count > maxDailySubmissionsPerIP {
		res.Errors = append(res.Errors, "too many submissions from this address today")
	}
}

func hasRepeatedRun(s string, n int) bool {
	run := 1
	for i := 1; i < len(s); i++ {
		if s[i] == s[i-1] {
			run++
			if run >= n {
				return true
			}
		} else {
			run = 1
		}
	}
	return false
}

func allSameDigit(digits string) bool {
	for i := 1; i < len(digits); i++ {
		if digits[i] != digits[0] {
			return false
		}
	}
	return len(digits) > 0
}

func isSequentialRun(digits string) bool {
	if len(digits) < 2 {
		return false
	}
	ascending, descending := true, true
	for i := 1; i < len(digits); i++ {
		diff := int(digits[i]) - int(digits[i-1])
		if diff != 1 && !(digits[i-1] == '9' && digits[i] == '0') {
			ascending = false
		}
		if diff != -1 && !(digits[i-1] == '0' && digits[i] == '9') {
			descending = false
		}
	}
	return ascending || descending
}
