package validation

import (
	"context"
	"strings"
	"testing"
	"time"

	"leadmarket_backend/internal/leads/domain"
	"leadmarket_backend/platform/logger"
)

type fakeDupes struct {
	exists bool
	err    error

	gotEmail string
	gotPhone string
}

func (f *fakeDupes) RecentDuplicateExists(_ context.Context, email, phoneDigits string, _ time.Time) (bool, error) {
	f.gotEmail = email
	f.gotPhone = phoneDigits
	return f.exists, f.err
}

type fakeCounter struct {
	count int
	err   error
}

func (f *fakeCounter) Record(_ context.Context, _ string) (int, error) {
	return f.count, f.err
}

func newChecker(dupes DuplicateChecker, counter SubmissionCounter) *Checker {
	return NewChecker(dupes, counter, logger.New("development"))
}

func validRaw() RawLead {
	completion := 120
	return RawLead{
		FirstName:             "Maria",
		LastName:              "Sanchez",
		Email:                 "maria.sanchez@acmehvac.com",
		Phone:                 "3105551834",
		Address:               "812 Palm Ave",
		City:                  "Los Angeles",
		State:                 "CA",
		Zip:                   "90012",
		ServiceType:           "emergency_repair",
		Timeline:              "asap",
		BudgetRange:           "5000_10000",
		PropertyType:          "single_family",
		FormCompletionSeconds: &completion,
		IP:                    "203.0.113.9",
	}
}

func TestValidate_MissingRequiredFieldSkipsOtherChecks(t *testing.T) {
	raw := validRaw()
	raw.Email = ""
	raw.Phone = "123" // would also fail, but must not be reported

	res := newChecker(&fakeDupes{}, &fakeCounter{count: 1}).Validate(context.Background(), raw)

	if res.Valid {
		t.Fatal("expected rejection")
	}
	if len(res.Errors) != 1 {
		t.Fatalf("expected exactly the missing-field error, got %v", res.Errors)
	}
	if !strings.Contains(res.Errors[0], "email") {
		t.Fatalf("expected missing email error, got %q", res.Errors[0])
	}
}

func TestValidate_AllTwelveFieldsRequired(t *testing.T) {
	clear := []func(*RawLead){
		func(r *RawLead) { r.FirstName = "" },
		func(r *RawLead) { r.LastName = "" },
		func(r *RawLead) { r.Email = "" },
		func(r *RawLead) { r.Phone = "" },
		func(r *RawLead) { r.Address = "" },
		func(r *RawLead) { r.City = "" },
		func(r *RawLead) { r.State = "" },
		func(r *RawLead) { r.Zip = "" },
		func(r *RawLead) { r.ServiceType = "" },
		func(r *RawLead) { r.Timeline = "" },
		func(r *RawLead) { r.BudgetRange = "" },
		func(r *RawLead) { r.PropertyType = "" },
	}
	for i, fn := range clear {
		raw := validRaw()
		fn(&raw)
		if res := newChecker(&fakeDupes{}, &fakeCounter{count: 1}).Validate(context.Background(), raw); res.Valid {
			t.Errorf("case %d: expected rejection for missing field", i)
		}
	}
}

func TestValidate_NameChecks(t *testing.T) {
	cases := []struct {
		name   string
		reject bool
	}{
		{"Maria", false},
		{"O'Brien", false},
		{"Smith-Jones", false},
		{"X", true},           // too short
		{"asdf", true},        // keyboard mash
		{"Testing", true},     // placeholder
		{"Qwerty", true},      // placeholder
		{"Aaaamy", true},      // 4+ repeated chars
		{"J@ne", true},        // invalid characters
		{strings.Repeat("a", 51), true},
	}
	for _, tc := range cases {
		raw := validRaw()
		raw.FirstName = tc.name
		res := newChecker(&fakeDupes{}, &fakeCounter{count: 1}).Validate(context.Background(), raw)
		if res.Valid == tc.reject {
			t.Errorf("name %q: valid=%v, want reject=%v (errors %v)", tc.name, res.Valid, tc.reject, res.Errors)
		}
	}
}

func TestValidate_EmailChecks(t *testing.T) {
	t.Run("disposable domain rejected", func(t *testing.T) {
		raw := validRaw()
		raw.Email = "someone@mailinator.com"
		res := newChecker(&fakeDupes{}, &fakeCounter{count: 1}).Validate(context.Background(), raw)
		if res.Valid {
			t.Fatal("expected rejection for disposable domain")
		}
	})

	t.Run("typo domain rejected with correction", func(t *testing.T) {
		raw := validRaw()
		raw.Email = "someone@gmial.com"
		res := newChecker(&fakeDupes{}, &fakeCounter{count: 1}).Validate(context.Background(), raw)
		if res.Valid {
			t.Fatal("expected rejection for typo domain")
		}
		found := false
		for _, e := range res.Errors {
			if strings.Contains(e, "gmail.com") {
				found = true
			}
		}
		if !found {
			t.Fatalf("expected correction offer in errors, got %v", res.Errors)
		}
	})

	t.Run("work email flagged", func(t *testing.T) {
		raw := validRaw() // acmehvac.com is not free mail
		res := newChecker(&fakeDupes{}, &fakeCounter{count: 1}).Validate(context.Background(), raw)
		if !res.Valid {
			t.Fatalf("expected valid, got %v", res.Errors)
		}
		if !hasFlag(res.Flags, domain.FlagWorkEmail) {
			t.Fatal("expected work_email flag")
		}
	})

	t.Run("free mail not flagged", func(t *testing.T) {
		raw := validRaw()
		raw.Email = "maria@gmail.com"
		res := newChecker(&fakeDupes{}, &fakeCounter{count: 1}).Validate(context.Background(), raw)
		if !res.Valid {
			t.Fatalf("expected valid, got %v", res.Errors)
		}
		if hasFlag(res.Flags, domain.FlagWorkEmail) {
			t.Fatal("did not expect work_email flag for gmail")
		}
	})
}

func TestValidate_PhoneChecks(t *testing.T) {
	cases := []struct {
		phone  string
		reject bool
	}{
		{"3105551834", false},
		{"13105551834", false}, // 11 digits with leading 1
		{"5555555555", true},   // all same
		{"1234567890", true},   // ascending
		{"9876543210", true},   // descending
		{"0005551834", true},   // area code 000
		{"5555551834", true},   // area code 555
		{"1235551834", true},   // area code starting with 1
		{"310555183", true},    // 9 digits
	}
	for _, tc := range cases {
		raw := validRaw()
		raw.Phone = tc.phone
		res := newChecker(&fakeDupes{}, &fakeCounter{count: 1}).Validate(context.Background(), raw)
		if res.Valid == tc.reject {
			t.Errorf("phone %q: valid=%v, want reject=%v (errors %v)", tc.phone, res.Valid, tc.reject, res.Errors)
		}
	}

	t.Run("local area code flagged", func(t *testing.T) {
		raw := validRaw() // 310 is a CA area code
		res := newChecker(&fakeDupes{}, &fakeCounter{count: 1}).Validate(context.Background(), raw)
		if !hasFlag(res.Flags, domain.FlagLocalPhone) {
			t.Fatal("expected local_phone flag for CA area code")
		}
	})

	t.Run("out of state area code not flagged", func(t *testing.T) {
		raw := validRaw()
		raw.Phone = "2125551834" // NY area code, CA lead
		res := newChecker(&fakeDupes{}, &fakeCounter{count: 1}).Validate(context.Background(), raw)
		if !res.Valid {
			t.Fatalf("expected valid, got %v", res.Errors)
		}
		if hasFlag(res.Flags, domain.FlagLocalPhone) {
			t.Fatal("did not expect local_phone flag")
		}
	})
}

func TestValidate_ZipChecks(t *testing.T) {
	t.Run("mismatched prefix rejected", func(t *testing.T) {
		raw := validRaw()
		raw.Zip = "10001" // NY prefix on a CA lead
		res := newChecker(&fakeDupes{}, &fakeCounter{count: 1}).Validate(context.Background(), raw)
		if res.Valid {
			t.Fatal("expected rejection for CA lead with NY zip")
		}
	})

	t.Run("state absent from table skips check", func(t *testing.T) {
		raw := validRaw()
		raw.State = "VT" // not in the sparse table
		raw.Phone = "8025551834"
		raw.Zip = "05401"
		res := newChecker(&fakeDupes{}, &fakeCounter{count: 1}).Validate(context.Background(), raw)
		if !res.Valid {
			t.Fatalf("expected valid for state missing from table, got %v", res.Errors)
		}
	})

	t.Run("non numeric zip rejected", func(t *testing.T) {
		raw := validRaw()
		raw.Zip = "9001A"
		if res := newChecker(&fakeDupes{}, &fakeCounter{count: 1}).Validate(context.Background(), raw); res.Valid {
			t.Fatal("expected rejection for malformed zip")
		}
	})
}

func TestValidate_ImplausibleBudgetPropertyPair(t *testing.T) {
	raw := validRaw()
	raw.BudgetRange = "over_15000"
	raw.PropertyType = "rental"
	res := newChecker(&fakeDupes{}, &fakeCounter{count: 1}).Validate(context.Background(), raw)
	if res.Valid {
		t.Fatal("expected rejection for $15k+ budget on a rental")
	}
}

func TestValidate_BotTiming(t *testing.T) {
	raw := validRaw()
	fast := 12
	raw.FormCompletionSeconds = &fast
	res := newChecker(&fakeDupes{}, &fakeCounter{count: 1}).Validate(context.Background(), raw)
	if res.Valid {
		t.Fatal("expected rejection for sub-30s completion")
	}

	raw.FormCompletionSeconds = nil
	res = newChecker(&fakeDupes{}, &fakeCounter{count: 1}).Validate(context.Background(), raw)
	if !res.Valid {
		t.Fatalf("expected valid when completion time absent, got %v", res.Errors)
	}
}

func TestValidate_DuplicateWithinWindowRejected(t *testing.T) {
	dupes := &fakeDupes{exists: true}
	res := newChecker(dupes, &fakeCounter{count: 1}).Validate(context.Background(), validRaw())
	if res.Valid {
		t.Fatal("expected rejection for recent duplicate")
	}
	if dupes.gotEmail != "maria.sanchez@acmehvac.com" {
		t.Fatalf("expected normalized email, got %q", dupes.gotEmail)
	}
	if dupes.gotPhone != "3105551834" {
		t.Fatalf("expected last-10 phone digits, got %q", dupes.gotPhone)
	}
}

func TestValidate_DuplicateCheckFailsOpen(t *testing.T) {
	dupes := &fakeDupes{err: context.DeadlineExceeded}
	res := newChecker(dupes, &fakeCounter{count: 1}).Validate(context.Background(), validRaw())
	if !res.Valid {
		t.Fatalf("expected store failure to fail open, got %v", res.Errors)
	}
}

func TestValidate_SubmissionRateLimit(t *testing.T) {
	// Sixth submission today (five already seen) is rejected.
	res := newChecker(&fakeDupes{}, &fakeCounter{count: 6}).Validate(context.Background(), validRaw())
	if res.Valid {
		t.Fatal("expected rejection at 5 prior submissions")
	}

	// Fifth submission (four prior) is still allowed.
	res = newChecker(&fakeDupes{}, &fakeCounter{count: 5}).Validate(context.Background(), validRaw())
	if !res.Valid {
		t.Fatalf("expected fifth submission to pass, got %v", res.Errors)
	}
}

func hasFlag(flags []string, want string) bool {
	for _, f := range flags {
		if f == want {
			return true
		}
	}
	return false
}
