package notification

import (
	"context"
	"sync"
	"testing"
	"time"

	contractordomain "leadmarket_backend/internal/contractors/domain"
	"leadmarket_backend/internal/email"
	"leadmarket_backend/internal/events"
	"leadmarket_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeEmailSender struct {
	mu           sync.Mutex
	newLead      []email.NewLeadEmailData
	billed       []int64
	chargeFailed []int64
}

func (f *fakeEmailSender) SendNewLeadEmail(_ context.Context, _ string, data email.NewLeadEmailData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.newLead = append(f.newLead, data)
	return nil
}

func (f *fakeEmailSender) SendCallBilledEmail(_ context.Context, _, _ string, amountCents int64, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.billed = append(f.billed, amountCents)
	return nil
}

func (f *fakeEmailSender) SendChargeFailedEmail(_ context.Context, _, _ string, amountCents int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chargeFailed = append(f.chargeFailed, amountCents)
	return nil
}

type fakeSMSSender struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeSMSSender) Send(_ context.Context, to, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, to)
	return nil
}

type fakeContractorReader struct {
	contractor contractordomain.Contractor
}

func (f *fakeContractorReader) GetByID(_ context.Context, _ uuid.UUID) (contractordomain.Contractor, error) {
	return f.contractor, nil
}

func newTestModule() (*Module, *fakeEmailSender, *fakeSMSSender) {
	emails := &fakeEmailSender{}
	texts := &fakeSMSSender{}
	contractors := &fakeContractorReader{contractor: contractordomain.Contractor{
		ID:           uuid.New(),
		BusinessName: "Apex Plumbing",
		Email:        "owner@apexplumbing.example",
		Phone:        "+13105556789",
	}}
	m := NewModule(emails, texts, contractors, logger.New("test"))
	return m, emails, texts
}

func TestLeadAssignedSendsEmailAndSMS(t *testing.T) {
	m, emails, texts := newTestModule()

	tracking := "+15550001111"
	err := m.Handle(context.Background(), events.LeadAssigned{
		BaseEvent:        events.NewBaseEvent(),
		LeadID:           uuid.New(),
		ContractorID:     uuid.New(),
		ContractorName:   "Apex Plumbing",
		ContractorEmail:  "owner@apexplumbing.example",
		ContractorPhone:  "+13105556789",
		ServiceType:      "plumbing",
		Category:         "GOLD",
		City:             "Austin",
		State:            "TX",
		Zip:              "78701",
		Timeline:         "immediately",
		PriceCents:       17500,
		TrackingNumber:   &tracking,
		ResponseDeadline: time.Now().Add(2 * time.Hour),
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if len(emails.newLead) != 1 {
		t.Fatalf("expected 1 new lead email, got %d", len(emails.newLead))
	}
	if emails.newLead[0].TrackingNumber != tracking {
		t.Errorf("email tracking number = %q, want %q", emails.newLead[0].TrackingNumber, tracking)
	}
	if len(texts.sent) != 1 || texts.sent[0] != "+13105556789" {
		t.Errorf("sms recipients = %v, want contractor phone", texts.sent)
	}
}

func TestLeadAssignedWithoutContactDetailsSendsNothing(t *testing.T) {
	m, emails, texts := newTestModule()

	err := m.Handle(context.Background(), events.LeadAssigned{
		BaseEvent:    events.NewBaseEvent(),
		LeadID:       uuid.New(),
		ContractorID: uuid.New(),
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(emails.newLead) != 0 || len(texts.sent) != 0 {
		t.Errorf("expected no deliveries, got %d emails and %d sms", len(emails.newLead), len(texts.sent))
	}
}

func TestCallBilledRoutesOnChargeStatus(t *testing.T) {
	m, emails, _ := newTestModule()

	paid := events.CallBilled{
		BaseEvent:       events.NewBaseEvent(),
		BillingRecordID: uuid.New(),
		ContractorID:    uuid.New(),
		AmountCents:     17500,
		ChargeStatus:    "paid",
		DurationSeconds: 45,
	}
	if err := m.Handle(context.Background(), paid); err != nil {
		t.Fatalf("Handle paid: %v", err)
	}

	failed := paid
	failed.ChargeStatus = "failed"
	if err := m.Handle(context.Background(), failed); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	if len(emails.billed) != 1 || emails.billed[0] != 17500 {
		t.Errorf("billed emails = %v, want one receipt for 17500", emails.billed)
	}
	if len(emails.chargeFailed) != 1 || emails.chargeFailed[0] != 17500 {
		t.Errorf("charge failed emails = %v, want one for 17500", emails.chargeFailed)
	}
}
