package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	assignmentdomain "leadmarket_backend/internal/assignments/domain"
	"leadmarket_backend/internal/billing/domain"
	"leadmarket_backend/internal/billing/payments"
	"leadmarket_backend/internal/billing/repository"
	"leadmarket_backend/internal/billing/transport"
	contractordomain "leadmarket_backend/internal/contractors/domain"
	"leadmarket_backend/internal/events"
	leaddomain "leadmarket_backend/internal/leads/domain"
	trackingdomain "leadmarket_backend/internal/tracking/domain"
	"leadmarket_backend/platform/apperr"
	"leadmarket_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeMappings struct {
	mu       sync.Mutex
	byNumber map[string]trackingdomain.TrackingNumber
	releases []string
}

func (f *fakeMappings) ActiveMapping(_ context.Context, number string) (trackingdomain.TrackingNumber, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n, ok := f.byNumber[number]; ok {
		return n, nil
	}
	return trackingdomain.TrackingNumber{}, apperr.NotFound("tracking number not found")
}

func (f *fakeMappings) Release(_ context.Context, number string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releases = append(f.releases, number)
	delete(f.byNumber, number)
	return nil
}

type fakeRecords struct {
	mu       sync.Mutex
	byPair   map[string]domain.BillingRecord
	outcomes map[uuid.UUID]string
	callLogs map[string]domain.CallLog
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{
		byPair:   map[string]domain.BillingRecord{},
		outcomes: map[uuid.UUID]string{},
		callLogs: map[string]domain.CallLog{},
	}
}

func pairKey(leadID, contractorID uuid.UUID) string {
	return leadID.String() + "/" + contractorID.String()
}

func (f *fakeRecords) CreateIfAbsent(_ context.Context, rec domain.BillingRecord) (domain.BillingRecord, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := pairKey(rec.LeadID, rec.ContractorID)
	if existing, ok := f.byPair[key]; ok {
		return existing, false, nil
	}
	f.byPair[key] = rec
	return rec, true, nil
}

func (f *fakeRecords) GetByID(_ context.Context, id uuid.UUID) (domain.BillingRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rec := range f.byPair {
		if rec.ID == id {
			return rec, nil
		}
	}
	return domain.BillingRecord{}, apperr.NotFound("billing record not found")
}

func (f *fakeRecords) SetChargeOutcome(_ context.Context, id uuid.UUID, status, method string, chargeID, failureReason *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes[id] = status
	for key, rec := range f.byPair {
		if rec.ID == id {
			rec.ChargeStatus = status
			rec.PaymentMethod = method
			rec.ChargeID = chargeID
			rec.FailureReason = failureReason
			f.byPair[key] = rec
		}
	}
	return nil
}

func (f *fakeRecords) OpenDispute(_ context.Context, id uuid.UUID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, rec := range f.byPair {
		if rec.ID == id && (rec.DisputeStatus == "" || rec.DisputeStatus == domain.DisputeNone) {
			rec.DisputeStatus = domain.DisputeOpen
			rec.DisputeReason = &reason
			f.byPair[key] = rec
			return nil
		}
	}
	return apperr.Conflict("billing record already disputed or not found")
}

func (f *fakeRecords) ResolveDispute(_ context.Context, id uuid.UUID, resolution string, creditCents int64) (domain.BillingRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, rec := range f.byPair {
		if rec.ID == id && rec.DisputeStatus == domain.DisputeOpen {
			rec.DisputeStatus = resolution
			rec.CreditedCents = creditCents
			f.byPair[key] = rec
			return rec, nil
		}
	}
	return domain.BillingRecord{}, apperr.Conflict("no open dispute on billing record")
}

func (f *fakeRecords) List(context.Context, repository.ListParams) ([]domain.BillingRecord, error) {
	return nil, nil
}

func (f *fakeRecords) UpsertCallLog(_ context.Context, log domain.CallLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callLogs[log.CallSid] = log
	return nil
}

func (f *fakeRecords) GetCallLog(_ context.Context, callSid string) (domain.CallLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if log, ok := f.callLogs[callSid]; ok {
		return log, nil
	}
	return domain.CallLog{}, apperr.NotFound("call log not found")
}

type fakeContractors struct {
	mu         sync.Mutex
	contractor contractordomain.Contractor
	debits     []int64
	credits    []int64
	debitOK    bool
}

func (f *fakeContractors) GetByID(_ context.Context, _ uuid.UUID) (contractordomain.Contractor, error) {
	return f.contractor, nil
}

func (f *fakeContractors) DebitCredit(_ context.Context, _ uuid.UUID, amountCents int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.debitOK {
		return false, nil
	}
	f.debits = append(f.debits, amountCents)
	return true, nil
}

func (f *fakeContractors) CreditBalance(_ context.Context, _ uuid.UUID, amountCents int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.credits = append(f.credits, amountCents)
	return nil
}

type fakeAssignments struct {
	assignment assignmentdomain.Assignment
	contacted  []uuid.UUID
}

func (f *fakeAssignments) GetByLeadID(_ context.Context, _ uuid.UUID) (assignmentdomain.Assignment, error) {
	return f.assignment, nil
}

func (f *fakeAssignments) MarkContacted(_ context.Context, leadID uuid.UUID) error {
	f.contacted = append(f.contacted, leadID)
	return nil
}

type fakeLeads struct {
	lead      leaddomain.Lead
	contacted []uuid.UUID
}

func (f *fakeLeads) Get(_ context.Context, _ uuid.UUID) (leaddomain.Lead, error) {
	return f.lead, nil
}

func (f *fakeLeads) MarkContacted(_ context.Context, leadID uuid.UUID) error {
	f.contacted = append(f.contacted, leadID)
	return nil
}

type fakeGateway struct {
	mu              sync.Mutex
	charges         map[string]string
	decline         bool
	lastDescription string
}

func (f *fakeGateway) Charge(_ context.Context, _ uuid.UUID, _ int64, description, idempotencyKey string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastDescription = description
	if f.decline {
		return "", &payments.DeclinedError{Message: "card declined: insufficient funds"}
	}
	if f.charges == nil {
		f.charges = map[string]string{}
	}
	if id, ok := f.charges[idempotencyKey]; ok {
		return id, nil
	}
	id := "ch_" + idempotencyKey
	f.charges[idempotencyKey] = id
	return id, nil
}

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *recordingBus) PublishSync(ctx context.Context, e events.Event) error {
	b.Publish(ctx, e)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

type fixture struct {
	svc         *Service
	mappings    *fakeMappings
	records     *fakeRecords
	contractors *fakeContractors
	assignments *fakeAssignments
	leads       *fakeLeads
	gateway     *fakeGateway
	bus         *recordingBus

	leadID       uuid.UUID
	contractorID uuid.UUID
}

const (
	trackingNum    = "+15550001111"
	contractorNum  = "+13105556789"
	consumerNum    = "+13105551234"
	qualifyingCall = 45
)

func newFixture() *fixture {
	leadID := uuid.New()
	contractorID := uuid.New()
	consumer := consumerNum
	tracking := trackingNum

	f := &fixture{
		mappings: &fakeMappings{byNumber: map[string]trackingdomain.TrackingNumber{
			trackingNum: {
				PhoneNumber:   trackingNum,
				Status:        trackingdomain.StatusAssigned,
				LeadID:        &leadID,
				ContractorID:  &contractorID,
				ConsumerPhone: &consumer,
			},
		}},
		records: newFakeRecords(),
		contractors: &fakeContractors{contractor: contractordomain.Contractor{
			ID:    contractorID,
			Phone: contractorNum,
		}},
		assignments: &fakeAssignments{assignment: assignmentdomain.Assignment{
			ID:             uuid.New(),
			LeadID:         leadID,
			ContractorID:   contractorID,
			PriceCents:     17500,
			Status:         assignmentdomain.StatusAssigned,
			TrackingNumber: &tracking,
		}},
		leads: &fakeLeads{lead: leaddomain.Lead{
			ID:          leadID,
			Category:    leaddomain.CategoryGold,
			ServiceType: "duct_cleaning",
			City:        "Los Angeles",
			State:       "CA",
		}},
		gateway:      &fakeGateway{},
		bus:          &recordingBus{},
		leadID:       leadID,
		contractorID: contractorID,
	}

	f.svc = New(
		f.mappings, f.records, f.contractors, f.assignments, f.leads,
		f.gateway, f.bus, logger.New("test"),
		"https://api.example.com/api/v1/webhooks/twilio/status",
	)
	return f
}

func completedStatus(duration int) transport.StatusWebhook {
	return transport.StatusWebhook{
		CallSid:         "CA123",
		From:            contractorNum,
		To:              trackingNum,
		CallStatus:      "completed",
		DurationSeconds: duration,
	}
}

func TestInboundCallBridgesAuthorizedContractor(t *testing.T) {
	f := newFixture()

	out, err := f.svc.HandleInboundCall(context.Background(), transport.VoiceWebhook{
		CallSid: "CA123",
		From:    contractorNum,
		To:      trackingNum,
	})
	if err != nil {
		t.Fatalf("HandleInboundCall() error = %v", err)
	}
	if !strings.Contains(out, "<Number>"+consumerNum+"</Number>") {
		t.Errorf("expected bridge to consumer, got:\n%s", out)
	}
}

func TestInboundCallLastTenDigitMatch(t *testing.T) {
	f := newFixture()

	// Caller id arrives without the country code; the last ten digits match.
	out, err := f.svc.HandleInboundCall(context.Background(), transport.VoiceWebhook{
		CallSid: "CA123",
		From:    "3105556789",
		To:      trackingNum,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "<Dial") {
		t.Errorf("ten-digit caller id must still bridge:\n%s", out)
	}
}

func TestInboundCallRejectsUnknownCaller(t *testing.T) {
	f := newFixture()

	out, err := f.svc.HandleInboundCall(context.Background(), transport.VoiceWebhook{
		CallSid: "CA123",
		From:    "+19998887777",
		To:      trackingNum,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "<Reject") {
		t.Errorf("unknown caller must be rejected:\n%s", out)
	}
	if log, err := f.records.GetCallLog(context.Background(), "CA123"); err != nil || log.Status != callStatusUnauthorized {
		t.Errorf("call log = %+v, %v", log, err)
	}
}

func TestInboundCallUnmappedNumberDeclines(t *testing.T) {
	f := newFixture()

	out, err := f.svc.HandleInboundCall(context.Background(), transport.VoiceWebhook{
		CallSid: "CA999",
		From:    contractorNum,
		To:      "+15559990000",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "<Reject") {
		t.Errorf("unmapped number must decline:\n%s", out)
	}
}

func TestQualifyingCallBillsOnce(t *testing.T) {
	f := newFixture()

	if err := f.svc.HandleCallStatus(context.Background(), completedStatus(qualifyingCall)); err != nil {
		t.Fatalf("HandleCallStatus() error = %v", err)
	}

	rec, ok := f.records.byPair[pairKey(f.leadID, f.contractorID)]
	if !ok {
		t.Fatal("expected a billing record")
	}
	if rec.AmountCents != 17500 {
		t.Errorf("AmountCents = %d, want the assignment price", rec.AmountCents)
	}
	if rec.ChargeStatus != domain.ChargePaid {
		t.Errorf("ChargeStatus = %q, want paid", rec.ChargeStatus)
	}
	if len(f.mappings.releases) != 1 || f.mappings.releases[0] != trackingNum {
		t.Errorf("releases = %v, want the tracking number released", f.mappings.releases)
	}
	if len(f.leads.contacted) != 1 || f.leads.contacted[0] != f.leadID {
		t.Error("lead must advance to contacted")
	}
	if len(f.assignments.contacted) != 1 {
		t.Error("assignment must advance to contacted")
	}
}

func TestDuplicateCallbackBillsOnlyOnce(t *testing.T) {
	f := newFixture()

	if err := f.svc.HandleCallStatus(context.Background(), completedStatus(qualifyingCall)); err != nil {
		t.Fatal(err)
	}
	// The number is released by the first callback; put the mapping back to
	// simulate the duplicate arriving before the release took effect.
	consumer := consumerNum
	f.mappings.byNumber[trackingNum] = trackingdomain.TrackingNumber{
		PhoneNumber:   trackingNum,
		Status:        trackingdomain.StatusAssigned,
		LeadID:        &f.leadID,
		ContractorID:  &f.contractorID,
		ConsumerPhone: &consumer,
	}

	if err := f.svc.HandleCallStatus(context.Background(), completedStatus(qualifyingCall)); err != nil {
		t.Fatal(err)
	}

	if len(f.records.byPair) != 1 {
		t.Errorf("records = %d, want exactly one", len(f.records.byPair))
	}
	if got := len(f.gateway.charges); got > 1 {
		t.Errorf("gateway charges = %d, want at most one", got)
	}
	// Both callbacks release the number.
	if len(f.mappings.releases) != 2 {
		t.Errorf("releases = %d, duplicate must still release", len(f.mappings.releases))
	}
}

func TestShortCallNeverBills(t *testing.T) {
	f := newFixture()

	if err := f.svc.HandleCallStatus(context.Background(), completedStatus(domain.MinBillableSeconds)); err != nil {
		t.Fatal(err)
	}

	if len(f.records.byPair) != 0 {
		t.Error("a 30 second call must not produce a billing record")
	}
	if len(f.mappings.releases) != 0 {
		t.Error("a short call must keep the number assigned for callbacks")
	}
	if len(f.leads.contacted) != 0 {
		t.Error("a short call must not advance the lead")
	}
}

func TestFailedCallStatusDoesNotBill(t *testing.T) {
	f := newFixture()

	status := completedStatus(qualifyingCall)
	status.CallStatus = "no-answer"
	if err := f.svc.HandleCallStatus(context.Background(), status); err != nil {
		t.Fatal(err)
	}

	if len(f.records.byPair) != 0 {
		t.Error("unanswered calls must not bill")
	}
}

func TestChargeFailureKeepsRecord(t *testing.T) {
	f := newFixture()
	f.gateway.decline = true

	if err := f.svc.HandleCallStatus(context.Background(), completedStatus(qualifyingCall)); err != nil {
		t.Fatal(err)
	}

	rec, ok := f.records.byPair[pairKey(f.leadID, f.contractorID)]
	if !ok {
		t.Fatal("a failed charge must still leave a billing record")
	}
	if rec.ChargeStatus != domain.ChargeFailed {
		t.Errorf("ChargeStatus = %q, want failed", rec.ChargeStatus)
	}
	// Lead still advances; dunning picks up the failed charge.
	if len(f.leads.contacted) != 1 {
		t.Error("lead must advance even when the charge fails")
	}
	if len(f.mappings.releases) != 1 {
		t.Error("number must be released even when the charge fails")
	}
}

func TestDeclinedChargeRecordsReason(t *testing.T) {
	f := newFixture()
	f.gateway.decline = true

	if err := f.svc.HandleCallStatus(context.Background(), completedStatus(qualifyingCall)); err != nil {
		t.Fatal(err)
	}

	rec := f.records.byPair[pairKey(f.leadID, f.contractorID)]
	if rec.ChargeStatus != domain.ChargeFailed {
		t.Fatalf("ChargeStatus = %q, want failed", rec.ChargeStatus)
	}
	if rec.FailureReason == nil {
		t.Fatal("a declined charge must store the gateway's reason")
	}
	if !strings.Contains(*rec.FailureReason, "insufficient funds") {
		t.Errorf("FailureReason = %q, want the decline message", *rec.FailureReason)
	}
}

func TestPaidChargeHasNoFailureReason(t *testing.T) {
	f := newFixture()

	if err := f.svc.HandleCallStatus(context.Background(), completedStatus(qualifyingCall)); err != nil {
		t.Fatal(err)
	}

	rec := f.records.byPair[pairKey(f.leadID, f.contractorID)]
	if rec.FailureReason != nil {
		t.Errorf("FailureReason = %q, want none on a paid charge", *rec.FailureReason)
	}
}

func TestChargeDescriptionNamesLead(t *testing.T) {
	f := newFixture()

	if err := f.svc.HandleCallStatus(context.Background(), completedStatus(qualifyingCall)); err != nil {
		t.Fatal(err)
	}

	desc := f.gateway.lastDescription
	if !strings.Contains(desc, "duct_cleaning") || !strings.Contains(desc, "Los Angeles") {
		t.Errorf("description = %q, want the lead's service and location", desc)
	}
	if strings.Contains(desc, f.leadID.String()) {
		t.Errorf("description = %q, must not fall back to the raw lead id", desc)
	}
}

func TestPrepaidCreditPreferredOverCard(t *testing.T) {
	f := newFixture()
	f.contractors.debitOK = true

	if err := f.svc.HandleCallStatus(context.Background(), completedStatus(qualifyingCall)); err != nil {
		t.Fatal(err)
	}

	rec := f.records.byPair[pairKey(f.leadID, f.contractorID)]
	if rec.PaymentMethod != domain.MethodCredit {
		t.Errorf("PaymentMethod = %q, want credit_balance", rec.PaymentMethod)
	}
	if len(f.contractors.debits) != 1 || f.contractors.debits[0] != 17500 {
		t.Errorf("debits = %v", f.contractors.debits)
	}
	if len(f.gateway.charges) != 0 {
		t.Error("card must not be charged when credit covers the amount")
	}
}

func TestLateCallbackAfterReleaseIsIgnored(t *testing.T) {
	f := newFixture()
	delete(f.mappings.byNumber, trackingNum)

	if err := f.svc.HandleCallStatus(context.Background(), completedStatus(qualifyingCall)); err != nil {
		t.Fatalf("late callback must not error, got %v", err)
	}
	if len(f.records.byPair) != 0 {
		t.Error("late callback must not bill")
	}
}

func TestResolveDisputeFullCredit(t *testing.T) {
	f := newFixture()

	if err := f.svc.HandleCallStatus(context.Background(), completedStatus(qualifyingCall)); err != nil {
		t.Fatal(err)
	}
	rec := f.records.byPair[pairKey(f.leadID, f.contractorID)]

	if err := f.svc.OpenDispute(context.Background(), rec.ID, "caller was a wrong number entirely"); err != nil {
		t.Fatal(err)
	}

	resolved, err := f.svc.ResolveDispute(context.Background(), rec.ID, transport.ResolveDisputeRequest{
		Resolution: domain.DisputeCredited,
	})
	if err != nil {
		t.Fatalf("ResolveDispute() error = %v", err)
	}
	if resolved.CreditedCents != 17500 {
		t.Errorf("CreditedCents = %d, want full amount", resolved.CreditedCents)
	}
	if len(f.contractors.credits) != 1 || f.contractors.credits[0] != 17500 {
		t.Errorf("credits = %v", f.contractors.credits)
	}
	// Billing released once; the credit releases again so the number does
	// not wait for the recycler.
	if len(f.mappings.releases) != 2 {
		t.Errorf("releases = %v, credited dispute must release the number", f.mappings.releases)
	}
}

func TestResolveDisputeDeniedCreditsNothing(t *testing.T) {
	f := newFixture()

	if err := f.svc.HandleCallStatus(context.Background(), completedStatus(qualifyingCall)); err != nil {
		t.Fatal(err)
	}
	rec := f.records.byPair[pairKey(f.leadID, f.contractorID)]
	if err := f.svc.OpenDispute(context.Background(), rec.ID, "lead quality was below expectations"); err != nil {
		t.Fatal(err)
	}

	if _, err := f.svc.ResolveDispute(context.Background(), rec.ID, transport.ResolveDisputeRequest{
		Resolution: domain.DisputeDenied,
	}); err != nil {
		t.Fatal(err)
	}
	if len(f.contractors.credits) != 0 {
		t.Errorf("credits = %v, want none", f.contractors.credits)
	}
	if len(f.mappings.releases) != 1 {
		t.Errorf("releases = %v, denied dispute must not release again", f.mappings.releases)
	}
}

