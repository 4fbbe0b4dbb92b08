package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"leadmarket_backend/internal/events"
	"leadmarket_backend/internal/tracking/domain"
	"leadmarket_backend/internal/tracking/repository"
	"leadmarket_backend/platform/logger"

	"github.com/google/uuid"
)

type fakePool struct {
	mu        sync.Mutex
	available []domain.TrackingNumber
	assigned  map[string]domain.TrackingNumber
	recycled  int64
}

func newFakePool(numbers ...string) *fakePool {
	p := &fakePool{assigned: map[string]domain.TrackingNumber{}}
	for _, num := range numbers {
		p.available = append(p.available, domain.TrackingNumber{
			ID:          uuid.New(),
			PhoneNumber: num,
			Status:      domain.StatusAvailable,
		})
	}
	return p
}

func (p *fakePool) Add(_ context.Context, phoneNumber string) (domain.TrackingNumber, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := domain.TrackingNumber{ID: uuid.New(), PhoneNumber: phoneNumber, Status: domain.StatusAvailable}
	p.available = append(p.available, n)
	return n, nil
}

func (p *fakePool) Claim(_ context.Context, leadID, contractorID uuid.UUID, consumerPhone string, expiresAt time.Time) (domain.TrackingNumber, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.available) == 0 {
		return domain.TrackingNumber{}, repository.ErrPoolExhausted
	}
	n := p.available[0]
	p.available = p.available[1:]
	n.Status = domain.StatusAssigned
	n.LeadID = &leadID
	n.ContractorID = &contractorID
	n.ConsumerPhone = &consumerPhone
	n.ExpiresAt = &expiresAt
	p.assigned[n.PhoneNumber] = n
	return n, nil
}

func (p *fakePool) GetActiveByNumber(_ context.Context, phoneNumber string) (domain.TrackingNumber, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n, ok := p.assigned[phoneNumber]; ok {
		return n, nil
	}
	return domain.TrackingNumber{}, repository.ErrPoolExhausted
}

func (p *fakePool) Release(_ context.Context, phoneNumber string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n, ok := p.assigned[phoneNumber]
	if !ok {
		return false, nil
	}
	delete(p.assigned, phoneNumber)
	n.Status = domain.StatusAvailable
	n.TimesRecycled++
	p.available = append(p.available, n)
	return true, nil
}

func (p *fakePool) ReleaseExpired(_ context.Context, now time.Time) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var count int64
	for num, n := range p.assigned {
		if n.ExpiresAt != nil && now.After(*n.ExpiresAt) {
			delete(p.assigned, num)
			n.Status = domain.StatusAvailable
			p.available = append(p.available, n)
			count++
		}
	}
	p.recycled += count
	return count, nil
}

func (p *fakePool) Stats(_ context.Context) (domain.PoolStats, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	total := len(p.available) + len(p.assigned)
	stats := domain.PoolStats{
		Total:     total,
		Available: len(p.available),
		Assigned:  len(p.assigned),
		Recycled:  p.recycled,
	}
	if total > 0 {
		stats.Utilization = float64(stats.Assigned) / float64(total)
	}
	return stats, nil
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

func (b *recordingBus) PublishSync(_ context.Context, e events.Event) error {
	b.Publish(context.Background(), e)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.EventName())
	}
	return out
}

func newService(pool Pool, bus events.Bus) *Service {
	return New(pool, bus, logger.New("test"))
}

func TestAcquireClaimsNumberWithTTL(t *testing.T) {
	pool := newFakePool("+15550001111")
	svc := newService(pool, &recordingBus{})
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	n, err := svc.Acquire(context.Background(), uuid.New(), uuid.New(), "+15559998888")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if n == nil {
		t.Fatal("expected a tracking number")
	}
	if n.PhoneNumber != "+15550001111" {
		t.Errorf("PhoneNumber = %q", n.PhoneNumber)
	}
	wantExpiry := fixed.Add(5 * 24 * time.Hour)
	if n.ExpiresAt == nil || !n.ExpiresAt.Equal(wantExpiry) {
		t.Errorf("ExpiresAt = %v, want %v", n.ExpiresAt, wantExpiry)
	}
}

func TestAcquireExhaustedPoolDegradesGracefully(t *testing.T) {
	pool := newFakePool()
	bus := &recordingBus{}
	svc := newService(pool, bus)

	n, err := svc.Acquire(context.Background(), uuid.New(), uuid.New(), "+15559998888")
	if err != nil {
		t.Fatalf("Acquire() must not fail on exhaustion, got %v", err)
	}
	if n != nil {
		t.Fatal("expected nil number on exhaustion")
	}

	names := bus.names()
	if len(names) != 1 || names[0] != "tracking.pool.exhausted" {
		t.Errorf("published events = %v, want [tracking.pool.exhausted]", names)
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	pool := newFakePool("+15550001111")
	svc := newService(pool, &recordingBus{})

	if _, err := svc.Acquire(context.Background(), uuid.New(), uuid.New(), "+15559998888"); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := svc.Release(context.Background(), "+15550001111"); err != nil {
			t.Fatalf("Release() attempt %d error = %v", i+1, err)
		}
	}

	stats, _ := svc.Stats(context.Background())
	if stats.Available != 1 || stats.Assigned != 0 {
		t.Errorf("stats after double release = %+v", stats)
	}
}

func TestRecycleExpiredSweepsOnlyLapsedHolds(t *testing.T) {
	pool := newFakePool("+15550001111", "+15550002222")
	svc := newService(pool, &recordingBus{})

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return start }
	if _, err := svc.Acquire(context.Background(), uuid.New(), uuid.New(), "+15551110000"); err != nil {
		t.Fatal(err)
	}

	later := start.Add(2 * 24 * time.Hour)
	svc.now = func() time.Time { return later }
	if _, err := svc.Acquire(context.Background(), uuid.New(), uuid.New(), "+15552220000"); err != nil {
		t.Fatal(err)
	}

	// Six days in: the first hold lapsed, the second has three days left.
	svc.now = func() time.Time { return start.Add(6 * 24 * time.Hour) }
	recycled, err := svc.RecycleExpired(context.Background())
	if err != nil {
		t.Fatalf("RecycleExpired() error = %v", err)
	}
	if recycled != 1 {
		t.Errorf("recycled = %d, want 1", recycled)
	}

	stats, _ := svc.Stats(context.Background())
	if stats.Assigned != 1 || stats.Available != 1 {
		t.Errorf("stats = %+v, want one assigned and one available", stats)
	}
}

func TestNumberReusableAfterRelease(t *testing.T) {
	pool := newFakePool("+15550001111")
	svc := newService(pool, &recordingBus{})

	leadA := uuid.New()
	if _, err := svc.Acquire(context.Background(), leadA, uuid.New(), "+15551110000"); err != nil {
		t.Fatal(err)
	}
	if err := svc.Release(context.Background(), "+15550001111"); err != nil {
		t.Fatal(err)
	}

	leadB := uuid.New()
	n, err := svc.Acquire(context.Background(), leadB, uuid.New(), "+15552220000")
	if err != nil {
		t.Fatal(err)
	}
	if n == nil {
		t.Fatal("expected the released number to be claimable again")
	}
	if n.LeadID == nil || *n.LeadID != leadB {
		t.Error("reclaimed number must map to the new lead")
	}
}
