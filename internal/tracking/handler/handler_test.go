package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"leadmarket_backend/internal/events"
	"leadmarket_backend/internal/tracking/domain"
	"leadmarket_backend/internal/tracking/repository"
	"leadmarket_backend/internal/tracking/service"
	"leadmarket_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type fakePool struct {
	mu        sync.Mutex
	available []domain.TrackingNumber
	assigned  map[string]domain.TrackingNumber
	recycled  int64
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

type noopBus struct{}

func (noopBus) Publish(context.Context, events.Event) {}

func (noopBus) PublishSync(context.Context, events.Event) error { return nil }

func (noopBus) Subscribe(string, events.Handler) {}

func assignedNumber(phoneNumber string, expiresAt time.Time) domain.TrackingNumber {
	leadID := uuid.New()
	contractorID := uuid.New()
	consumer := "+15559998888"
	return domain.TrackingNumber{
		ID:            uuid.New(),
		PhoneNumber:   phoneNumber,
		Status:        domain.StatusAssigned,
		LeadID:        &leadID,
		ContractorID:  &contractorID,
		ConsumerPhone: &consumer,
		ExpiresAt:     &expiresAt,
	}
}

func newRouter(pool *fakePool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := service.New(pool, noopBus{}, logger.New("test"))
	h := New(svc)

	r := gin.New()
	h.RegisterAdminRoutes(r.Group("/tracking"))
	h.RegisterInternalRoutes(r.Group("/internal/tracking"))
	return r
}

func TestRecycleReportsPoolShape(t *testing.T) {
	// One lapsed hold, one live hold, one free number.
	pool := &fakePool{
		available: []domain.TrackingNumber{
			{ID: uuid.New(), PhoneNumber: "+15550003333", Status: domain.StatusAvailable},
		},
		assigned: map[string]domain.TrackingNumber{
			"+15550001111": assignedNumber("+15550001111", time.Now().Add(-time.Hour)),
			"+15550002222": assignedNumber("+15550002222", time.Now().Add(24*time.Hour)),
		},
	}
	r := newRouter(pool)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/internal/tracking/recycle", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var body struct {
		Recycled    int64   `json:"recycled"`
		Available   int     `json:"available"`
		Assigned    int     `json:"assigned"`
		Total       int     `json:"total"`
		Utilization float64 `json:"utilization"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}

	if body.Recycled != 1 {
		t.Errorf("recycled = %d, want 1", body.Recycled)
	}
	if body.Available != 2 || body.Assigned != 1 || body.Total != 3 {
		t.Errorf("pool shape = %d available, %d assigned, %d total", body.Available, body.Assigned, body.Total)
	}
	if want := 1.0 / 3.0; body.Utilization != want {
		t.Errorf("utilization = %v, want %v", body.Utilization, want)
	}
}

func TestRecycleEmptySweep(t *testing.T) {
	pool := &fakePool{
		available: []domain.TrackingNumber{
			{ID: uuid.New(), PhoneNumber: "+15550003333", Status: domain.StatusAvailable},
		},
		assigned: map[string]domain.TrackingNumber{},
	}
	r := newRouter(pool)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/internal/tracking/recycle", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]json.Number
	dec := json.NewDecoder(w.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"recycled", "available", "assigned", "total", "utilization"} {
		if _, ok := body[key]; !ok {
			t.Errorf("response missing %q", key)
		}
	}
}
