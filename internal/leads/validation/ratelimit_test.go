package validation

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCounter(t *testing.T) (*RedisSubmissionCounter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisSubmissionCounter(client), mr
}

func TestRedisSubmissionCounter_CountsPerIP(t *testing.T) {
	counter, _ := newTestCounter(t)
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		got, err := counter.Record(ctx, "198.51.100.7")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != want {
			t.Fatalf("expected count %d, got %d", want, got)
		}
	}

	// A different address has its own counter.
	got, err := counter.Record(ctx, "198.51.100.8")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 1 {
		t.Fatalf("expected independent counter, got %d", got)
	}
}

func TestRedisSubmissionCounter_ResetsNextDay(t *testing.T) {
	counter, mr := newTestCounter(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 14, 22, 30, 0, 0, time.UTC)
	counter.now = func() time.Time { return base }

	if _, err := counter.Record(ctx, "198.51.100.7"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The key carries the date, so the next day starts from scratch even
	// before the TTL fires.
	counter.now = func() time.Time { return base.Add(3 * time.Hour) }
	got, err := counter.Record(ctx, "198.51.100.7")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 1 {
		t.Fatalf("expected fresh counter after midnight, got %d", got)
	}

	// And the previous day's key expires on its own.
	mr.FastForward(26 * time.Hour)
	if mr.Exists("lead_submissions:2026-03-14:198.51.100.7") {
		t.Fatal("expected previous day's key to expire")
	}
}
