package validation

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSubmissionCounter counts lead submissions per IP per calendar day in
// Redis. The key expires shortly after local midnight so counts reset daily.
type RedisSubmissionCounter struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisSubmissionCounter creates a counter backed by the given client.
func NewRedisSubmissionCounter(client *redis.Client) *RedisSubmissionCounter {
	return &RedisSubmissionCounter{client: client, now: time.Now}
}

// Record increments today's counter for the address and returns the new total.
func (r *RedisSubmissionCounter) Record(ctx context.Context, ip string) (int, error) {
	now := r.now()
	key := fmt.Sprintf("lead_submissions:%s:%s", now.Format("2006-01-02"), ip)

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}

	// Set the TTL only when the key is fresh to avoid resetting it on
	// every submission.
	if count == 1 {
		midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).Add(24 * time.Hour)
		if err := r.client.ExpireAt(ctx, key, midnight.Add(time.Minute)).Err(); err != nil {
			return int(count), err
		}
	}

	return int(count), nil
}

var _ SubmissionCounter = (*RedisSubmissionCounter)(nil)
