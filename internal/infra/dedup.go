package infra

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// DedupStoreInterface records gateway event ids so redelivered webhooks are
// acknowledged without being applied twice.
type DedupStoreInterface interface {
	// MarkProcessed returns true when eventID is seen for the first time.
	MarkProcessed(ctx context.Context, eventID string) (bool, error)
	// Forget releases a marked eventID so a redelivery can be processed.
	Forget(ctx context.Context, eventID string) error
}

var _ DedupStoreInterface = (*RedisDedupStore)(nil)

type RedisDedupStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisDedupStore(client *redis.Client, ttl time.Duration) *RedisDedupStore {
	return &RedisDedupStore{client: client, ttl: ttl}
}

func (s *RedisDedupStore) MarkProcessed(ctx context.Context, eventID string) (bool, error) {
	return s.client.SetNX(ctx, dedupKey(eventID), 1, s.ttl).Result()
}

func (s *RedisDedupStore) Forget(ctx context.Context, eventID string) error {
	return s.client.Del(ctx, dedupKey(eventID)).Err()
}

func dedupKey(eventID string) string {
	return "webhook:event:" + eventID
}
