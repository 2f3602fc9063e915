package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL is applied by Put when no positive TTL is given.
const DefaultTTL = 900 * time.Second

// DefaultPrefix namespaces snapshot keys.
const DefaultPrefix = "ac:id"

var (
	// ErrMiss is returned by Get when no entry exists for the key.
	ErrMiss = errors.New("cache miss")

	// ErrUnavailable wraps backend failures. Callers treat it as a miss after
	// recording the outage.
	ErrUnavailable = errors.New("cache unavailable")

	// ErrCorrupt is returned by Get when a stored entry cannot be decoded.
	ErrCorrupt = errors.New("cache entry corrupt")
)

// Store is a Redis-backed snapshot cache keyed by email.
//
//	Performance: one round trip per call.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore returns a [Store] using rdb. An empty prefix selects [DefaultPrefix].
func NewStore(rdb redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{redis: rdb, prefix: prefix}
}

func (s *Store) key(email string) string {
	return s.prefix + ":" + email
}

// Get loads the snapshot cached for email.
//
// Legacy schema entries are rewritten in the current schema with their remaining TTL.
func (s *Store) Get(ctx context.Context, email string) (*Snapshot, error) {
	key := s.key(email)

	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	snap, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	if err := s.maybeMigrateSchema(ctx, key, snap); err != nil {
		return nil, err
	}

	return snap, nil
}

// Put stores snap for email with ttl; ttl <= 0 selects [DefaultTTL].
func (s *Store) Put(ctx context.Context, email string, snap *Snapshot, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	data, err := Encode(snap)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(email), data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Invalidate deletes the entry for email. Deleting a missing entry is not an error.
func (s *Store) Invalidate(ctx context.Context, email string) error {
	if err := s.redis.Del(ctx, s.key(email)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return time.Since(start), nil
}

func (s *Store) maybeMigrateSchema(ctx context.Context, key string, snap *Snapshot) error {
	if snap.SchemaVersion == CurrentSchemaVersion {
		return nil
	}

	pttl, err := s.redis.PTTL(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if pttl <= 0 {
		return nil
	}

	snap.SchemaVersion = CurrentSchemaVersion
	encoded, err := Encode(snap)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, key, encoded, pttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
