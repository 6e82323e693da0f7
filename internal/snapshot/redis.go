// Package snapshot publishes the latest detection set to Redis so other
// portal consumers (dashboards, recorders) can read it without talking
// to the detection service directly.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/modelportal/detection-service/internal/detector"
)

// latestKey holds the JSON-encoded most recent detection set.
const latestKey = "detections:latest"

// Store wraps a Redis client for detection snapshot storage. It
// implements detector.Publisher.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a Store connected to the specified Redis address.
// If addr is empty, defaults to localhost:6379
func New(addr string, ttl time.Duration) (*Store, error) {
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: "", // No password by default
		DB:       0,  // Default DB
	})

	// Test connection
	ctx := context.Background()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	return &Store{client: client, ttl: ttl}, nil
}

// Publish stores the detection set under the latest-snapshot key with
// the configured TTL. Failures are logged, never surfaced: a missing
// snapshot must not fail a detection tick.
func (s *Store) Publish(set detector.Set) {
	data, err := json.Marshal(set)
	if err != nil {
		log.Printf("Warning: failed to encode detection snapshot: %v", err)
		return
	}

	ctx := context.Background()
	if err := s.client.Set(ctx, latestKey, data, s.ttl).Err(); err != nil {
		log.Printf("Warning: failed to store detection snapshot: %v", err)
	}
}

// Latest retrieves the stored detection set, or a zero Set if no
// snapshot exists (expired or never published).
func (s *Store) Latest(ctx context.Context) (detector.Set, error) {
	var set detector.Set

	data, err := s.client.Get(ctx, latestKey).Result()
	if err == redis.Nil {
		return set, nil // Key does not exist
	}
	if err != nil {
		return set, fmt.Errorf("failed to get detection snapshot: %w", err)
	}

	if err := json.Unmarshal([]byte(data), &set); err != nil {
		return set, fmt.Errorf("failed to decode detection snapshot: %w", err)
	}
	return set, nil
}

// Close closes the Redis connection
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// Ensure Store implements detector.Publisher at compile time
var _ detector.Publisher = (*Store)(nil)
