package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Dedup tracks text fingerprints with a sliding expiry window, so the
// ingest pipeline can drop near-duplicate documents. Marking and
// checking happen in one SetNX round trip.
type Dedup struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewDedup creates a dedup set over the client. Keys are namespaced
// with prefix and expire after ttl.
func NewDedup(client *redis.Client, prefix string, ttl time.Duration) *Dedup {
	if prefix == "" {
		prefix = "dedup:"
	}
	return &Dedup{client: client, prefix: prefix, ttl: ttl}
}

// Seen marks the fingerprint and reports whether it was already marked
// within the expiry window.
func (d *Dedup) Seen(ctx context.Context, fingerprint string) (bool, error) {
	set, err := d.client.SetNX(ctx, d.prefix+fingerprint, 1, d.ttl).Result()
	if err != nil {
		return false, err
	}
	return !set, nil
}
