// Package cache stores search results and rendered artifacts as opaque bytes.
//
// Three backends implement [Cache]: [NullCache] (caching disabled),
// [FileCache] for the CLI, and [RedisCache] for the API server where several
// instances share results. Keys come from a [Keyer] so that every entry
// point derives the same key for the same dataset and options.
//
//	c, _ := cache.NewFileCache(dir)
//	key := cache.NewDefaultKeyer().ResultKey(ds.Hash(), cache.ResultKeyOpts{Learner: "dual", Options: opts})
//	if data, hit, _ := c.Get(ctx, key); hit {
//	    // decode data
//	}
package cache

import (
	"context"
	"time"
)

// Cache is a byte store with per-entry expiry.
type Cache interface {
	// Get returns the value stored under key. A miss is reported as
	// (nil, false, nil); err is reserved for backend failures.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Entry lifetimes.
const (
	// TTLResult is how long a search result stays cached. Results are a pure
	// function of dataset and options, so they only expire to bound disk use.
	TTLResult = 30 * 24 * time.Hour

	// TTLArtifact is how long a rendered structure stays cached.
	TTLArtifact = 7 * 24 * time.Hour
)
