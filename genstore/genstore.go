// Package genstore keeps per-key generation counters.
//
// A reader snapshots the generation of a key before a slow operation and commits
// its result only if the generation is unchanged. Bumping the generation therefore
// fences off every result that was started before the bump.
package genstore

import (
	"context"
	"time"
)

// GenStore abstracts where generations live.
type GenStore interface {
	// Snapshot returns the current generation; missing => 0.
	Snapshot(ctx context.Context, key string) (uint64, error)
	// Bump atomically increments and returns the new generation.
	Bump(ctx context.Context, key string) (uint64, error)
	// BumpMany increments several keys under one critical section.
	BumpMany(ctx context.Context, keys []string) error
	// Cleanup prunes entries not bumped within retention.
	Cleanup(retention time.Duration)
	// Close releases resources (no-op ok).
	Close(context.Context) error
}
