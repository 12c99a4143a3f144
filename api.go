package cardcache

import (
	"context"
	"time"

	gen "github.com/unkn0wn-root/cardcache/genstore"
)

// Options configure a Cache.
// Only Service is required; others have sensible defaults.
type Options struct {
	// Required
	Service CardService

	Logger          Logger        // if nil, NopLogger is used
	Hooks           Hooks         // if nil, NopHooks is used
	StaleTime       time.Duration // age after which a read refetches; 0 => 1m, <0 => only when marked
	RefetchLimit    int           // concurrent refetches in RefetchStale; 0 => 4
	RefetchOnSettle bool          // refetch stale subscribed keys after every mutation
	GenStore        gen.GenStore  // nil => LocalGenStore (in-process)
	GenRetention    time.Duration // 0 => 24h
	CleanupInterval time.Duration // generation sweep; 0 => 1h
	Clock           func() time.Time
}

// API is the surface views and the application use. *Cache implements it.
type API interface {
	// Reads
	Read(ctx context.Context, key Key) (Entry, error)
	Fetch(ctx context.Context, key Key) (Entry, error)
	Peek(key Key) (Entry, bool)
	Subscribe(key Key, fn func(Entry)) (unsubscribe func())
	RefetchStale(ctx context.Context) error

	// Optimistic mutations
	Dispatch(ctx context.Context, in Intent) (*Mutation, error)
	Do(ctx context.Context, in Intent) error

	Close(ctx context.Context) error
}

var _ API = (*Cache)(nil)

func New(opts Options) (*Cache, error) {
	return newCache(opts)
}
