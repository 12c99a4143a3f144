package cardcache

import (
	"context"
	"fmt"
	"sync"
)

// Cache bundles the Store, Loader and Coordinator of one viewer session.
// Construct one per session and pass it to every view; there is no global instance.
type Cache struct {
	store  *Store
	loader *Loader
	coord  *Coordinator

	closeOnce sync.Once
	closeErr  error
}

func newCache(opts Options) (*Cache, error) {
	if opts.Service == nil {
		return nil, fmt.Errorf("cardcache: service is required")
	}
	store := NewStore(StoreOptions{
		Logger:       opts.Logger,
		Hooks:        opts.Hooks,
		GenStore:     opts.GenStore,
		GenRetention: opts.GenRetention,
		GenSweep:     opts.CleanupInterval,
		Clock:        opts.Clock,
	})
	loader, err := NewLoader(store, opts.Service, LoaderOptions{
		Logger:       opts.Logger,
		Hooks:        opts.Hooks,
		StaleTime:    opts.StaleTime,
		RefetchLimit: opts.RefetchLimit,
	})
	if err != nil {
		_ = store.Close(context.Background())
		return nil, err
	}
	coord, err := NewCoordinator(store, loader, opts.Service, CoordinatorOptions{
		Logger:          opts.Logger,
		Hooks:           opts.Hooks,
		RefetchOnSettle: opts.RefetchOnSettle,
	})
	if err != nil {
		loader.Close()
		_ = store.Close(context.Background())
		return nil, err
	}
	return &Cache{store: store, loader: loader, coord: coord}, nil
}

func (c *Cache) Store() *Store   { return c.store }
func (c *Cache) Loader() *Loader { return c.loader }

func (c *Cache) Read(ctx context.Context, key Key) (Entry, error) {
	return c.loader.Read(ctx, key)
}

func (c *Cache) Fetch(ctx context.Context, key Key) (Entry, error) {
	return c.loader.Fetch(ctx, key)
}

// Peek returns the cached entry without touching the network.
func (c *Cache) Peek(key Key) (Entry, bool) {
	return c.store.Get(key)
}

func (c *Cache) Subscribe(key Key, fn func(Entry)) func() {
	return c.store.Subscribe(key, fn)
}

// Watch subscribes fn to key and then reads it once, so a view gets the current entry
// followed by every later write.
func (c *Cache) Watch(ctx context.Context, key Key, fn func(Entry)) (Entry, func(), error) {
	unsub := c.store.Subscribe(key, fn)
	e, err := c.loader.Read(ctx, key)
	if err != nil {
		unsub()
		return nil, nil, err
	}
	return e, unsub, nil
}

func (c *Cache) RefetchStale(ctx context.Context) error {
	return c.loader.RefetchStale(ctx)
}

func (c *Cache) Dispatch(ctx context.Context, in Intent) (*Mutation, error) {
	return c.coord.Dispatch(ctx, in)
}

func (c *Cache) Do(ctx context.Context, in Intent) error {
	return c.coord.Do(ctx, in)
}

// Close waits for pending mutations, stops background refetches and releases the
// generation store. Safe to call multiple times.
func (c *Cache) Close(ctx context.Context) error {
	c.closeOnce.Do(func() {
		c.coord.Close()
		c.loader.Close()
		c.closeErr = c.store.Close(ctx)
	})
	return c.closeErr
}
