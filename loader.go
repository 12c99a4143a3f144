package cardcache

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// LoaderOptions tune a Loader. The zero value is usable.
type LoaderOptions struct {
	Logger Logger
	Hooks  Hooks
	// StaleTime is the age after which an entry is refetched on read.
	// 0 => 1m; negative => entries only go stale when marked.
	StaleTime time.Duration
	// RefetchLimit bounds concurrent refetches in RefetchStale. 0 => 4.
	RefetchLimit int
}

type flight struct {
	key    Key
	cancel context.CancelFunc
}

// Loader is the keyed read path in front of a Store: fresh hits are served from the
// store, stale hits are served and refetched in the background, misses are fetched.
// Concurrent fetches of one key are collapsed into a single call.
type Loader struct {
	store        *Store
	svc          Fetcher
	log          Logger
	hooks        Hooks
	staleTime    time.Duration
	refetchLimit int

	sf singleflight.Group

	mu       sync.Mutex
	inflight map[string]map[uint64]flight
	nextID   uint64

	bg       context.Context
	bgCancel context.CancelFunc
	wg       sync.WaitGroup
	closed   atomic.Bool
}

func NewLoader(store *Store, svc Fetcher, opts LoaderOptions) (*Loader, error) {
	if store == nil {
		return nil, fmt.Errorf("cardcache: store is required")
	}
	if svc == nil {
		return nil, fmt.Errorf("cardcache: fetcher is required")
	}
	l := &Loader{
		store:    store,
		svc:      svc,
		inflight: make(map[string]map[uint64]flight),
	}
	l.log = withFields(coalesce[Logger](opts.Logger, NopLogger{}), Fields{"component": "loader"})
	l.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	l.staleTime = coalesce(opts.StaleTime, defaultStaleTime)
	l.refetchLimit = coalesce(opts.RefetchLimit, defaultRefetchLimit)
	l.bg, l.bgCancel = context.WithCancel(context.Background())
	return l, nil
}

// Read returns the entry of key. A stale entry is returned as is while a refetch runs
// in the background; a missing one is fetched. A failed fetch leaves the store
// untouched and returns *FetchError.
func (l *Loader) Read(ctx context.Context, key Key) (Entry, error) {
	if l.closed.Load() {
		return nil, ErrClosed
	}
	e, meta, ok := l.store.Lookup(key)
	if ok {
		if l.isStale(meta) {
			l.revalidate(key)
		}
		return e, nil
	}
	return l.Fetch(ctx, key)
}

// Fetch loads key from the Card Service and commits the result, unless a mutation
// touching the key's collection started in the meantime. In that case the current
// entry is returned, or a *FetchError wrapping ErrFetchCancelled when there is none.
//
// The shared fetch runs on the loader's own context: a caller giving up only stops
// its own wait, never the fetch other callers joined.
func (l *Loader) Fetch(ctx context.Context, key Key) (Entry, error) {
	if l.closed.Load() {
		return nil, ErrClosed
	}
	ch := l.sf.DoChan(key.String(), func() (any, error) {
		return l.load(l.bg, key)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Entry), nil
	case <-ctx.Done():
		return nil, &FetchError{Key: key, Err: ctx.Err()}
	}
}

func (l *Loader) load(ctx context.Context, key Key) (Entry, error) {
	fctx, id := l.register(ctx, key)
	defer l.unregister(key, id)
	// register before snapshot: a CancelGroups after this point always fences us
	obs := l.store.SnapshotGen(key)

	e, err := l.fetch(fctx, key)
	if err == nil && fctx.Err() != nil {
		err = fctx.Err()
	}
	if err != nil {
		// fctx alone was cancelled: a mutation took over this key
		if ctx.Err() == nil && errors.Is(fctx.Err(), context.Canceled) {
			return l.superseded(key)
		}
		l.hooks.FetchFailed(key.String(), err)
		l.log.Warn("fetch failed", Fields{"key": key.String(), "err": err})
		return nil, &FetchError{Key: key, Err: err}
	}

	ok, err := l.store.SetWithGen(key, e, obs)
	if err != nil {
		return nil, err
	}
	if !ok {
		return l.superseded(key)
	}
	return e, nil
}

func (l *Loader) superseded(key Key) (Entry, error) {
	l.log.Debug("fetch superseded by mutation", Fields{"key": key.String()})
	if cur, ok := l.store.Get(key); ok {
		return cur, nil
	}
	return nil, &FetchError{Key: key, Err: ErrFetchCancelled}
}

func (l *Loader) fetch(ctx context.Context, key Key) (Entry, error) {
	viewer := key.Param(ParamViewer)
	switch key.Collection() {
	case CollectionAll:
		items, err := l.svc.FetchAll(ctx, viewer)
		if err != nil {
			return nil, err
		}
		return &FlatList{Items: items}, nil
	case CollectionOwned:
		items, err := l.svc.FetchAll(ctx, viewer)
		if err != nil {
			return nil, err
		}
		return &FlatList{Items: ownedBy(items, key.Param(ParamOwner))}, nil
	case CollectionPaged:
		p, err := l.svc.FetchPage(ctx, pageParamsFromKey(key))
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, fmt.Errorf("cardcache: nil page for %q", key.String())
		}
		return p, nil
	case CollectionDetail:
		c, err := l.svc.FetchOne(ctx, key.Param(ParamID), viewer)
		if err != nil {
			return nil, err
		}
		return &Detail{Card: c}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCollection, key.Collection())
	}
}

// CancelGroups cancels every in-flight fetch whose key belongs to one of cols and
// fences those keys so that a fetch ignoring its context still cannot commit.
func (l *Loader) CancelGroups(cols ...Collection) []Key {
	keys, cancels := l.flightsOf(cols)

	l.store.Fence(keys...)
	for i, cancel := range cancels {
		cancel()
		l.hooks.FetchCancelled(keys[i].String())
	}
	if len(keys) > 0 {
		l.log.Debug("cancelled in-flight fetches", Fields{"count": len(keys)})
	}
	return keys
}

// InFlightKeys returns the keys of cols with a fetch running. Safe to call while
// holding the store lock.
func (l *Loader) InFlightKeys(cols ...Collection) []Key {
	keys, _ := l.flightsOf(cols)
	return keys
}

func (l *Loader) flightsOf(cols []Collection) ([]Key, []context.CancelFunc) {
	var (
		keys    []Key
		cancels []context.CancelFunc
	)
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, flights := range l.inflight {
		for _, f := range flights {
			if slices.Contains(cols, f.key.Collection()) {
				keys = append(keys, f.key)
				cancels = append(cancels, f.cancel)
			}
		}
	}
	return keys, cancels
}

// InFlight returns the number of fetches currently running.
func (l *Loader) InFlight() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, flights := range l.inflight {
		n += len(flights)
	}
	return n
}

// RefetchStale refetches every stale key that has a subscriber. It returns the first
// fetch error; the other refetches still run to completion.
func (l *Loader) RefetchStale(ctx context.Context) error {
	keys := l.store.StaleKeys()
	if len(keys) == 0 {
		return nil
	}
	var g errgroup.Group
	g.SetLimit(l.refetchLimit)
	for _, k := range keys {
		g.Go(func() error {
			_, err := l.Fetch(ctx, k)
			return err
		})
	}
	return g.Wait()
}

// refetchStaleAsync runs RefetchStale on the loader's background context.
func (l *Loader) refetchStaleAsync() {
	l.goBackground(func(ctx context.Context) {
		if err := l.RefetchStale(ctx); err != nil {
			l.log.Debug("background refetch failed", Fields{"err": err})
		}
	})
}

func (l *Loader) revalidate(key Key) {
	l.goBackground(func(ctx context.Context) {
		if _, err := l.Fetch(ctx, key); err != nil {
			l.log.Debug("revalidate failed", Fields{"key": key.String(), "err": err})
		}
	})
}

func (l *Loader) goBackground(fn func(ctx context.Context)) {
	if l.closed.Load() {
		return
	}
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		fn(l.bg)
	}()
}

// Close cancels background refetches and waits for them.
func (l *Loader) Close() {
	if l.closed.Swap(true) {
		return
	}
	l.bgCancel()
	l.wg.Wait()
}

func (l *Loader) isStale(m Meta) bool {
	if m.Stale {
		return true
	}
	return l.staleTime > 0 && l.store.now().Sub(m.UpdatedAt) > l.staleTime
}

func (l *Loader) register(ctx context.Context, key Key) (context.Context, uint64) {
	fctx, cancel := context.WithCancel(ctx)
	l.mu.Lock()
	l.nextID++
	id := l.nextID
	k := key.String()
	if l.inflight[k] == nil {
		l.inflight[k] = make(map[uint64]flight)
	}
	l.inflight[k][id] = flight{key: key, cancel: cancel}
	l.mu.Unlock()
	return fctx, id
}

func (l *Loader) unregister(key Key, id uint64) {
	k := key.String()
	l.mu.Lock()
	if f, ok := l.inflight[k][id]; ok {
		f.cancel()
		delete(l.inflight[k], id)
		if len(l.inflight[k]) == 0 {
			delete(l.inflight, k)
		}
	}
	l.mu.Unlock()
}

func ownedBy(items []Card, ownerID string) []Card {
	if ownerID == "" {
		return items
	}
	out := make([]Card, 0, len(items))
	for _, c := range items {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	return out
}
