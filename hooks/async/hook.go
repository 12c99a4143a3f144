// Package asynchook moves hook calls off the caller's goroutine.
//
// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{FetchFailedEvery: 10})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	cache, _ := cardcache.New(cardcache.Options{
//	    Service: client,
//	    Hooks:   hooks,
//	})
//
// Events are dropped, never blocked on, when the queue is full. Dropped() reports
// how many.
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/cardcache"
)

type Hooks struct {
	inner   cardcache.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

var _ cardcache.Hooks = (*Hooks)(nil)

func New(inner cardcache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Later events are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default:
		h.dropped.Add(1)
	}
}

func (h *Hooks) MutationApplied(k cardcache.Kind, id string, n int) {
	h.try(func() { h.inner.MutationApplied(k, id, n) })
}
func (h *Hooks) MutationSettled(k cardcache.Kind, id string, o cardcache.Outcome, err error) {
	h.try(func() { h.inner.MutationSettled(k, id, o, err) })
}
func (h *Hooks) FetchCancelled(key string)         { h.try(func() { h.inner.FetchCancelled(key) }) }
func (h *Hooks) FetchFailed(key string, err error) { h.try(func() { h.inner.FetchFailed(key, err) }) }
func (h *Hooks) StaleWriteSkipped(key string)      { h.try(func() { h.inner.StaleWriteSkipped(key) }) }
func (h *Hooks) ShapeRejected(key string, have, got cardcache.Shape) {
	h.try(func() { h.inner.ShapeRejected(key, have, got) })
}
