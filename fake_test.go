package cardcache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

// fakeService is an in-memory CardService. Fetches and mutations can be held on a
// gate to observe the cache while a call is outstanding.
type fakeService struct {
	mu        sync.Mutex
	cards     []Card
	total     *int // reported total of FetchPage; nil => len(cards)
	fetchErr  error
	fetchGate chan struct{}
	ignoreCtx bool // fetches wait on the gate even after ctx is cancelled
	mutGates  map[string]chan struct{}
	mutErrs   map[string]error
	calls     []string

	fetches atomic.Int32
}

var _ CardService = (*fakeService)(nil)

func newFakeService(cards ...Card) *fakeService {
	return &fakeService{
		cards:    cards,
		mutGates: map[string]chan struct{}{},
		mutErrs:  map[string]error{},
	}
}

// holdFetches makes every later fetch wait until the returned func is called.
func (f *fakeService) holdFetches() (release func()) {
	g := make(chan struct{})
	f.mu.Lock()
	f.fetchGate = g
	f.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(g) }) }
}

// holdMutation makes the authoritative call for id wait until release.
func (f *fakeService) holdMutation(id string) (release func()) {
	g := make(chan struct{})
	f.mu.Lock()
	f.mutGates[id] = g
	f.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(g) }) }
}

func (f *fakeService) reject(id string, err error) {
	f.mu.Lock()
	f.mutErrs[id] = err
	f.mu.Unlock()
}

func (f *fakeService) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeService) snapshot(ctx context.Context) ([]Card, error) {
	f.fetches.Add(1)
	f.mu.Lock()
	g, ignore, ferr := f.fetchGate, f.ignoreCtx, f.fetchErr
	cards := append([]Card(nil), f.cards...)
	f.mu.Unlock()
	if g != nil {
		if ignore {
			<-g
		} else {
			select {
			case <-g:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	if ferr != nil {
		return nil, ferr
	}
	return cards, nil
}

func (f *fakeService) FetchAll(ctx context.Context, _ string) ([]Card, error) {
	return f.snapshot(ctx)
}

func (f *fakeService) FetchPage(ctx context.Context, p PageParams) (*Page, error) {
	cards, err := f.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	p = p.Normalize()
	total := len(cards)
	f.mu.Lock()
	if f.total != nil {
		total = *f.total
	}
	f.mu.Unlock()
	start := min((p.Page-1)*p.PageSize, len(cards))
	end := min(start+p.PageSize, len(cards))
	return &Page{
		Items:   cards[start:end],
		Number:  p.Page,
		Size:    p.PageSize,
		Total:   &total,
		HasMore: p.Page*p.PageSize < total,
	}, nil
}

func (f *fakeService) FetchOne(ctx context.Context, id, _ string) (Card, error) {
	cards, err := f.snapshot(ctx)
	if err != nil {
		return Card{}, err
	}
	if c, ok := find(cards, id); ok {
		return c, nil
	}
	return Card{}, errors.New("not found")
}

func (f *fakeService) mutate(ctx context.Context, call, id string, apply func(i int)) error {
	f.mu.Lock()
	f.calls = append(f.calls, call+":"+id)
	g := f.mutGates[id]
	f.mu.Unlock()
	if g != nil {
		select {
		case <-g:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.mutErrs[id]; err != nil {
		return err
	}
	if i := indexOf(f.cards, id); i >= 0 {
		apply(i)
	}
	return nil
}

func (f *fakeService) ToggleLike(ctx context.Context, id string) error {
	return f.mutate(ctx, "like", id, func(i int) { f.cards[i] = toggleLike(f.cards[i]) })
}

func (f *fakeService) Delete(ctx context.Context, id string) error {
	return f.mutate(ctx, "delete", id, func(i int) { f.cards = without(f.cards, i) })
}

func (f *fakeService) Update(ctx context.Context, id string, ch Changes) (Card, error) {
	var out Card
	err := f.mutate(ctx, "update", id, func(i int) {
		f.cards[i] = ch.merge(f.cards[i])
		out = f.cards[i]
	})
	return out, err
}

// recHooks records hook calls.
type recHooks struct {
	NopHooks
	mu        sync.Mutex
	applied   []int
	settled   []Outcome
	cancelled []string
	failed    []string
	skipped   []string
	shapes    int
}

func (h *recHooks) MutationApplied(_ Kind, _ string, n int) {
	h.mu.Lock()
	h.applied = append(h.applied, n)
	h.mu.Unlock()
}

func (h *recHooks) MutationSettled(_ Kind, _ string, o Outcome, _ error) {
	h.mu.Lock()
	h.settled = append(h.settled, o)
	h.mu.Unlock()
}

func (h *recHooks) FetchCancelled(k string) {
	h.mu.Lock()
	h.cancelled = append(h.cancelled, k)
	h.mu.Unlock()
}

func (h *recHooks) FetchFailed(k string, _ error) {
	h.mu.Lock()
	h.failed = append(h.failed, k)
	h.mu.Unlock()
}

func (h *recHooks) StaleWriteSkipped(k string) {
	h.mu.Lock()
	h.skipped = append(h.skipped, k)
	h.mu.Unlock()
}

func (h *recHooks) ShapeRejected(string, Shape, Shape) {
	h.mu.Lock()
	h.shapes++
	h.mu.Unlock()
}

func newTestCache(t *testing.T, svc CardService, optsOpt func(*Options)) *Cache {
	t.Helper()
	opts := Options{Service: svc}
	if optsOpt != nil {
		optsOpt(&opts)
	}
	c, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return c
}

func card(id string, likes int, liked bool) Card {
	return Card{ID: id, Title: "card " + id, LikeCount: likes, LikedByViewer: liked}
}

func intp(n int) *int { return &n }
