package cardcache

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	gen "github.com/unkn0wn-root/cardcache/genstore"
)

// StoreOptions tune a Store. The zero value is usable.
type StoreOptions struct {
	Logger       Logger       // if nil, NopLogger is used
	Hooks        Hooks        // if nil, NopHooks is used
	GenStore     gen.GenStore // nil => LocalGenStore owned by the Store
	GenRetention time.Duration
	GenSweep     time.Duration
	Clock        func() time.Time
}

// Meta is the bookkeeping of one entry.
type Meta struct {
	Stale     bool
	UpdatedAt time.Time
	Gen       uint64
}

type record struct {
	key       Key
	entry     Entry
	stale     bool
	updatedAt time.Time
}

type subscriber struct {
	id uint64
	fn func(Entry)
}

type notification struct {
	fns   []func(Entry)
	entry Entry
}

// Store is the in-memory key -> entry map shared by every view and mutation of a
// session. All methods are safe for concurrent use. Writes notify the subscribers
// of the written key synchronously, after the store lock has been released.
type Store struct {
	mu     sync.RWMutex
	recs   map[string]*record
	shapes map[string]Shape // first shape seen per key, kept for the life of the Store
	subs   map[string][]subscriber
	nextID uint64

	gens     gen.GenStore
	ownsGens bool
	log      Logger
	hooks    Hooks
	now      func() time.Time
}

func NewStore(opts StoreOptions) *Store {
	s := &Store{
		recs:   make(map[string]*record),
		shapes: make(map[string]Shape),
		subs:   make(map[string][]subscriber),
	}
	s.log = coalesce[Logger](opts.Logger, NopLogger{})
	s.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	s.now = opts.Clock
	if s.now == nil {
		s.now = time.Now
	}
	if opts.GenStore != nil {
		s.gens = opts.GenStore
	} else {
		s.gens = gen.NewLocalGenStore(
			coalesce(opts.GenSweep, defaultSweep),
			coalesce(opts.GenRetention, defaultGenRetention),
		)
		s.ownsGens = true
	}
	return s
}

// Close releases the generation store when the Store created it.
func (s *Store) Close(ctx context.Context) error {
	if s.ownsGens {
		return s.gens.Close(ctx)
	}
	return nil
}

func (s *Store) Get(key Key) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.recs[key.String()]
	if !ok {
		return nil, false
	}
	return r.entry, true
}

// Lookup returns the entry with its staleness and generation.
func (s *Store) Lookup(key Key) (Entry, Meta, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.recs[key.String()]
	if !ok {
		return nil, Meta{Gen: s.genLocked(key.String())}, false
	}
	return r.entry, Meta{Stale: r.stale, UpdatedAt: r.updatedAt, Gen: s.genLocked(key.String())}, true
}

// Set replaces the entry of key wholesale and clears its staleness.
func (s *Store) Set(key Key, e Entry) error {
	s.mu.Lock()
	n, err := s.setLocked(key, e)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	n.deliver()
	return nil
}

// SnapshotGen returns the generation of key. Pass it to SetWithGen.
func (s *Store) SnapshotGen(key Key) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.genLocked(key.String())
}

// SetWithGen writes e only if the generation of key still equals observedGen.
// It reports whether the write happened.
func (s *Store) SetWithGen(key Key, e Entry, observedGen uint64) (bool, error) {
	s.mu.Lock()
	if s.genLocked(key.String()) != observedGen {
		s.mu.Unlock()
		// generation moved; skip stale write
		s.log.Debug("set skipped (gen mismatch)", Fields{"key": key.String(), "obs": observedGen})
		s.hooks.StaleWriteSkipped(key.String())
		return false, nil
	}
	n, err := s.setLocked(key, e)
	s.mu.Unlock()
	if err != nil {
		return false, err
	}
	n.deliver()
	return true, nil
}

// Fence bumps the generation of every key so that writes observed before the call
// are skipped by SetWithGen.
func (s *Store) Fence(keys ...Key) {
	if len(keys) == 0 {
		return
	}
	ks := make([]string, len(keys))
	for i, k := range keys {
		ks[i] = k.String()
	}
	s.mu.Lock()
	err := s.gens.BumpMany(context.Background(), ks)
	s.mu.Unlock()
	if err != nil {
		s.log.Error("gen bump error", Fields{"keys": len(ks), "err": err})
	}
}

// FenceGroups fences every populated key of the given collections.
func (s *Store) FenceGroups(cols ...Collection) []Key {
	keys := s.keysOf(cols)
	s.Fence(keys...)
	return keys
}

// Remove drops the data of key. The shape recorded for key is kept.
func (s *Store) Remove(key Key) bool {
	s.mu.Lock()
	k := key.String()
	if _, ok := s.recs[k]; !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.recs, k)
	n := s.notificationLocked(k, nil)
	s.mu.Unlock()
	n.deliver()
	return true
}

// GetAllMatching returns every populated entry of collection c, ordered by key.
func (s *Store) GetAllMatching(c Collection) []KeyedEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.matchingLocked(c)
}

// MarkStale flags entries for refetch on their next read. Data is kept.
func (s *Store) MarkStale(keys ...Key) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, k := range keys {
		if r, ok := s.recs[k.String()]; ok {
			r.stale = true
			n++
		}
	}
	return n
}

// MarkGroupsStale flags every populated key of the given collections and returns them.
func (s *Store) MarkGroupsStale(cols ...Collection) []Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Key
	for _, c := range cols {
		for _, ke := range s.matchingLocked(c) {
			s.recs[ke.Key.String()].stale = true
			out = append(out, ke.Key)
		}
	}
	return out
}

// StaleKeys returns the stale keys that have at least one subscriber.
func (s *Store) StaleKeys() []Key {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Key
	for k, r := range s.recs {
		if r.stale && len(s.subs[k]) > 0 {
			out = append(out, r.key)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Keys returns every populated key, ordered.
func (s *Store) Keys() []Key {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Key, 0, len(s.recs))
	for _, r := range s.recs {
		out = append(out, r.key)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// ShapeOf returns the shape key was first populated with.
func (s *Store) ShapeOf(key Key) Shape {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.shapes[key.String()]
}

// Subscribe registers fn for every write of key. fn receives nil when the entry is
// removed. The returned func unsubscribes; it is safe to call more than once.
func (s *Store) Subscribe(key Key, fn func(Entry)) (unsubscribe func()) {
	k := key.String()
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subs[k] = append(s.subs[k], subscriber{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			list := s.subs[k]
			for i, sub := range list {
				if sub.id == id {
					s.subs[k] = append(list[:i:i], list[i+1:]...)
					break
				}
			}
			if len(s.subs[k]) == 0 {
				delete(s.subs, k)
			}
		})
	}
}

// Subscribers returns the number of subscribers of key.
func (s *Store) Subscribers(key Key) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs[key.String()])
}

// Batch runs fn with exclusive access to the store. Writes made through the Tx are
// applied together when fn returns nil and discarded when it returns an error, so no
// reader ever observes a subset of them. Subscribers are notified after the lock is
// released, in write order.
func (s *Store) Batch(fn func(tx *Tx) error) error {
	s.mu.Lock()
	tx := &Tx{s: s, pending: make(map[string]pendingWrite)}
	if err := fn(tx); err != nil {
		s.mu.Unlock()
		return err
	}
	notes := make([]notification, 0, len(tx.order))
	for _, k := range tx.order {
		w := tx.pending[k]
		if w.remove {
			if _, ok := s.recs[k]; !ok {
				continue
			}
			delete(s.recs, k)
			notes = append(notes, s.notificationLocked(k, nil))
			continue
		}
		// shapes were validated by Tx.Set
		if n, err := s.setLocked(w.key, w.entry); err == nil {
			notes = append(notes, n)
		}
	}
	s.mu.Unlock()
	for _, n := range notes {
		n.deliver()
	}
	return nil
}

func (s *Store) setLocked(key Key, e Entry) (notification, error) {
	if err := s.checkShapeLocked(key, e); err != nil {
		return notification{}, err
	}
	k := key.String()
	s.shapes[k] = e.Shape()
	s.recs[k] = &record{key: key, entry: e, updatedAt: s.now()}
	return s.notificationLocked(k, e), nil
}

func (s *Store) checkShapeLocked(key Key, e Entry) error {
	if isNilEntry(e) {
		return fmt.Errorf("cardcache: nil entry for %q", key.String())
	}
	have, ok := s.shapes[key.String()]
	if ok && have != e.Shape() {
		s.hooks.ShapeRejected(key.String(), have, e.Shape())
		s.log.Warn("shape change refused", Fields{"key": key.String(), "have": have.String(), "got": e.Shape().String()})
		return &ShapeError{Key: key, Have: have, Got: e.Shape()}
	}
	return nil
}

func (s *Store) notificationLocked(k string, e Entry) notification {
	subs := s.subs[k]
	if len(subs) == 0 {
		return notification{}
	}
	fns := make([]func(Entry), len(subs))
	for i, sub := range subs {
		fns[i] = sub.fn
	}
	return notification{fns: fns, entry: e}
}

func (s *Store) matchingLocked(c Collection) []KeyedEntry {
	var out []KeyedEntry
	for _, r := range s.recs {
		if r.key.Collection() == c {
			out = append(out, KeyedEntry{Key: r.key, Entry: r.entry})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.String() < out[j].Key.String() })
	return out
}

func (s *Store) keysOf(cols []Collection) []Key {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Key
	for _, c := range cols {
		for _, ke := range s.matchingLocked(c) {
			out = append(out, ke.Key)
		}
	}
	return out
}

func (s *Store) genLocked(k string) uint64 {
	g, err := s.gens.Snapshot(context.Background(), k)
	if err != nil {
		// Conservative: an unreadable generation fails every pending commit.
		s.log.Warn("gen snapshot error", Fields{"key": k, "err": err})
		return ^uint64(0)
	}
	return g
}

func (n notification) deliver() {
	for _, fn := range n.fns {
		fn(n.entry)
	}
}

type pendingWrite struct {
	key    Key
	entry  Entry
	remove bool
}

// Tx is the view of the store inside Batch. It must not escape fn.
type Tx struct {
	s       *Store
	pending map[string]pendingWrite
	order   []string
}

// Get returns the entry of key as it will be after the batch so far.
func (tx *Tx) Get(key Key) (Entry, bool) {
	if w, ok := tx.pending[key.String()]; ok {
		if w.remove {
			return nil, false
		}
		return w.entry, true
	}
	r, ok := tx.s.recs[key.String()]
	if !ok {
		return nil, false
	}
	return r.entry, true
}

// GetAllMatching returns the committed entries of collection c. Pending writes of
// the batch are not reflected.
func (tx *Tx) GetAllMatching(c Collection) []KeyedEntry {
	return tx.s.matchingLocked(c)
}

// Set stages a write. Shape violations are reported immediately.
func (tx *Tx) Set(key Key, e Entry) error {
	if err := tx.s.checkShapeLocked(key, e); err != nil {
		return err
	}
	if w, ok := tx.pending[key.String()]; ok && !w.remove && w.entry.Shape() != e.Shape() {
		return &ShapeError{Key: key, Have: w.entry.Shape(), Got: e.Shape()}
	}
	tx.stage(pendingWrite{key: key, entry: e})
	return nil
}

// Remove stages a removal.
func (tx *Tx) Remove(key Key) {
	tx.stage(pendingWrite{key: key, remove: true})
}

func (tx *Tx) stage(w pendingWrite) {
	k := w.key.String()
	if _, ok := tx.pending[k]; !ok {
		tx.order = append(tx.order, k)
	}
	tx.pending[k] = w
}

// Fence bumps the generations of keys immediately, under the batch lock.
func (tx *Tx) Fence(keys ...Key) {
	if len(keys) == 0 {
		return
	}
	ks := make([]string, len(keys))
	for i, k := range keys {
		ks[i] = k.String()
	}
	if err := tx.s.gens.BumpMany(context.Background(), ks); err != nil {
		tx.s.log.Error("gen bump error", Fields{"keys": len(ks), "err": err})
	}
}
