package cardcache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// State is the lifecycle state of a Mutation: Pending, then Committed or RolledBack.
type State int32

const (
	Pending State = iota
	Committed
	RolledBack
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Committed:
		return "committed"
	case RolledBack:
		return "rolled_back"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Mutation is the handle of one dispatched intent.
type Mutation struct {
	ID     uint64
	Intent Intent

	state   atomic.Int32
	done    chan struct{}
	err     error
	patched int

	snapshot []KeyedEntry // pre-mutation entries; dropped on settlement
}

func (m *Mutation) State() State          { return State(m.state.Load()) }
func (m *Mutation) Done() <-chan struct{} { return m.done }
func (m *Mutation) Patched() int          { return m.patched }

// Err returns the settlement error: nil while pending or when committed,
// *MutationRejected when rolled back.
func (m *Mutation) Err() error {
	select {
	case <-m.done:
		return m.err
	default:
		return nil
	}
}

// Wait blocks until the mutation settles or ctx is done.
func (m *Mutation) Wait(ctx context.Context) error {
	select {
	case <-m.done:
		return m.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Mutation) finish(s State, err error) {
	m.err = err
	m.snapshot = nil
	m.state.Store(int32(s))
	close(m.done)
}

// CoordinatorOptions tune a Coordinator. The zero value is usable.
type CoordinatorOptions struct {
	Logger Logger
	Hooks  Hooks
	// RefetchOnSettle refetches stale subscribed keys in the background after every
	// settlement. Requires a Loader.
	RefetchOnSettle bool
}

// Coordinator runs optimistic mutations against a Store.
//
// Dispatch cancels competing reads, snapshots and patches every entry of the
// intent's groups in one store batch, then issues the authoritative call. On success
// the groups are marked stale; on failure every snapshotted entry is restored first.
//
// Rollback restores the whole snapshot, so it can also undo an unrelated mutation
// that patched the same keys after this one was applied. Marking the groups stale
// after every settlement lets the next read converge on server state.
type Coordinator struct {
	store   *Store
	loader  *Loader
	svc     Mutator
	log     Logger
	hooks   Hooks
	refetch bool

	seq atomic.Uint64

	mu     sync.Mutex // guards closed and wg.Add against Close
	closed bool
	wg     sync.WaitGroup
}

// NewCoordinator wires a coordinator. loader may be nil, in which case no in-flight
// reads are cancelled and RefetchOnSettle is ignored.
func NewCoordinator(store *Store, loader *Loader, svc Mutator, opts CoordinatorOptions) (*Coordinator, error) {
	if store == nil {
		return nil, fmt.Errorf("cardcache: store is required")
	}
	if svc == nil {
		return nil, fmt.Errorf("cardcache: mutator is required")
	}
	c := &Coordinator{
		store:   store,
		loader:  loader,
		svc:     svc,
		refetch: opts.RefetchOnSettle && loader != nil,
	}
	c.log = withFields(coalesce[Logger](opts.Logger, NopLogger{}), Fields{"component": "coordinator"})
	c.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	return c, nil
}

// Dispatch applies in optimistically and returns once every affected entry shows the
// change. The authoritative call runs in the background under ctx; use the returned
// handle to wait for its outcome.
func (c *Coordinator) Dispatch(ctx context.Context, in Intent) (*Mutation, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.wg.Add(1)
	c.mu.Unlock()
	groups := in.Kind.Groups()

	if c.loader != nil {
		c.loader.CancelGroups(groups...)
	}

	m := &Mutation{ID: c.seq.Add(1), Intent: in, done: make(chan struct{})}
	err := c.store.Batch(func(tx *Tx) error {
		var keys []Key
		for _, g := range groups {
			for _, ke := range tx.GetAllMatching(g) {
				keys = append(keys, ke.Key)
				m.snapshot = append(m.snapshot, ke)
				next := Patch(ke.Entry, in)
				if next == ke.Entry {
					continue
				}
				if err := tx.Set(ke.Key, next); err != nil {
					return err
				}
				m.patched++
			}
		}
		// fetches that started before this point must not overwrite the patch,
		// including misses registered after CancelGroups
		tx.Fence(append(keys, c.inFlight(groups)...)...)
		return nil
	})
	if err != nil {
		c.wg.Done()
		return nil, err
	}
	c.hooks.MutationApplied(in.Kind, in.EntityID, m.patched)
	c.log.Debug("optimistic patch applied", Fields{
		"mutation": m.ID, "kind": in.Kind.String(), "id": in.EntityID,
		"snapshot": len(m.snapshot), "patched": m.patched,
	})

	go func() {
		defer c.wg.Done()
		c.settle(ctx, m)
	}()
	return m, nil
}

// Do dispatches in and waits for its settlement.
func (c *Coordinator) Do(ctx context.Context, in Intent) error {
	m, err := c.Dispatch(ctx, in)
	if err != nil {
		return err
	}
	return m.Wait(ctx)
}

// Close waits for every pending mutation to settle. Later dispatches fail with
// ErrClosed.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.wg.Wait()
}

func (c *Coordinator) inFlight(groups []Collection) []Key {
	if c.loader == nil {
		return nil
	}
	return c.loader.InFlightKeys(groups...)
}

func (c *Coordinator) settle(ctx context.Context, m *Mutation) {
	if err := c.call(ctx, m.Intent); err != nil {
		c.rollback(m, err)
	} else {
		c.commit(m)
	}
	if c.refetch {
		c.loader.refetchStaleAsync()
	}
}

func (c *Coordinator) call(ctx context.Context, in Intent) error {
	switch in.Kind {
	case ToggleLike:
		return c.svc.ToggleLike(ctx, in.EntityID)
	case Delete:
		return c.svc.Delete(ctx, in.EntityID)
	case UpdateFields:
		_, err := c.svc.Update(ctx, in.EntityID, *in.Changes)
		return err
	default:
		return fmt.Errorf("%w: unknown kind %s", ErrInvalidIntent, in.Kind)
	}
}

func (c *Coordinator) commit(m *Mutation) {
	in := m.Intent
	// reads still running may hold pre-mutation data and would land unflagged
	c.store.Fence(c.inFlight(in.Kind.Groups())...)
	stale := c.store.MarkGroupsStale(in.Kind.Groups()...)
	if in.Kind == Delete {
		for _, ke := range c.store.GetAllMatching(CollectionDetail) {
			if ke.Key.Param(ParamID) == in.EntityID {
				c.store.Remove(ke.Key)
			}
		}
	}
	c.hooks.MutationSettled(in.Kind, in.EntityID, OutcomeCommitted, nil)
	c.log.Debug("mutation committed", Fields{
		"mutation": m.ID, "kind": in.Kind.String(), "id": in.EntityID, "stale": len(stale),
	})
	m.finish(Committed, nil)
}

func (c *Coordinator) rollback(m *Mutation, cause error) {
	in := m.Intent
	restored := 0
	err := c.store.Batch(func(tx *Tx) error {
		for _, ke := range m.snapshot {
			if cur, ok := tx.Get(ke.Key); ok && cur == ke.Entry {
				continue
			}
			if err := tx.Set(ke.Key, ke.Entry); err != nil {
				return err
			}
			restored++
		}
		return nil
	})
	if err != nil {
		// snapshots carry the shape the key already had, so this is unreachable
		c.log.Error("rollback failed", Fields{"mutation": m.ID, "err": err})
	}
	c.store.MarkGroupsStale(in.Kind.Groups()...)

	c.hooks.MutationSettled(in.Kind, in.EntityID, OutcomeRolledBack, cause)
	c.log.Info("mutation rolled back", Fields{
		"mutation": m.ID, "kind": in.Kind.String(), "id": in.EntityID,
		"restored": restored, "err": cause,
	})
	m.finish(RolledBack, &MutationRejected{Intent: in, Restored: restored, Err: cause})
}
