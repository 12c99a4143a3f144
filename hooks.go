package cardcache

// Outcome is the terminal state of a settled mutation.
type Outcome string

const (
	OutcomeCommitted  Outcome = "committed"
	OutcomeRolledBack Outcome = "rolled_back"
)

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking; several are called while
// the store lock is held or on the read path.
type Hooks interface {
	// An optimistic patch was applied. patched is the number of entries that
	// contained the card (0 when the card is cached nowhere).
	MutationApplied(kind Kind, entityID string, patched int)

	// A mutation reached its terminal state. err is nil when committed.
	MutationSettled(kind Kind, entityID string, outcome Outcome, err error)

	// An in-flight fetch was cancelled because a mutation touched its group.
	FetchCancelled(key string)

	// A fetch failed; the store was left untouched.
	FetchFailed(key string, err error)

	// A write was skipped because the key's generation moved after the read began.
	StaleWriteSkipped(key string)

	// A write was refused because it would change the shape of a key.
	ShapeRejected(key string, have, got Shape)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) MutationApplied(Kind, string, int)            {}
func (NopHooks) MutationSettled(Kind, string, Outcome, error) {}
func (NopHooks) FetchCancelled(string)                        {}
func (NopHooks) FetchFailed(string, error)                    {}
func (NopHooks) StaleWriteSkipped(string)                     {}
func (NopHooks) ShapeRejected(string, Shape, Shape)           {}
