package cardcache

import (
	"errors"
	"fmt"
)

var (
	// ErrShapeMismatch is returned when a write would change the shape of a key.
	ErrShapeMismatch = errors.New("cardcache: entry shape mismatch")
	// ErrFetchCancelled is returned by a read whose fetch was superseded by a mutation.
	ErrFetchCancelled = errors.New("cardcache: fetch cancelled")
	// ErrInvalidIntent is returned by Dispatch for intents that cannot be admitted.
	ErrInvalidIntent = errors.New("cardcache: invalid intent")
	// ErrUnsupportedCollection is returned when the loader has no fetch for a key.
	ErrUnsupportedCollection = errors.New("cardcache: unsupported collection")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("cardcache: closed")
)

// FetchError is a failed read. Nothing was written to the store.
type FetchError struct {
	Key Key
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %q: %v", e.Key.String(), e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// MutationRejected is returned when the authoritative call of an optimistic
// mutation failed. Every patched entry has been restored when it is returned.
type MutationRejected struct {
	Intent   Intent
	Restored int // entries written back from the snapshot
	Err      error
}

func (e *MutationRejected) Error() string {
	return fmt.Sprintf("%s %q rejected (restored %d entries): %v",
		e.Intent.Kind, e.Intent.EntityID, e.Restored, e.Err)
}

func (e *MutationRejected) Unwrap() error { return e.Err }

// ShapeError details an ErrShapeMismatch.
type ShapeError struct {
	Key  Key
	Have Shape
	Got  Shape
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("key %q holds %s, refusing %s", e.Key.String(), e.Have, e.Got)
}

func (e *ShapeError) Unwrap() error { return ErrShapeMismatch }
