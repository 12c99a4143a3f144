package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/cardcache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	FetchCancelledEvery uint64
	FetchFailedEvery    uint64
	StaleWriteEvery     uint64
	// Optional entity id redactor. Defaults to SHA-256 prefix. Keys are logged as is.
	Redact func(string) string
	// LogApplied logs every optimistic patch at debug level.
	LogApplied bool
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	cancelledCtr  atomic.Uint64
	failedCtr     atomic.Uint64
	staleWriteCtr atomic.Uint64
}

var _ cardcache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(id string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(id)
	}
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) MutationApplied(kind cardcache.Kind, entityID string, patched int) {
	if h.l == nil || !h.opts.LogApplied {
		return
	}
	h.l.Debug("cardcache.mutation_applied",
		"kind", kind.String(),
		"id", h.redact(entityID),
		"patched", patched)
}

func (h *Hooks) MutationSettled(kind cardcache.Kind, entityID string, outcome cardcache.Outcome, err error) {
	if h.l == nil {
		return
	}
	if outcome == cardcache.OutcomeRolledBack {
		h.l.Warn("cardcache.mutation_rolled_back",
			"kind", kind.String(),
			"id", h.redact(entityID),
			"err", err)
		return
	}
	h.l.Debug("cardcache.mutation_committed",
		"kind", kind.String(),
		"id", h.redact(entityID))
}

func (h *Hooks) FetchCancelled(key string) {
	if h.l == nil || !sample(h.opts.FetchCancelledEvery, &h.cancelledCtr) {
		return
	}
	h.l.Debug("cardcache.fetch_cancelled", "key", key)
}

func (h *Hooks) FetchFailed(key string, err error) {
	if h.l == nil || !sample(h.opts.FetchFailedEvery, &h.failedCtr) {
		return
	}
	h.l.Warn("cardcache.fetch_failed",
		"key", key,
		"err", err)
}

func (h *Hooks) StaleWriteSkipped(key string) {
	if h.l == nil || !sample(h.opts.StaleWriteEvery, &h.staleWriteCtr) {
		return
	}
	h.l.Debug("cardcache.stale_write_skipped", "key", key)
}

func (h *Hooks) ShapeRejected(key string, have, got cardcache.Shape) {
	if h.l == nil {
		return
	}
	h.l.Error("cardcache.shape_rejected",
		"key", key,
		"have", have.String(),
		"got", got.String())
}
