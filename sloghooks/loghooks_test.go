package sloghooks

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/cardcache"
)

func newTestHooks(opts Options) (*Hooks, *bytes.Buffer) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return New(l, opts), &buf
}

func TestRollbackIsWarnedWithRedactedID(t *testing.T) {
	h, buf := newTestHooks(Options{Redact: func(s string) string { return "<" + s + ">" }})
	h.MutationSettled(cardcache.Delete, "c1", cardcache.OutcomeRolledBack, errors.New("503"))

	out := buf.String()
	require.Contains(t, out, "level=WARN")
	require.Contains(t, out, "cardcache.mutation_rolled_back")
	require.Contains(t, out, "id=<c1>")
	require.Contains(t, out, "err=503")
}

func TestFetchFailedSampling(t *testing.T) {
	h, buf := newTestHooks(Options{FetchFailedEvery: 3})
	for i := 0; i < 9; i++ {
		h.FetchFailed("all", errors.New("down"))
	}
	require.Equal(t, 3, strings.Count(buf.String(), "cardcache.fetch_failed"))
}

func TestAppliedIsOptIn(t *testing.T) {
	h, buf := newTestHooks(Options{})
	h.MutationApplied(cardcache.ToggleLike, "c1", 2)
	require.Empty(t, buf.String())

	h.opts.LogApplied = true
	h.MutationApplied(cardcache.ToggleLike, "c1", 2)
	require.Contains(t, buf.String(), "patched=2")
}

func TestNilLoggerIsSafe(t *testing.T) {
	h := New(nil, Options{})
	h.ShapeRejected("all", cardcache.ShapeFlatList, cardcache.ShapePage)
	h.FetchCancelled("all")
	h.StaleWriteSkipped("all")
}
