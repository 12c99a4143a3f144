package genstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLocalSnapshotMissingIsZero(t *testing.T) {
	ctx := context.Background()
	s := NewLocalGenStore(0, 0)
	t.Cleanup(func() { _ = s.Close(ctx) })

	g, err := s.Snapshot(ctx, "paged?page=1")
	require.NoError(t, err)
	require.Zero(t, g)
}

func TestLocalBumpManyFencesEveryKey(t *testing.T) {
	ctx := context.Background()
	s := NewLocalGenStore(0, 0)
	t.Cleanup(func() { _ = s.Close(ctx) })

	_, err := s.Bump(ctx, "all")
	require.NoError(t, err)
	require.NoError(t, s.BumpMany(ctx, []string{"all", "owned", "paged"}))

	for k, want := range map[string]uint64{"all": 2, "owned": 1, "paged": 1, "detail": 0} {
		g, err := s.Snapshot(ctx, k)
		require.NoError(t, err)
		require.Equal(t, want, g, k)
	}
	require.Equal(t, 3, s.Len())
}

func TestLocalBumpManyDoesNotMutateInput(t *testing.T) {
	ctx := context.Background()
	s := NewLocalGenStore(0, 0)
	t.Cleanup(func() { _ = s.Close(ctx) })

	in := []string{"x", "y"}
	cp := append([]string(nil), in...)
	require.NoError(t, s.BumpMany(ctx, in))
	require.Equal(t, cp, in)
}

func TestLocalCleanupPrunesOld(t *testing.T) {
	ctx := context.Background()
	s := NewLocalGenStore(0, 0)
	t.Cleanup(func() { _ = s.Close(ctx) })

	_, err := s.Bump(ctx, "old")
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	s.Cleanup(10 * time.Millisecond)

	g, err := s.Snapshot(ctx, "old")
	require.NoError(t, err)
	require.Zero(t, g, "expected pruned key to read as 0")
}

func TestLocalCloseIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewLocalGenStore(time.Millisecond, time.Hour)
	require.NoError(t, s.Close(ctx))
	require.NoError(t, s.Close(ctx))
}
