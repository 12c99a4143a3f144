package ristretto

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetGetDel(t *testing.T) {
	p, err := New(DefaultConfig())
	require.NoError(t, err)
	defer p.Close(context.Background())
	ctx := context.Background()

	ok, err := p.Set(ctx, "full", []byte("rows"), 0, 0)
	require.NoError(t, err)
	require.True(t, ok)

	b, hit, err := p.Get(ctx, "full")
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, []byte("rows"), b)

	require.NoError(t, p.Del(ctx, "full"))
	_, hit, err = p.Get(ctx, "full")
	require.NoError(t, err)
	require.False(t, hit)
}

func TestNewRejectsZeroConfig(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}
