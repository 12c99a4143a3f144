package bigcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSetGetDel(t *testing.T) {
	ctx := context.Background()
	p, err := New(ctx, Config{LifeWindow: time.Minute})
	require.NoError(t, err)
	defer p.Close(ctx)

	_, hit, err := p.Get(ctx, "full")
	require.NoError(t, err)
	require.False(t, hit)

	ok, err := p.Set(ctx, "full", []byte("rows"), 0, time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	b, hit, err := p.Get(ctx, "full")
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, []byte("rows"), b)

	require.NoError(t, p.Del(ctx, "full"))
	require.NoError(t, p.Del(ctx, "full"))
	_, hit, err = p.Get(ctx, "full")
	require.NoError(t, err)
	require.False(t, hit)
}
