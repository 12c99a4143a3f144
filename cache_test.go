package cardcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	gen "github.com/unkn0wn-root/cardcache/genstore"
)

func TestNewRequiresService(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)
}

func TestWatchDeliversEveryWrite(t *testing.T) {
	svc := newFakeService(card("x", 0, false))
	c := newTestCache(t, svc, nil)
	k := DetailKey("x", "")

	var got []Entry
	first, unsub, err := c.Watch(context.Background(), k, func(e Entry) { got = append(got, e) })
	require.NoError(t, err)
	require.Equal(t, card("x", 0, false), first.(*Detail).Card)

	require.NoError(t, c.Do(context.Background(), UpdateIntent("x", Changes{Phone: String("03-5551234")})))
	unsub()
	require.NoError(t, c.Store().Set(k, &Detail{Card: card("x", 9, true)}))

	require.Len(t, got, 2)
	require.Same(t, first, got[0])
	require.Equal(t, "03-5551234", got[1].(*Detail).Card.Phone)
	require.Equal(t, 0, c.Store().Subscribers(k))
}

func TestWatchUnsubscribesWhenReadFails(t *testing.T) {
	svc := newFakeService()
	svc.fetchErr = errors.New("offline")
	c := newTestCache(t, svc, nil)
	k := AllKey("")

	_, unsub, err := c.Watch(context.Background(), k, func(Entry) {})
	require.Error(t, err)
	require.Nil(t, unsub)
	require.Equal(t, 0, c.Store().Subscribers(k))
}

// A generation store passed in by the caller outlives the cache.
func TestSharedGenStoreIsNotClosed(t *testing.T) {
	gens := gen.NewLocalGenStore(time.Minute, time.Hour)
	defer gens.Close(context.Background())

	svc := newFakeService(card("x", 0, false))
	c, err := New(Options{Service: svc, GenStore: gens})
	require.NoError(t, err)
	_, err = c.Read(context.Background(), AllKey(""))
	require.NoError(t, err)
	require.NoError(t, c.Do(context.Background(), LikeIntent("x")))
	require.NoError(t, c.Close(context.Background()))

	g, err := gens.Snapshot(context.Background(), AllKey("").String())
	require.NoError(t, err)
	require.Equal(t, uint64(1), g)
}
