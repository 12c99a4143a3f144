package cardcache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyIsCanonical(t *testing.T) {
	a := NewKey(CollectionPaged, "q", "tel aviv", "page", "2")
	b := NewKey(CollectionPaged, "page", "2", "q", "tel aviv", "viewerId", "")
	require.True(t, a.Equal(b))
	require.Equal(t, "paged?page=2&q=tel+aviv", a.String())
	require.Equal(t, "all", AllKey("").String())
	require.False(t, AllKey("u1").Equal(AllKey("u2")))
}

func TestPagedKeyRoundTripsParams(t *testing.T) {
	in := PageParams{Page: 0, PageSize: -3, Query: "  bakery ", ViewerID: "u1"}
	k := PagedKey(in)
	require.Equal(t, CollectionPaged, k.Collection())
	require.Equal(t, PageParams{Page: 1, PageSize: 1, Query: "bakery", ViewerID: "u1"}, pageParamsFromKey(k))
	require.True(t, k.Equal(PagedKey(PageParams{Page: 1, PageSize: 1, Query: "bakery", ViewerID: "u1"})))
}

func TestKeyParam(t *testing.T) {
	k := DetailKey("c1", "u1")
	require.Equal(t, "c1", k.Param(ParamID))
	require.Equal(t, "u1", k.Param(ParamViewer))
	require.Empty(t, k.Param(ParamOwner))
	require.True(t, Key{}.IsZero())
}
