package cardservice

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/cardcache"
)

func TestTokens(t *testing.T) {
	require.Equal(t, []string{"tel", "aviv", "bakery"}, Tokens("  Tel Aviv,Bakery "))
	require.Empty(t, Tokens(" , \t"))
}

func TestFilterAnyTokenAcrossFields(t *testing.T) {
	cards := []cardcache.Card{
		{ID: "1", Title: "Bakery"},
		{ID: "2", Subtitle: "fresh BREAD"},
		{ID: "3", AddressText: "Herzl, 1, Haifa"},
		{ID: "4", Phone: "050-1234567"},
		{ID: "5", Email: "bakery@example.com"}, // email is not searchable
	}
	got := Filter(cards, "bakery bread, haifa 1234")
	require.Equal(t, []string{"1", "2", "3", "4"}, ids(got))

	require.Len(t, Filter(cards, "   "), len(cards))
	require.Empty(t, Filter(cards, "nothing"))
}

func TestSlicePageWindowPastEnd(t *testing.T) {
	all := toCards(records(3, 0), "")
	p := slicePage(all, cardcache.PageParams{Page: 5, PageSize: 2})
	require.Empty(t, p.Items)
	require.False(t, p.HasMore)
	require.Equal(t, 3, p.TotalOr(-1))
}
