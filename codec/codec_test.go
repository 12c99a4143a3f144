package codec

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type record struct {
	ID    string   `json:"_id"`
	Title string   `json:"title"`
	Likes []string `json:"likes,omitempty"`
}

func TestFormatOf(t *testing.T) {
	cases := map[string]struct {
		want Format
		ok   bool
	}{
		"application/json":                {FormatJSON, true},
		"application/json; charset=utf-8": {FormatJSON, true},
		"application/problem+json":        {FormatJSON, true},
		"application/cbor":                {FormatCBOR, true},
		"application/x-msgpack":           {FormatMsgpack, true},
		"application/msgpack":             {FormatMsgpack, true},
		"text/html":                       {FormatJSON, false},
		"":                                {FormatJSON, false},
	}
	for ct, tc := range cases {
		f, ok := FormatOf(ct)
		require.Equal(t, tc.want, f, ct)
		require.Equal(t, tc.ok, ok, ct)
	}
}

// The same json-tagged type must survive every format.
func TestForSharesJSONTagsAcrossFormats(t *testing.T) {
	in := []record{{ID: "a", Title: "Bakery", Likes: []string{"u1"}}, {ID: "b", Title: "Garage"}}
	for _, f := range []Format{FormatJSON, FormatCBOR, FormatMsgpack} {
		c := For[[]record](f)
		b, err := c.Encode(in)
		require.NoError(t, err, f)
		out, err := c.Decode(b)
		require.NoError(t, err, f)
		require.Equal(t, in, out, f)
	}
}

func TestMsgpackDecodesJSONNamedKeys(t *testing.T) {
	b, err := Msgpack[map[string]any]{}.Encode(map[string]any{"_id": "x", "title": "T"})
	require.NoError(t, err)
	r, err := Msgpack[record]{}.Decode(b)
	require.NoError(t, err)
	require.Equal(t, record{ID: "x", Title: "T"}, r)
}

func TestCBORDeterministicIsStable(t *testing.T) {
	c := MustCBOR[map[string]int](true)
	a, err := c.Encode(map[string]int{"b": 2, "a": 1, "c": 3})
	require.NoError(t, err)
	b, err := c.Encode(map[string]int{"c": 3, "a": 1, "b": 2})
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestLimitRejectsOversized(t *testing.T) {
	c := Limit[record]{Inner: JSON[record]{}, MaxDecode: 8}
	_, err := c.Decode([]byte(`{"_id":"0123456789"}`))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrTooLarge))

	c.MaxDecode = 0
	r, err := c.Decode([]byte(`{"_id":"0123456789"}`))
	require.NoError(t, err)
	require.Equal(t, "0123456789", r.ID)
}
