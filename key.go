package cardcache

import (
	"strconv"
	"strings"

	"github.com/unkn0wn-root/cardcache/internal/util"
)

// Collection names one family of cache keys. It is the unit of invalidation.
type Collection string

const (
	CollectionAll    Collection = "all"
	CollectionPaged  Collection = "paged"
	CollectionOwned  Collection = "owned"
	CollectionDetail Collection = "detail"
)

// Param names used by the key constructors.
const (
	ParamPage     = "page"
	ParamPageSize = "pageSize"
	ParamQuery    = "q"
	ParamViewer   = "viewerId"
	ParamOwner    = "ownerId"
	ParamID       = "id"
)

// Key identifies one cached view: a collection plus its filter parameters.
// Two keys are equal iff their String forms are equal.
type Key struct {
	collection Collection
	params     []util.Param
	s          string
}

// NewKey builds a key from a collection and name/value pairs
// (pairs = "name1", "value1", "name2", "value2", ...). A trailing odd name is ignored.
func NewKey(c Collection, pairs ...string) Key {
	params := make([]util.Param, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		params = append(params, util.Param{Name: pairs[i], Value: pairs[i+1]})
	}
	return Key{collection: c, params: params, s: util.CanonicalKey(string(c), params)}
}

// AllKey is the unfiltered list as seen by viewerID.
func AllKey(viewerID string) Key {
	return NewKey(CollectionAll, ParamViewer, viewerID)
}

// PagedKey is one page of the (optionally searched) collection.
func PagedKey(p PageParams) Key {
	p = p.Normalize()
	return NewKey(CollectionPaged,
		ParamPage, strconv.Itoa(p.Page),
		ParamPageSize, strconv.Itoa(p.PageSize),
		ParamQuery, p.Query,
		ParamViewer, p.ViewerID,
	)
}

// OwnedKey is the list of cards owned by ownerID. An empty ownerID means every owner.
func OwnedKey(ownerID, viewerID string) Key {
	return NewKey(CollectionOwned, ParamOwner, ownerID, ParamViewer, viewerID)
}

// DetailKey is the single-card view of id.
func DetailKey(id, viewerID string) Key {
	return NewKey(CollectionDetail, ParamID, id, ParamViewer, viewerID)
}

func (k Key) Collection() Collection { return k.collection }
func (k Key) String() string         { return k.s }
func (k Key) IsZero() bool           { return k.s == "" }

// Param returns the value of name, or "" when unset.
func (k Key) Param(name string) string {
	for _, p := range k.params {
		if p.Name == name {
			return p.Value
		}
	}
	return ""
}

// Equal reports whether k and o address the same entry.
func (k Key) Equal(o Key) bool { return k.s == o.s }

// PageParams are the filter and window of a paged read.
type PageParams struct {
	Page     int
	PageSize int
	Query    string
	ViewerID string
}

// Normalize clamps Page and PageSize to at least 1 and trims Query.
func (p PageParams) Normalize() PageParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 1
	}
	p.Query = strings.TrimSpace(p.Query)
	return p
}

// pageParamsFromKey recovers the read parameters encoded by PagedKey.
func pageParamsFromKey(k Key) PageParams {
	page, _ := strconv.Atoi(k.Param(ParamPage))
	size, _ := strconv.Atoi(k.Param(ParamPageSize))
	return PageParams{
		Page:     page,
		PageSize: size,
		Query:    k.Param(ParamQuery),
		ViewerID: k.Param(ParamViewer),
	}.Normalize()
}
