package util

import (
	"net/url"
	"sort"
	"strings"
)

// Param is one name/value pair of a cache key.
type Param struct {
	Name  string
	Value string
}

// CanonicalKey returns a deterministic key string "<prefix>?a=1&b=2".
// Params are sorted by name; empty values are dropped so that an unset filter and
// an explicitly empty one address the same entry.
func CanonicalKey(prefix string, params []Param) string {
	s := make([]Param, 0, len(params))
	for _, p := range params {
		if p.Value != "" {
			s = append(s, p)
		}
	}
	if len(s) == 0 {
		return prefix
	}
	sort.Slice(s, func(i, j int) bool { return s[i].Name < s[j].Name })

	var b strings.Builder
	b.WriteString(prefix)
	for i, p := range s {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return b.String()
}
