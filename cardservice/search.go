package cardservice

import (
	"strings"
	"unicode"

	"github.com/unkn0wn-root/cardcache"
)

// Tokens splits a search query on whitespace and commas and lowercases each token.
func Tokens(q string) []string {
	fs := strings.FieldsFunc(q, func(r rune) bool { return r == ',' || unicode.IsSpace(r) })
	out := fs[:0]
	for _, f := range fs {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Matches reports whether any token is a substring of the card's searchable text.
func Matches(c cardcache.Card, tokens []string) bool {
	if len(tokens) == 0 {
		return true
	}
	hay := haystack(c)
	for _, t := range tokens {
		if strings.Contains(hay, t) {
			return true
		}
	}
	return false
}

// Filter keeps the cards matching q. A blank q keeps everything.
func Filter(cards []cardcache.Card, q string) []cardcache.Card {
	tokens := Tokens(q)
	if len(tokens) == 0 {
		return cards
	}
	out := make([]cardcache.Card, 0, len(cards))
	for _, c := range cards {
		if Matches(c, tokens) {
			out = append(out, c)
		}
	}
	return out
}

func haystack(c cardcache.Card) string {
	var b strings.Builder
	for _, s := range []string{c.Title, c.Subtitle, c.Description, c.AddressText, c.Phone} {
		if s == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(s)
	}
	return strings.ToLower(b.String())
}

// slicePage cuts the requested window out of an already filtered set.
func slicePage(all []cardcache.Card, p cardcache.PageParams) *cardcache.Page {
	total := len(all)
	start := (p.Page - 1) * p.PageSize
	end := start + p.PageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}
	items := make([]cardcache.Card, end-start)
	copy(items, all[start:end])
	return &cardcache.Page{
		Items:   items,
		Number:  p.Page,
		Size:    p.PageSize,
		Total:   &total,
		HasMore: p.Page*p.PageSize < total,
	}
}
