package cardservice

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/unkn0wn-root/cardcache"
	"github.com/unkn0wn-root/cardcache/codec"
)

// envelope covers {items,total,page,limit} and {data,count,page,limit}.
type envelope struct {
	Items []cardRecord `json:"items"`
	Data  []cardRecord `json:"data"`
	Total *int         `json:"total"`
	Count *int         `json:"count"`
	Page  *int         `json:"page"`
	Limit *int         `json:"limit"`
}

type listing struct {
	rows  []cardRecord
	bare  bool
	total int // 0 when the service reported no usable total
	page  *int
	limit *int
}

func decodeList(r *response, maxBytes int) (listing, error) {
	rows, err := decode[[]cardRecord](r, maxBytes)
	if errors.Is(err, codec.ErrTooLarge) {
		return listing{}, err
	}
	if err == nil && rows != nil {
		return listing{rows: rows, bare: true}, nil
	}

	env, err := decode[envelope](r, maxBytes)
	if err != nil {
		return listing{}, fmt.Errorf("%w: %v", ErrUnrecognizedShape, err)
	}
	l := listing{rows: env.Items, page: env.Page, limit: env.Limit}
	if l.rows == nil {
		l.rows = env.Data
	}
	if l.rows == nil {
		return listing{}, ErrUnrecognizedShape
	}
	t := env.Total
	if t == nil {
		t = env.Count
	}
	if t != nil && *t > 0 {
		l.total = *t
	}
	return l, nil
}

// FetchPage returns one page of cards matching p.Query.
//
// When the service reports a total, its page is used as is. Otherwise the whole
// collection is retrieved, filtered locally and sliced to the requested window.
func (c *Client) FetchPage(ctx context.Context, p cardcache.PageParams) (*cardcache.Page, error) {
	p = p.Normalize()
	q := url.Values{}
	q.Set("page", strconv.Itoa(p.Page))
	q.Set("limit", strconv.Itoa(p.PageSize))
	if p.Query != "" {
		q.Set("q", p.Query)
	}

	gen := c.memoGen.Load()
	r, err := c.do(ctx, http.MethodGet, "", q, nil)
	if err != nil {
		return nil, err
	}
	l, err := decodeList(r, c.maxBody)
	if err != nil {
		return nil, err
	}

	switch {
	case l.bare:
		// a bare array is the whole unfiltered collection
		c.remember(ctx, gen, l.rows)
		return slicePage(Filter(toCards(l.rows, p.ViewerID), p.Query), p), nil

	case l.total > 0:
		number, size := p.Page, p.PageSize
		if l.page != nil {
			number = *l.page
		}
		if l.limit != nil {
			size = *l.limit
		}
		total := l.total
		return &cardcache.Page{
			Items:   Filter(toCards(l.rows, p.ViewerID), p.Query),
			Number:  number,
			Size:    size,
			Total:   &total,
			HasMore: number*size < total,
		}, nil

	default:
		all, err := c.fullSet(ctx)
		if err != nil {
			return nil, err
		}
		c.log.Debug("page without total, sliced locally", cardcache.Fields{
			"page": p.Page, "size": p.PageSize, "q": p.Query, "full": len(all),
		})
		return slicePage(Filter(toCards(all, p.ViewerID), p.Query), p), nil
	}
}

// FetchAll returns the whole unfiltered collection.
func (c *Client) FetchAll(ctx context.Context, viewerID string) ([]cardcache.Card, error) {
	rows, err := c.fullSet(ctx)
	if err != nil {
		return nil, err
	}
	return toCards(rows, viewerID), nil
}

// FetchOne returns a single card.
func (c *Client) FetchOne(ctx context.Context, id, viewerID string) (cardcache.Card, error) {
	if id == "" {
		return cardcache.Card{}, errors.New("cardservice: id is required")
	}
	r, err := c.do(ctx, http.MethodGet, id, nil, nil)
	if err != nil {
		return cardcache.Card{}, err
	}
	rec, err := decode[cardRecord](r, c.maxBody)
	if err != nil {
		return cardcache.Card{}, fmt.Errorf("%w: %v", ErrUnrecognizedShape, err)
	}
	if rec.ID == "" {
		return cardcache.Card{}, ErrUnrecognizedShape
	}
	return rec.toCard(viewerID), nil
}

// fullSet retrieves the unfiltered collection, from the memo when it is current.
func (c *Client) fullSet(ctx context.Context) ([]cardRecord, error) {
	gen := c.memoGen.Load()
	if rows, ok := c.recall(ctx, gen); ok {
		return rows, nil
	}
	r, err := c.do(ctx, http.MethodGet, "", nil, nil)
	if err != nil {
		return nil, err
	}
	l, err := decodeList(r, c.maxBody)
	if err != nil {
		return nil, err
	}
	c.remember(ctx, gen, l.rows)
	return l.rows, nil
}
