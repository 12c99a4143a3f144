package cardservice

import (
	"context"

	"github.com/unkn0wn-root/cardcache"
	"github.com/unkn0wn-root/cardcache/codec"
	"github.com/unkn0wn-root/cardcache/internal/wire"
)

// memoCodec encodes canonically so that an unchanged collection always yields the
// same memo bytes.
var memoCodec = codec.MustCBOR[[]cardRecord](true)

// recall returns the memoized collection if it was stored under gen.
// Anything unreadable or out of date is dropped and reported as a miss.
func (c *Client) recall(ctx context.Context, gen uint64) ([]cardRecord, bool) {
	if c.memo == nil {
		return nil, false
	}
	b, ok, err := c.memo.Get(ctx, c.memoKey)
	if err != nil {
		c.log.Warn("memo get failed", cardcache.Fields{"err": err})
		return nil, false
	}
	if !ok {
		return nil, false
	}
	g, payload, err := wire.DecodeMemo(b)
	if err != nil || g != gen {
		_ = c.memo.Del(ctx, c.memoKey)
		return nil, false
	}
	rows, err := memoCodec.Decode(payload)
	if err != nil {
		c.log.Warn("memo payload unreadable", cardcache.Fields{"err": err})
		_ = c.memo.Del(ctx, c.memoKey)
		return nil, false
	}
	return rows, true
}

// remember stores rows fetched while the memo generation was gen. A write that lost
// a race with a mutation is stamped with the old generation and never recalled.
func (c *Client) remember(ctx context.Context, gen uint64, rows []cardRecord) {
	if c.memo == nil || c.memoGen.Load() != gen {
		return
	}
	payload, err := memoCodec.Encode(rows)
	if err != nil {
		c.log.Warn("memo encode failed", cardcache.Fields{"err": err})
		return
	}
	ok, err := c.memo.Set(ctx, c.memoKey, wire.EncodeMemo(gen, payload), 0, c.memoTTL)
	if err != nil || !ok {
		c.log.Debug("memo write rejected", cardcache.Fields{"err": err})
	}
}

// forget makes every memoized collection out of date.
func (c *Client) forget(ctx context.Context) {
	c.memoGen.Add(1)
	if c.memo != nil {
		_ = c.memo.Del(ctx, c.memoKey)
	}
}
