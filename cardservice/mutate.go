package cardservice

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/unkn0wn-root/cardcache"
)

// ToggleLike flips the like of the authenticated user. The service derives the
// user from the token; the body is an empty object.
func (c *Client) ToggleLike(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("cardservice: id is required")
	}
	c.forget(ctx)
	defer c.forget(context.WithoutCancel(ctx))
	_, err := c.do(ctx, http.MethodPatch, id, nil, struct{}{})
	return err
}

func (c *Client) Delete(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("cardservice: id is required")
	}
	c.forget(ctx)
	defer c.forget(context.WithoutCancel(ctx))
	_, err := c.do(ctx, http.MethodDelete, id, nil, nil)
	return err
}

// Update sends the non-nil fields of ch and returns the stored card. LikedByViewer
// is not computed on the returned card since the service answers for the token's
// user, not for a viewer id.
func (c *Client) Update(ctx context.Context, id string, ch cardcache.Changes) (cardcache.Card, error) {
	if id == "" {
		return cardcache.Card{}, errors.New("cardservice: id is required")
	}
	c.forget(ctx)
	defer c.forget(context.WithoutCancel(ctx))
	r, err := c.do(ctx, http.MethodPut, id, nil, updateBody(ch))
	if err != nil {
		return cardcache.Card{}, err
	}
	if len(r.body) == 0 {
		return cardcache.Card{ID: id}, nil
	}
	rec, err := decode[cardRecord](r, c.maxBody)
	if err != nil {
		return cardcache.Card{}, fmt.Errorf("%w: %v", ErrUnrecognizedShape, err)
	}
	return rec.toCard(""), nil
}
