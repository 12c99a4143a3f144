package cardcache

// Patch applies the intent to e. It returns e itself (same pointer) when the target
// card is absent or the intent does not change e.
func Patch(e Entry, in Intent) Entry {
	switch in.Kind {
	case ToggleLike:
		return PatchToggleLike(e, in.EntityID)
	case Delete:
		return PatchDelete(e, in.EntityID)
	case UpdateFields:
		if in.Changes == nil {
			return e
		}
		return PatchUpdateFields(e, in.EntityID, *in.Changes)
	default:
		return e
	}
}

// PatchToggleLike flips LikedByViewer of card id and moves LikeCount by one in the
// same direction, never below zero.
func PatchToggleLike(e Entry, id string) Entry {
	return mapCard(e, id, toggleLike)
}

// PatchUpdateFields shallow-merges ch into card id. Structural metadata is kept.
func PatchUpdateFields(e Entry, id string, ch Changes) Entry {
	return mapCard(e, id, ch.merge)
}

// PatchDelete removes card id. A known Page total drops by one; an unknown one stays
// unknown. Details are returned unchanged: a deleted card's detail key is removed by
// the coordinator, not patched.
func PatchDelete(e Entry, id string) Entry {
	switch v := e.(type) {
	case *FlatList:
		i := indexOf(v.Items, id)
		if i < 0 {
			return e
		}
		return &FlatList{Items: without(v.Items, i)}
	case *Page:
		i := indexOf(v.Items, id)
		if i < 0 {
			return e
		}
		next := *v
		next.Items = without(v.Items, i)
		if v.Total != nil {
			t := *v.Total - 1
			if t < 0 {
				t = 0
			}
			next.Total = &t
		}
		return &next
	default:
		return e
	}
}

func toggleLike(c Card) Card {
	if c.LikedByViewer {
		c.LikedByViewer = false
		c.LikeCount--
	} else {
		c.LikedByViewer = true
		c.LikeCount++
	}
	if c.LikeCount < 0 {
		c.LikeCount = 0
	}
	return c
}

// mapCard rewrites the card with id through fn, copying only the containers that change.
func mapCard(e Entry, id string, fn func(Card) Card) Entry {
	switch v := e.(type) {
	case *FlatList:
		i := indexOf(v.Items, id)
		if i < 0 {
			return e
		}
		return &FlatList{Items: replaced(v.Items, i, fn(v.Items[i]))}
	case *Page:
		i := indexOf(v.Items, id)
		if i < 0 {
			return e
		}
		next := *v
		next.Items = replaced(v.Items, i, fn(v.Items[i]))
		return &next
	case *Detail:
		if v.Card.ID != id {
			return e
		}
		return &Detail{Card: fn(v.Card)}
	default:
		return e
	}
}

func replaced(items []Card, i int, c Card) []Card {
	out := make([]Card, len(items))
	copy(out, items)
	out[i] = c
	return out
}

func without(items []Card, i int) []Card {
	out := make([]Card, 0, len(items)-1)
	out = append(out, items[:i]...)
	return append(out, items[i+1:]...)
}
