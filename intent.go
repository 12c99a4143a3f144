package cardcache

import "fmt"

// Kind is the kind of an optimistic mutation.
type Kind uint8

const (
	ToggleLike Kind = iota + 1
	Delete
	UpdateFields
)

func (k Kind) String() string {
	switch k {
	case ToggleLike:
		return "toggle_like"
	case Delete:
		return "delete"
	case UpdateFields:
		return "update_fields"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

var (
	listGroups   = []Collection{CollectionAll, CollectionPaged, CollectionOwned}
	updateGroups = []Collection{CollectionAll, CollectionPaged, CollectionOwned, CollectionDetail}
)

// Groups returns the collections a mutation of this kind patches and, on failure,
// rolls back. The returned slice must not be modified.
func (k Kind) Groups() []Collection {
	switch k {
	case ToggleLike, Delete:
		return listGroups
	case UpdateFields:
		return updateGroups
	default:
		return nil
	}
}

// Intent describes one optimistic mutation.
type Intent struct {
	Kind     Kind
	EntityID string
	Changes  *Changes // UpdateFields only
}

// LikeIntent, DeleteIntent and UpdateIntent are shorthands for building intents.
func LikeIntent(id string) Intent   { return Intent{Kind: ToggleLike, EntityID: id} }
func DeleteIntent(id string) Intent { return Intent{Kind: Delete, EntityID: id} }
func UpdateIntent(id string, ch Changes) Intent {
	return Intent{Kind: UpdateFields, EntityID: id, Changes: &ch}
}

// Validate checks that the intent can be admitted.
func (in Intent) Validate() error {
	if in.EntityID == "" {
		return fmt.Errorf("%w: empty entity id", ErrInvalidIntent)
	}
	switch in.Kind {
	case ToggleLike, Delete:
		return nil
	case UpdateFields:
		if in.Changes == nil || in.Changes.IsZero() {
			return fmt.Errorf("%w: update without fields", ErrInvalidIntent)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown kind %s", ErrInvalidIntent, in.Kind)
	}
}
