// Package permission holds the role and ownership rules of the card UI.
// Every function is pure; nothing here talks to the Card Service.
package permission

import "github.com/unkn0wn-root/cardcache"

type Role string

const (
	Guest    Role = "guest"
	User     Role = "user"
	Business Role = "business"
	Admin    Role = "admin"
)

// Default is assumed when the session role is unknown.
const Default = Guest

// Parse maps a role name to a Role. Unknown names are not roles.
func Parse(s string) (Role, bool) {
	switch r := Role(s); r {
	case Guest, User, Business, Admin:
		return r, true
	default:
		return Default, false
	}
}

// FromFlags derives a role from the service's user flags.
func FromFlags(authenticated, isBusiness, isAdmin bool) Role {
	switch {
	case !authenticated:
		return Guest
	case isAdmin:
		return Admin
	case isBusiness:
		return Business
	default:
		return User
	}
}

// Ownership pairs a resource owner with the current user.
type Ownership struct {
	OwnerID       string
	CurrentUserID string
}

// IsOwner is false whenever either id is unknown.
func IsOwner(o Ownership) bool {
	return o.OwnerID != "" && o.CurrentUserID != "" && o.OwnerID == o.CurrentUserID
}

func IsAuthenticated(r Role) bool { return r != "" && r != Guest }

func CanViewCardDetails(r Role) bool { return IsAuthenticated(r) }
func CanLikeCard(r Role) bool        { return IsAuthenticated(r) }
func CanCreateCard(r Role) bool      { return r == Business || r == Admin }
func CanViewMyCards(r Role) bool     { return r == Business || r == Admin }
func CanSeeCRM(r Role) bool          { return r == Admin }
func CanManageOwnAccount(r Role) bool {
	return IsAuthenticated(r)
}

// CanUpdateCard allows admins and the business that owns the card.
func CanUpdateCard(r Role, o Ownership) bool {
	return r == Admin || (r == Business && IsOwner(o))
}

func CanDeleteCard(r Role, o Ownership) bool {
	return r == Admin || (r == Business && IsOwner(o))
}

// Allows reports whether r may dispatch in against a card owned by ownerID.
func Allows(r Role, viewerID string, in cardcache.Intent, ownerID string) bool {
	o := Ownership{OwnerID: ownerID, CurrentUserID: viewerID}
	switch in.Kind {
	case cardcache.ToggleLike:
		return CanLikeCard(r)
	case cardcache.Delete:
		return CanDeleteCard(r, o)
	case cardcache.UpdateFields:
		return CanUpdateCard(r, o)
	default:
		return false
	}
}
