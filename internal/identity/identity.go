// Package identity models cart/order ownership. An owner is either an
// authenticated user (keyed by email) or an anonymous guest (keyed by a
// generated token), and the two are distinguished by an explicit kind
// rather than by inspecting the string.
package identity

import "fmt"

// Kind discriminates the two ownership variants.
type Kind string

const (
	KindUser  Kind = "user"
	KindGuest Kind = "guest"
)

// Identity is a tagged union of an authenticated user's email or a guest
// session token.
type Identity struct {
	kind  Kind
	value string
}

// User returns an identity for an authenticated user.
func User(email string) Identity {
	return Identity{kind: KindUser, value: email}
}

// Guest returns an identity for an anonymous guest token.
func Guest(token string) Identity {
	return Identity{kind: KindGuest, value: token}
}

// Kind returns the identity's variant.
func (i Identity) Kind() Kind { return i.kind }

// IsGuest reports whether the identity belongs to an anonymous guest.
func (i Identity) IsGuest() bool { return i.kind == KindGuest }

// Email returns the user email and true for authenticated identities.
func (i Identity) Email() (string, bool) {
	if i.kind == KindUser {
		return i.value, true
	}
	return "", false
}

// IsZero reports whether the identity is unset.
func (i Identity) IsZero() bool { return i.kind == "" }

// Key returns the storage key used for cart/order ownership. Keys for the
// two variants are prefixed so they can never collide even if a guest
// token happened to look like an email.
func (i Identity) Key() string {
	return fmt.Sprintf("%s:%s", i.kind, i.value)
}

// String implements fmt.Stringer without exposing the raw guest token.
func (i Identity) String() string {
	if i.kind == KindGuest {
		return "guest"
	}
	return i.value
}
