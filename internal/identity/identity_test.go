package identity

import "testing"

func TestIdentityKinds(t *testing.T) {
	user := User("maria@example.com")
	if user.IsGuest() {
		t.Error("user identity reported as guest")
	}
	if user.Kind() != KindUser {
		t.Errorf("unexpected kind %s", user.Kind())
	}
	email, ok := user.Email()
	if !ok || email != "maria@example.com" {
		t.Errorf("expected email, got %q (%v)", email, ok)
	}
	if user.Key() != "user:maria@example.com" {
		t.Errorf("unexpected key %q", user.Key())
	}

	guest := Guest("tok-123")
	if !guest.IsGuest() {
		t.Error("guest identity not reported as guest")
	}
	if guest.Key() != "guest:tok-123" {
		t.Errorf("unexpected key %q", guest.Key())
	}
	if _, ok := guest.Email(); ok {
		t.Error("guest identity must have no email")
	}
}

func TestIdentityKeysNeverCollide(t *testing.T) {
	// A guest token shaped like an email must not alias a user's cart.
	user := User("alice@example.com")
	guest := Guest("alice@example.com")
	if user.Key() == guest.Key() {
		t.Fatal("user and guest keys must be distinct namespaces")
	}
}

func TestZeroIdentity(t *testing.T) {
	var zero Identity
	if !zero.IsZero() {
		t.Error("zero value must report IsZero")
	}
	if User("a@b.c").IsZero() || Guest("tok").IsZero() {
		t.Error("populated identities must not be zero")
	}
}

func TestStringHidesGuestToken(t *testing.T) {
	if got := Guest("secret-token").String(); got != "guest" {
		t.Errorf("guest String must not leak the token, got %q", got)
	}
	if got := User("maria@example.com").String(); got != "maria@example.com" {
		t.Errorf("unexpected user String %q", got)
	}
}
