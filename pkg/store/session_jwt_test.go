package store

import (
	"errors"
	"testing"
	"time"
)

func TestJWTSessionStoreRoundTrip(t *testing.T) {
	s := NewJWTSessionStore("test-secret", time.Hour)

	sess, err := s.NewSession("user-1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	got, ok, err := s.GetSession(sess.Token)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if !ok {
		t.Fatalf("expected valid token to resolve")
	}
	if got.UserID != "user-1" {
		t.Fatalf("unexpected user id: %q", got.UserID)
	}
}

func TestJWTSessionStoreRejectsWrongSecret(t *testing.T) {
	issuer := NewJWTSessionStore("secret-a", time.Hour)
	verifier := NewJWTSessionStore("secret-b", time.Hour)

	sess, err := issuer.NewSession("user-1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	_, ok, err := verifier.GetSession(sess.Token)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if ok {
		t.Fatalf("token signed with a different secret must not validate")
	}
}

func TestJWTSessionStoreRejectsGarbage(t *testing.T) {
	s := NewJWTSessionStore("test-secret", time.Hour)
	_, ok, err := s.GetSession("not.a.jwt")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if ok {
		t.Fatalf("garbage token must not validate")
	}
}

func TestJWTSessionStoreCannotRevoke(t *testing.T) {
	s := NewJWTSessionStore("test-secret", time.Hour)

	sess, err := s.NewSession("user-1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if err := s.DeleteSession(sess.Token); !errors.Is(err, ErrStatelessSession) {
		t.Fatalf("expected ErrStatelessSession, got %v", err)
	}
	// The token keeps resolving: nothing was revoked.
	_, ok, err := s.GetSession(sess.Token)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if !ok {
		t.Fatalf("token must stay valid after the failed revocation")
	}
}
