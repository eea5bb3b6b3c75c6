package security

import (
	"errors"
	"testing"

	"github.com/tdiprima/langchain-flask-api/internal/domain"
)

func TestJWT_RoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret", 1, 24)

	tok, err := svc.GenerateAccessToken("alice", "sid-9")
	if err != nil {
		t.Fatal(err)
	}
	if tok.Token == "" || tok.ExpiresAt.IsZero() {
		t.Fatal("expected signed token with expiry")
	}

	username, sessionID, err := svc.ValidateToken(tok.Token)
	if err != nil {
		t.Fatal(err)
	}
	if username != "alice" || sessionID != "sid-9" {
		t.Errorf("claims did not round-trip: %q %q", username, sessionID)
	}
}

func TestJWT_WrongSecret(t *testing.T) {
	tok, err := NewJWTService("secret-a", 1, 24).GenerateAccessToken("alice", "sid-9")
	if err != nil {
		t.Fatal(err)
	}

	_, _, err = NewJWTService("secret-b", 1, 24).ValidateToken(tok.Token)
	if !errors.Is(err, domain.ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for wrong secret, got %v", err)
	}
}

func TestJWT_Garbage(t *testing.T) {
	svc := NewJWTService("test-secret", 1, 24)
	if _, _, err := svc.ValidateToken("not.a.token"); !errors.Is(err, domain.ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestBcryptEncoder(t *testing.T) {
	enc := NewBcryptEncoder()
	hash, err := enc.Hash("hunter2")
	if err != nil {
		t.Fatal(err)
	}
	if hash == "hunter2" {
		t.Fatal("hash must not be the raw password")
	}
	if !enc.Compare(hash, "hunter2") {
		t.Error("correct password must verify")
	}
	if enc.Compare(hash, "wrong") {
		t.Error("wrong password must not verify")
	}
}
