package auth

import (
	"errors"
	"testing"
	"time"
)

func TestVerifier_RoundTrip(t *testing.T) {
	v := NewVerifier("test-secret", time.Hour)

	token, err := v.Issue(UserIdentity{UserID: "u1", Email: "u1@example.com"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	identity, err := v.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if identity.UserID != "u1" {
		t.Errorf("UserID = %q, want u1", identity.UserID)
	}
	if identity.Email != "u1@example.com" {
		t.Errorf("Email = %q, want u1@example.com", identity.Email)
	}
}

func TestVerifier_Malformed(t *testing.T) {
	v := NewVerifier("test-secret", time.Hour)

	// Tokens without three segments must be rejected, not parsed.
	for _, tok := range []string{"", "garbage", "a.b", "a.b.c.d"} {
		if _, err := v.Verify(tok); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Verify(%q) = %v, want ErrInvalidToken", tok, err)
		}
	}
}

func TestVerifier_WrongSecret(t *testing.T) {
	issuer := NewVerifier("secret-a", time.Hour)
	verifier := NewVerifier("secret-b", time.Hour)

	token, err := issuer.Issue(UserIdentity{UserID: "u1"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := verifier.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify with wrong secret = %v, want ErrInvalidToken", err)
	}
}

func TestVerifier_Expired(t *testing.T) {
	v := NewVerifier("test-secret", -time.Minute)

	token, err := v.Issue(UserIdentity{UserID: "u1"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := v.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify expired token = %v, want ErrInvalidToken", err)
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "hunter2" {
		t.Fatal("hash equals plaintext")
	}

	if !CheckPassword(hash, "hunter2") {
		t.Error("CheckPassword rejected correct password")
	}
	if CheckPassword(hash, "hunter3") {
		t.Error("CheckPassword accepted wrong password")
	}
}
