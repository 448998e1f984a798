package auth

import (
	"errors"
	"testing"
	"time"
)

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := CheckPassword(hash, "correct horse"); err != nil {
		t.Errorf("expected match, got %v", err)
	}
	if err := CheckPassword(hash, "wrong horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestNewTokens_Validation(t *testing.T) {
	if _, err := NewTokens(nil, time.Hour); err == nil {
		t.Error("expected error for empty secret")
	}
	if _, err := NewTokens([]byte("s"), 0); err == nil {
		t.Error("expected error for zero ttl")
	}
}

func TestTokens_IssueAndVerify(t *testing.T) {
	tokens, err := NewTokens([]byte("test-secret"), time.Hour)
	if err != nil {
		t.Fatalf("new tokens: %v", err)
	}

	raw, err := tokens.Issue(42)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	userID, err := tokens.Verify(raw)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if userID != 42 {
		t.Errorf("expected user 42, got %d", userID)
	}

	other, _ := NewTokens([]byte("other-secret"), time.Hour)
	if _, err := other.Verify(raw); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for foreign key, got %v", err)
	}
	if _, err := tokens.Verify("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for garbage, got %v", err)
	}
}

func TestTokens_Expired(t *testing.T) {
	tokens, _ := NewTokens([]byte("test-secret"), time.Minute)
	issuedAt := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	tokens.now = func() time.Time { return issuedAt }

	raw, err := tokens.Issue(7)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	tokens.now = func() time.Time { return issuedAt.Add(2 * time.Minute) }
	if _, err := tokens.Verify(raw); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected expired token to be rejected, got %v", err)
	}
}
