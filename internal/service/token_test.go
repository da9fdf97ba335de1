package service

import (
	"errors"
	"testing"
	"time"
)

func newTestIssuer(t *testing.T, key string) *TokenIssuer {
	t.Helper()
	issuer, err := NewTokenIssuer([]byte(key))
	if err != nil {
		t.Fatalf("NewTokenIssuer error: %v", err)
	}
	return issuer
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t, "test-signing-key")

	token, err := issuer.Issue("alice@example.com", time.Hour)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	subject, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if subject != "alice@example.com" {
		t.Fatalf("subject mismatch: got %q", subject)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t, "test-signing-key")

	for _, ttl := range []time.Duration{0, -time.Minute} {
		token, err := issuer.Issue("alice@example.com", ttl)
		if err != nil {
			t.Fatalf("Issue error: %v", err)
		}
		if _, err := issuer.Verify(token); !errors.Is(err, ErrTokenExpired) {
			t.Fatalf("ttl %v: expected ErrTokenExpired, got %v", ttl, err)
		}
	}
}

func TestVerifyWrongKey(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t, "right-key")
	other := newTestIssuer(t, "wrong-key")

	token, err := issuer.Issue("alice@example.com", time.Hour)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	if _, err := other.Verify(token); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifyMalformedToken(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t, "test-signing-key")

	for _, token := range []string{"", "garbage", "a.b", "a.b.c.d"} {
		if _, err := issuer.Verify(token); !errors.Is(err, ErrTokenMalformed) {
			t.Fatalf("token %q: expected ErrTokenMalformed, got %v", token, err)
		}
	}
}

func TestIsExpired(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t, "test-signing-key")

	live, err := issuer.Issue("alice@example.com", time.Hour)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if issuer.IsExpired(live) {
		t.Fatalf("live token reported expired")
	}

	stale, err := issuer.Issue("alice@example.com", -time.Minute)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if !issuer.IsExpired(stale) {
		t.Fatalf("stale token not reported expired")
	}

	if !issuer.IsExpired("garbage") {
		t.Fatalf("unusable token not reported expired")
	}
}

func TestNewTokenIssuerEmptyKey(t *testing.T) {
	t.Parallel()

	if _, err := NewTokenIssuer(nil); err == nil {
		t.Fatalf("expected error for empty signing key")
	}
}
