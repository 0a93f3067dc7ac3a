package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/sakif/account-service/internal/model"
)

// newTestTokenService creates a TokenService for testing.
// It uses a fixed, known secret so tests are deterministic.
func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService("test-secret-at-least-16-chars!!", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

var aliceClaims = model.Claims{Username: "alice", ID: "user-abc-123"}

// =========================================================================
// TOKEN SERVICE CONSTRUCTION TESTS
// =========================================================================

func TestNewTokenService_ShortSecret(t *testing.T) {
	_, err := NewTokenService("short", time.Hour)
	if err == nil {
		t.Fatal("NewTokenService() should reject secrets shorter than 16 chars")
	}
}

func TestNewTokenService_NonPositiveTTL(t *testing.T) {
	_, err := NewTokenService("this-is-16-chars", 0)
	if err == nil {
		t.Fatal("NewTokenService() should reject a zero TTL")
	}
}

func TestNewTokenService_ValidSecret(t *testing.T) {
	_, err := NewTokenService("this-is-16-chars", DefaultTokenTTL)
	if err != nil {
		t.Fatalf("NewTokenService() unexpected error for valid secret: %v", err)
	}
}

// =========================================================================
// SIGN TESTS
// =========================================================================

func TestSign_ReturnsJWT(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Sign(aliceClaims)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	if dots := strings.Count(token, "."); dots != 2 {
		t.Errorf("Sign() token doesn't look like a JWT (expected 2 dots, got %d)", dots)
	}
}

func TestSign_RequiresUsername(t *testing.T) {
	ts := newTestTokenService(t)

	if _, err := ts.Sign(model.Claims{ID: "user-1"}); err == nil {
		t.Fatal("Sign() should reject claims without a username")
	}
}

func TestSign_DifferentUsersGetDifferentTokens(t *testing.T) {
	ts := newTestTokenService(t)

	token1, _ := ts.Sign(model.Claims{Username: "alice", ID: "a"})
	token2, _ := ts.Sign(model.Claims{Username: "bob", ID: "b"})

	if token1 == token2 {
		t.Error("Sign() returned identical tokens for different users")
	}
}

// =========================================================================
// VERIFY TESTS
// =========================================================================

func TestVerify_RoundTrip(t *testing.T) {
	ts := newTestTokenService(t)
	issued := time.Now().Add(-time.Minute).Truncate(time.Second)

	token, err := ts.Sign(model.Claims{Username: "alice", ID: "user-abc-123", IssuedAt: issued})
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	got, err := ts.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if got.Username != "alice" {
		t.Errorf("Username = %q, want %q", got.Username, "alice")
	}
	if got.ID != "user-abc-123" {
		t.Errorf("ID = %q, want %q", got.ID, "user-abc-123")
	}
	if !got.IssuedAt.Equal(issued) {
		t.Errorf("IssuedAt = %v, want %v", got.IssuedAt, issued)
	}
}

func TestVerify_ZeroIssuedAtDefaultsToNow(t *testing.T) {
	ts := newTestTokenService(t)
	before := time.Now().Add(-time.Second)

	token, _ := ts.Sign(aliceClaims)
	got, err := ts.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if got.IssuedAt.Before(before.Truncate(time.Second)) {
		t.Errorf("IssuedAt = %v, want about now", got.IssuedAt)
	}
}

func TestVerify_ExpiredToken(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.SignWithTTL(aliceClaims, -1*time.Minute)
	if err != nil {
		t.Fatalf("SignWithTTL() error = %v", err)
	}

	if _, err := ts.Verify(token); err == nil {
		t.Fatal("Verify() should return an error for an expired token")
	}
}

func TestVerify_TamperedToken(t *testing.T) {
	ts := newTestTokenService(t)

	token, _ := ts.Sign(aliceClaims)
	tampered := token[:len(token)-3] + "xxx"

	if _, err := ts.Verify(tampered); err == nil {
		t.Fatal("Verify() should return an error for a tampered token")
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	ts1, _ := NewTokenService("correct-secret-32-chars-long!!!!", time.Hour)
	ts2, _ := NewTokenService("wrong-secret-32-chars-long!!!!!!", time.Hour)

	token, _ := ts1.Sign(aliceClaims)

	if _, err := ts2.Verify(token); err == nil {
		t.Fatal("Verify() should fail when using a different secret")
	}
}

func TestVerify_EmptyAndGarbage(t *testing.T) {
	ts := newTestTokenService(t)

	for _, tok := range []string{"", "not.a.jwt.token", "Bearer abc"} {
		if _, err := ts.Verify(tok); err == nil {
			t.Errorf("Verify(%q) should return an error", tok)
		}
	}
}
