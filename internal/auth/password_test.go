package auth

import (
	"strings"
	"testing"
)

// =========================================================================
// Hash TESTS
// =========================================================================

func TestHash_ReturnsEncodedDigest(t *testing.T) {
	ps := NewPasswordServiceForTest()

	hash, err := ps.Hash("my-secret-password")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if !strings.HasPrefix(hash, "argon2id$v=19$m=") {
		t.Errorf("Hash() does not look like an argon2id digest: %q", hash)
	}
	if n := strings.Count(hash, "$"); n != 4 {
		t.Errorf("Hash() has %d separators, want 4", n)
	}
}

func TestHash_SamePasswordProducesDifferentHashes(t *testing.T) {
	ps := NewPasswordServiceForTest()

	hash1, _ := ps.Hash("same-password")
	hash2, _ := ps.Hash("same-password")

	if hash1 == hash2 {
		t.Error("Hash() produced identical hashes for the same password (salt must be random)")
	}
}

func TestHash_NoLengthLimit(t *testing.T) {
	ps := NewPasswordServiceForTest()
	long := strings.Repeat("x", 200)

	hash, err := ps.Hash(long)
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	ok, err := ps.Verify(hash, long)
	if err != nil || !ok {
		t.Fatalf("Verify() = %v, %v; want true, nil", ok, err)
	}
	if ok, _ := ps.Verify(hash, long[:199]); ok {
		t.Error("Verify() accepted a truncated password")
	}
}

// =========================================================================
// Verify TESTS
// =========================================================================

func TestVerify_CorrectPassword(t *testing.T) {
	ps := NewPasswordServiceForTest()

	hash, err := ps.Hash("Str0ng!Pass" + "salt" + "pepper")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	ok, err := ps.Verify(hash, "Str0ng!Pass"+"salt"+"pepper")
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if !ok {
		t.Error("Verify() = false for the correct password")
	}
}

func TestVerify_WrongPassword(t *testing.T) {
	ps := NewPasswordServiceForTest()
	hash, _ := ps.Hash("correct-password")

	ok, err := ps.Verify(hash, "wrong-password")
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if ok {
		t.Error("Verify() = true for the wrong password")
	}
}

func TestVerify_ParametersComeFromDigest(t *testing.T) {
	// A hash made with test parameters must verify under the default service.
	hash, _ := NewPasswordServiceForTest().Hash("portable")

	ok, err := NewPasswordService().Verify(hash, "portable")
	if err != nil || !ok {
		t.Errorf("Verify() = %v, %v; want true, nil", ok, err)
	}
}

func TestVerify_MalformedDigest(t *testing.T) {
	ps := NewPasswordServiceForTest()

	tests := []struct {
		name   string
		digest string
	}{
		{"empty", ""},
		{"plaintext", "hunter2"},
		{"bcrypt digest", "$2a$12$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"},
		{"wrong variant", "argon2i$v=19$m=8,t=1,p=1$c2FsdA$a2V5"},
		{"wrong version", "argon2id$v=16$m=8,t=1,p=1$c2FsdA$a2V5"},
		{"bad params", "argon2id$v=19$m=x,t=1,p=1$c2FsdA$a2V5"},
		{"zero iterations", "argon2id$v=19$m=8,t=0,p=1$c2FsdA$a2V5"},
		{"unknown param", "argon2id$v=19$m=8,t=1,q=1$c2FsdA$a2V5"},
		{"bad salt encoding", "argon2id$v=19$m=8,t=1,p=1$!!!$a2V5"},
		{"empty key", "argon2id$v=19$m=8,t=1,p=1$c2FsdA$"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := ps.Verify(tt.digest, "anything")
			if err == nil {
				t.Error("Verify() error = nil, want error for malformed digest")
			}
			if ok {
				t.Error("Verify() = true for malformed digest")
			}
		})
	}
}

// =========================================================================
// NewSalt TESTS
// =========================================================================

func TestNewSalt(t *testing.T) {
	a, err := NewSalt(20)
	if err != nil {
		t.Fatalf("NewSalt() error = %v", err)
	}
	b, _ := NewSalt(20)

	if len(a) != 20 {
		t.Errorf("len(NewSalt(20)) = %d, want 20", len(a))
	}
	if a == b {
		t.Error("NewSalt() returned the same value twice")
	}
	if strings.ContainsAny(a, "+/=") {
		t.Errorf("NewSalt() = %q, want URL-safe characters only", a)
	}
}
