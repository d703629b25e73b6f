package security_test

import (
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/sarpraslab/peminjaman-backend/pkg/config"
	"github.com/sarpraslab/peminjaman-backend/pkg/security"
)

var fastArgon = config.PasswordConfig{
	ArgonMemoryKB:    8192,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
}

func TestHashAndVerifyPassword(t *testing.T) {
	hasher := security.NewHasher(fastArgon)

	hash, err := hasher.Hash("rahasia123")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}

	ok, rehash, err := hasher.Verify("rahasia123", hash)
	if err != nil {
		t.Fatalf("Verify returned error for valid hash: %v", err)
	}
	if !ok || rehash {
		t.Fatalf("expected match without rehash, ok=%v rehash=%v", ok, rehash)
	}

	ok, _, err = hasher.Verify("bogus-password", hash)
	if err != nil {
		t.Fatalf("Verify returned error for wrong password: %v", err)
	}
	if ok {
		t.Fatal("Verify returned true for incorrect password")
	}
}

func TestVerifyLegacyBcrypt(t *testing.T) {
	legacy, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	hasher := security.NewHasher(fastArgon)

	ok, rehash, err := hasher.Verify("admin123", string(legacy))
	if err != nil || !ok || !rehash {
		t.Fatalf("expected legacy match flagged for rehash, ok=%v rehash=%v err=%v", ok, rehash, err)
	}
	ok, _, err = hasher.Verify("wrong", string(legacy))
	if err != nil || ok {
		t.Fatalf("expected mismatch without error, ok=%v err=%v", ok, err)
	}
}

func TestVerifyPasswordBadHash(t *testing.T) {
	hasher := security.NewHasher(fastArgon)
	if _, _, err := hasher.Verify("irrelevant", "not-a-hash"); err == nil {
		t.Fatal("expected error for malformed hash")
	}
}

func TestValidateCredentials(t *testing.T) {
	cases := []struct {
		username, password string
		ok                 bool
	}{
		{"budi", "secret1", true},
		{"ab", "secret1", false},
		{"  ab  ", "secret1", false},
		{"budi", "12345", false},
	}
	for _, tc := range cases {
		err := security.ValidateCredentials(tc.username, tc.password)
		if (err == nil) != tc.ok {
			t.Fatalf("ValidateCredentials(%q, %q) err=%v, want ok=%v", tc.username, tc.password, err, tc.ok)
		}
	}
}
