package password

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerify(t *testing.T) {
	// Min cost keeps the test fast.
	SetCost(bcrypt.MinCost)
	defer SetCost(DefaultCost)

	hash, err := Hash("s3cret-password")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(hash, "$2") {
		t.Fatalf("expected bcrypt hash, got %q", hash)
	}

	if !Verify("s3cret-password", hash) {
		t.Fatal("correct password must verify")
	}
	if Verify("wrong-password", hash) {
		t.Fatal("wrong password must not verify")
	}
	if Verify("s3cret-password", "not-a-hash") {
		t.Fatal("garbage hash must not verify")
	}
}

func TestHash_Salted(t *testing.T) {
	SetCost(bcrypt.MinCost)
	defer SetCost(DefaultCost)

	h1, err := Hash("same-password")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	h2, err := Hash("same-password")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if h1 == h2 {
		t.Fatal("two hashes of the same password must differ by salt")
	}
}

func TestSetCost_Bounds(t *testing.T) {
	SetCost(bcrypt.MaxCost + 1)
	if cost == bcrypt.MaxCost+1 {
		t.Fatal("out-of-range cost must be rejected")
	}
	SetCost(DefaultCost)
}
