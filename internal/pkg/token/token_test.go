package token

import (
	"testing"
	"time"
)

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := NewCodec(Config{
		Secret:   "test-secret-test-secret-test-secret",
		Issuer:   "blogstack-api",
		Audience: "blogstack-client",
	})
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	return c
}

func TestAccessToken_RoundTrip(t *testing.T) {
	c := newTestCodec(t)

	tok, err := c.GenerateAccessToken("user-1", "a@b.com", "admin", "sess-1")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	p, err := c.VerifyAccessToken(tok, true)
	if err != nil {
		t.Fatalf("VerifyAccessToken: %v", err)
	}
	if p.UserID != "user-1" || p.Email != "a@b.com" || p.Role != "admin" || p.SessionID != "sess-1" {
		t.Fatalf("unexpected payload: %+v", p)
	}
	if !p.ExpiresAt.After(time.Now()) {
		t.Fatalf("expected future expiry, got %v", p.ExpiresAt)
	}
}

func TestAccessToken_WrongSecret(t *testing.T) {
	c := newTestCodec(t)
	other, err := NewCodec(Config{
		Secret:   "another-secret-another-secret",
		Issuer:   "blogstack-api",
		Audience: "blogstack-client",
	})
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}

	tok, err := other.GenerateAccessToken("user-1", "a@b.com", "user", "sess-1")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	if _, err := c.VerifyAccessToken(tok, true); err == nil {
		t.Fatal("expected verification failure for wrong secret")
	}

	p, err := c.VerifyAccessToken(tok, false)
	if err != nil || p != nil {
		t.Fatalf("lenient mode should yield (nil, nil), got (%v, %v)", p, err)
	}
}

func TestAccessToken_WrongIssuerAudience(t *testing.T) {
	c := newTestCodec(t)
	other, err := NewCodec(Config{
		Secret:   "test-secret-test-secret-test-secret",
		Issuer:   "someone-else",
		Audience: "someone-else-client",
	})
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}

	tok, err := other.GenerateAccessToken("user-1", "a@b.com", "user", "sess-1")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	if _, err := c.VerifyAccessToken(tok, true); err == nil {
		t.Fatal("expected verification failure for wrong issuer/audience")
	}
}

func TestAccessToken_Expired(t *testing.T) {
	c := newTestCodec(t)
	c.accessTTL = -time.Minute

	tok, err := c.GenerateAccessToken("user-1", "a@b.com", "user", "sess-1")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	c.accessTTL = 15 * time.Minute
	_, err = c.VerifyAccessToken(tok, true)
	if err == nil {
		t.Fatal("expected expiry error")
	}

	p, lerr := c.VerifyAccessToken(tok, false)
	if lerr != nil || p != nil {
		t.Fatalf("lenient mode should yield (nil, nil), got (%v, %v)", p, lerr)
	}
}

func TestAccessToken_Garbage(t *testing.T) {
	c := newTestCodec(t)
	if _, err := c.VerifyAccessToken("not-a-token", true); err == nil {
		t.Fatal("expected failure for malformed token")
	}
}

func TestRefreshSecret_UniqueAndDeterministicHash(t *testing.T) {
	c := newTestCodec(t)

	s1, err := c.GenerateRefreshSecret()
	if err != nil {
		t.Fatalf("GenerateRefreshSecret: %v", err)
	}
	s2, err := c.GenerateRefreshSecret()
	if err != nil {
		t.Fatalf("GenerateRefreshSecret: %v", err)
	}
	if s1 == s2 {
		t.Fatal("two refresh secrets must not collide")
	}

	if c.HashRefreshSecret(s1) != c.HashRefreshSecret(s1) {
		t.Fatal("hash must be deterministic")
	}
	if c.HashRefreshSecret(s1) == c.HashRefreshSecret(s2) {
		t.Fatal("distinct secrets must hash differently")
	}
	if len(c.HashRefreshSecret(s1)) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(c.HashRefreshSecret(s1)))
	}
}

func TestRefreshHash_KeyedByServerSecret(t *testing.T) {
	c := newTestCodec(t)
	other, err := NewCodec(Config{
		Secret:   "another-secret-another-secret",
		Issuer:   "blogstack-api",
		Audience: "blogstack-client",
	})
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}

	if c.HashRefreshSecret("same-input") == other.HashRefreshSecret("same-input") {
		t.Fatal("hash must depend on the server key")
	}
}

func TestNewCodec_Validation(t *testing.T) {
	if _, err := NewCodec(Config{Issuer: "i", Audience: "a"}); err == nil {
		t.Fatal("expected error for missing secret")
	}
	if _, err := NewCodec(Config{Secret: "s"}); err == nil {
		t.Fatal("expected error for missing issuer/audience")
	}
}
