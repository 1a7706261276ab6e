// Package token implements the two credential kinds of the auth core: signed
// short-lived access tokens (JWT, HS256) and opaque high-entropy refresh
// secrets whose keyed fingerprints are the only thing ever persisted.
package token

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/blogstack/core/internal/pkg/errs"
	jwtlib "github.com/golang-jwt/jwt/v5"
)

const (
	// TypeAccess is the `type` claim of an access token. A token presented
	// with any other type is rejected.
	TypeAccess = "access"

	// refreshSecretBytes is the entropy of a refresh secret before encoding.
	refreshSecretBytes = 48

	defaultAccessTTL = 15 * time.Minute
)

// Config carries everything the codec needs. RefreshHashKey keys the refresh
// fingerprint so a leaked session table alone cannot be used to forge matches.
type Config struct {
	Secret         string
	Issuer         string
	Audience       string
	AccessTTL      time.Duration
	RefreshHashKey string
}

// Codec signs and verifies access tokens and fingerprints refresh secrets.
type Codec struct {
	secret     []byte
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshKey []byte
}

// NewCodec validates the config and builds a Codec.
func NewCodec(cfg Config) (*Codec, error) {
	if cfg.Secret == "" {
		return nil, errors.New("token: signing secret is required")
	}
	if cfg.Issuer == "" || cfg.Audience == "" {
		return nil, errors.New("token: issuer and audience are required")
	}
	ttl := cfg.AccessTTL
	if ttl <= 0 {
		ttl = defaultAccessTTL
	}
	refreshKey := cfg.RefreshHashKey
	if refreshKey == "" {
		refreshKey = cfg.Secret
	}
	return &Codec{
		secret:     []byte(cfg.Secret),
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
		accessTTL:  ttl,
		refreshKey: []byte(refreshKey),
	}, nil
}

// AccessTTL returns the configured access-token lifetime.
func (c *Codec) AccessTTL() time.Duration { return c.accessTTL }

// AccessClaims is the JWT payload of an access token.
type AccessClaims struct {
	Email     string `json:"email"`
	Role      string `json:"role"`
	SessionID string `json:"sid"`
	TokenType string `json:"type"`
	jwtlib.RegisteredClaims
}

// Payload is the verified content of an access token.
type Payload struct {
	UserID    string
	Email     string
	Role      string
	SessionID string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// GenerateAccessToken signs an access token binding the user identity to the
// given session.
func (c *Codec) GenerateAccessToken(userID, email, role, sessionID string) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		Email:     email,
		Role:      role,
		SessionID: sessionID,
		TokenType: TypeAccess,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   userID,
			Issuer:    c.issuer,
			Audience:  jwtlib.ClaimStrings{c.audience},
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(c.accessTTL)),
		},
	}
	tok := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return tok.SignedString(c.secret)
}

// VerifyAccessToken checks signature, expiry, issuer, audience and token type.
// In lenient mode any failure yields (nil, nil); in strict mode it yields a
// typed error distinguishing expiry from every other failure.
func (c *Codec) VerifyAccessToken(tokenStr string, strict bool) (*Payload, error) {
	claims := &AccessClaims{}
	tok, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	},
		jwtlib.WithIssuer(c.issuer),
		jwtlib.WithAudience(c.audience),
		jwtlib.WithValidMethods([]string{"HS256"}),
	)
	if err != nil {
		if !strict {
			return nil, nil
		}
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			return nil, errs.TokenExpired()
		}
		return nil, errs.InvalidToken()
	}
	if !tok.Valid || claims.TokenType != TypeAccess || claims.Subject == "" {
		if !strict {
			return nil, nil
		}
		return nil, errs.InvalidToken()
	}

	p := &Payload{
		UserID:    claims.Subject,
		Email:     claims.Email,
		Role:      claims.Role,
		SessionID: claims.SessionID,
	}
	if claims.IssuedAt != nil {
		p.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		p.ExpiresAt = claims.ExpiresAt.Time
	}
	return p, nil
}

// GenerateRefreshSecret returns a URL-safe opaque secret with 48 bytes of
// randomness. It carries no claims; only its keyed hash is ever stored.
func (c *Codec) GenerateRefreshSecret() (string, error) {
	b := make([]byte, refreshSecretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashRefreshSecret computes the deterministic keyed fingerprint of a refresh
// secret. Equal secrets always map to equal hashes, across restarts, so the
// session store can look them up by equality.
func (c *Codec) HashRefreshSecret(secret string) string {
	mac := hmac.New(sha256.New, c.refreshKey)
	mac.Write([]byte(secret))
	return hex.EncodeToString(mac.Sum(nil))
}
