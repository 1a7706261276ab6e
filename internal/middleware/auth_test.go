package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/blogstack/core/internal/pkg/errs"
	"github.com/blogstack/core/internal/pkg/token"
	"github.com/gin-gonic/gin"
	jwtlib "github.com/golang-jwt/jwt/v5"
)

const (
	testSecret   = "test-secret-test-secret-test-secret"
	testIssuer   = "blogstack-api"
	testAudience = "blogstack-client"
)

type fakeSessionSource struct {
	sessions map[string]*ActiveSession
	touched  []string
}

func (f *fakeSessionSource) ActiveSession(_ context.Context, sessionID, userID string) (*ActiveSession, error) {
	s, ok := f.sessions[sessionID]
	if !ok || s.UserID != userID {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessionSource) Touch(_ context.Context, sessionID string) error {
	f.touched = append(f.touched, sessionID)
	return nil
}

func newTestAuthenticator(t *testing.T, sessions map[string]*ActiveSession) (*Authenticator, *token.Codec, *fakeSessionSource) {
	t.Helper()
	codec, err := token.NewCodec(token.Config{
		Secret:   testSecret,
		Issuer:   testIssuer,
		Audience: testAudience,
	})
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	src := &fakeSessionSource{sessions: sessions}
	return NewAuthenticator(codec, src), codec, src
}

func codeOf(t *testing.T, err error) string {
	t.Helper()
	if err == nil {
		t.Fatal("expected error")
	}
	e, ok := errs.As(err)
	if !ok {
		t.Fatalf("expected typed error, got %v", err)
	}
	return e.Code
}

func TestAuthenticate_MissingHeader(t *testing.T) {
	a, _, _ := newTestAuthenticator(t, nil)
	ctx := context.Background()

	_, err := a.Authenticate(ctx, "", true)
	if got := codeOf(t, err); got != errs.CodeAuthRequired {
		t.Fatalf("expected %s, got %s", errs.CodeAuthRequired, got)
	}

	p, err := a.Authenticate(ctx, "", false)
	if p != nil || err != nil {
		t.Fatalf("lenient mode must yield (nil, nil), got (%v, %v)", p, err)
	}

	// A header without the Bearer scheme is the same as no header.
	_, err = a.Authenticate(ctx, "Basic dXNlcjpwYXNz", true)
	if got := codeOf(t, err); got != errs.CodeAuthRequired {
		t.Fatalf("expected %s, got %s", errs.CodeAuthRequired, got)
	}
}

func TestAuthenticate_ValidToken(t *testing.T) {
	sessions := map[string]*ActiveSession{
		"sess-1": {UserID: "u1", UserActive: true},
	}
	a, codec, src := newTestAuthenticator(t, sessions)

	tok, err := codec.GenerateAccessToken("u1", "a@b.com", "user", "sess-1")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	p, err := a.Authenticate(context.Background(), "Bearer "+tok, true)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if p.UserID != "u1" || p.Email != "a@b.com" || p.Role != "user" || p.SessionID != "sess-1" {
		t.Fatalf("unexpected principal: %+v", p)
	}
	if len(src.touched) != 1 || src.touched[0] != "sess-1" {
		t.Fatal("session must be touched on authenticated requests")
	}

	// The bearer prefix is case-insensitive.
	if _, err := a.Authenticate(context.Background(), "bearer "+tok, true); err != nil {
		t.Fatalf("lowercase bearer prefix: %v", err)
	}
}

func TestAuthenticate_RevokedSession(t *testing.T) {
	a, codec, _ := newTestAuthenticator(t, map[string]*ActiveSession{})

	tok, err := codec.GenerateAccessToken("u1", "a@b.com", "user", "sess-gone")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	_, err = a.Authenticate(context.Background(), "Bearer "+tok, true)
	if got := codeOf(t, err); got != errs.CodeSessionRevoked {
		t.Fatalf("expected %s, got %s", errs.CodeSessionRevoked, got)
	}

	p, err := a.Authenticate(context.Background(), "Bearer "+tok, false)
	if p != nil || err != nil {
		t.Fatalf("lenient mode must yield (nil, nil), got (%v, %v)", p, err)
	}
}

func TestAuthenticate_DeactivatedUser(t *testing.T) {
	sessions := map[string]*ActiveSession{
		"sess-1": {UserID: "u1", UserActive: false},
	}
	a, codec, _ := newTestAuthenticator(t, sessions)

	tok, err := codec.GenerateAccessToken("u1", "a@b.com", "user", "sess-1")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	_, err = a.Authenticate(context.Background(), "Bearer "+tok, true)
	if got := codeOf(t, err); got != errs.CodeAuthentication {
		t.Fatalf("expected %s, got %s", errs.CodeAuthentication, got)
	}
}

func TestAuthenticate_StaleTokenAfterPasswordChange(t *testing.T) {
	changed := time.Now().Add(time.Hour)
	sessions := map[string]*ActiveSession{
		"sess-1": {UserID: "u1", UserActive: true, PasswordChangedAt: &changed},
	}
	a, codec, _ := newTestAuthenticator(t, sessions)

	// Token issued now, password "changed" an hour later.
	tok, err := codec.GenerateAccessToken("u1", "a@b.com", "user", "sess-1")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	_, err = a.Authenticate(context.Background(), "Bearer "+tok, true)
	if got := codeOf(t, err); got != errs.CodeSessionRevoked {
		t.Fatalf("expected %s, got %s", errs.CodeSessionRevoked, got)
	}
}

func TestAuthenticate_ExpiredToken(t *testing.T) {
	a, _, _ := newTestAuthenticator(t, map[string]*ActiveSession{
		"sess-1": {UserID: "u1", UserActive: true},
	})

	now := time.Now()
	claims := jwtlib.MapClaims{
		"sub":   "u1",
		"email": "a@b.com",
		"role":  "user",
		"sid":   "sess-1",
		"type":  "access",
		"iss":   testIssuer,
		"aud":   testAudience,
		"iat":   now.Add(-time.Hour).Unix(),
		"exp":   now.Add(-time.Minute).Unix(),
	}
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	_, err = a.Authenticate(context.Background(), "Bearer "+signed, true)
	if got := codeOf(t, err); got != errs.CodeTokenExpired {
		t.Fatalf("expected %s, got %s", errs.CodeTokenExpired, got)
	}
}

func TestAuthenticate_WrongTokenType(t *testing.T) {
	a, _, _ := newTestAuthenticator(t, map[string]*ActiveSession{
		"sess-1": {UserID: "u1", UserActive: true},
	})

	now := time.Now()
	claims := jwtlib.MapClaims{
		"sub":  "u1",
		"sid":  "sess-1",
		"type": "refresh",
		"iss":  testIssuer,
		"aud":  testAudience,
		"iat":  now.Unix(),
		"exp":  now.Add(time.Hour).Unix(),
	}
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	_, err = a.Authenticate(context.Background(), "Bearer "+signed, true)
	if got := codeOf(t, err); got != errs.CodeInvalidToken {
		t.Fatalf("expected %s, got %s", errs.CodeInvalidToken, got)
	}
}

func TestRequireAuthAndRole(t *testing.T) {
	gin.SetMode(gin.TestMode)

	sessions := map[string]*ActiveSession{
		"sess-1": {UserID: "u1", UserActive: true},
	}
	a, codec, _ := newTestAuthenticator(t, sessions)

	tok, err := codec.GenerateAccessToken("u1", "a@b.com", "user", "sess-1")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	r := gin.New()
	r.GET("/me", RequireAuth(a), func(c *gin.Context) {
		p := CurrentPrincipal(c)
		c.JSON(http.StatusOK, gin.H{"user": p.UserID})
	})
	r.GET("/admin", RequireAuth(a), RequireRole("admin"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/open", OptionalAuth(a), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"authed": IsAuthenticated(c)})
	})

	// No token.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}

	// Valid token.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// Wrong role.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}

	// Optional auth never blocks.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/open", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}
