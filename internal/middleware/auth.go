package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/blogstack/core/internal/pkg/errs"
	"github.com/blogstack/core/internal/pkg/response"
	"github.com/blogstack/core/internal/pkg/token"
	"github.com/gin-gonic/gin"
)

const (
	// ContextKeyPrincipal is the gin context key holding the authenticated
	// caller's identity.
	ContextKeyPrincipal = "auth_principal"
)

// Principal is the authenticated caller attached to a request.
type Principal struct {
	UserID    string
	Email     string
	Role      string
	SessionID string
	IssuedAt  time.Time
}

// ActiveSession is the session-plus-owner state the authenticator checks a
// verified token against.
type ActiveSession struct {
	UserID            string
	UserActive        bool
	PasswordChangedAt *time.Time
}

// SessionSource resolves live sessions for request authentication.
type SessionSource interface {
	// ActiveSession returns the non-revoked, non-expired session with the
	// given id belonging to userID, or nil when no such session exists.
	ActiveSession(ctx context.Context, sessionID, userID string) (*ActiveSession, error)

	// Touch stamps the session's last activity time. Best effort.
	Touch(ctx context.Context, sessionID string) error
}

// Authenticator validates bearer tokens against the session store.
type Authenticator struct {
	codec    *token.Codec
	sessions SessionSource
}

// NewAuthenticator builds an Authenticator.
func NewAuthenticator(codec *token.Codec, sessions SessionSource) *Authenticator {
	return &Authenticator{codec: codec, sessions: sessions}
}

// Authenticate resolves the Authorization header into a Principal. In strict
// mode every failure yields a typed error; in lenient mode every failure
// yields (nil, nil) and only infrastructure faults surface as errors.
//
// A signature-valid token is still rejected when its session is revoked or
// expired, its user is deactivated, or the token predates the user's last
// password change.
func (a *Authenticator) Authenticate(ctx context.Context, authHeader string, strict bool) (*Principal, error) {
	raw := bearerToken(authHeader)
	if raw == "" {
		if strict {
			return nil, errs.AuthRequired()
		}
		return nil, nil
	}

	payload, err := a.codec.VerifyAccessToken(raw, strict)
	if err != nil || payload == nil {
		return nil, err
	}
	if payload.SessionID == "" {
		if strict {
			return nil, errs.InvalidToken()
		}
		return nil, nil
	}

	sess, err := a.sessions.ActiveSession(ctx, payload.SessionID, payload.UserID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		if strict {
			return nil, errs.SessionRevoked()
		}
		return nil, nil
	}
	if !sess.UserActive {
		if strict {
			return nil, errs.Authentication("Account has been deactivated")
		}
		return nil, nil
	}
	if sess.PasswordChangedAt != nil && payload.IssuedAt.Before(*sess.PasswordChangedAt) {
		if strict {
			return nil, errs.SessionRevoked()
		}
		return nil, nil
	}

	_ = a.sessions.Touch(ctx, payload.SessionID)

	return &Principal{
		UserID:    payload.UserID,
		Email:     payload.Email,
		Role:      payload.Role,
		SessionID: payload.SessionID,
		IssuedAt:  payload.IssuedAt,
	}, nil
}

// RequireAuth returns a middleware that rejects unauthenticated requests.
func RequireAuth(a *Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := a.Authenticate(c.Request.Context(), c.GetHeader("Authorization"), true)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Set(ContextKeyPrincipal, p)
		c.Next()
	}
}

// OptionalAuth attaches a Principal when a valid token is present but never
// blocks the request.
func OptionalAuth(a *Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if p, err := a.Authenticate(c.Request.Context(), c.GetHeader("Authorization"), false); err == nil && p != nil {
			c.Set(ContextKeyPrincipal, p)
		}
		c.Next()
	}
}

// RequireRole returns a middleware allowing only the listed roles. It must be
// mounted after RequireAuth.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		p := CurrentPrincipal(c)
		if p == nil {
			response.Error(c, errs.AuthRequired())
			return
		}
		if _, ok := allowed[p.Role]; !ok {
			response.Error(c, errs.Forbidden("Insufficient permissions"))
			return
		}
		c.Next()
	}
}

// CurrentPrincipal extracts the authenticated Principal from context, or nil.
func CurrentPrincipal(c *gin.Context) *Principal {
	v, _ := c.Get(ContextKeyPrincipal)
	p, _ := v.(*Principal)
	return p
}

// IsAuthenticated reports whether the request carries a valid identity.
func IsAuthenticated(c *gin.Context) bool {
	return CurrentPrincipal(c) != nil
}

// bearerToken strips the Bearer prefix, case-insensitively, and trims spaces.
func bearerToken(raw string) string {
	t := strings.TrimSpace(raw)
	if t == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(t), "bearer ") {
		return strings.TrimSpace(t[7:])
	}
	return ""
}
