package auth

import (
	"net/http"
	"time"

	"github.com/blogstack/core/internal/middleware"
	"github.com/blogstack/core/internal/pkg/errs"
	"github.com/blogstack/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

// CookieConfig describes refresh-cookie delivery.
type CookieConfig struct {
	Name   string
	Path   string
	Secure bool
}

// Handler exposes the auth endpoints.
type Handler struct {
	svc    *Service
	cookie CookieConfig
}

// NewHandler builds the auth HTTP handler.
func NewHandler(svc *Service, cookie CookieConfig) *Handler {
	if cookie.Name == "" {
		cookie.Name = "refresh_token"
	}
	if cookie.Path == "" {
		cookie.Path = "/api/v1/auth"
	}
	return &Handler{svc: svc, cookie: cookie}
}

// Register mounts the auth routes. Logout endpoints work with either the
// refresh cookie or a bearer token, so they sit behind optional auth only.
func (h *Handler) Register(r *gin.RouterGroup, authn *middleware.Authenticator) {
	grp := r.Group("/auth")
	grp.POST("/login", h.login)
	grp.POST("/refresh", h.refresh)
	grp.POST("/logout", middleware.OptionalAuth(authn), h.logout)

	protected := grp.Group("")
	protected.Use(middleware.RequireAuth(authn))
	protected.POST("/logout-all", h.logoutAll)
	protected.GET("/sessions", h.sessions)
}

type tokenEnvelope struct {
	AccessToken string   `json:"accessToken"`
	TokenType   string   `json:"tokenType"`
	ExpiresIn   int64    `json:"expiresIn"`
	SessionID   string   `json:"sessionId"`
	User        SafeUser `json:"user"`
}

func (h *Handler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errs.Validation("Email and password are required"))
		return
	}

	result, err := h.svc.Login(c.Request.Context(), req.Email, req.Password, clientInfo(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setRefreshCookie(c, result.RefreshSecret, result.RefreshExpiresAt)
	response.OK(c, tokenEnvelope{
		AccessToken: result.AccessToken,
		TokenType:   result.TokenType,
		ExpiresIn:   result.ExpiresIn,
		SessionID:   result.SessionID,
		User:        result.User,
	})
}

func (h *Handler) refresh(c *gin.Context) {
	secret := h.refreshSecret(c)
	result, err := h.svc.RefreshAccessToken(c.Request.Context(), secret, clientInfo(c))
	if err != nil {
		// Only a definitive rejection invalidates the cookie. On an
		// infrastructure failure the session may still be live, so the
		// client keeps its secret and can retry.
		if _, ok := errs.As(err); ok {
			h.clearRefreshCookie(c)
		}
		response.Error(c, err)
		return
	}

	h.setRefreshCookie(c, result.RefreshSecret, result.RefreshExpiresAt)
	response.OK(c, tokenEnvelope{
		AccessToken: result.AccessToken,
		TokenType:   result.TokenType,
		ExpiresIn:   result.ExpiresIn,
		SessionID:   result.SessionID,
		User:        result.User,
	})
}

func (h *Handler) logout(c *gin.Context) {
	sessionID := ""
	if p := middleware.CurrentPrincipal(c); p != nil {
		sessionID = p.SessionID
	}

	if err := h.svc.Logout(c.Request.Context(), sessionID, h.refreshSecret(c)); err != nil {
		response.Error(c, err)
		return
	}

	h.clearRefreshCookie(c)
	response.OK(c, gin.H{"message": "Logged out"})
}

func (h *Handler) logoutAll(c *gin.Context) {
	p := middleware.CurrentPrincipal(c)
	revoked, err := h.svc.LogoutAllSessions(c.Request.Context(), p.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.clearRefreshCookie(c)
	response.OK(c, gin.H{"message": "All sessions revoked", "revoked": revoked})
}

func (h *Handler) sessions(c *gin.Context) {
	p := middleware.CurrentPrincipal(c)
	infos, err := h.svc.ListSessions(c.Request.Context(), p.UserID, p.SessionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, infos)
}

// refreshSecret reads the refresh secret from the cookie, falling back to the
// request body for cookie-less clients.
func (h *Handler) refreshSecret(c *gin.Context) string {
	if v, err := c.Cookie(h.cookie.Name); err == nil && v != "" {
		return v
	}
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err == nil {
		return req.RefreshToken
	}
	return ""
}

func (h *Handler) setRefreshCookie(c *gin.Context, secret string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 0 {
		maxAge = 0
	}
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(h.cookie.Name, secret, maxAge, h.cookie.Path, "", h.cookie.Secure, true)
}

func (h *Handler) clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(h.cookie.Name, "", -1, h.cookie.Path, "", h.cookie.Secure, true)
}

func clientInfo(c *gin.Context) ClientInfo {
	return ClientInfo{
		UserAgent: c.Request.UserAgent(),
		IP:        c.ClientIP(),
	}
}
