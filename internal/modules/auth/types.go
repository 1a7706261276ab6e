package auth

import (
	"time"

	"github.com/blogstack/core/internal/models"
)

// All login failure modes share one message so callers cannot probe which
// accounts exist, are locked, or are deactivated.
const msgInvalidCredentials = "Invalid email or password"

// LoginRequest is the login payload.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest carries a refresh secret in the body for clients that cannot
// use the cookie.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// SafeUser is the user shape exposed to API callers. It never carries the
// password hash.
type SafeUser struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	FirstName string     `json:"firstName,omitempty"`
	LastName  string     `json:"lastName,omitempty"`
	Role      string     `json:"role"`
	IsActive  bool       `json:"isActive"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
	Created   time.Time  `json:"created"`
}

// NewSafeUser projects a user model onto its public shape.
func NewSafeUser(u *models.UserModel) SafeUser {
	return SafeUser{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      string(u.Role),
		IsActive:  u.IsActive,
		LastLogin: u.LastLoginAt,
		Created:   u.CreatedAt,
	}
}

// LoginResult is what a successful login or refresh produces. RefreshSecret
// is handed to the transport layer for cookie delivery and never logged.
type LoginResult struct {
	AccessToken      string
	TokenType        string
	ExpiresIn        int64
	User             SafeUser
	SessionID        string
	RefreshSecret    string
	RefreshExpiresAt time.Time
}

// SessionInfo is the public shape of an active session.
type SessionInfo struct {
	ID         string     `json:"id"`
	UserAgent  string     `json:"userAgent,omitempty"`
	IPAddress  string     `json:"ipAddress,omitempty"`
	Current    bool       `json:"current"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty"`
	ExpiresAt  time.Time  `json:"expiresAt"`
	Created    time.Time  `json:"created"`
}

// ClientInfo is the request metadata recorded on each session.
type ClientInfo struct {
	UserAgent string
	IP        string
}
