package auth

import (
	"context"
	"strings"
	"time"

	"github.com/blogstack/core/internal/models"
	"github.com/blogstack/core/internal/pkg/errs"
	"github.com/blogstack/core/internal/pkg/password"
	"github.com/blogstack/core/internal/pkg/token"
	"go.uber.org/zap"
)

// Service orchestrates login, refresh rotation, reuse detection, logout and
// the account lockout policy.
type Service struct {
	users    UserStore
	sessions SessionStore
	codec    *token.Codec
	log      *zap.Logger

	maxLoginAttempts int
	lockWindow       time.Duration
	refreshTTL       time.Duration

	now func() time.Time
}

// ServiceConfig wires the auth service.
type ServiceConfig struct {
	Users            UserStore
	Sessions         SessionStore
	Codec            *token.Codec
	Logger           *zap.Logger
	MaxLoginAttempts int
	LockWindow       time.Duration
	RefreshTTL       time.Duration
}

// NewService builds the auth service, applying policy defaults.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		users:            cfg.Users,
		sessions:         cfg.Sessions,
		codec:            cfg.Codec,
		log:              cfg.Logger,
		maxLoginAttempts: cfg.MaxLoginAttempts,
		lockWindow:       cfg.LockWindow,
		refreshTTL:       cfg.RefreshTTL,
		now:              time.Now,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.maxLoginAttempts <= 0 {
		s.maxLoginAttempts = 5
	}
	if s.lockWindow <= 0 {
		s.lockWindow = 15 * time.Minute
	}
	if s.refreshTTL <= 0 {
		s.refreshTTL = 7 * 24 * time.Hour
	}
	return s
}

// NormalizeEmail canonicalizes an email for lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Login verifies credentials and opens a new session lineage. Absent users,
// deactivated accounts, locked accounts and wrong passwords all fail with the
// same generic error.
func (s *Service) Login(ctx context.Context, email, pass string, client ClientInfo) (*LoginResult, error) {
	email = NormalizeEmail(email)
	if email == "" || pass == "" {
		return nil, errs.Authentication(msgInvalidCredentials)
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if user == nil || user.Locked(now) || !user.IsActive {
		return nil, errs.Authentication(msgInvalidCredentials)
	}

	if !password.Verify(pass, user.Password) {
		attempts, lockedUntil, ferr := s.users.RecordLoginFailure(ctx, user.ID, s.maxLoginAttempts, s.lockWindow)
		if ferr != nil {
			return nil, ferr
		}
		if lockedUntil != nil && lockedUntil.After(now) {
			s.log.Warn("account locked after repeated login failures",
				zap.String("user_id", user.ID),
				zap.Int("attempts", attempts),
				zap.Time("locked_until", *lockedUntil),
			)
		}
		return nil, errs.Authentication(msgInvalidCredentials)
	}

	if err := s.users.RecordLoginSuccess(ctx, user.ID, client.IP, now); err != nil {
		return nil, err
	}
	user.FailedLoginAttempts = 0
	user.LockedUntil = nil
	user.LastLoginAt = &now

	return s.createSession(ctx, user, client)
}

// RefreshAccessToken rotates a refresh secret into a new session. Replay of an
// already-rotated secret is treated as compromise and revokes the user's
// entire session set; an expired secret revokes only itself.
func (s *Service) RefreshAccessToken(ctx context.Context, secret string, client ClientInfo) (*LoginResult, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errs.Authentication("Refresh token is required")
	}

	hash := s.codec.HashRefreshSecret(secret)
	sess, err := s.sessions.FindByRefreshHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, errs.Authentication("Invalid refresh token")
	}

	now := s.now()
	if sess.RevokedAt != nil {
		revoked, rerr := s.sessions.RevokeAllForUser(ctx, sess.UserID)
		if rerr != nil {
			return nil, rerr
		}
		s.log.Warn("refresh token reuse detected, all sessions revoked",
			zap.String("user_id", sess.UserID),
			zap.String("session_id", sess.ID),
			zap.Int64("sessions_revoked", revoked),
			zap.String("ip", client.IP),
		)
		return nil, errs.SessionRevoked()
	}

	if !sess.ExpiresAt.After(now) {
		if _, rerr := s.sessions.Revoke(ctx, sess.ID); rerr != nil {
			return nil, rerr
		}
		return nil, errs.Authentication("Refresh token has expired")
	}

	user, err := s.users.FindByID(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		if _, rerr := s.sessions.Revoke(ctx, sess.ID); rerr != nil {
			return nil, rerr
		}
		return nil, errs.Authentication(msgInvalidCredentials)
	}

	result, err := s.createSession(ctx, user, client)
	if err != nil {
		return nil, err
	}

	won, err := s.sessions.Chain(ctx, sess.ID, result.SessionID)
	if err != nil {
		return nil, err
	}
	if !won {
		// A concurrent refresh already consumed this secret. Treat the loser
		// as a replay: kill the whole lineage, including the child we just
		// created.
		revoked, rerr := s.sessions.RevokeAllForUser(ctx, sess.UserID)
		if rerr != nil {
			return nil, rerr
		}
		s.log.Warn("refresh rotation race lost, all sessions revoked",
			zap.String("user_id", sess.UserID),
			zap.String("session_id", sess.ID),
			zap.Int64("sessions_revoked", revoked),
		)
		return nil, errs.SessionRevoked()
	}

	return result, nil
}

// Logout revokes the session owning the presented refresh secret, when both
// identify the same live session. It never fails on an already-dead session.
func (s *Service) Logout(ctx context.Context, sessionID, refreshSecret string) error {
	refreshHash := ""
	if strings.TrimSpace(refreshSecret) != "" {
		refreshHash = s.codec.HashRefreshSecret(refreshSecret)
	}
	if sessionID == "" && refreshHash == "" {
		return nil
	}
	_, err := s.sessions.RevokeMatching(ctx, sessionID, refreshHash)
	return err
}

// LogoutAllSessions revokes every active session of the user.
func (s *Service) LogoutAllSessions(ctx context.Context, userID string) (int64, error) {
	return s.sessions.RevokeAllForUser(ctx, userID)
}

// ListSessions returns the user's active sessions, flagging the current one.
func (s *Service) ListSessions(ctx context.Context, userID, currentSessionID string) ([]SessionInfo, error) {
	sessions, err := s.sessions.ListActiveForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	infos := make([]SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		infos = append(infos, SessionInfo{
			ID:         sess.ID,
			UserAgent:  sess.UserAgent,
			IPAddress:  sess.IPAddress,
			Current:    sess.ID == currentSessionID,
			LastUsedAt: sess.LastUsedAt,
			ExpiresAt:  sess.ExpiresAt,
			Created:    sess.CreatedAt,
		})
	}
	return infos, nil
}

// CleanupExpiredSessions sweeps sessions past their expiry. Housekeeping, not
// in the request path.
func (s *Service) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	swept, err := s.sessions.CleanupExpired(ctx)
	if err != nil {
		return 0, err
	}
	if swept > 0 {
		s.log.Info("expired sessions swept", zap.Int64("count", swept))
	}
	return swept, nil
}

// createSession mints a refresh secret, persists the session row and signs an
// access token bound to it.
func (s *Service) createSession(ctx context.Context, user *models.UserModel, client ClientInfo) (*LoginResult, error) {
	secret, err := s.codec.GenerateRefreshSecret()
	if err != nil {
		return nil, err
	}

	now := s.now()
	sess := &models.UserSession{
		UserID:           user.ID,
		RefreshTokenHash: s.codec.HashRefreshSecret(secret),
		UserAgent:        client.UserAgent,
		IPAddress:        client.IP,
		ExpiresAt:        now.Add(s.refreshTTL),
		LastUsedAt:       &now,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}

	access, err := s.codec.GenerateAccessToken(user.ID, user.Email, string(user.Role), sess.ID)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		AccessToken:      access,
		TokenType:        "Bearer",
		ExpiresIn:        int64(s.codec.AccessTTL().Seconds()),
		User:             NewSafeUser(user),
		SessionID:        sess.ID,
		RefreshSecret:    secret,
		RefreshExpiresAt: sess.ExpiresAt,
	}, nil
}
