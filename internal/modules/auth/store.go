package auth

import (
	"context"
	"time"

	"github.com/blogstack/core/internal/models"
)

// SessionStore is the contract the auth service requires from the session
// record store. Revoke and Chain must be atomic compare-and-set operations on
// `revoked_at IS NULL`: of two concurrent refreshes presenting the same
// secret, exactly one may win the rotation race.
type SessionStore interface {
	// Create persists a new session. A refresh-hash collision is a hard error.
	Create(ctx context.Context, s *models.UserSession) error

	// FindByRefreshHash returns the session with the given fingerprint
	// regardless of its revocation or expiry state (reuse detection needs to
	// see revoked rows), or nil when absent.
	FindByRefreshHash(ctx context.Context, hash string) (*models.UserSession, error)

	// Revoke sets revoked_at if it is still unset. Reports whether this call
	// performed the revocation.
	Revoke(ctx context.Context, sessionID string) (bool, error)

	// RevokeMatching revokes the still-active session matched by the given
	// session id and/or refresh hash (both constraints apply when both are
	// set). Returns the number of sessions revoked.
	RevokeMatching(ctx context.Context, sessionID, refreshHash string) (int64, error)

	// RevokeAllForUser revokes every active session of the user.
	RevokeAllForUser(ctx context.Context, userID string) (int64, error)

	// Chain closes the parent session, pointing it at its successor. Reports
	// false when the parent was already revoked (a lost rotation race).
	Chain(ctx context.Context, parentID, childID string) (bool, error)

	// ListActiveForUser returns the user's active sessions, most recent first.
	ListActiveForUser(ctx context.Context, userID string) ([]models.UserSession, error)

	// CleanupExpired batch-revokes sessions past their expiry that are not
	// yet marked revoked. Returns the number of sessions swept.
	CleanupExpired(ctx context.Context) (int64, error)
}

// UserStore is the contract the auth service requires from the user record
// store. Implementations must serialize concurrent failure increments for the
// same user (lost updates would defeat lockout).
type UserStore interface {
	// FindByEmail returns the user with the given normalized email including
	// the password hash, or nil when absent.
	FindByEmail(ctx context.Context, email string) (*models.UserModel, error)

	// FindByID returns the user including the password hash, or nil.
	FindByID(ctx context.Context, id string) (*models.UserModel, error)

	// RecordLoginSuccess resets the failure counter, clears the lock and
	// stamps the last login.
	RecordLoginSuccess(ctx context.Context, userID, ip string, at time.Time) error

	// RecordLoginFailure atomically increments the failure counter, locking
	// the account for lockWindow once maxAttempts is reached. Returns the new
	// counter value and the lock deadline, if any.
	RecordLoginFailure(ctx context.Context, userID string, maxAttempts int, lockWindow time.Duration) (int, *time.Time, error)
}
