package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/blogstack/core/internal/middleware"
	"github.com/blogstack/core/internal/models"
	mysqlDriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

const mysqlDuplicateEntry = 1062

// GormSessionStore backs SessionStore with MySQL. Conditional UPDATEs on
// `revoked_at IS NULL` provide the compare-and-set semantics the rotation
// race requires.
type GormSessionStore struct{ db *gorm.DB }

func NewGormSessionStore(db *gorm.DB) *GormSessionStore { return &GormSessionStore{db: db} }

func (s *GormSessionStore) Create(ctx context.Context, sess *models.UserSession) error {
	err := s.db.WithContext(ctx).Create(sess).Error
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
		// Effectively impossible given 48 bytes of secret entropy; never
		// retried silently.
		return fmt.Errorf("refresh token fingerprint collision: %w", err)
	}
	return err
}

func (s *GormSessionStore) FindByRefreshHash(ctx context.Context, hash string) (*models.UserSession, error) {
	var sess models.UserSession
	err := s.db.WithContext(ctx).Where("refresh_token_hash = ?", hash).First(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *GormSessionStore) Revoke(ctx context.Context, sessionID string) (bool, error) {
	now := time.Now()
	res := s.db.WithContext(ctx).Model(&models.UserSession{}).
		Where("id = ? AND revoked_at IS NULL", sessionID).
		Updates(map[string]interface{}{"revoked_at": &now, "last_used_at": &now})
	return res.RowsAffected > 0, res.Error
}

func (s *GormSessionStore) RevokeMatching(ctx context.Context, sessionID, refreshHash string) (int64, error) {
	if sessionID == "" && refreshHash == "" {
		return 0, nil
	}
	now := time.Now()
	tx := s.db.WithContext(ctx).Model(&models.UserSession{}).
		Where("revoked_at IS NULL")
	if sessionID != "" {
		tx = tx.Where("id = ?", sessionID)
	}
	if refreshHash != "" {
		tx = tx.Where("refresh_token_hash = ?", refreshHash)
	}
	res := tx.Updates(map[string]interface{}{"revoked_at": &now, "last_used_at": &now})
	return res.RowsAffected, res.Error
}

func (s *GormSessionStore) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	now := time.Now()
	res := s.db.WithContext(ctx).Model(&models.UserSession{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Updates(map[string]interface{}{"revoked_at": &now, "last_used_at": &now})
	return res.RowsAffected, res.Error
}

func (s *GormSessionStore) Chain(ctx context.Context, parentID, childID string) (bool, error) {
	now := time.Now()
	res := s.db.WithContext(ctx).Model(&models.UserSession{}).
		Where("id = ? AND revoked_at IS NULL", parentID).
		Updates(map[string]interface{}{
			"revoked_at":             &now,
			"replaced_by_session_id": childID,
			"last_used_at":           &now,
		})
	return res.RowsAffected > 0, res.Error
}

func (s *GormSessionStore) ListActiveForUser(ctx context.Context, userID string) ([]models.UserSession, error) {
	var sessions []models.UserSession
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND revoked_at IS NULL AND expires_at > ?", userID, time.Now()).
		Order("last_used_at DESC, created_at DESC").
		Find(&sessions).Error
	return sessions, err
}

func (s *GormSessionStore) CleanupExpired(ctx context.Context) (int64, error) {
	now := time.Now()
	res := s.db.WithContext(ctx).Model(&models.UserSession{}).
		Where("revoked_at IS NULL AND expires_at <= ?", now).
		Update("revoked_at", &now)
	return res.RowsAffected, res.Error
}

// ActiveSession resolves a live session joined with the owning user's auth
// state; implements the request authenticator's lookup contract.
func (s *GormSessionStore) ActiveSession(ctx context.Context, sessionID, userID string) (*middleware.ActiveSession, error) {
	var sess models.UserSession
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND revoked_at IS NULL AND expires_at > ?", sessionID, userID, time.Now()).
		First(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var u struct {
		IsActive          bool
		PasswordChangedAt *time.Time
	}
	err = s.db.WithContext(ctx).Model(&models.UserModel{}).
		Select("is_active, password_changed_at").
		Where("id = ?", userID).
		Scan(&u).Error
	if err != nil {
		return nil, err
	}

	return &middleware.ActiveSession{
		UserID:            sess.UserID,
		UserActive:        u.IsActive,
		PasswordChangedAt: u.PasswordChangedAt,
	}, nil
}

// Touch stamps last_used_at on a still-active session.
func (s *GormSessionStore) Touch(ctx context.Context, sessionID string) error {
	now := time.Now()
	return s.db.WithContext(ctx).Model(&models.UserSession{}).
		Where("id = ? AND revoked_at IS NULL AND expires_at > ?", sessionID, now).
		Update("last_used_at", &now).Error
}

// GormUserStore backs UserStore with MySQL.
type GormUserStore struct{ db *gorm.DB }

func NewGormUserStore(db *gorm.DB) *GormUserStore { return &GormUserStore{db: db} }

func (s *GormUserStore) FindByEmail(ctx context.Context, email string) (*models.UserModel, error) {
	var u models.UserModel
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *GormUserStore) FindByID(ctx context.Context, id string) (*models.UserModel, error) {
	var u models.UserModel
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *GormUserStore) RecordLoginSuccess(ctx context.Context, userID, ip string, at time.Time) error {
	return s.db.WithContext(ctx).Model(&models.UserModel{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"failed_login_attempts": 0,
			"locked_until":          nil,
			"last_login_at":         at,
			"last_login_ip":         ip,
		}).Error
}

func (s *GormUserStore) RecordLoginFailure(ctx context.Context, userID string, maxAttempts int, lockWindow time.Duration) (int, *time.Time, error) {
	lockedUntil := time.Now().Add(lockWindow)

	// Single conditional UPDATE so concurrent failures against the same user
	// serialize on the row and never lose an increment.
	err := s.db.WithContext(ctx).Model(&models.UserModel{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"failed_login_attempts": gorm.Expr("failed_login_attempts + 1"),
			// Assignments see pre-update column values, so the new count is
			// failed_login_attempts + 1.
			"locked_until": gorm.Expr(
				"CASE WHEN failed_login_attempts + 1 >= ? THEN ? ELSE locked_until END",
				maxAttempts, lockedUntil,
			),
		}).Error
	if err != nil {
		return 0, nil, err
	}

	var u struct {
		FailedLoginAttempts int
		LockedUntil         *time.Time
	}
	err = s.db.WithContext(ctx).Model(&models.UserModel{}).
		Select("failed_login_attempts, locked_until").
		Where("id = ?", userID).
		Scan(&u).Error
	if err != nil {
		return 0, nil, err
	}
	return u.FailedLoginAttempts, u.LockedUntil, nil
}
