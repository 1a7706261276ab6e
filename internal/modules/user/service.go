package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/blogstack/core/internal/models"
	"github.com/blogstack/core/internal/pkg/errs"
	"github.com/blogstack/core/internal/pkg/pagination"
	"github.com/blogstack/core/internal/pkg/password"
	"github.com/blogstack/core/internal/pkg/response"
	mysqlDriver "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const mysqlDuplicateEntry = 1062

// SessionRevoker invalidates a user's sessions after security-relevant
// profile changes.
type SessionRevoker interface {
	RevokeAllForUser(ctx context.Context, userID string) (int64, error)
}

// Service handles user account business logic. Password hashing happens here,
// before persist, so the stored model only ever sees the bcrypt hash.
type Service struct {
	db       *gorm.DB
	sessions SessionRevoker
	log      *zap.Logger
}

func NewService(db *gorm.DB, sessions SessionRevoker, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{db: db, sessions: sessions, log: log}
}

// Create registers a new account.
func (s *Service) Create(ctx context.Context, dto *CreateUserDTO) (*models.UserModel, error) {
	role := models.Role(dto.Role)
	if dto.Role == "" {
		role = models.RoleUser
	}
	if !role.Valid() {
		return nil, errs.Validation("Invalid role")
	}

	hash, err := password.Hash(dto.Password)
	if err != nil {
		return nil, err
	}

	u := models.UserModel{
		Username:  strings.TrimSpace(dto.Username),
		Email:     strings.ToLower(strings.TrimSpace(dto.Email)),
		Password:  hash,
		FirstName: dto.FirstName,
		LastName:  dto.LastName,
		Role:      role,
		IsActive:  true,
	}
	if err := s.db.WithContext(ctx).Create(&u).Error; err != nil {
		var mysqlErr *mysqlDriver.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
			return nil, errs.Conflict("Username or email already in use")
		}
		return nil, err
	}
	return &u, nil
}

// GetByID fetches a user by id, or nil when absent.
func (s *Service) GetByID(ctx context.Context, id string) (*models.UserModel, error) {
	var u models.UserModel
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// List returns a paginated list of users.
func (s *Service) List(ctx context.Context, q pagination.Query) ([]models.UserModel, response.Pagination, error) {
	tx := s.db.WithContext(ctx).Model(&models.UserModel{}).Order("created_at DESC")
	var users []models.UserModel
	pag, err := pagination.Paginate(tx, q, &users)
	return users, pag, err
}

// Update applies a partial profile update.
func (s *Service) Update(ctx context.Context, id string, dto *UpdateUserDTO) (*models.UserModel, error) {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, errs.NotFound("User not found")
	}

	updates := map[string]interface{}{}
	if dto.FirstName != nil {
		updates["first_name"] = *dto.FirstName
	}
	if dto.LastName != nil {
		updates["last_name"] = *dto.LastName
	}
	if dto.Username != nil {
		updates["username"] = strings.TrimSpace(*dto.Username)
	}
	if dto.IsActive != nil {
		updates["is_active"] = *dto.IsActive
	}
	if dto.Role != nil {
		role := models.Role(*dto.Role)
		if !role.Valid() {
			return nil, errs.Validation("Invalid role")
		}
		updates["role"] = role
	}
	if len(updates) == 0 {
		return u, nil
	}

	if err := s.db.WithContext(ctx).Model(u).Updates(updates).Error; err != nil {
		var mysqlErr *mysqlDriver.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
			return nil, errs.Conflict("Username already in use")
		}
		return nil, err
	}

	// Deactivation kills every live session immediately, not just future
	// token verifications.
	if dto.IsActive != nil && !*dto.IsActive {
		if _, err := s.sessions.RevokeAllForUser(ctx, id); err != nil {
			return nil, err
		}
	}
	return s.GetByID(ctx, id)
}

// Delete soft-deletes a user and revokes every session.
func (s *Service) Delete(ctx context.Context, id string) error {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if u == nil {
		return errs.NotFound("User not found")
	}
	if _, err := s.sessions.RevokeAllForUser(ctx, id); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Delete(u).Error
}

// ChangePassword verifies the current password, re-hashes the new one, stamps
// password_changed_at and revokes every session. Access tokens issued before
// the stamp fail verification from that point on.
func (s *Service) ChangePassword(ctx context.Context, id, oldPassword, newPassword string) error {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if u == nil {
		return errs.NotFound("User not found")
	}
	if !password.Verify(oldPassword, u.Password) {
		return errs.Authentication("Current password is incorrect")
	}

	hash, err := password.Hash(newPassword)
	if err != nil {
		return err
	}

	now := time.Now()
	err = s.db.WithContext(ctx).Model(u).Updates(map[string]interface{}{
		"password":            hash,
		"password_changed_at": now,
	}).Error
	if err != nil {
		return err
	}

	revoked, err := s.sessions.RevokeAllForUser(ctx, id)
	if err != nil {
		return err
	}
	s.log.Info("password changed, sessions revoked",
		zap.String("user_id", id),
		zap.Int64("sessions_revoked", revoked),
	)
	return nil
}
