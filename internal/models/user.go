package models

import "time"

// Role is the authorization level of a user.
type Role string

const (
	RoleUser      Role = "user"
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleModerator:
		return true
	}
	return false
}

// UserModel represents a registered account.
// Password holds the bcrypt hash, never the plaintext; hashing happens in the
// user service before persist, not in a model hook.
type UserModel struct {
	Base
	Username            string     `json:"username"   gorm:"uniqueIndex;size:50;not null"`
	Email               string     `json:"email"      gorm:"uniqueIndex;size:255;not null"`
	Password            string     `json:"-"          gorm:"size:255;not null"`
	FirstName           string     `json:"first_name"`
	LastName            string     `json:"last_name"`
	Role                Role       `json:"role"       gorm:"type:varchar(16);default:'user';not null"`
	IsActive            bool       `json:"is_active"  gorm:"default:true"`
	FailedLoginAttempts int        `json:"-"          gorm:"default:0;not null"`
	LockedUntil         *time.Time `json:"-"`
	PasswordChangedAt   *time.Time `json:"-"`
	LastLoginAt         *time.Time `json:"last_login_at"`
	LastLoginIP         string     `json:"-"`
}

func (UserModel) TableName() string { return "users" }

// Locked reports whether the account lockout window is still open.
func (u *UserModel) Locked(now time.Time) bool {
	return u.LockedUntil != nil && u.LockedUntil.After(now)
}
