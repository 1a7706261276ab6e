package models

import "time"

// UserSession is one refresh-token lineage entry. A session is created on
// login and on every successful refresh; a refresh closes its parent by
// setting RevokedAt and ReplacedBySessionID, forming a rotation chain.
type UserSession struct {
	Base
	UserID              string     `json:"user_id"    gorm:"index;not null"`
	RefreshTokenHash    string     `json:"-"          gorm:"uniqueIndex;size:64;not null"`
	UserAgent           string     `json:"user_agent" gorm:"type:text"`
	IPAddress           string     `json:"ip_address" gorm:"size:100"`
	ExpiresAt           time.Time  `json:"expires_at" gorm:"index;not null"`
	LastUsedAt          *time.Time `json:"last_used_at"`
	RevokedAt           *time.Time `json:"revoked_at" gorm:"index"`
	ReplacedBySessionID *string    `json:"replaced_by_session_id" gorm:"type:char(36)"`
}

func (UserSession) TableName() string { return "user_sessions" }

// Active reports whether the session can still be used at the given instant.
func (s *UserSession) Active(now time.Time) bool {
	return s.RevokedAt == nil && s.ExpiresAt.After(now)
}
