package models

import "time"

// DriveAuth holds a user's delegated folder-tree provider credentials. It
// corresponds to the 'drive_auths' table. Both tokens are stored encrypted;
// ExpiresAt refers to the short-lived access token only.
type DriveAuth struct {
	UserID       uint      `gorm:"primaryKey" json:"user_id"`
	AccessToken  []byte    `gorm:"not null" json:"-"` // encrypted
	RefreshToken []byte    `gorm:"not null" json:"-"` // encrypted
	ExpiresAt    time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName explicitly sets the table name for GORM.
func (DriveAuth) TableName() string {
	return "drive_auths"
}
