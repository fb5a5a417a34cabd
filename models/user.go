package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User roles. Only photographers and admins may start imports.
const (
	RoleViewer       = "VIEWER"
	RolePhotographer = "PHOTOGRAPHER"
	RoleAdmin        = "ADMIN"
)

// User represents an account. It corresponds to the 'users' table.
type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Role         string    `gorm:"not null;default:VIEWER" json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName explicitly sets the table name for GORM.
func (User) TableName() string {
	return "users"
}

// SetPassword hashes the given password and updates the user's PasswordHash field.
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

// CheckPassword compares a given password with the user's hashed password.
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	return err == nil
}

// CanImport reports whether the user may start or cancel bulk imports
func (u *User) CanImport() bool {
	return u.Role == RolePhotographer || u.Role == RoleAdmin
}
