package models

import (
	"time"
)

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UUID         string    `gorm:"uniqueIndex" json:"uuid"` // Public ID for API tokens
	Username     string    `gorm:"uniqueIndex" json:"username"`
	Email        *string   `gorm:"uniqueIndex" json:"email,omitempty"` // Nullable unique email
	PasswordHash string    `json:"-"`                                  // Bcrypt hash, hidden from JSON
	IsAdmin      bool      `gorm:"default:false" json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
