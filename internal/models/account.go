package models

import "time"

type Account struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Deleting an account removes its memberships and transactions.
	Memberships  []Membership  `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Transactions []Transaction `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}
