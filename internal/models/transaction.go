package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Transaction struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	AccountID   uint            `gorm:"index;not null" json:"account_id"`
	UserID      uint            `gorm:"index;not null" json:"user_id"`
	Amount      decimal.Decimal `gorm:"type:numeric(10,2)" json:"amount"`
	Date        time.Time       `gorm:"index" json:"date"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	Account Account `json:"-" gorm:"foreignKey:AccountID"`
	User    User    `json:"-" gorm:"foreignKey:UserID"`
}
