package models

import "time"

// Role is the closed set of per-account permission levels.
type Role string

const (
	RoleView Role = "view" // account metadata only, no transaction contents
	RolePost Role = "post" // may create transactions attributed to self
	RoleCrud Role = "crud" // full transaction access on the account
)

func (r Role) Valid() bool {
	switch r {
	case RoleView, RolePost, RoleCrud:
		return true
	}
	return false
}

// Membership binds one user to one account with exactly one role.
// The (user, account) pair is unique.
type Membership struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex:idx_membership_user_account;not null" json:"user_id"`
	AccountID uint      `gorm:"uniqueIndex:idx_membership_user_account;not null" json:"account_id"`
	Role      Role      `gorm:"type:varchar(10);not null" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User    User    `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Account Account `json:"-" gorm:"foreignKey:AccountID"`
}
