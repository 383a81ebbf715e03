// Package ledger holds the query scoping service and the write paths for
// accounts, memberships and transactions. Row visibility depends on the
// actor's role; the yes/no gate for each operation lives in package policy.
package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"investment-ledger-go/internal/models"
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// RoleFor implements policy.MembershipSource.
func (s *Service) RoleFor(userID, accountID uint) (models.Role, bool, error) {
	var m models.Membership
	err := s.db.Where("user_id = ? AND account_id = ?", userID, accountID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return m.Role, true, nil
}

// ListAccounts returns every account for administrators, otherwise the
// accounts the actor holds a membership on.
func (s *Service) ListAccounts(actor *models.User) ([]models.Account, error) {
	accounts := []models.Account{}
	q := s.db.Order("accounts.id")
	if !actor.IsAdmin {
		q = q.Joins("JOIN memberships ON memberships.account_id = accounts.id").
			Where("memberships.user_id = ?", actor.ID)
	}
	if err := q.Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

func (s *Service) GetAccount(id uint) (*models.Account, error) {
	var account models.Account
	if err := s.db.First(&account, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}

// ListTransactions applies per-row visibility for the actor's role on the
// account: no membership or view role sees nothing, post sees only its own
// entries, crud and administrators see everything.
func (s *Service) ListTransactions(actor *models.User, accountID uint) ([]models.Transaction, error) {
	txs := []models.Transaction{}

	if !actor.IsAdmin {
		role, found, err := s.RoleFor(actor.ID, accountID)
		if err != nil {
			return nil, err
		}
		switch {
		case !found, role == models.RoleView:
			return txs, nil
		case role == models.RolePost:
			err := s.db.Where("account_id = ? AND user_id = ?", accountID, actor.ID).
				Order("date desc, created_at desc").Find(&txs).Error
			return txs, err
		}
	}

	err := s.db.Where("account_id = ?", accountID).
		Order("date desc, created_at desc").Find(&txs).Error
	return txs, err
}

func (s *Service) GetTransaction(accountID, id uint) (*models.Transaction, error) {
	var tx models.Transaction
	err := s.db.Where("id = ? AND account_id = ?", id, accountID).First(&tx).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// Aggregate returns all transactions within the optional inclusive date
// bounds together with their exact decimal sum. The administrator gate is the
// caller's responsibility.
func (s *Service) Aggregate(start, end *time.Time) ([]models.Transaction, decimal.Decimal, error) {
	txs := []models.Transaction{}
	q := s.db.Order("date, id")
	if start != nil {
		q = q.Where("date >= ?", *start)
	}
	if end != nil {
		q = q.Where("date <= ?", *end)
	}
	if err := q.Find(&txs).Error; err != nil {
		return nil, decimal.Zero, err
	}

	total := decimal.Zero
	for _, tx := range txs {
		total = total.Add(tx.Amount)
	}
	return txs, total, nil
}

func (s *Service) CreateAccount(name string) (*models.Account, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: account name must not be empty", ErrValidation)
	}
	account := models.Account{Name: name}
	if err := s.db.Create(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (s *Service) UpdateAccount(id uint, name string) (*models.Account, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: account name must not be empty", ErrValidation)
	}
	account, err := s.GetAccount(id)
	if err != nil {
		return nil, err
	}
	account.Name = name
	if err := s.db.Save(account).Error; err != nil {
		return nil, err
	}
	return account, nil
}

// DeleteAccount removes the account together with its memberships and
// transactions in one transaction.
func (s *Service) DeleteAccount(id uint) error {
	if _, err := s.GetAccount(id); err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("account_id = ?", id).Delete(&models.Membership{}).Error; err != nil {
			return err
		}
		if err := tx.Where("account_id = ?", id).Delete(&models.Transaction{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Account{}, id).Error
	})
}

// CreateMembership relies on the unique (user, account) index: of two racing
// duplicate inserts exactly one fails with ErrDuplicateMembership.
func (s *Service) CreateMembership(userID, accountID uint, role models.Role) (*models.Membership, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %d does not exist", ErrValidation, userID)
		}
		return nil, err
	}
	if _, err := s.GetAccount(accountID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: account %d does not exist", ErrValidation, accountID)
		}
		return nil, err
	}

	m := models.Membership{UserID: userID, AccountID: accountID, Role: role}
	if err := s.db.Create(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateMembership
		}
		return nil, err
	}
	return &m, nil
}

type CreateTransactionInput struct {
	AccountID   uint
	UserID      uint
	Amount      decimal.Decimal
	Date        *time.Time
	Description string
}

func (s *Service) CreateTransaction(in CreateTransactionInput) (*models.Transaction, error) {
	if err := checkAmount(in.Amount); err != nil {
		return nil, err
	}
	if _, err := s.GetAccount(in.AccountID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: account %d does not exist", ErrValidation, in.AccountID)
		}
		return nil, err
	}
	var author models.User
	if err := s.db.First(&author, in.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %d does not exist", ErrValidation, in.UserID)
		}
		return nil, err
	}

	date := time.Now()
	if in.Date != nil {
		date = *in.Date
	}
	tx := models.Transaction{
		AccountID:   in.AccountID,
		UserID:      in.UserID,
		Amount:      in.Amount,
		Date:        date,
		Description: in.Description,
	}
	if err := s.db.Create(&tx).Error; err != nil {
		return nil, err
	}
	return &tx, nil
}

type UpdateTransactionInput struct {
	Amount      *decimal.Decimal
	Date        *time.Time
	Description *string
}

func (s *Service) UpdateTransaction(accountID, id uint, in UpdateTransactionInput) (*models.Transaction, error) {
	tx, err := s.GetTransaction(accountID, id)
	if err != nil {
		return nil, err
	}
	if in.Amount != nil {
		if err := checkAmount(*in.Amount); err != nil {
			return nil, err
		}
		tx.Amount = *in.Amount
	}
	if in.Date != nil {
		tx.Date = *in.Date
	}
	if in.Description != nil {
		tx.Description = *in.Description
	}
	if err := s.db.Save(tx).Error; err != nil {
		return nil, err
	}
	return tx, nil
}

func (s *Service) DeleteTransaction(accountID, id uint) error {
	tx, err := s.GetTransaction(accountID, id)
	if err != nil {
		return err
	}
	return s.db.Delete(tx).Error
}

// checkAmount rejects amounts that cannot be stored exactly in two decimal
// places.
func checkAmount(amount decimal.Decimal) error {
	if !amount.Equal(amount.Round(2)) {
		return fmt.Errorf("%w: amount %s has more than two decimal places", ErrValidation, amount)
	}
	return nil
}
