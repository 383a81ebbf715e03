package ledger

import (
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"investment-ledger-go/internal/models"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Account{}, &models.Membership{}, &models.Transaction{},
	))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, name string, admin bool) *models.User {
	t.Helper()
	u := models.User{UUID: uuid.NewString(), Username: name, IsAdmin: admin}
	require.NoError(t, db.Create(&u).Error)
	return &u
}

func seedAccount(t *testing.T, db *gorm.DB, name string) *models.Account {
	t.Helper()
	a := models.Account{Name: name}
	require.NoError(t, db.Create(&a).Error)
	return &a
}

func seedTx(t *testing.T, db *gorm.DB, account *models.Account, user *models.User, amount string, date time.Time) *models.Transaction {
	t.Helper()
	tx := models.Transaction{
		AccountID: account.ID,
		UserID:    user.ID,
		Amount:    decimal.RequireFromString(amount),
		Date:      date,
	}
	require.NoError(t, db.Create(&tx).Error)
	return &tx
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestRoleFor(t *testing.T) {
	db := testDB(t)
	svc := NewService(db)
	user := seedUser(t, db, "alice", false)
	account := seedAccount(t, db, "Growth")

	_, found, err := svc.RoleFor(user.ID, account.ID)
	require.NoError(t, err)
	assert.False(t, found)

	_, err = svc.CreateMembership(user.ID, account.ID, models.RolePost)
	require.NoError(t, err)

	role, found, err := svc.RoleFor(user.ID, account.ID)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, models.RolePost, role)
}

func TestListTransactions_Scoping(t *testing.T) {
	db := testDB(t)
	svc := NewService(db)

	viewer := seedUser(t, db, "viewer", false)
	poster := seedUser(t, db, "poster", false)
	editor := seedUser(t, db, "editor", false)
	outsider := seedUser(t, db, "outsider", false)
	admin := seedUser(t, db, "root", true)
	account := seedAccount(t, db, "Growth")

	for user, role := range map[*models.User]models.Role{
		viewer: models.RoleView,
		poster: models.RolePost,
		editor: models.RoleCrud,
	} {
		_, err := svc.CreateMembership(user.ID, account.ID, role)
		require.NoError(t, err)
	}

	seedTx(t, db, account, poster, "10.00", day("2024-01-01"))
	seedTx(t, db, account, poster, "20.00", day("2024-01-02"))
	seedTx(t, db, account, editor, "30.00", day("2024-01-03"))

	t.Run("Should return nothing for the view role", func(t *testing.T) {
		txs, err := svc.ListTransactions(viewer, account.ID)
		require.NoError(t, err)
		assert.Empty(t, txs)
	})
	t.Run("Should return only own entries for the post role", func(t *testing.T) {
		txs, err := svc.ListTransactions(poster, account.ID)
		require.NoError(t, err)
		require.Len(t, txs, 2)
		for _, tx := range txs {
			assert.Equal(t, poster.ID, tx.UserID)
		}
	})
	t.Run("Should return everything for the crud role", func(t *testing.T) {
		txs, err := svc.ListTransactions(editor, account.ID)
		require.NoError(t, err)
		assert.Len(t, txs, 3)
	})
	t.Run("Should return everything for administrators", func(t *testing.T) {
		txs, err := svc.ListTransactions(admin, account.ID)
		require.NoError(t, err)
		assert.Len(t, txs, 3)
	})
	t.Run("Should return nothing for non-members", func(t *testing.T) {
		txs, err := svc.ListTransactions(outsider, account.ID)
		require.NoError(t, err)
		assert.Empty(t, txs)
	})
	t.Run("Should not leak rows across accounts", func(t *testing.T) {
		other := seedAccount(t, db, "Bonds")
		txs, err := svc.ListTransactions(editor, other.ID)
		require.NoError(t, err)
		assert.Empty(t, txs)
	})
}

func TestAggregate(t *testing.T) {
	db := testDB(t)
	svc := NewService(db)
	user := seedUser(t, db, "alice", false)
	account := seedAccount(t, db, "Growth")

	t.Run("Should total zero over an empty store", func(t *testing.T) {
		txs, total, err := svc.Aggregate(nil, nil)
		require.NoError(t, err)
		assert.Empty(t, txs)
		assert.True(t, total.IsZero())
	})

	seedTx(t, db, account, user, "100.00", day("2024-01-01"))
	seedTx(t, db, account, user, "200.00", day("2024-02-01"))
	seedTx(t, db, account, user, "-50.50", day("2024-03-01"))

	t.Run("Should sum everything without bounds", func(t *testing.T) {
		txs, total, err := svc.Aggregate(nil, nil)
		require.NoError(t, err)
		assert.Len(t, txs, 3)
		assert.True(t, total.Equal(decimal.RequireFromString("249.50")), "got %s", total)
	})
	t.Run("Should apply inclusive bounds on both ends", func(t *testing.T) {
		start, end := day("2024-01-01"), day("2024-01-01")
		txs, total, err := svc.Aggregate(&start, &end)
		require.NoError(t, err)
		require.Len(t, txs, 1)
		assert.True(t, txs[0].Amount.Equal(decimal.RequireFromString("100.00")))
		assert.True(t, total.Equal(decimal.RequireFromString("100")))
	})
	t.Run("Should accept independent bounds", func(t *testing.T) {
		start := day("2024-02-01")
		_, total, err := svc.Aggregate(&start, nil)
		require.NoError(t, err)
		assert.True(t, total.Equal(decimal.RequireFromString("149.50")), "got %s", total)

		end := day("2024-01-31")
		_, total, err = svc.Aggregate(nil, &end)
		require.NoError(t, err)
		assert.True(t, total.Equal(decimal.RequireFromString("100")))
	})
}

func TestCreateMembership(t *testing.T) {
	db := testDB(t)
	svc := NewService(db)
	user := seedUser(t, db, "alice", false)
	account := seedAccount(t, db, "Growth")

	t.Run("Should reject unknown roles", func(t *testing.T) {
		_, err := svc.CreateMembership(user.ID, account.ID, "owner")
		assert.ErrorIs(t, err, ErrValidation)
	})
	t.Run("Should reject missing user or account", func(t *testing.T) {
		_, err := svc.CreateMembership(999, account.ID, models.RoleView)
		assert.ErrorIs(t, err, ErrValidation)
		_, err = svc.CreateMembership(user.ID, 999, models.RoleView)
		assert.ErrorIs(t, err, ErrValidation)
	})
	t.Run("Should fail on a duplicate pair and keep the original", func(t *testing.T) {
		first, err := svc.CreateMembership(user.ID, account.ID, models.RoleView)
		require.NoError(t, err)

		_, err = svc.CreateMembership(user.ID, account.ID, models.RoleCrud)
		assert.ErrorIs(t, err, ErrDuplicateMembership)

		role, found, err := svc.RoleFor(user.ID, account.ID)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, first.Role, role)
	})
}

func TestCreateTransaction(t *testing.T) {
	db := testDB(t)
	svc := NewService(db)
	user := seedUser(t, db, "alice", false)
	account := seedAccount(t, db, "Growth")

	t.Run("Should default the date to now", func(t *testing.T) {
		before := time.Now()
		tx, err := svc.CreateTransaction(CreateTransactionInput{
			AccountID: account.ID,
			UserID:    user.ID,
			Amount:    decimal.RequireFromString("12.50"),
		})
		require.NoError(t, err)
		assert.False(t, tx.Date.Before(before))
	})
	t.Run("Should reject sub-cent precision", func(t *testing.T) {
		_, err := svc.CreateTransaction(CreateTransactionInput{
			AccountID: account.ID,
			UserID:    user.ID,
			Amount:    decimal.RequireFromString("12.345"),
		})
		assert.ErrorIs(t, err, ErrValidation)
	})
	t.Run("Should reject a missing account", func(t *testing.T) {
		_, err := svc.CreateTransaction(CreateTransactionInput{
			AccountID: 999,
			UserID:    user.ID,
			Amount:    decimal.RequireFromString("1.00"),
		})
		assert.ErrorIs(t, err, ErrValidation)
	})
	t.Run("Should reject a missing author", func(t *testing.T) {
		_, err := svc.CreateTransaction(CreateTransactionInput{
			AccountID: account.ID,
			UserID:    999,
			Amount:    decimal.RequireFromString("1.00"),
		})
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestUpdateDeleteTransaction(t *testing.T) {
	db := testDB(t)
	svc := NewService(db)
	user := seedUser(t, db, "alice", false)
	account := seedAccount(t, db, "Growth")
	other := seedAccount(t, db, "Bonds")
	tx := seedTx(t, db, account, user, "10.00", day("2024-01-01"))

	t.Run("Should not find a transaction through the wrong account", func(t *testing.T) {
		_, err := svc.UpdateTransaction(other.ID, tx.ID, UpdateTransactionInput{})
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, svc.DeleteTransaction(other.ID, tx.ID), ErrNotFound)
	})
	t.Run("Should apply partial updates", func(t *testing.T) {
		amount := decimal.RequireFromString("15.25")
		desc := "adjusted"
		got, err := svc.UpdateTransaction(account.ID, tx.ID, UpdateTransactionInput{
			Amount:      &amount,
			Description: &desc,
		})
		require.NoError(t, err)
		assert.True(t, got.Amount.Equal(amount))
		assert.Equal(t, "adjusted", got.Description)
		assert.True(t, got.Date.Equal(tx.Date), "date untouched by partial update")
	})
	t.Run("Should reject sub-cent precision on update", func(t *testing.T) {
		amount := decimal.RequireFromString("15.253")
		_, err := svc.UpdateTransaction(account.ID, tx.ID, UpdateTransactionInput{Amount: &amount})
		assert.ErrorIs(t, err, ErrValidation)
	})
	t.Run("Should delete", func(t *testing.T) {
		require.NoError(t, svc.DeleteTransaction(account.ID, tx.ID))
		_, err := svc.GetTransaction(account.ID, tx.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestAccounts(t *testing.T) {
	db := testDB(t)
	svc := NewService(db)
	admin := seedUser(t, db, "root", true)
	user := seedUser(t, db, "alice", false)

	t.Run("Should reject empty names", func(t *testing.T) {
		_, err := svc.CreateAccount("  ")
		assert.ErrorIs(t, err, ErrValidation)
		_, err = svc.CreateAccount("")
		assert.ErrorIs(t, err, ErrValidation)
	})

	account, err := svc.CreateAccount("Growth")
	require.NoError(t, err)
	other, err := svc.CreateAccount("Bonds")
	require.NoError(t, err)

	t.Run("Should rename", func(t *testing.T) {
		got, err := svc.UpdateAccount(account.ID, "Growth II")
		require.NoError(t, err)
		assert.Equal(t, "Growth II", got.Name)
	})

	t.Run("Should list all for administrators and memberships for others", func(t *testing.T) {
		_, err := svc.CreateMembership(user.ID, account.ID, models.RoleView)
		require.NoError(t, err)

		all, err := svc.ListAccounts(admin)
		require.NoError(t, err)
		assert.Len(t, all, 2)

		mine, err := svc.ListAccounts(user)
		require.NoError(t, err)
		require.Len(t, mine, 1)
		assert.Equal(t, account.ID, mine[0].ID)
	})

	t.Run("Should cascade delete memberships and transactions", func(t *testing.T) {
		seedTx(t, db, account, user, "10.00", day("2024-01-01"))
		require.NoError(t, svc.DeleteAccount(account.ID))

		_, err := svc.GetAccount(account.ID)
		assert.ErrorIs(t, err, ErrNotFound)

		_, found, err := svc.RoleFor(user.ID, account.ID)
		require.NoError(t, err)
		assert.False(t, found)

		var count int64
		require.NoError(t, db.Model(&models.Transaction{}).Where("account_id = ?", account.ID).Count(&count).Error)
		assert.Zero(t, count)

		_, err = svc.GetAccount(other.ID)
		assert.NoError(t, err, "unrelated account survives")
	})

	t.Run("Should report missing accounts", func(t *testing.T) {
		assert.ErrorIs(t, svc.DeleteAccount(999), ErrNotFound)
		_, err := svc.UpdateAccount(999, "x")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

// End-to-end scenario: admin provisions an account, a post-role user seeds
// it, visibility and totals line up.
func TestSeedScenario(t *testing.T) {
	db := testDB(t)
	svc := NewService(db)

	admin := seedUser(t, db, "root", true)
	u := seedUser(t, db, "u", false)
	v := seedUser(t, db, "v", false)

	ops, err := svc.CreateAccount("Ops")
	require.NoError(t, err)
	_, err = svc.CreateMembership(u.ID, ops.ID, models.RolePost)
	require.NoError(t, err)

	_, err = svc.CreateTransaction(CreateTransactionInput{
		AccountID:   ops.ID,
		UserID:      u.ID,
		Amount:      decimal.RequireFromString("100.00"),
		Description: "seed",
	})
	require.NoError(t, err)

	own, err := svc.ListTransactions(u, ops.ID)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.True(t, own[0].Amount.Equal(decimal.RequireFromString("100.00")))
	assert.Equal(t, "seed", own[0].Description)

	none, err := svc.ListTransactions(v, ops.ID)
	require.NoError(t, err)
	assert.Empty(t, none)

	adminRows, err := svc.ListTransactions(admin, ops.ID)
	require.NoError(t, err)
	assert.Len(t, adminRows, 1)

	all, total, err := svc.Aggregate(nil, nil)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, total.Equal(decimal.RequireFromString("100.00")))
}
