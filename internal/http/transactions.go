package http

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/xeipuuv/gojsonschema"

	"investment-ledger-go/internal/ledger"
	"investment-ledger-go/internal/policy"
)

// accountQuery reads the required ?account= parameter.
func accountQuery(c *gin.Context) (uint, bool) {
	raw := c.Query("account")
	if raw == "" {
		c.JSON(400, gin.H{"error": "account parameter required"})
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		c.JSON(400, gin.H{"error": "invalid account parameter"})
		return 0, false
	}
	return uint(id), true
}

// parseWhen accepts RFC3339 timestamps or plain YYYY-MM-DD dates.
func parseWhen(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}

// POST /v1/transactions
func (s *Server) createTransaction(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(400, gin.H{"error": "failed to read body"})
		return
	}

	res, err := s.validator.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		c.JSON(400, gin.H{"error": "invalid_json"})
		return
	}
	if !res.Valid() {
		details := []string{}
		for _, e := range res.Errors() {
			details = append(details, e.String())
		}
		c.JSON(400, gin.H{"error": "schema_invalid", "details": details})
		return
	}

	var input struct {
		AccountID   uint            `json:"account_id"`
		UserID      uint            `json:"user_id"`
		Amount      decimal.Decimal `json:"amount"`
		Date        string          `json:"date"`
		Description string          `json:"description"`
	}
	if err := json.Unmarshal(body, &input); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	if !s.authorize(c, policy.CreateTransaction, input.AccountID) {
		return
	}

	var date *time.Time
	if input.Date != "" {
		t, err := parseWhen(input.Date)
		if err != nil {
			c.JSON(400, gin.H{"error": "invalid date"})
			return
		}
		date = &t
	}

	// Non-administrators cannot attribute a transaction to someone else.
	user := actor(c)
	userID := user.ID
	if user.IsAdmin && input.UserID != 0 {
		userID = input.UserID
	}

	tx, err := s.svc.CreateTransaction(ledger.CreateTransactionInput{
		AccountID:   input.AccountID,
		UserID:      userID,
		Amount:      input.Amount,
		Date:        date,
		Description: input.Description,
	})
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(201, tx)
}

// GET /v1/transactions?account={id}
//
// Row visibility follows the actor's role on the account; no membership
// yields an empty list, not an error.
func (s *Server) listTransactions(c *gin.Context) {
	accountID, ok := accountQuery(c)
	if !ok {
		return
	}

	txs, err := s.svc.ListTransactions(actor(c), accountID)
	if err != nil {
		c.JSON(500, gin.H{"error": "db_error"})
		return
	}
	c.JSON(200, txs)
}

// GET /v1/transactions/:id?account={id}
func (s *Server) getTransaction(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	accountID, ok := accountQuery(c)
	if !ok {
		return
	}
	if !s.authorize(c, policy.ReadTransaction, accountID) {
		return
	}

	tx, err := s.svc.GetTransaction(accountID, id)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(200, tx)
}

// PATCH /v1/transactions/:id?account={id}
func (s *Server) updateTransaction(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	accountID, ok := accountQuery(c)
	if !ok {
		return
	}
	if !s.authorize(c, policy.UpdateTransaction, accountID) {
		return
	}

	var input struct {
		Amount      *decimal.Decimal `json:"amount"`
		Date        *string          `json:"date"`
		Description *string          `json:"description"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	patch := ledger.UpdateTransactionInput{
		Amount:      input.Amount,
		Description: input.Description,
	}
	if input.Date != nil {
		t, err := parseWhen(*input.Date)
		if err != nil {
			c.JSON(400, gin.H{"error": "invalid date"})
			return
		}
		patch.Date = &t
	}

	tx, err := s.svc.UpdateTransaction(accountID, id, patch)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(200, tx)
}

// DELETE /v1/transactions/:id?account={id}
func (s *Server) deleteTransaction(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	accountID, ok := accountQuery(c)
	if !ok {
		return
	}
	if !s.authorize(c, policy.DeleteTransaction, accountID) {
		return
	}

	if err := s.svc.DeleteTransaction(accountID, id); err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(200, gin.H{"message": "transaction deleted"})
}

// GET /v1/admin/transactions?start_date=&end_date=
func (s *Server) adminTransactions(c *gin.Context) {
	if !s.authorize(c, policy.ReadAggregate, 0) {
		return
	}

	var start, end *time.Time
	if raw := c.Query("start_date"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(400, gin.H{"error": "invalid start_date"})
			return
		}
		start = &t
	}
	if raw := c.Query("end_date"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(400, gin.H{"error": "invalid end_date"})
			return
		}
		// Inclusive bound: cover the whole end day.
		eod := t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		end = &eod
	}

	txs, total, err := s.svc.Aggregate(start, end)
	if err != nil {
		c.JSON(500, gin.H{"error": "db_error"})
		return
	}
	c.JSON(200, gin.H{
		"transactions":  txs,
		"total_balance": total,
	})
}
