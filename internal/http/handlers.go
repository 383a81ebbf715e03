package http

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"investment-ledger-go/internal/ledger"
	"investment-ledger-go/internal/models"
	"investment-ledger-go/internal/policy"
)

// authorize runs the policy engine and writes the 403 itself on a deny.
func (s *Server) authorize(c *gin.Context, op policy.Operation, accountID uint) bool {
	decision, err := s.engine.Authorize(actor(c), op, accountID)
	if err != nil {
		c.JSON(500, gin.H{"error": "db_error"})
		return false
	}
	if !decision.Allowed {
		c.JSON(403, gin.H{"error": decision.Reason})
		return false
	}
	return true
}

func serviceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		c.JSON(404, gin.H{"error": "not_found"})
	case errors.Is(err, ledger.ErrValidation):
		c.JSON(400, gin.H{"error": err.Error()})
	case errors.Is(err, ledger.ErrDuplicateMembership):
		c.JSON(409, gin.H{"error": "membership_already_exists"})
	default:
		c.JSON(500, gin.H{"error": "db_error"})
	}
}

func paramID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(400, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}

// GET /v1/accounts
func (s *Server) listAccounts(c *gin.Context) {
	accounts, err := s.svc.ListAccounts(actor(c))
	if err != nil {
		c.JSON(500, gin.H{"error": "db_error"})
		return
	}
	c.JSON(200, accounts)
}

// POST /v1/accounts
func (s *Server) createAccount(c *gin.Context) {
	// No membership can exist on an account that does not exist yet, so
	// the write_account gate only passes for administrators here.
	if !s.authorize(c, policy.WriteAccount, 0) {
		return
	}

	var input struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	account, err := s.svc.CreateAccount(input.Name)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(201, account)
}

// GET /v1/accounts/:id
func (s *Server) getAccount(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if !s.authorize(c, policy.ReadAccount, id) {
		return
	}

	account, err := s.svc.GetAccount(id)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(200, account)
}

// PATCH /v1/accounts/:id
func (s *Server) updateAccount(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if !s.authorize(c, policy.WriteAccount, id) {
		return
	}

	var input struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	account, err := s.svc.UpdateAccount(id, input.Name)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(200, account)
}

// DELETE /v1/accounts/:id
func (s *Server) deleteAccount(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if !s.authorize(c, policy.WriteAccount, id) {
		return
	}

	if err := s.svc.DeleteAccount(id); err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(200, gin.H{"message": "account deleted"})
}

// POST /v1/memberships
//
// Assigning roles is an administrative act regardless of the role granted.
func (s *Server) createMembership(c *gin.Context) {
	user := actor(c)
	if !user.IsAdmin {
		c.JSON(403, gin.H{"error": "administrator required"})
		return
	}

	var input struct {
		UserID    uint   `json:"user_id" binding:"required"`
		AccountID uint   `json:"account_id" binding:"required"`
		Role      string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	m, err := s.svc.CreateMembership(input.UserID, input.AccountID, models.Role(input.Role))
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(201, m)
}
