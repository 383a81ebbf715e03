package http

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"investment-ledger-go/internal/models"
)

type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Opaque bearer token resolved against the user table by AuthMiddleware.
// In production, sign a real JWT with user ID and expiry instead.
func generateToken(user *models.User) string {
	return "token_" + user.UUID + "_" + uuid.NewString()
}

// POST /v1/auth/register
func (s *Server) authRegister(c *gin.Context) {
	var input struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required,min=6"`
		Email    string `json:"email"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.cfg.BcryptCost)
	if err != nil {
		c.JSON(500, gin.H{"error": "encryption_failed"})
		return
	}

	var email *string
	if input.Email != "" {
		email = &input.Email
	}

	user := models.User{
		UUID:         uuid.NewString(),
		Username:     input.Username,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(409, gin.H{"error": "user_already_exists"})
			return
		}
		c.JSON(500, gin.H{"error": "db_error"})
		return
	}

	c.JSON(201, AuthResponse{
		Token: generateToken(&user),
		User:  &user,
	})
}

// POST /v1/auth/login
func (s *Server) authLogin(c *gin.Context) {
	var input struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := s.db.Where("username = ?", input.Username).First(&user).Error; err != nil {
		c.JSON(401, gin.H{"error": "invalid_credentials"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		c.JSON(401, gin.H{"error": "invalid_credentials"})
		return
	}

	c.JSON(200, AuthResponse{
		Token: generateToken(&user),
		User:  &user,
	})
}
