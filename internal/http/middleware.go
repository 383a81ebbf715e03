package http

import (
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"investment-ledger-go/internal/models"
)

func AuthMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(401, gin.H{"error": "authorization_header_missing"})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(401, gin.H{"error": "authorization_header_invalid"})
			return
		}

		token := parts[1]

		// Token format: token_{UUID}_{Nonce}
		if !strings.HasPrefix(token, "token_") {
			c.AbortWithStatusJSON(401, gin.H{"error": "invalid_token_format"})
			return
		}

		tokenParts := strings.Split(token, "_")
		if len(tokenParts) < 3 {
			c.AbortWithStatusJSON(401, gin.H{"error": "invalid_token_structure"})
			return
		}

		uuid := tokenParts[1]

		var user models.User
		if err := db.Where("uuid = ?", uuid).First(&user).Error; err != nil {
			c.AbortWithStatusJSON(401, gin.H{"error": "invalid_token_user_not_found"})
			return
		}

		c.Set("user", &user)
		c.Next()
	}
}

// actor returns the authenticated user stored by AuthMiddleware, or nil on
// unauthenticated routes.
func actor(c *gin.Context) *models.User {
	val, exists := c.Get("user")
	if !exists {
		return nil
	}
	return val.(*models.User)
}
