package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"ecobazar-system/internal/database/models"
	"ecobazar-system/internal/utils"
)

const (
	CtxUserID = "userID"
	CtxRole   = "role"
)

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": msg})
}

// JWTAuth validates the bearer token and cross-checks the embedded role
// against the live user row: a token issued before a role change (or for a
// deactivated user) is rejected.
func JWTAuth(tokens *utils.TokenManager, db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortUnauthorized(c, "authorization header required")
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortUnauthorized(c, "invalid authorization header")
			return
		}

		claims, err := tokens.ParseToken(parts[1])
		if err != nil {
			abortUnauthorized(c, "invalid or expired token")
			return
		}

		var user models.User
		if err := db.WithContext(c.Request.Context()).First(&user, claims.UserID).Error; err != nil {
			abortUnauthorized(c, "user not found")
			return
		}
		if !user.IsActive {
			abortUnauthorized(c, "user is deactivated")
			return
		}
		if user.Role != claims.Role {
			abortUnauthorized(c, "token role is stale")
			return
		}

		c.Set(CtxUserID, user.ID)
		c.Set(CtxRole, user.Role)
		c.Next()
	}
}

func RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(CtxRole)
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "error": "insufficient permissions"})
	}
}

// UserID returns the authenticated user's id set by JWTAuth.
func UserID(c *gin.Context) uint {
	if v, ok := c.Get(CtxUserID); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}
