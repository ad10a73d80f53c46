package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"marketplace-server/models"
	"marketplace-server/types"
	"marketplace-server/utils"
)

const (
	ContextUserID = "user_id"
	ContextRole   = "role"
)

// TokenValidator checks a bearer token and returns its claims
type TokenValidator interface {
	ValidateAccessToken(token string) (*types.Claims, error)
}

// AuthMiddleware validates JWT tokens and sets user context
func AuthMiddleware(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c, "Authorization header required")
			return
		}

		// Check if the header starts with "Bearer "
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			unauthorized(c, "Token must be in format: Bearer <token>")
			return
		}

		authenticate(c, tokens, tokenString)
	}
}

// WebSocketAuthMiddleware validates JWT tokens from query parameters for WebSocket connections
func WebSocketAuthMiddleware(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.Query("token")
		if tokenString == "" {
			unauthorized(c, "Please provide a valid token in query parameters")
			return
		}
		authenticate(c, tokens, tokenString)
	}
}

func authenticate(c *gin.Context, tokens TokenValidator, tokenString string) {
	claims, err := tokens.ValidateAccessToken(tokenString)
	if err != nil {
		utils.GetLogger().Debug("Token rejected",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
		unauthorized(c, "Token is invalid or expired")
		return
	}

	c.Set(ContextUserID, claims.UserID)
	c.Set(ContextRole, models.Role(claims.Role))
	c.Next()
}

// RequireRole lets only the listed roles through
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, role := CurrentUser(c)
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"success": false,
			"error":   "Forbidden",
			"message": "Your role cannot perform this action",
		})
	}
}

// CurrentUser returns the authenticated user id and role, zero values if none
func CurrentUser(c *gin.Context) (uint, models.Role) {
	userID := c.GetUint(ContextUserID)
	role, _ := c.Get(ContextRole)
	r, _ := role.(models.Role)
	return userID, r
}

func unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error":   "Unauthorized",
		"message": message,
	})
}
