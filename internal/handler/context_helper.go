package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/classpilot/curricula-api/internal/middleware"
	"github.com/classpilot/curricula-api/internal/models"
)

// claimsFromContext extracts JWT claims set by the auth middleware.
func claimsFromContext(c *gin.Context) (*models.JWTClaims, bool) {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*models.JWTClaims)
	return claims, ok
}
