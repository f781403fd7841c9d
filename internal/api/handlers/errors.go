package handlers

import (
	"errors"

	"guardialog/internal/services"

	"github.com/gin-gonic/gin"
)

// respondServiceError maps service sentinel errors onto HTTP statuses.
// Anything unrecognized is a storage-level failure and surfaces as a
// generic 500.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		c.JSON(401, gin.H{"error": "Invalid credentials"})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(403, gin.H{"error": "Forbidden"})
	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrGuardiaNotFound):
		c.JSON(404, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrValidation):
		c.JSON(400, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrUserExists),
		errors.Is(err, services.ErrLastAdmin),
		errors.Is(err, services.ErrSelfChange):
		c.JSON(409, gin.H{"error": err.Error()})
	default:
		c.JSON(500, gin.H{"error": "Internal server error"})
	}
}
