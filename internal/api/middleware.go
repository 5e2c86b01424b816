package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nisitlab/room-booking-backend/internal/auth"
	"github.com/nisitlab/room-booking-backend/internal/user"
)

// RequireActiveUser ensures the authenticated account still exists and has not
// been deactivated since the token was issued.
// It MUST be used after auth.AuthRequired middleware.
func RequireActiveUser(userService user.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := auth.GetUserID(c)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		u, err := userService.GetByID(c.Request.Context(), userID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			return
		}

		if !u.IsActive {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden: account deactivated"})
			return
		}

		c.Next()
	}
}
