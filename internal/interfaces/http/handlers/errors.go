package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
)

// statusForKind maps domain error kinds onto HTTP statuses
var statusForKind = map[apperror.Kind]int{
	apperror.KindNotFound:            http.StatusNotFound,
	apperror.KindInactive:            http.StatusConflict,
	apperror.KindInvalidInput:        http.StatusBadRequest,
	apperror.KindOutOfStock:          http.StatusConflict,
	apperror.KindConstraintViolation: http.StatusConflict,
	apperror.KindUnauthorized:        http.StatusUnauthorized,
}

// respondError writes the error envelope. Unknown errors become a 500 with a
// generic message; the cause goes to the access log through c.Error.
func respondError(c *gin.Context, err error) {
	if appErr, ok := apperror.As(err); ok {
		status, known := statusForKind[appErr.Kind]
		if !known {
			status = http.StatusInternalServerError
		}
		c.AbortWithStatusJSON(status, gin.H{
			"error": appErr.Message,
			"code":  appErr.Code,
		})
		return
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"error": "Internal server error",
		"code":  "INTERNAL_ERROR",
	})
}

// respondBindError reports a request body that failed to bind or validate
func respondBindError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request data",
		"code":    "INVALID_REQUEST",
		"details": err.Error(),
	})
}

// currentUser returns the authenticated user id or writes a 401
func currentUser(c *gin.Context) (string, bool) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": apperror.ErrUnauthorized.Message,
			"code":  apperror.ErrUnauthorized.Code,
		})
		return "", false
	}
	return userID, true
}

func optionalQuery(c *gin.Context, key string) *string {
	if v := c.Query(key); v != "" {
		return &v
	}
	return nil
}
