package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"campus/internal/account"
	"campus/internal/httpmiddleware"
	"campus/internal/media"
	"campus/internal/store"
	"campus/internal/validation"
)

const (
	msgNotFound       = "Not found."
	msgInvalidRefresh = "Invalid token or already blacklisted."
	msgTokenNotValid  = "Token is invalid or expired"
	msgInternal       = "internal server error"
	msgMediaDisabled  = "image storage not configured"
	msgMalformedBody  = "Malformed request body."
	msgLoggedOut      = "Successfully logged out."
)

// fail writes the response for err. Unexpected errors are reported and hidden behind a 500.
func (h *Handler) fail(c *gin.Context, err error) {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, verr.Fields)
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": msgNotFound})
	case errors.Is(err, account.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
	case errors.Is(err, account.ErrInvalidRefresh):
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidRefresh})
	case errors.Is(err, media.ErrDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": msgMediaDisabled})
	default:
		if h.Reporter != nil {
			h.Reporter.Error(c.Request, err, map[string]interface{}{
				"request_id": c.GetString(httpmiddleware.RequestIDKey),
				"route":      c.FullPath(),
			})
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
	}
}

// bind decodes the JSON body into v, answering 400 when it is malformed.
func bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgMalformedBody})
		return false
	}
	return true
}

// idParam parses :id, answering 404 when it is not a positive integer.
func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": msgNotFound})
		return 0, false
	}
	return id, true
}
