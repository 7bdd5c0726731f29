package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "media-contacts/backend/pkg/errors"
)

// retryAfterSeconds is advertised when the graph store is unreachable
const retryAfterSeconds = "5"

// statusFor maps an error to the HTTP status reported to the caller
func statusFor(err error) int {
	errType, ok := apperrors.TypeOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch errType {
	case apperrors.ErrorTypeValidation, apperrors.ErrorTypeTag:
		return http.StatusBadRequest
	case apperrors.ErrorTypeNotFound:
		return http.StatusNotFound
	case apperrors.ErrorTypeTypeMismatch:
		return http.StatusConflict
	case apperrors.ErrorTypeConnection:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (h *Handler) fail(c *gin.Context, msg string, err error) {
	status := statusFor(err)
	if apperrors.IsRetryable(err) {
		c.Header("Retry-After", retryAfterSeconds)
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error(msg, zap.Error(err), zap.String("path", c.FullPath()))
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
