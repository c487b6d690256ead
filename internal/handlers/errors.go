package handlers

import (
	"errors"
	"net/http"

	"weather_favorites/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	msgInternal    = "Internal server error"
	msgInvalidBody = "Invalid request body"
)

// statusFor maps a service error kind to its HTTP status and client message.
// Errors without a kind are internal and never leak their text.
func statusFor(err error) (int, string) {
	msg, ok := service.Message(err)
	if !ok {
		return http.StatusInternalServerError, msgInternal
	}
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrConflict):
		return http.StatusBadRequest, msg
	case errors.Is(err, service.ErrAuth):
		return http.StatusUnauthorized, msg
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, msg
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, msg
	case errors.Is(err, service.ErrRateLimited):
		return http.StatusTooManyRequests, msg
	default:
		return http.StatusInternalServerError, msg
	}
}

// writeError logs err under logKey and aborts with the mapped status.
func (h *Handler) writeError(c *gin.Context, err error, logKey string, kv ...interface{}) {
	code, msg := statusFor(err)
	if h.log != nil {
		fields := append([]interface{}{"err", err, "status", code, "request_id", requestID(c)}, kv...)
		if code >= http.StatusInternalServerError {
			h.log.Errorw(logKey, fields...)
		} else {
			h.log.Infow(logKey, fields...)
		}
	}
	c.AbortWithStatusJSON(code, gin.H{"message": msg})
}

// bindJSONOrBadRequest tries to bind the request body into dst and writes a 400 JSON on failure.
// Returns false if the request was already handled (aborted), true otherwise.
func (h *Handler) bindJSONOrBadRequest(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		if h.log != nil {
			h.log.Infow("bad_request_body", "path", c.FullPath(), "err", err, "request_id", requestID(c))
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": msgInvalidBody})
		return false
	}
	return true
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": msg})
}
