package handlers

import (
	"net/http"
	"strings"
	"time"

	"weather_favorites/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "requestId"
	principalKey    = "principal"

	maxRequestIDLen = 128
)

// requestLogger tags the request with an id (echoed or generated) and writes
// one access line when it completes.
func (h *Handler) requestLogger(c *gin.Context) {
	start := time.Now()

	id := strings.TrimSpace(c.GetHeader(requestIDHeader))
	if id == "" || len(id) > maxRequestIDLen {
		id = uuid.NewString()
	}
	c.Set(requestIDKey, id)
	c.Header(requestIDHeader, id)

	c.Next()

	if h.log == nil {
		return
	}
	path := c.FullPath()
	if path == "" {
		path = c.Request.URL.Path
	}
	h.log.Infow("http_request",
		"request_id", id,
		"method", c.Request.Method,
		"path", path,
		"status", c.Writer.Status(),
		"latency_ms", time.Since(start).Milliseconds(),
		"client_ip", c.ClientIP(),
	)
}

func (h *Handler) recovered(c *gin.Context, rec any) {
	if h.log != nil {
		h.log.Errorw("panic_recovered", "panic", rec, "path", c.Request.URL.Path, "request_id", requestID(c))
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": msgInternal})
}

func requestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// userIdentity verifies the Bearer token and stores the Principal in both the
// gin context and the request context.
func (h *Handler) userIdentity(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"message": "Authentication required",
		})
		return
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"message": "Invalid Authorization header format",
		})
		return
	}

	p, err := h.services.VerifySession(c.Request.Context(), strings.TrimSpace(parts[1]))
	if err != nil {
		h.writeError(c, err, "auth_session_rejected")
		return
	}

	c.Set(principalKey, p)
	c.Request = c.Request.WithContext(service.WithPrincipal(c.Request.Context(), p))
	c.Next()
}

// principal returns the caller set by userIdentity.
func principal(c *gin.Context) (service.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return service.Principal{}, false
	}
	p, ok := v.(service.Principal)
	return p, ok
}

// mustPrincipal aborts with 401 when no caller is attached.
func mustPrincipal(c *gin.Context) (service.Principal, bool) {
	p, ok := principal(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Authentication required"})
	}
	return p, ok
}
