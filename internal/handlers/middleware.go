package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
)

// accessLog writes one structured line per request.
func (h *Handler) accessLog(c *gin.Context) {
	start := time.Now()
	c.Next()

	status := c.Writer.Status()
	fields := []interface{}{
		"method", c.Request.Method,
		"path", c.FullPath(),
		"status", status,
		"latency", time.Since(start),
	}
	if len(c.Errors) > 0 {
		fields = append(fields, "errors", c.Errors.String())
	}
	if status >= 500 {
		h.log.Warnw("http_request", fields...)
		return
	}
	h.log.Debugw("http_request", fields...)
}
