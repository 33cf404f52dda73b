package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/iaboy/backend/internal/shared/id"
)

// Middleware records request counts and latencies and tags every request
// with a generated request id.
func Middleware(m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Header("X-Request-ID", id.NewRequestID().String())

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		m.RequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		m.RequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(started).Seconds())
	}
}
