package middleware

import (
	"strconv"

	"donor-crm/internal/metrics"

	"github.com/gin-gonic/gin"
)

// Metrics counts requests by route template.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		m.HTTPRequest(route, c.Request.Method, strconv.Itoa(c.Writer.Status()))
	}
}
