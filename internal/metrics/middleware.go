package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Routes polled by health checks and the scraper. Counting them would drown the API traffic.
var unobservedRoutes = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// HTTPMetrics records request count, latency and in-flight requests per route
// pattern. Unmatched requests are labelled "unknown".
func HTTPMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if unobservedRoutes[route] {
			c.Next()
			return
		}
		if route == "" {
			route = "unknown"
		}

		HTTPRequestsInFlight.Inc()
		start := time.Now()
		c.Next()
		HTTPRequestsInFlight.Dec()

		status := strconv.Itoa(c.Writer.Status())
		HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, status).Inc()
		HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
