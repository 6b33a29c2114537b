package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/pedagosys-api/internal/service"
)

// unmatchedRoute labels requests that hit no route, so scanners and raw
// download tokens cannot grow the label set.
const unmatchedRoute = "unmatched"

// Metrics records one observation per request, labelled with the route
// pattern. Paths listed in skip are not recorded.
func Metrics(metricsSvc *service.MetricsService, skip ...string) gin.HandlerFunc {
	ignored := make(map[string]struct{}, len(skip))
	for _, path := range skip {
		ignored[path] = struct{}{}
	}
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		path := c.FullPath()
		if _, ok := ignored[path]; ok {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		if path == "" {
			path = unmatchedRoute
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
