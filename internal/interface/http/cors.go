package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/tutorials-api/pkg/metrics"
)

const (
	corsAllowMethods = "GET,HEAD,PUT,PATCH,POST,DELETE"
	corsAllowHeaders = "Content-Type, Authorization, X-Request-ID"
)

// corsMiddleware admits exactly one origin. Requests carrying any other Origin
// are rejected before they reach a route; requests without Origin pass through.
func corsMiddleware(allowedOrigin string) gin.HandlerFunc {
	allowedOrigin = strings.TrimRight(strings.TrimSpace(allowedOrigin), "/")
	return func(c *gin.Context) {
		headers := c.Writer.Header()
		headers.Add("Vary", "Origin")

		origin := c.GetHeader("Origin")
		if origin != "" && !originAllowed(origin, allowedOrigin) {
			metrics.CORSRejections.Inc()
			abortWithError(c, NewHTTPError(http.StatusForbidden, "origin_not_allowed", "origin "+origin+" is not allowed", nil))
			return
		}

		headers.Set("Access-Control-Allow-Origin", allowedOrigin)

		if c.Request.Method == http.MethodOptions {
			headers.Set("Access-Control-Allow-Methods", corsAllowMethods)
			requested := c.GetHeader("Access-Control-Request-Headers")
			if requested == "" {
				requested = corsAllowHeaders
			}
			headers.Set("Access-Control-Allow-Headers", requested)
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func originAllowed(origin, allowed string) bool {
	return strings.EqualFold(strings.TrimRight(origin, "/"), allowed)
}
