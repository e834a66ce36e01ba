package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIKeyHeader carries the shared secret for internal job endpoints.
const APIKeyHeader = "X-API-Key"

// JobsAuthMiddleware guards the internal job endpoints with a shared API key
// compared in constant time. An empty configured key disables the endpoints.
func JobsAuthMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, ErrorResponse{
				Error: ErrorBody{Code: "JOBS_NOT_CONFIGURED", Message: "Job endpoints are not configured"},
			})
			return
		}
		key := c.GetHeader(APIKeyHeader)
		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Error: ErrorBody{Code: "INVALID_API_KEY", Message: "Invalid or missing API key"},
			})
			return
		}
		c.Next()
	}
}
