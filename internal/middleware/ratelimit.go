package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	limitergin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	apperrors "spendwise/internal/errors"
	"spendwise/internal/logger"
)

// NewRateLimiter builds an in-memory per-key limiter from a "<limit>-<period>"
// rate such as "5-M".
func NewRateLimiter(formatted string) (*limiter.Limiter, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, fmt.Errorf("invalid rate %q: %w", formatted, err)
	}
	return limiter.New(memory.NewStore(), rate), nil
}

// RateLimit rejects clients that exceed the limiter's rate, keyed by client
// IP, with the standard error envelope.
func RateLimit(l *limiter.Limiter) gin.HandlerFunc {
	return limitergin.NewMiddleware(l,
		limitergin.WithErrorHandler(func(c *gin.Context, err error) {
			RespondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		}),
		limitergin.WithLimitReachedHandler(func(c *gin.Context) {
			logger.Get().Warnw("rate limit exceeded", "ip", c.ClientIP(), "path", c.Request.URL.Path)
			RespondWithError(c, apperrors.ErrRateLimited)
		}),
	)
}
