package middleware

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlene/kitchen-api/internal/apperr"
	"github.com/charlene/kitchen-api/internal/dto"
	"github.com/charlene/kitchen-api/internal/limiter"
)

// LoginRateLimit caps failed-or-not login attempts per client IP. The
// window is fixed: the clock starts at the first attempt and every
// attempt inside it counts. If the limiter backend fails the request is
// let through; login must not depend on the limiter being up.
func LoginRateLimit(store limiter.Store, maxAttempts int, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		count, resetIn, err := store.Hit(c.Request.Context(), c.ClientIP())
		if err != nil {
			log.Error("rate limit store", "error", err)
			c.Next()
			return
		}
		if count > maxAttempts {
			rateErr := &apperr.RateLimitedError{RetryAfter: resetIn}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.Envelope{
				Success: false,
				Message: rateErr.Error(),
			})
			return
		}
		c.Next()
	}
}
