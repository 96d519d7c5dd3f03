package ratelimit

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/accounts/internal/apperror"
)

// Middleware rejects requests beyond the limit with 429 before any later
// handler runs. Clients are keyed by gin's ClientIP.
//
// A backend failure lets the request through: the limiter protects capacity,
// and losing Redis should not take authentication down with it.
func Middleware(limiter Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			slog.ErrorContext(c.Request.Context(), "rate limiter unavailable", "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))

		if !res.Allowed {
			retryAfter := int(math.Ceil(res.RetryAfter.Seconds()))
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			appErr := apperror.NewTooManyRequests()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, appErr)
			return
		}

		c.Next()
	}
}
