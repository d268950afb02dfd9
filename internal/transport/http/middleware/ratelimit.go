package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/srivastavahk/TaskFlow/internal/metrics"
	"github.com/srivastavahk/TaskFlow/internal/ratelimit"
	"github.com/srivastavahk/TaskFlow/internal/transport/http/response"
)

const errRateLimited = "Too many requests, try again later"

// RateLimit counts requests per client IP under name. If the limiter itself
// fails the request is let through.
func RateLimit(limiter ratelimit.Limiter, name string, limit int, window time.Duration, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := name + ":" + c.ClientIP()
		res, err := limiter.Allow(c.Request.Context(), key, limit, window)
		if err != nil {
			logger.WarnContext(c.Request.Context(), "rate limiter unavailable", "route", name, "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

		if !res.Allowed {
			metrics.RateLimitedTotal.WithLabelValues(name).Inc()
			retryAfter := max(int(time.Until(res.ResetAt).Seconds()), 1)
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			response.Err(c, http.StatusTooManyRequests, errRateLimited)
			return
		}
		c.Next()
	}
}
