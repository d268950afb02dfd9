package middleware

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/srivastavahk/TaskFlow/internal/domain"
	"github.com/srivastavahk/TaskFlow/internal/metrics"
	"github.com/srivastavahk/TaskFlow/internal/principal"
	"github.com/srivastavahk/TaskFlow/internal/token"
)

// PrincipalKey is the gin context key holding the resolved domain.Principal.
const PrincipalKey = "principal"

// TokenVerifier is satisfied by *token.Service.
type TokenVerifier interface {
	Verify(raw string) (string, error)
}

// UserFinder is the subset of repository.UserRepository the resolver needs.
type UserFinder interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
}

// Authenticate resolves the bearer token, if any, to a Principal and attaches
// it to the request context. It never rejects a request: every failure leaves
// the caller anonymous and route policy decides what that means.
func Authenticate(tokens TokenVerifier, users UserFinder, logger *slog.Logger) gin.HandlerFunc {
	logger = logger.With("component", "authenticate")

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if _, ok := principal.FromContext(ctx); ok {
			c.Next()
			return
		}

		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.Next()
			return
		}

		email, err := tokens.Verify(raw)
		if err != nil {
			reason := token.Reason(err)
			metrics.TokenVerifyFailuresTotal.WithLabelValues(reason).Inc()
			logger.DebugContext(ctx, "bearer token rejected", "reason", reason)
			c.Next()
			return
		}

		user, err := users.FindByEmail(ctx, email)
		if err != nil {
			if !errors.Is(err, domain.ErrUserNotFound) {
				logger.ErrorContext(ctx, "resolve principal", "error", err)
			}
			c.Next()
			return
		}
		if !user.Status.CanAuthenticate() {
			logger.DebugContext(ctx, "inactive account presented a token", "user_id", user.ID, "status", user.Status)
			c.Next()
			return
		}

		p := domain.NewPrincipal(user)
		c.Request = c.Request.WithContext(principal.WithPrincipal(ctx, p))
		c.Set(PrincipalKey, p)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	raw := strings.TrimSpace(header[len(prefix):])
	return raw, raw != ""
}
