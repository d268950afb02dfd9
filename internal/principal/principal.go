// Package principal carries the authenticated caller through a request's
// context.Context.
package principal

import (
	"context"

	"github.com/srivastavahk/TaskFlow/internal/domain"
)

type ctxKey struct{}

// WithPrincipal returns a copy of ctx with p attached.
func WithPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext returns the principal attached to ctx, if any.
func FromContext(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(domain.Principal)
	return p, ok
}
