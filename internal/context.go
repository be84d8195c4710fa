package internal

import (
	"context"
	"time"

	"github.com/frahmantamala/academy-portal/internal/identity"
)

type ctxKey string

const ContextIdentityKey ctxKey = "identity"

func IdentityFromContext(ctx context.Context) (*identity.Identity, bool) {
	if ctx == nil {
		return nil, false
	}
	ident, ok := ctx.Value(ContextIdentityKey).(*identity.Identity)
	return ident, ok && ident != nil
}

func ContextWithIdentity(ctx context.Context, ident *identity.Identity) context.Context {
	return context.WithValue(ctx, ContextIdentityKey, ident)
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
