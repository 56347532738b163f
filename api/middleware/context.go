package middleware

import (
	"context"

	"github.com/angelmondragon/rmjobsites-storefront/pkg/storefront"
)

type contextKey string

const ctxUser contextKey = "user"

// UserFromContext returns the signed-in user seeded by Session, or nil.
func UserFromContext(ctx context.Context) *storefront.User {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxUser).(*storefront.User); ok {
		return v
	}
	return nil
}

// WithUser injects the signed-in user into the context.
func WithUser(ctx context.Context, user *storefront.User) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUser, user)
}
