package tenant

import (
	"context"

	"storefront/internal/domain"
)

type ctxKey struct{}

// WithResolution stores the request's tenant decision.
func WithResolution(ctx context.Context, r Resolution) context.Context {
	return context.WithValue(ctx, ctxKey{}, r)
}

func FromContext(ctx context.Context) (Resolution, bool) {
	r, ok := ctx.Value(ctxKey{}).(Resolution)
	return r, ok
}

// BrandFrom returns the request's brand, or the registry default when nothing was resolved.
func BrandFrom(ctx context.Context, reg *Registry) domain.Brand {
	if r, ok := FromContext(ctx); ok {
		b, _ := reg.ByID(r.BrandID)
		return b
	}
	return reg.Default()
}
