package middleware

import (
	"context"

	"github.com/baharkarakas/simsforum/internal/models"
)

type identityKey struct{}

func WithIdentity(ctx context.Context, id *models.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the caller attached by Auth, or nil for anonymous.
func IdentityFrom(ctx context.Context) *models.Identity {
	if v, ok := ctx.Value(identityKey{}).(*models.Identity); ok {
		return v
	}
	return nil
}
