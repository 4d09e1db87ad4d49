package middleware

import (
	"context"

	"github.com/google/uuid"
)

type principalKey struct{}

// principal is the authenticated caller behind a request.
type principal struct {
	userID   uuid.UUID
	accessID string
}

func principalFrom(ctx context.Context) principal {
	if ctx == nil {
		return principal{}
	}
	p, _ := ctx.Value(principalKey{}).(principal)
	return p
}

func withPrincipal(ctx context.Context, update func(*principal)) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	p := principalFrom(ctx)
	update(&p)
	return context.WithValue(ctx, principalKey{}, p)
}

// UserIDFromContext returns the authenticated user, or uuid.Nil.
func UserIDFromContext(ctx context.Context) uuid.UUID {
	return principalFrom(ctx).userID
}

// AccessIDFromContext returns the session id (jti) of the bearer token.
func AccessIDFromContext(ctx context.Context) string {
	return principalFrom(ctx).accessID
}

func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return withPrincipal(ctx, func(p *principal) { p.userID = userID })
}

func WithAccessID(ctx context.Context, accessID string) context.Context {
	return withPrincipal(ctx, func(p *principal) { p.accessID = accessID })
}
