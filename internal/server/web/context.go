package web

import (
	"context"

	"github.com/dmitrijs2005/taskboard/internal/server/models"
)

type ctxKey int

const principalCtxKey ctxKey = 1

// WithPrincipal returns a context carrying the authenticated principal.
// It is set exactly once per request, by the authentication middleware.
func WithPrincipal(ctx context.Context, u models.User) context.Context {
	return context.WithValue(ctx, principalCtxKey, u)
}

// PrincipalFromCtx returns the authenticated principal, if any.
func PrincipalFromCtx(ctx context.Context) (models.User, bool) {
	u, ok := ctx.Value(principalCtxKey).(models.User)
	return u, ok
}
