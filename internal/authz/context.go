package authz

import (
	"context"

	"github.com/gatehouse/gatehouse/internal/accounts"
)

type userContextKey struct{}

// ContextWithUser stores the resolved principal in context. The principal
// is attached exactly once per request by Middleware.LoadUser; downstream
// code receives it explicitly through UserFromContext rather than reading
// ambient request state.
func ContextWithUser(ctx context.Context, user *accounts.User) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext extracts the authenticated user, nil when anonymous.
func UserFromContext(ctx context.Context) *accounts.User {
	user, _ := ctx.Value(userContextKey{}).(*accounts.User)
	return user
}
