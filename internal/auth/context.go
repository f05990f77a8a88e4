package auth

import (
	"context"

	"github.com/dukerupert/homecrew/internal/model"
)

type contextKey struct{}

// AuthContext is the authenticated caller. HouseholdID, MemberID and Role
// are empty until the membership middleware has resolved them.
type AuthContext struct {
	UserID      string
	HouseholdID string
	MemberID    string
	Role        model.Role
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

func HouseholdID(ctx context.Context) string {
	ac, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return ac.HouseholdID
}

func UserID(ctx context.Context) string {
	ac, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return ac.UserID
}

func IsAdmin(ctx context.Context) bool {
	ac, ok := FromContext(ctx)
	if !ok {
		return false
	}
	return ac.Role == model.RoleAdmin
}
