package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/homecrew/internal/apperr"
	"github.com/dukerupert/homecrew/internal/auth"
	"github.com/dukerupert/homecrew/internal/model"
)

// TokenVerifier turns a bearer token into a user id.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// MembershipResolver finds the household a user belongs to.
type MembershipResolver interface {
	ResolveMembership(ctx context.Context, userID string) (model.Membership, error)
}

// RequireAuth validates the bearer token and populates AuthContext with the
// caller's user id.
func RequireAuth(tokens TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				apperr.Write(w, apperr.New(apperr.Unauthenticated))
				return
			}
			userID, err := tokens.Verify(token)
			if err != nil {
				logger.Debug("rejected bearer token", "error", err, "request_id", RequestIDFromContext(r.Context()))
				apperr.Write(w, apperr.New(apperr.Unauthenticated))
				return
			}
			ctx := auth.WithAuth(r.Context(), auth.AuthContext{UserID: userID})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireMember resolves the authenticated caller's household and role into
// AuthContext. It must run after RequireAuth.
func RequireMember(resolver MembershipResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac, ok := auth.FromContext(r.Context())
			if !ok || ac.UserID == "" {
				apperr.Write(w, apperr.New(apperr.Unauthenticated))
				return
			}
			m, err := resolver.ResolveMembership(r.Context(), ac.UserID)
			if err != nil {
				if apperr.CodeOf(err) == apperr.Internal {
					logger.Error("resolve membership", "error", err, "user_id", ac.UserID)
					apperr.Write(w, apperr.New(apperr.Internal))
					return
				}
				apperr.Write(w, apperr.New(apperr.CodeOf(err)))
				return
			}
			ac.HouseholdID = m.HouseholdID
			ac.MemberID = m.MemberID
			ac.Role = m.Role
			next.ServeHTTP(w, r.WithContext(auth.WithAuth(r.Context(), ac)))
		})
	}
}

// RequireAdmin checks that the resolved member has the admin role.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.IsAdmin(r.Context()) {
			apperr.Write(w, apperr.New(apperr.NotHouseholdAdmin))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
