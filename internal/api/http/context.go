package http

import (
	"context"

	"school-resources-backend/internal/security"
)

type contextKey string

const claimsKey contextKey = "claims"

func withClaims(ctx context.Context, claims *security.UserClaims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// GetUserIDFromContext returns the authenticated user id set by the auth
// middleware, or "" on public routes.
func GetUserIDFromContext(ctx context.Context) string {
	claims, ok := ctx.Value(claimsKey).(*security.UserClaims)
	if !ok || claims == nil {
		return ""
	}
	return claims.UserID
}
