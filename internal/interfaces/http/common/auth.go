package common

import (
	"context"

	adminapp "github.com/sngm3741/haraj-kiosk/api/internal/admin/application"
)

type contextKey string

const accessClaimsContextKey contextKey = "accessClaims"

// ContextWithClaims stores the verified admin claims into context.
func ContextWithClaims(ctx context.Context, claims *adminapp.AccessClaims) context.Context {
	return context.WithValue(ctx, accessClaimsContextKey, claims)
}

// ClaimsFromContext extracts the admin claims from context.
func ClaimsFromContext(ctx context.Context) (*adminapp.AccessClaims, bool) {
	claims, ok := ctx.Value(accessClaimsContextKey).(*adminapp.AccessClaims)
	return claims, ok && claims != nil
}
