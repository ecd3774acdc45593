package auth

import "context"

type claimsKey struct{}

// WithClaims attaches the authenticated caller's claims to ctx.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// FromContext returns the claims attached by WithClaims. A nil claim set
// counts as unauthenticated.
func FromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*Claims)
	return claims, ok && claims != nil
}

// CallerKey identifies the authenticated caller within its tenant, for
// per-caller accounting such as rate limits.
func CallerKey(ctx context.Context) (string, bool) {
	claims, ok := FromContext(ctx)
	if !ok || claims.Subject == "" {
		return "", false
	}
	return claims.TenantID + "/" + claims.Subject, true
}
