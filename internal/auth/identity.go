package auth

import (
	"context"
	"errors"
)

// ErrUnauthenticated is returned when a request carries no resolvable caller.
var ErrUnauthenticated = errors.New("unauthenticated")

// Identity is the verified username of the caller.
type Identity string

// IdentityResolver resolves the verified caller of the request carried by ctx.
type IdentityResolver interface {
	ResolveCaller(ctx context.Context) (Identity, error)
}

type contextKey string

// UserClaimsKey is the context key for user claims.
const UserClaimsKey = contextKey("userClaims")

// WithClaims returns a copy of ctx carrying the verified token claims.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, UserClaimsKey, claims)
}

// ClaimsFromContext returns the claims stored by the JWT middleware.
func ClaimsFromContext(ctx context.Context) (*Claims, error) {
	claims, ok := ctx.Value(UserClaimsKey).(*Claims)
	if !ok || claims == nil || claims.Username == "" {
		return nil, ErrUnauthenticated
	}
	return claims, nil
}

// ClaimsResolver trusts the token claims without consulting the user store.
type ClaimsResolver struct{}

// ResolveCaller implements IdentityResolver.
func (ClaimsResolver) ResolveCaller(ctx context.Context) (Identity, error) {
	claims, err := ClaimsFromContext(ctx)
	if err != nil {
		return "", err
	}
	return Identity(claims.Username), nil
}
