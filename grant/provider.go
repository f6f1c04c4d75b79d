package grant

import "context"

// The persistence provider is specified as narrow capability interfaces so
// a flow can be constructed against exactly what it needs, and so the
// fail-fast construction check can name the missing piece. A single store
// typically implements all of them.
//
// Providers are the source of truth for durability and atomicity: across
// concurrent redemptions of the same code at most one revocation may
// report success. The core enforces this by checking the revocation
// result, never by locking.

// CodeStore provides durable lookup and single-use invalidation of
// authorization codes.
type CodeStore interface {
	// GetAuthorizationCode returns the code record, with its bound
	// client and user populated. Unknown codes return ErrNotFound.
	GetAuthorizationCode(ctx context.Context, code string) (*AuthorizationCode, error)

	// RevokeAuthorizationCode permanently invalidates a code. The
	// boolean reports whether this call performed the invalidation;
	// false means the code was already consumed or unknown.
	RevokeAuthorizationCode(ctx context.Context, code *AuthorizationCode) (bool, error)
}

// TokenStore persists assembled tokens.
type TokenStore interface {
	// SaveToken durably stores the token and returns the provider's
	// canonical persisted form, which is what callers receive.
	SaveToken(ctx context.Context, token *Token, client *Client, user *User) (*Token, error)
}

// ScopeValidator negotiates the effective scope for a token.
type ScopeValidator interface {
	// ValidateScope returns the scope to grant for the user/client
	// pair. An empty requested scope lets the provider supply a
	// default. Impermissible scopes return ErrScopeRejected.
	ValidateScope(ctx context.Context, user *User, client *Client, scope string) (string, error)
}

// RefreshTokenStore provides lookup and rotation of refresh tokens for
// the refresh token flow.
type RefreshTokenStore interface {
	// GetRefreshToken returns the token record a refresh token belongs
	// to, with client and user populated. Unknown tokens return
	// ErrNotFound.
	GetRefreshToken(ctx context.Context, refreshToken string) (*Token, error)

	// RevokeRefreshToken invalidates a refresh token as part of
	// rotation. False means the token was already consumed or unknown.
	RevokeRefreshToken(ctx context.Context, token *Token) (bool, error)
}

// AccessTokenGenerator lets a provider keep custody of access token
// shape. When absent, flows fall back to the generator configured in
// Options, or the default opaque generator.
type AccessTokenGenerator interface {
	GenerateAccessToken(ctx context.Context, client *Client, user *User, scope string) (string, error)
}

// RefreshTokenGenerator is the refresh-token counterpart of
// AccessTokenGenerator.
type RefreshTokenGenerator interface {
	GenerateRefreshToken(ctx context.Context, client *Client, user *User, scope string) (string, error)
}
