package grant

import (
	"context"
	stderrors "errors"

	"github.com/dpup/grantkit/errors"
	"github.com/dpup/grantkit/logging"
)

const (
	msgRefreshInvalid = "refresh token is invalid"
	msgRefreshExpired = "refresh token has expired"
)

// RefreshTokenGrant exchanges a refresh token for a fresh token pair, per
// RFC 6749 §6. It is a structurally parallel variant of the
// authorization code flow: lookup, client binding, expiry, rotation, then
// the shared token assembly. The presented refresh token is revoked
// before the replacement is minted, so a crash mid-assembly invalidates
// rather than duplicates.
type RefreshTokenGrant struct {
	*core
	refreshTokens RefreshTokenStore
}

// NewRefreshTokenGrant validates the configured capabilities and returns
// the flow.
func NewRefreshTokenGrant(opts Options) (*RefreshTokenGrant, error) {
	if opts.RefreshTokens == nil {
		return nil, errors.Configuration("missing capability: RefreshTokenStore (Options.RefreshTokens)")
	}
	c, err := newCore(opts)
	if err != nil {
		return nil, err
	}
	return &RefreshTokenGrant{core: c, refreshTokens: opts.RefreshTokens}, nil
}

// Handle runs the rotation state machine for a single request.
func (g *RefreshTokenGrant) Handle(ctx context.Context, req *TokenRequest, client *Client) (*Token, error) {
	if req == nil {
		return nil, errors.ServerError("refresh token grant invoked without a request")
	}
	if client == nil || client.ID == "" {
		return nil, errors.ServerError("refresh token grant invoked without an authenticated client")
	}

	now := g.clock()

	token, err := g.getRefreshToken(ctx, req)
	if err != nil {
		return nil, err
	}

	if token.Client.ID != client.ID {
		return nil, errors.InvalidGrant(msgRefreshInvalid)
	}
	if !token.RefreshTokenExpiresAt.After(now) {
		return nil, errors.InvalidGrant(msgRefreshExpired)
	}

	if err := g.revokeRefreshToken(ctx, token); err != nil {
		return nil, err
	}

	return g.saveToken(ctx, token.User, token.Client, token.Scope, "", now)
}

func (g *RefreshTokenGrant) getRefreshToken(ctx context.Context, req *TokenRequest) (*Token, error) {
	refreshParam := req.Param("refresh_token")
	if refreshParam == "" {
		return nil, errors.InvalidRequest("missing parameter: refresh_token")
	}
	if !validCredential(refreshParam) {
		return nil, errors.InvalidRequest("invalid parameter: refresh_token")
	}

	token, err := g.refreshTokens.GetRefreshToken(ctx, refreshParam)
	if err != nil {
		if stderrors.Is(err, ErrNotFound) {
			return nil, errors.InvalidGrant(msgRefreshInvalid)
		}
		return nil, errors.ServerError(err)
	}
	if token == nil {
		return nil, errors.InvalidGrant(msgRefreshInvalid)
	}

	if token.Client == nil || token.Client.ID == "" {
		return nil, errors.ServerError("provider returned a refresh token with no client")
	}
	if token.User == nil || token.User.ID == "" {
		return nil, errors.ServerError("provider returned a refresh token with no user")
	}
	if token.RefreshTokenExpiresAt.IsZero() {
		return nil, errors.ServerError("provider returned a refresh token with no expiry")
	}
	return token, nil
}

func (g *RefreshTokenGrant) revokeRefreshToken(ctx context.Context, token *Token) error {
	revoked, err := g.refreshTokens.RevokeRefreshToken(ctx, token)
	if err != nil || !revoked {
		logging.FromContext(ctx).Warnw("refresh token revocation failed",
			"client", token.Client.ID, "error", err)
		return errors.InvalidGrant(msgRefreshInvalid)
	}
	return nil
}
