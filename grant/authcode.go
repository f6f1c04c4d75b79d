package grant

import (
	"context"
	stderrors "errors"
	"net/url"

	"github.com/dpup/grantkit/errors"
	"github.com/dpup/grantkit/logging"
)

// Invalid-grant outcomes deliberately collapse into two descriptions so a
// caller cannot probe which check failed (RFC 6749 anti-enumeration).
const (
	msgCodeInvalid = "authorization code is invalid"
	msgCodeExpired = "authorization code has expired"
)

// AuthorizationCodeGrant exchanges a single-use authorization code for a
// token, per RFC 6749 §4.1.3. The checks run in a strict order: request
// shape, code lookup, client binding, expiry, redirect URI shape, redirect
// URI equality, revocation, token assembly. No step runs if an earlier
// one failed, and the code is revoked before any token is minted so a
// failure mid-assembly leaves the code permanently burned rather than
// reusable.
type AuthorizationCodeGrant struct {
	*core
	codes CodeStore
}

// NewAuthorizationCodeGrant validates the configured capabilities and
// returns the flow. A provider missing CodeStore, TokenStore or
// ScopeValidator is rejected here, not per request.
func NewAuthorizationCodeGrant(opts Options) (*AuthorizationCodeGrant, error) {
	if opts.Codes == nil {
		return nil, errors.Configuration("missing capability: CodeStore (Options.Codes)")
	}
	c, err := newCore(opts)
	if err != nil {
		return nil, err
	}
	return &AuthorizationCodeGrant{core: c, codes: opts.Codes}, nil
}

// Handle runs the redemption state machine for a single request. The
// client has been resolved and authenticated by the transport layer.
func (g *AuthorizationCodeGrant) Handle(ctx context.Context, req *TokenRequest, client *Client) (*Token, error) {
	if req == nil {
		return nil, errors.ServerError("authorization code grant invoked without a request")
	}
	if client == nil || client.ID == "" {
		return nil, errors.ServerError("authorization code grant invoked without an authenticated client")
	}

	// One instant per request; every expiry comparison and lifetime
	// offset below uses it.
	now := g.clock()

	code, err := g.getAuthorizationCode(ctx, req)
	if err != nil {
		return nil, err
	}

	// Bind-check before expiry-check, so an expired code leaks no
	// timing signal about which client it belonged to.
	if code.Client.ID != client.ID {
		return nil, errors.InvalidGrant(msgCodeInvalid)
	}
	if !code.ExpiresAt.After(now) {
		return nil, errors.InvalidGrant(msgCodeExpired)
	}

	// Redirect URI checks precede revocation: a malformed request must
	// never consume a code.
	if err := validateRedirectURI(req, code); err != nil {
		return nil, err
	}

	if err := g.revokeAuthorizationCode(ctx, code); err != nil {
		return nil, err
	}

	return g.saveToken(ctx, code.User, code.Client, code.Scope, code.Code, now)
}

// getAuthorizationCode validates the request shape and looks up the code,
// enforcing the provider contract on the returned record.
func (g *AuthorizationCodeGrant) getAuthorizationCode(ctx context.Context, req *TokenRequest) (*AuthorizationCode, error) {
	codeParam := req.Param("code")
	if codeParam == "" {
		return nil, errors.InvalidRequest("missing parameter: code")
	}
	if !validCredential(codeParam) {
		return nil, errors.InvalidRequest("invalid parameter: code")
	}

	code, err := g.codes.GetAuthorizationCode(ctx, codeParam)
	if err != nil {
		if stderrors.Is(err, ErrNotFound) {
			return nil, errors.InvalidGrant(msgCodeInvalid)
		}
		return nil, errors.ServerError(err)
	}
	if code == nil {
		return nil, errors.InvalidGrant(msgCodeInvalid)
	}

	// A code without its bindings, or without a real expiry, is a
	// provider-contract violation: a server fault, not attacker input.
	if code.Client == nil || code.Client.ID == "" {
		return nil, errors.ServerError("provider returned an authorization code with no client")
	}
	if code.User == nil || code.User.ID == "" {
		return nil, errors.ServerError("provider returned an authorization code with no user")
	}
	if code.ExpiresAt.IsZero() {
		return nil, errors.ServerError("provider returned an authorization code with no expiry")
	}
	if code.RedirectURI != "" {
		if _, err := url.ParseRequestURI(code.RedirectURI); err != nil {
			return nil, errors.ServerError("provider returned an authorization code with a malformed redirect URI")
		}
	}
	return code, nil
}

// revokeAuthorizationCode burns the code. A revocation that reports
// failure is treated identically to "code not found": the code is assumed
// already consumed, and issuance must not proceed. A warning is logged as
// an internal audit signal, since the same outcome can also mean the
// provider is broken.
func (g *AuthorizationCodeGrant) revokeAuthorizationCode(ctx context.Context, code *AuthorizationCode) error {
	revoked, err := g.codes.RevokeAuthorizationCode(ctx, code)
	if err != nil || !revoked {
		logging.FromContext(ctx).Warnw("authorization code revocation failed",
			"client", code.Client.ID, "error", err)
		return errors.InvalidGrant(msgCodeInvalid)
	}
	return nil
}

// validateRedirectURI enforces RFC 6749 §4.1.3's redirect_uri binding: if
// the code was issued with a redirect URI, the redeeming request must
// supply one that is syntactically valid and byte-for-byte equal to it.
// Codes issued without a redirect URI skip the check entirely.
func validateRedirectURI(req *TokenRequest, code *AuthorizationCode) error {
	if code.RedirectURI == "" {
		return nil
	}

	redirectURI := req.Param("redirect_uri")
	if redirectURI == "" {
		return errors.InvalidRequest("missing parameter: redirect_uri")
	}
	if _, err := url.ParseRequestURI(redirectURI); err != nil {
		return errors.InvalidRequest("invalid parameter: redirect_uri is not a valid URI")
	}
	if redirectURI != code.RedirectURI {
		return errors.InvalidRequest("invalid parameter: redirect_uri does not match the authorization request")
	}
	return nil
}
