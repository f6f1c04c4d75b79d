package grant

import (
	"context"
	stderrors "errors"
	"time"

	"golang.org/x/sync/errgroup"

	grantkit "github.com/dpup/grantkit"
	"github.com/dpup/grantkit/errors"
)

// Options enumerates every provider capability and parameter a grant type
// may need. Each constructor validates the fields it requires and fails
// fast with a configuration error, so a misconfigured flow never reaches
// a request.
type Options struct {
	// Codes is required by the authorization code flow.
	Codes CodeStore

	// RefreshTokens is required by the refresh token flow.
	RefreshTokens RefreshTokenStore

	// Tokens is required by every flow.
	Tokens TokenStore

	// Scopes is required by every flow.
	Scopes ScopeValidator

	// AccessTokenGenerator overrides the default opaque generator.
	AccessTokenGenerator AccessTokenGenerator

	// RefreshTokenGenerator overrides the default opaque generator.
	RefreshTokenGenerator RefreshTokenGenerator

	// AccessTokenLifetime overrides grant.accessTokenLifetime from the
	// global config.
	AccessTokenLifetime time.Duration

	// RefreshTokenLifetime overrides grant.refreshTokenLifetime from
	// the global config.
	RefreshTokenLifetime time.Duration

	// DisableRefreshTokens skips refresh token minting for this flow,
	// regardless of the grant.issueRefreshTokens config.
	DisableRefreshTokens bool

	// Clock sources "now". Defaults to time.Now; overridable for tests.
	// Each request captures a single instant from it, used for every
	// expiry comparison and lifetime offset in that request.
	Clock func() time.Time
}

// core provides the parts of token issuance common to every grant flow:
// scope validation, token minting, expiry computation, and the converging
// all-or-nothing assembly step. Concrete flows embed it and add their own
// eligibility checks.
type core struct {
	tokens       TokenStore
	scopes       ScopeValidator
	genAccess    AccessTokenGenerator
	genRefresh   RefreshTokenGenerator
	accessTTL    time.Duration
	refreshTTL   time.Duration
	issueRefresh bool
	clock        func() time.Time
}

func newCore(opts Options) (*core, error) {
	if opts.Tokens == nil {
		return nil, errors.Configuration("missing capability: TokenStore (Options.Tokens)")
	}
	if opts.Scopes == nil {
		return nil, errors.Configuration("missing capability: ScopeValidator (Options.Scopes)")
	}

	c := &core{
		tokens:       opts.Tokens,
		scopes:       opts.Scopes,
		genAccess:    opts.AccessTokenGenerator,
		genRefresh:   opts.RefreshTokenGenerator,
		accessTTL:    opts.AccessTokenLifetime,
		refreshTTL:   opts.RefreshTokenLifetime,
		issueRefresh: !opts.DisableRefreshTokens && grantkit.IssueRefreshTokens(),
		clock:        opts.Clock,
	}
	if c.genAccess == nil {
		c.genAccess = defaultGenerator
	}
	if c.genRefresh == nil {
		c.genRefresh = defaultGenerator
	}
	if c.accessTTL == 0 {
		c.accessTTL = grantkit.AccessTokenLifetime()
	}
	if c.refreshTTL == 0 {
		c.refreshTTL = grantkit.RefreshTokenLifetime()
	}
	if c.accessTTL <= 0 {
		return nil, errors.Configuration("access token lifetime must be positive")
	}
	if c.issueRefresh && c.refreshTTL <= 0 {
		return nil, errors.Configuration("refresh token lifetime must be positive")
	}
	if c.clock == nil {
		c.clock = time.Now
	}
	return c, nil
}

// validateScope asks the provider for the effective scope. Rejections map
// to invalid_scope; any other provider failure is a server fault.
func (c *core) validateScope(ctx context.Context, user *User, client *Client, scope string) (string, error) {
	effective, err := c.scopes.ValidateScope(ctx, user, client, scope)
	if err != nil {
		if stderrors.Is(err, ErrScopeRejected) {
			return "", errors.InvalidScope("requested scope is not permitted")
		}
		return "", errors.ServerError(err)
	}
	return effective, nil
}

// accessTokenExpiresAt computes the access token expiry from the request
// instant.
func (c *core) accessTokenExpiresAt(now time.Time) time.Time {
	return now.Add(c.accessTTL)
}

// refreshTokenExpiresAt computes the refresh token expiry from the
// request instant.
func (c *core) refreshTokenExpiresAt(now time.Time) time.Time {
	return now.Add(c.refreshTTL)
}

// saveToken is the converging step of every flow. The five constituent
// quantities are mutually independent, so they are resolved concurrently
// and joined; if any one fails the whole assembly fails and nothing is
// persisted. The provider's return value is the canonical token.
func (c *core) saveToken(ctx context.Context, user *User, client *Client, scope, authorizationCode string, now time.Time) (*Token, error) {
	var (
		effectiveScope string
		access         string
		refresh        string
		accessExpiry   time.Time
		refreshExpiry  time.Time
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		effectiveScope, err = c.validateScope(gctx, user, client, scope)
		return err
	})
	g.Go(func() error {
		var err error
		access, err = c.genAccess.GenerateAccessToken(gctx, client, user, scope)
		if err != nil {
			return errors.ServerError(err)
		}
		return nil
	})
	g.Go(func() error {
		accessExpiry = c.accessTokenExpiresAt(now)
		return nil
	})
	if c.issueRefresh {
		g.Go(func() error {
			var err error
			refresh, err = c.genRefresh.GenerateRefreshToken(gctx, client, user, scope)
			if err != nil {
				return errors.ServerError(err)
			}
			return nil
		})
		g.Go(func() error {
			refreshExpiry = c.refreshTokenExpiresAt(now)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	token := &Token{
		AccessToken:           access,
		AccessTokenExpiresAt:  accessExpiry,
		RefreshToken:          refresh,
		RefreshTokenExpiresAt: refreshExpiry,
		Scope:                 effectiveScope,
		AuthorizationCode:     authorizationCode,
		Client:                client,
		User:                  user,
	}

	saved, err := c.tokens.SaveToken(ctx, token, client, user)
	if err != nil {
		return nil, errors.ServerError(err)
	}
	return saved, nil
}
