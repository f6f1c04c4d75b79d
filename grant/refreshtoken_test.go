package grant_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpup/grantkit/errors"
	"github.com/dpup/grantkit/grant"
	"github.com/dpup/grantkit/grant/memstore"
)

func newRefreshGrant(t *testing.T, store *memstore.Store) *grant.RefreshTokenGrant {
	t.Helper()
	g, err := grant.NewRefreshTokenGrant(grant.Options{
		RefreshTokens: store,
		Tokens:        store,
		Scopes:        store,
		Clock:         fixedClock,
	})
	require.NoError(t, err)
	return g
}

func seedRefreshToken(t *testing.T, store *memstore.Store, client *grant.Client, expiresAt time.Time) *grant.Token {
	t.Helper()
	token := &grant.Token{
		AccessToken:           "old-access",
		AccessTokenExpiresAt:  testNow.Add(-time.Minute),
		RefreshToken:          "refresh-1",
		RefreshTokenExpiresAt: expiresAt,
		Scope:                 "read",
		Client:                client,
		User:                  &grant.User{ID: "u1"},
	}
	_, err := store.SaveToken(context.Background(), token, client, token.User)
	require.NoError(t, err)
	return token
}

func refreshRequest(refreshToken string) *grant.TokenRequest {
	return &grant.TokenRequest{
		GrantType: "refresh_token",
		Body:      map[string]string{"refresh_token": refreshToken},
	}
}

func TestRefreshTokenGrant_Rotation(t *testing.T) {
	store := memstore.New()
	client := newTestClient("c1")
	seedRefreshToken(t, store, client, testNow.Add(time.Hour))
	g := newRefreshGrant(t, store)

	token, err := g.Handle(context.Background(), refreshRequest("refresh-1"), client)
	require.NoError(t, err)

	assert.NotEmpty(t, token.AccessToken)
	assert.NotEqual(t, "old-access", token.AccessToken)
	assert.NotEqual(t, "refresh-1", token.RefreshToken)
	assert.Equal(t, "read", token.Scope)
	assert.Empty(t, token.AuthorizationCode)

	// The presented refresh token was rotated out.
	_, err = g.Handle(context.Background(), refreshRequest("refresh-1"), client)
	require.Error(t, err)
	assert.True(t, errors.IsInvalidGrant(err))

	// The replacement works.
	_, err = g.Handle(context.Background(), refreshRequest(token.RefreshToken), client)
	assert.NoError(t, err)
}

func TestRefreshTokenGrant_ClientBinding(t *testing.T) {
	store := memstore.New()
	owner := newTestClient("c1")
	seedRefreshToken(t, store, owner, testNow.Add(time.Hour))
	g := newRefreshGrant(t, store)

	_, err := g.Handle(context.Background(), refreshRequest("refresh-1"), newTestClient("c2"))
	require.Error(t, err)
	assert.True(t, errors.IsInvalidGrant(err))

	// Not rotated by the failed attempt.
	_, err = g.Handle(context.Background(), refreshRequest("refresh-1"), owner)
	assert.NoError(t, err)
}

func TestRefreshTokenGrant_Expired(t *testing.T) {
	store := memstore.New()
	client := newTestClient("c1")
	seedRefreshToken(t, store, client, testNow.Add(-time.Minute))
	g := newRefreshGrant(t, store)

	_, err := g.Handle(context.Background(), refreshRequest("refresh-1"), client)
	require.Error(t, err)
	assert.True(t, errors.IsInvalidGrant(err))
	assert.Equal(t, "refresh token has expired", errors.PublicMessage(err))
}

func TestRefreshTokenGrant_RequestShape(t *testing.T) {
	store := memstore.New()
	client := newTestClient("c1")
	g := newRefreshGrant(t, store)

	for _, bad := range []string{"", "has space", "bad\x7ftoken"} {
		_, err := g.Handle(context.Background(), refreshRequest(bad), client)
		require.Error(t, err)
		assert.True(t, errors.IsInvalidRequest(err), "token %q: %v", bad, err)
	}
}

func TestRefreshTokenGrant_Unknown(t *testing.T) {
	store := memstore.New()
	g := newRefreshGrant(t, store)

	_, err := g.Handle(context.Background(), refreshRequest("unknown"), newTestClient("c1"))
	require.Error(t, err)
	assert.True(t, errors.IsInvalidGrant(err))
}

func TestRefreshTokenGrant_ProviderContract(t *testing.T) {
	store := memstore.New()
	client := newTestClient("c1")
	token := &grant.Token{
		AccessToken:           "old-access",
		RefreshToken:          "refresh-1",
		RefreshTokenExpiresAt: testNow.Add(time.Hour),
		Client:                client,
		// User missing: the provider violated its contract.
	}
	_, err := store.SaveToken(context.Background(), token, client, nil)
	require.NoError(t, err)
	g := newRefreshGrant(t, store)

	_, err = g.Handle(context.Background(), refreshRequest("refresh-1"), client)
	require.Error(t, err)
	assert.True(t, errors.IsServerError(err))
	assert.False(t, errors.IsInvalidGrant(err))
}

func TestNewRefreshTokenGrant_FailFast(t *testing.T) {
	store := memstore.New()

	g, err := grant.NewRefreshTokenGrant(grant.Options{Tokens: store, Scopes: store})
	require.Error(t, err)
	assert.Nil(t, g)
	assert.True(t, errors.IsConfiguration(err))
	assert.Contains(t, err.Error(), "RefreshTokenStore")
}
