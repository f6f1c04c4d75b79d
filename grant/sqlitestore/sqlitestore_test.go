package sqlitestore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpup/grantkit/grant"
)

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s := New("file:"+filepath.Join(t.TempDir(), "grants.db"), opts...)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCodeLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	expiresAt := time.Now().Add(time.Minute).UTC().Truncate(time.Second)
	code := &grant.AuthorizationCode{
		Code:        "abc123",
		Client:      &grant.Client{ID: "c1"},
		User:        &grant.User{ID: "u1"},
		Scope:       "read",
		ExpiresAt:   expiresAt,
		RedirectURI: "https://app.example.com/cb",
	}
	require.NoError(t, s.CreateCode(ctx, code))

	got, err := s.GetAuthorizationCode(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "c1", got.Client.ID)
	assert.Equal(t, "u1", got.User.ID)
	assert.Equal(t, "read", got.Scope)
	assert.Equal(t, "https://app.example.com/cb", got.RedirectURI)
	assert.True(t, got.ExpiresAt.Equal(expiresAt))

	revoked, err := s.RevokeAuthorizationCode(ctx, code)
	require.NoError(t, err)
	assert.True(t, revoked)

	_, err = s.GetAuthorizationCode(ctx, "abc123")
	assert.ErrorIs(t, err, grant.ErrNotFound)

	// A second redemption of the same code must lose.
	revoked, err = s.RevokeAuthorizationCode(ctx, code)
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestTokenLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	token := &grant.Token{
		AccessToken:           "at-1",
		AccessTokenExpiresAt:  time.Now().Add(time.Hour).UTC().Truncate(time.Second),
		RefreshToken:          "rt-1",
		RefreshTokenExpiresAt: time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second),
		Scope:                 "read",
		Client:                &grant.Client{ID: "c1"},
		User:                  &grant.User{ID: "u1"},
	}
	_, err := s.SaveToken(ctx, token, token.Client, token.User)
	require.NoError(t, err)

	byRefresh, err := s.GetRefreshToken(ctx, "rt-1")
	require.NoError(t, err)
	assert.Equal(t, "at-1", byRefresh.AccessToken)
	assert.Equal(t, "c1", byRefresh.Client.ID)

	byAccess, err := s.GetByAccess(ctx, "at-1")
	require.NoError(t, err)
	assert.Equal(t, "rt-1", byAccess.RefreshToken)

	revoked, err := s.RevokeRefreshToken(ctx, token)
	require.NoError(t, err)
	assert.True(t, revoked)

	// The revoked row is retained but no longer served.
	_, err = s.GetRefreshToken(ctx, "rt-1")
	assert.ErrorIs(t, err, grant.ErrNotFound)
	_, err = s.GetByAccess(ctx, "at-1")
	assert.ErrorIs(t, err, grant.ErrNotFound)

	revoked, err = s.RevokeRefreshToken(ctx, token)
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestEndToEndGrantFlow(t *testing.T) {
	s := newTestStore(t, WithDefaultScope("read"))
	client := &grant.Client{ID: "c1", GrantTypes: []string{"authorization_code"}}

	require.NoError(t, s.CreateCode(context.Background(), &grant.AuthorizationCode{
		Code:      "abc123",
		Client:    client,
		User:      &grant.User{ID: "u1"},
		ExpiresAt: time.Now().Add(time.Minute),
	}))

	g, err := grant.NewAuthorizationCodeGrant(grant.Options{
		Codes:  s,
		Tokens: s,
		Scopes: s,
	})
	require.NoError(t, err)

	req := &grant.TokenRequest{
		GrantType: "authorization_code",
		Body:      map[string]string{"code": "abc123"},
	}
	token, err := g.Handle(context.Background(), req, client)
	require.NoError(t, err)
	assert.NotEmpty(t, token.AccessToken)
	assert.Equal(t, "read", token.Scope)

	// The code was consumed on issuance.
	_, err = g.Handle(context.Background(), req, client)
	require.Error(t, err)

	// The issued token is retrievable.
	stored, err := s.GetByAccess(context.Background(), token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", stored.User.ID)
}

func TestValidateScope(t *testing.T) {
	s := newTestStore(t, WithDefaultScope("read"))
	restricted := &grant.Client{ID: "c1", Scopes: []string{"read"}}

	scope, err := s.ValidateScope(context.Background(), nil, restricted, "")
	require.NoError(t, err)
	assert.Equal(t, "read", scope)

	_, err = s.ValidateScope(context.Background(), nil, restricted, "admin")
	assert.ErrorIs(t, err, grant.ErrScopeRejected)
}

func TestStorageFaults(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	s := NewWithDB(db)
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()

	mock.ExpectQuery("SELECT value FROM grant_codes WHERE code = ?").
		WithArgs("abc123").
		WillReturnError(assert.AnError)
	_, err = s.GetAuthorizationCode(ctx, "abc123")
	require.Error(t, err)
	assert.NotErrorIs(t, err, grant.ErrNotFound)

	mock.ExpectExec("DELETE FROM grant_codes WHERE code = ?").
		WithArgs("abc123").
		WillReturnError(assert.AnError)
	revoked, err := s.RevokeAuthorizationCode(ctx, &grant.AuthorizationCode{Code: "abc123"})
	require.Error(t, err)
	assert.False(t, revoked)

	mock.ExpectExec("INSERT INTO grant_tokens (access, refresh, value) VALUES (?, ?, ?)").
		WithArgs("at-1", nil, sqlmock.AnyArg()).
		WillReturnError(assert.AnError)
	_, err = s.SaveToken(ctx, &grant.Token{AccessToken: "at-1"}, nil, nil)
	require.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCorruptStoredRecord(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	s := NewWithDB(db)
	t.Cleanup(func() { s.Close() })

	mock.ExpectQuery("SELECT value FROM grant_codes WHERE code = ?").
		WithArgs("abc123").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow([]byte("not json")))

	_, err = s.GetAuthorizationCode(context.Background(), "abc123")
	require.Error(t, err)
	assert.NotErrorIs(t, err, grant.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
