// Package memstore provides an in-memory persistence provider for the
// grant core. It implements every capability interface and is suitable
// for tests, examples and single-process servers; durable deployments
// should use sqlitestore or a custom provider.
package memstore

import (
	"context"
	"sync"

	"github.com/dpup/grantkit/grant"
)

// Store is a mutex-guarded, map-backed provider. Code and refresh token
// revocation are atomic: across concurrent redemptions of the same
// credential exactly one caller observes a successful revocation.
type Store struct {
	mu              sync.Mutex
	codes           map[string]*grant.AuthorizationCode
	tokensByAccess  map[string]*grant.Token
	tokensByRefresh map[string]*grant.Token

	defaultScope string
}

// Option is a functional option for configuring the store.
type Option func(*Store)

// WithDefaultScope sets the scope granted when a request carries none.
func WithDefaultScope(scope string) Option {
	return func(s *Store) {
		s.defaultScope = scope
	}
}

// New returns an empty in-memory store.
func New(opts ...Option) *Store {
	s := &Store{
		codes:           make(map[string]*grant.AuthorizationCode),
		tokensByAccess:  make(map[string]*grant.Token),
		tokensByRefresh: make(map[string]*grant.Token),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddCode registers an authorization code, standing in for the
// authorization endpoint which is outside the grant core.
func (s *Store) AddCode(code *grant.AuthorizationCode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[code.Code] = code
}

// GetAuthorizationCode implements grant.CodeStore.
func (s *Store) GetAuthorizationCode(_ context.Context, code string) (*grant.AuthorizationCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.codes[code]
	if !ok {
		return nil, grant.ErrNotFound
	}
	return c, nil
}

// RevokeAuthorizationCode implements grant.CodeStore. The delete and the
// existence check happen under one lock, so a code can be revoked at most
// once.
func (s *Store) RevokeAuthorizationCode(_ context.Context, code *grant.AuthorizationCode) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.codes[code.Code]; !ok {
		return false, nil
	}
	delete(s.codes, code.Code)
	return true, nil
}

// SaveToken implements grant.TokenStore.
func (s *Store) SaveToken(_ context.Context, token *grant.Token, _ *grant.Client, _ *grant.User) (*grant.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token.AccessToken != "" {
		s.tokensByAccess[token.AccessToken] = token
	}
	if token.RefreshToken != "" {
		s.tokensByRefresh[token.RefreshToken] = token
	}
	return token, nil
}

// GetRefreshToken implements grant.RefreshTokenStore.
func (s *Store) GetRefreshToken(_ context.Context, refreshToken string) (*grant.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tokensByRefresh[refreshToken]
	if !ok {
		return nil, grant.ErrNotFound
	}
	return t, nil
}

// RevokeRefreshToken implements grant.RefreshTokenStore.
func (s *Store) RevokeRefreshToken(_ context.Context, token *grant.Token) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tokensByRefresh[token.RefreshToken]; !ok {
		return false, nil
	}
	delete(s.tokensByRefresh, token.RefreshToken)
	return true, nil
}

// GetByAccess returns a stored token by its access token string. Used by
// resource servers embedding the store; not part of the grant contract.
func (s *Store) GetByAccess(_ context.Context, access string) (*grant.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tokensByAccess[access]
	if !ok {
		return nil, grant.ErrNotFound
	}
	return t, nil
}

// ValidateScope implements grant.ScopeValidator. An empty request yields
// the configured default scope; otherwise every requested scope must be
// within the client's allow-list. Clients with no restrictions pass
// requests through unchanged.
func (s *Store) ValidateScope(_ context.Context, _ *grant.User, client *grant.Client, scope string) (string, error) {
	if scope == "" {
		return s.defaultScope, nil
	}
	if len(client.Scopes) == 0 {
		return scope, nil
	}

	allowed := make(map[string]bool, len(client.Scopes))
	for _, a := range client.Scopes {
		allowed[a] = true
	}
	for _, requested := range grant.ParseScopes(scope) {
		if !allowed[requested] {
			return "", grant.ErrScopeRejected
		}
	}
	return scope, nil
}
