// Package sqlitestore provides a SQLite implementation of the grant
// persistence provider.
//
// Records are stored as JSON values keyed by their credential string, the
// tables are created optimistically on initialization. Single-use
// semantics rely on SQLite's atomicity: revocation is a conditional
// write, and the reported row count decides whether this caller performed
// the invalidation.
//
// Examples:
//
//	store := sqlitestore.New("file:grants.db")
//
//	store := sqlitestore.New(":memory:")
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dpup/grantkit/grant"
)

// Option is a functional option for configuring the store.
type Option func(*Store)

// WithDefaultScope sets the scope granted when a request carries none.
func WithDefaultScope(scope string) Option {
	return func(s *Store) {
		s.defaultScope = scope
	}
}

// New returns a store that provides sqlite backed persistence for grants.
// Any errors opening the database or creating tables are considered
// non-recoverable and will panic.
func New(conn string, opts ...Option) *Store {
	db, err := sql.Open("sqlite3", conn)
	if err != nil {
		panic("failed to open sqlite connection: " + err.Error())
	}
	s := NewWithDB(db, opts...)
	s.ensureTables()
	return s
}

// NewWithDB wraps an existing database handle. Tables are not created;
// callers own the schema. Primarily useful for tests.
func NewWithDB(db *sql.DB, opts ...Option) *Store {
	s := &Store{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store implements every grant provider capability on top of SQLite.
type Store struct {
	db *sql.DB

	defaultScope string
}

func (s *Store) ensureTables() {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS grant_codes (
			code TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS grant_tokens (
			access TEXT PRIMARY KEY,
			refresh TEXT,
			revoked INTEGER NOT NULL DEFAULT 0,
			value BLOB NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS grant_tokens_refresh ON grant_tokens (refresh)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			panic("failed to initialize grant tables: " + err.Error())
		}
	}
}

// CreateCode persists an authorization code, standing in for the
// authorization endpoint which is outside the grant core.
func (s *Store) CreateCode(ctx context.Context, code *grant.AuthorizationCode) error {
	value, err := json.Marshal(code)
	if err != nil {
		return fmt.Errorf("marshal authorization code: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO grant_codes (code, value) VALUES (?, ?)", code.Code, value)
	if err != nil {
		return fmt.Errorf("insert authorization code: %w", err)
	}
	return nil
}

// GetAuthorizationCode implements grant.CodeStore.
func (s *Store) GetAuthorizationCode(ctx context.Context, code string) (*grant.AuthorizationCode, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM grant_codes WHERE code = ?", code).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, grant.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query authorization code: %w", err)
	}

	var ac grant.AuthorizationCode
	if err := json.Unmarshal(value, &ac); err != nil {
		return nil, fmt.Errorf("unmarshal authorization code: %w", err)
	}
	return &ac, nil
}

// RevokeAuthorizationCode implements grant.CodeStore. The DELETE is
// atomic; concurrent redemptions of the same code see a row count of one
// exactly once.
func (s *Store) RevokeAuthorizationCode(ctx context.Context, code *grant.AuthorizationCode) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM grant_codes WHERE code = ?", code.Code)
	if err != nil {
		return false, fmt.Errorf("delete authorization code: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete authorization code: %w", err)
	}
	return n > 0, nil
}

// SaveToken implements grant.TokenStore.
func (s *Store) SaveToken(ctx context.Context, token *grant.Token, _ *grant.Client, _ *grant.User) (*grant.Token, error) {
	value, err := json.Marshal(token)
	if err != nil {
		return nil, fmt.Errorf("marshal token: %w", err)
	}

	var refresh sql.NullString
	if token.RefreshToken != "" {
		refresh = sql.NullString{String: token.RefreshToken, Valid: true}
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO grant_tokens (access, refresh, value) VALUES (?, ?, ?)",
		token.AccessToken, refresh, value)
	if err != nil {
		return nil, fmt.Errorf("insert token: %w", err)
	}
	return token, nil
}

// GetRefreshToken implements grant.RefreshTokenStore.
func (s *Store) GetRefreshToken(ctx context.Context, refreshToken string) (*grant.Token, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM grant_tokens WHERE refresh = ? AND revoked = 0", refreshToken).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, grant.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query refresh token: %w", err)
	}

	var t grant.Token
	if err := json.Unmarshal(value, &t); err != nil {
		return nil, fmt.Errorf("unmarshal token: %w", err)
	}
	return &t, nil
}

// RevokeRefreshToken implements grant.RefreshTokenStore. Rotation marks
// the row revoked rather than deleting it, preserving an audit trail of
// consumed refresh tokens.
func (s *Store) RevokeRefreshToken(ctx context.Context, token *grant.Token) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE grant_tokens SET revoked = 1 WHERE refresh = ? AND revoked = 0",
		token.RefreshToken)
	if err != nil {
		return false, fmt.Errorf("revoke refresh token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("revoke refresh token: %w", err)
	}
	return n > 0, nil
}

// GetByAccess returns a stored token by its access token string. Used by
// resource servers embedding the store; not part of the grant contract.
func (s *Store) GetByAccess(ctx context.Context, access string) (*grant.Token, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM grant_tokens WHERE access = ? AND revoked = 0", access).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, grant.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query access token: %w", err)
	}

	var t grant.Token
	if err := json.Unmarshal(value, &t); err != nil {
		return nil, fmt.Errorf("unmarshal token: %w", err)
	}
	return &t, nil
}

// ValidateScope implements grant.ScopeValidator with the same allow-list
// policy as memstore: empty requests take the default scope, and clients
// with no restrictions pass requests through.
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

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
