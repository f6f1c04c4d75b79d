package grant

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Client is a registered application permitted to request tokens. Clients
// are created and destroyed by client registration, which is outside this
// core; flows treat them as read-only input.
type Client struct {
	// ID is the unique client identifier.
	ID string
	// SecretHash is the bcrypt hash of the client secret. Empty for
	// public clients.
	SecretHash []byte
	// Name is a human-readable name for the client.
	Name string
	// GrantTypes lists the grant types the client may use.
	GrantTypes []string
	// RedirectURIs is the list of allowed redirect URIs for the
	// authorization code flow.
	RedirectURIs []string
	// Scopes is the list of scopes the client may be granted. Empty
	// means unrestricted.
	Scopes []string
	// Public indicates a client without a secret (mobile/SPA apps).
	Public bool
	// CreatedAt is when the client was registered.
	CreatedAt time.Time
}

// VerifySecret reports whether the presented secret matches the stored
// hash. Client authentication belongs to the transport layer; this helper
// exists so embedding servers share one comparison.
func (c *Client) VerifySecret(secret string) bool {
	if len(c.SecretHash) == 0 {
		return false
	}
	return bcrypt.CompareHashAndPassword(c.SecretHash, []byte(secret)) == nil
}

// HashSecret produces a bcrypt hash suitable for Client.SecretHash.
func HashSecret(secret string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
}

// User is the resource owner who authorized a client. Profile data is
// opaque to the grant core.
type User struct {
	ID      string
	Profile map[string]string
}

// AuthorizationCode is a single-use, time-boxed proof that a user
// authorized a client for a scope. It is created by the authorization
// endpoint and consumed exactly once here.
type AuthorizationCode struct {
	// Code is the opaque code string handed to the client.
	Code string
	// Client the code was issued to.
	Client *Client
	// User who granted the authorization.
	User *User
	// Scope granted at issuance, space separated.
	Scope string
	// ExpiresAt is the absolute expiry of the code.
	ExpiresAt time.Time
	// RedirectURI recorded at issuance, empty if the authorization
	// request omitted it.
	RedirectURI string
}

// Token is the issued credential pair returned to the client. Tokens are
// assembled once and never mutated afterwards; the persistence provider
// owns the canonical stored form.
type Token struct {
	AccessToken           string
	AccessTokenExpiresAt  time.Time
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
	// Scope actually granted, space separated.
	Scope string
	// AuthorizationCode that authorized this token, if any.
	AuthorizationCode string
	Client            *Client
	User              *User
}
