// Package grant implements the grant-processing core of an OAuth2
// authorization server: the component that exchanges a previously issued
// credential for an access token, per RFC 6749.
//
// The package is transport agnostic. A surrounding server parses the HTTP
// request, authenticates the client, and dispatches to the Handler
// matching the grant_type parameter:
//
//	g, err := grant.NewAuthorizationCodeGrant(grant.Options{
//		Codes:  store,
//		Tokens: store,
//		Scopes: store,
//	})
//	if err != nil {
//		log.Fatal(err) // missing capability, fail fast
//	}
//	token, err := g.Handle(ctx, req, client)
//
// All durability and mutual exclusion is delegated to the persistence
// provider; the core owns no shared mutable state and holds no locks.
// Failures are typed (see the errors package) so the transport layer can
// map them to RFC 6749 error responses without string matching.
package grant

import (
	"context"

	"google.golang.org/grpc/codes"

	"github.com/dpup/grantkit/errors"
)

// Handler is the shared grant-type contract. Each flow variant configures
// what identifies the grantee and which eligibility checks apply, but all
// variants funnel into the same token-assembly step.
//
// The client has already been authenticated by the transport layer; Handle
// only binds the presented grant to it.
type Handler interface {
	Handle(ctx context.Context, req *TokenRequest, client *Client) (*Token, error)
}

var (
	// ErrNotFound is returned by providers when a looked-up record does
	// not exist. Flows translate it into an invalid_grant outcome.
	ErrNotFound = errors.NewC("record not found", codes.NotFound)

	// ErrScopeRejected is returned by providers when a requested scope is
	// not permitted for the user/client pair. Flows translate it into an
	// invalid_scope outcome.
	ErrScopeRejected = errors.NewC("scope rejected", codes.PermissionDenied)
)
