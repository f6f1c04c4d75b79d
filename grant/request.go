package grant

import (
	"net/http"
	"regexp"
)

// vschar matches RFC 6749 Appendix A's VSCHAR set: visible ASCII,
// non-space, non-DEL. Codes and refresh tokens must match it before any
// provider lookup happens.
var vschar = regexp.MustCompile(`^[\x21-\x7E]+$`)

// TokenRequest is the inbound request shape consumed from the transport
// layer: a grant_type plus the parsed body and query maps. The core never
// sees the raw HTTP request.
type TokenRequest struct {
	GrantType string
	Body      map[string]string
	Query     map[string]string
}

// Param returns a request parameter, preferring the body over the query
// string, matching RFC 6749's precedence for the token endpoint.
func (r *TokenRequest) Param(name string) string {
	if v, ok := r.Body[name]; ok && v != "" {
		return v
	}
	return r.Query[name]
}

// FromHTTP builds a TokenRequest from a parsed HTTP request. Provided as
// a convenience for embedding servers; the core itself only consumes the
// TokenRequest shape.
func FromHTTP(r *http.Request) (*TokenRequest, error) {
	if err := r.ParseForm(); err != nil {
		return nil, err
	}

	req := &TokenRequest{
		GrantType: r.PostForm.Get("grant_type"),
		Body:      make(map[string]string, len(r.PostForm)),
		Query:     make(map[string]string, len(r.URL.Query())),
	}
	for k, vs := range r.PostForm {
		if len(vs) > 0 {
			req.Body[k] = vs[0]
		}
	}
	for k, vs := range r.URL.Query() {
		if len(vs) > 0 {
			req.Query[k] = vs[0]
		}
	}
	return req, nil
}

// validCredential reports whether a presented code or token string is
// restricted to the VSCHAR charset.
func validCredential(s string) bool {
	return vschar.MatchString(s)
}
