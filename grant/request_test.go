package grant

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamPrecedence(t *testing.T) {
	req := &TokenRequest{
		Body:  map[string]string{"redirect_uri": "https://body/cb"},
		Query: map[string]string{"redirect_uri": "https://query/cb", "state": "xyz"},
	}

	assert.Equal(t, "https://body/cb", req.Param("redirect_uri"))
	assert.Equal(t, "xyz", req.Param("state"))
	assert.Equal(t, "", req.Param("missing"))
}

func TestFromHTTP(t *testing.T) {
	body := strings.NewReader("grant_type=authorization_code&code=abc123&redirect_uri=https%3A%2F%2Fapp%2Fcb")
	r := httptest.NewRequest("POST", "/oauth/token?state=xyz", body)
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	req, err := FromHTTP(r)
	require.NoError(t, err)

	assert.Equal(t, "authorization_code", req.GrantType)
	assert.Equal(t, "abc123", req.Param("code"))
	assert.Equal(t, "https://app/cb", req.Param("redirect_uri"))
	assert.Equal(t, "xyz", req.Param("state"))
}

func TestValidCredential(t *testing.T) {
	valid := []string{"abc123", "a", "!~", "a-b_c.d", strings.Repeat("x", 512)}
	for _, s := range valid {
		assert.True(t, validCredential(s), "expected %q to be valid", s)
	}

	invalid := []string{"", "with space", "tab\there", "del\x7f", "é", "new\nline"}
	for _, s := range invalid {
		assert.False(t, validCredential(s), "expected %q to be invalid", s)
	}
}
