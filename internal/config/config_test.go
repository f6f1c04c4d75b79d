package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransformEnv(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"GK__GRANT__ACCESS_TOKEN_LIFETIME", "grant.accessTokenLifetime"},
		{"GK__GRANT__REFRESH_TOKEN_LIFETIME", "grant.refreshTokenLifetime"},
		{"GK__GRANT__ISSUE_REFRESH_TOKENS", "grant.issueRefreshTokens"},
		{"GK__NAME", "name"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, TransformEnv(tc.in))
	}
}

func TestSearchForConfig(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	cfg := filepath.Join(dir, "grantkit.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("grant:\n"), 0o644))

	assert.Equal(t, cfg, SearchForConfig("grantkit.yaml", sub))
	assert.Equal(t, "", SearchForConfig("does-not-exist.yaml", t.TempDir()))
}
