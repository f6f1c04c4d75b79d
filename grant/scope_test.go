package grant

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAndFormatScopes(t *testing.T) {
	assert.Nil(t, ParseScopes(""))
	assert.Equal(t, []string{"read"}, ParseScopes("read"))
	assert.Equal(t, []string{"read", "write"}, ParseScopes("read  write"))

	assert.Equal(t, "read write", FormatScopes([]string{"read", "write"}))
	assert.Equal(t, "", FormatScopes(nil))
}

func TestHasScope(t *testing.T) {
	assert.True(t, HasScope("read write", "write"))
	assert.False(t, HasScope("read write", "admin"))
	assert.False(t, HasScope("", "read"))
}
