// Package grantkit provides a transport-agnostic OAuth2 grant-processing
// core. The domain logic lives in the grant package; this package holds
// application level configuration shared by embedding servers.
package grantkit

import (
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/dpup/grantkit/internal/config"
)

// Filename of the standard configuration file.
const ConfigFile = "grantkit.yaml"

// Config is a global koanf instance used to access application level
// configuration options.
//
// Config is loaded in the following order (later sources override earlier):
// 1. Built-in defaults (in init())
// 2. Auto-discovered grantkit.yaml (in init())
// 3. Environment variables with GK__ prefix (in init())
// 4. Additional sources loaded via LoadConfigFile() or LoadConfigDefaults()
//
// Environment variable transformation:
//   - GK__GRANT__ACCESS_TOKEN_LIFETIME → grant.accessTokenLifetime
//   - GK__GRANT__ISSUE_REFRESH_TOKENS → grant.issueRefreshTokens
var Config = koanf.New(".")

func init() {
	// Built-in defaults. Lifetimes follow common practice for bearer
	// credentials: short lived access tokens, two week refresh tokens.
	LoadConfigDefaults(map[string]interface{}{
		"grant.accessTokenLifetime":  time.Hour.String(),
		"grant.refreshTokenLifetime": (14 * 24 * time.Hour).String(),
		"grant.issueRefreshTokens":   true,
	})

	// Look for a grantkit.yaml file in the current directory or any parent.
	if cfg := config.SearchForConfig(ConfigFile, "."); cfg != "" {
		if err := Config.Load(file.Provider(cfg), yaml.Parser()); err != nil {
			panic("error loading config: " + err.Error())
		}
	}

	// Load environment variables with the prefix GK__.
	if err := Config.Load(env.Provider("GK__", ".", config.TransformEnv), nil); err != nil {
		panic("error loading env config: " + err.Error())
	}
}

// LoadConfigFile loads additional configuration from a YAML file into the
// global Config instance. Call this before constructing grant types.
//
// Example:
//
//	grantkit.LoadConfigFile("./app.yaml")
//	g, err := grant.NewAuthorizationCodeGrant(opts)
func LoadConfigFile(path string) {
	if err := Config.Load(file.Provider(path), yaml.Parser()); err != nil {
		panic("error loading config file '" + path + "': " + err.Error())
	}
}

// LoadConfigDefaults loads default configuration values into the global
// Config instance. Call this before constructing grant types to provide
// application-specific defaults that can be overridden by files or env
// vars.
func LoadConfigDefaults(defaults map[string]interface{}) {
	if err := Config.Load(confmap.Provider(defaults, "."), nil); err != nil {
		panic("error loading config defaults: " + err.Error())
	}
}

// AccessTokenLifetime returns the configured access token lifetime.
func AccessTokenLifetime() time.Duration {
	return Config.Duration("grant.accessTokenLifetime")
}

// RefreshTokenLifetime returns the configured refresh token lifetime.
func RefreshTokenLifetime() time.Duration {
	return Config.Duration("grant.refreshTokenLifetime")
}

// IssueRefreshTokens returns whether flows should mint refresh tokens by
// default.
func IssueRefreshTokens() bool {
	return Config.Bool("grant.issueRefreshTokens")
}
