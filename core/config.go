package core

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Body encodings negotiated with the REST service.
const (
	FormatJSON        = "json"
	FormatMessagePack = "msgpack"
)

// TokenParamsConfig holds the default token parameters applied to every
// token request before caller overrides.
type TokenParamsConfig struct {
	Capability string `koanf:"capability" mapstructure:"capability"`
	ClientID   string `koanf:"client_id" mapstructure:"client_id"`
	TTL        int64  `koanf:"ttl" mapstructure:"ttl"`
}

// Config is the read-only client configuration surface. The SDK never
// mutates a Config after construction; per-call overrides are applied on
// builder copies.
type Config struct {
	// Key is an API key of the form "<name>:<secret>".
	Key string `koanf:"key" mapstructure:"key"`

	// Token is a literal bearer token used when no key or callback is
	// configured.
	Token string `koanf:"token" mapstructure:"token"`

	ClientID string `koanf:"client_id" mapstructure:"client_id"`

	// RestURL is the base endpoint for all REST requests.
	RestURL string `koanf:"rest_url" mapstructure:"rest_url"`

	// AuthURL, when set, names an endpoint that issues tokens for this
	// client. AuthMethod, AuthHeaders and AuthParams shape that request.
	AuthURL     string            `koanf:"auth_url" mapstructure:"auth_url"`
	AuthMethod  string            `koanf:"auth_method" mapstructure:"auth_method"`
	AuthHeaders map[string]string `koanf:"auth_headers" mapstructure:"auth_headers"`
	AuthParams  map[string]string `koanf:"auth_params" mapstructure:"auth_params"`

	// UseTokenAuth forces token auth even when a key is configured.
	UseTokenAuth bool `koanf:"use_token_auth" mapstructure:"use_token_auth"`

	// Format selects the wire encoding for request and response bodies.
	Format string `koanf:"format" mapstructure:"format"`

	DefaultTokenParams *TokenParamsConfig `koanf:"default_token_params" mapstructure:"default_token_params"`
}

func DefaultConfig() Config {
	return Config{
		RestURL:    "https://rest.pubsub.io",
		AuthMethod: http.MethodGet,
		Format:     FormatMessagePack,
	}
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.RestURL) == "" {
		return fmt.Errorf("core: rest_url is required")
	}
	if _, err := url.Parse(strings.TrimSpace(c.RestURL)); err != nil {
		return fmt.Errorf("core: invalid rest_url: %w", err)
	}
	if key := strings.TrimSpace(c.Key); key != "" && !strings.Contains(key, ":") {
		return fmt.Errorf("core: key must be of the form <name>:<secret>")
	}
	if c.AuthURL != "" {
		if _, err := url.Parse(strings.TrimSpace(c.AuthURL)); err != nil {
			return fmt.Errorf("core: invalid auth_url: %w", err)
		}
	}
	switch strings.ToUpper(strings.TrimSpace(c.AuthMethod)) {
	case "", http.MethodGet, http.MethodPost:
	default:
		return fmt.Errorf("core: auth_method must be GET or POST, got %q", c.AuthMethod)
	}
	switch strings.ToLower(strings.TrimSpace(c.Format)) {
	case "", FormatJSON, FormatMessagePack:
	default:
		return fmt.Errorf("core: format must be %q or %q, got %q", FormatJSON, FormatMessagePack, c.Format)
	}
	return nil
}
