// Package pubsub is a REST client SDK for a hosted pub/sub messaging
// service. It wires the credential resolution and token lifecycle in
// package auth to the paginated HTTP transport in package transport.
package pubsub

import (
	"context"

	"github.com/goliatone/go-pubsub-rest/auth"
	"github.com/goliatone/go-pubsub-rest/core"
	"github.com/goliatone/go-pubsub-rest/transport"
)

type Config = core.Config

type TokenParamsConfig = core.TokenParamsConfig

type Logger = core.Logger

type clientBuilder struct {
	httpClient      transport.HTTPDoer
	logger          core.Logger
	loggerProvider  core.LoggerProvider
	authCallback    auth.Callback
	configProvider  core.ConfigProvider
	optionsResolver core.OptionsResolver
}

type Option func(*clientBuilder)

func WithHTTPDoer(doer transport.HTTPDoer) Option {
	return func(b *clientBuilder) {
		b.httpClient = doer
	}
}

func WithLogger(logger core.Logger) Option {
	return func(b *clientBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider core.LoggerProvider) Option {
	return func(b *clientBuilder) {
		b.loggerProvider = provider
	}
}

// WithAuthCallback installs a custom token acquisition callback; it takes
// priority over every source named in the configuration.
func WithAuthCallback(callback auth.Callback) Option {
	return func(b *clientBuilder) {
		b.authCallback = callback
	}
}

// WithConfigLoader layers raw configuration values, typically file or
// environment sourced, between the defaults and the runtime Config.
func WithConfigLoader(loader core.RawConfigLoader) Option {
	return func(b *clientBuilder) {
		b.configProvider = core.NewCfgxConfigProvider(loader)
	}
}

func WithConfigProvider(provider core.ConfigProvider) Option {
	return func(b *clientBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver core.OptionsResolver) Option {
	return func(b *clientBuilder) {
		b.optionsResolver = resolver
	}
}

// Client is the entry point of the SDK. Endpoint builders hang off
// Request and the paginated helpers; Auth exposes the token lifecycle
// directly.
type Client struct {
	config core.Config
	rest   *transport.Client
	auth   *auth.Auth
}

// New resolves the effective configuration (defaults, loaded layer,
// runtime overrides) and builds the client.
func New(ctx context.Context, runtime Config, options ...Option) (*Client, error) {
	builder := clientBuilder{
		configProvider:  core.NewCfgxConfigProvider(nil),
		optionsResolver: core.GoOptionsResolver{},
	}
	for _, option := range options {
		option(&builder)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	defaults := core.DefaultConfig()
	loaded, err := builder.configProvider.Load(ctx, defaults)
	if err != nil {
		return nil, err
	}
	cfg, err := builder.optionsResolver.Resolve(defaults, loaded, runtime)
	if err != nil {
		return nil, err
	}

	_, logger := core.ResolveLogger("pubsub", builder.loggerProvider, builder.logger)

	transportOptions := []transport.ClientOption{
		transport.WithFormat(transport.ParseFormat(cfg.Format)),
		transport.WithLogger(logger),
	}
	if builder.httpClient != nil {
		transportOptions = append(transportOptions, transport.WithHTTPDoer(builder.httpClient))
	}
	rest, err := transport.NewClient(cfg.RestURL, transportOptions...)
	if err != nil {
		return nil, err
	}

	authOptions := []auth.Option{auth.WithLogger(logger)}
	if builder.authCallback != nil {
		authOptions = append(authOptions, auth.WithCallback(builder.authCallback))
	}
	authn, err := auth.New(cfg, rest, authOptions...)
	if err != nil {
		return nil, err
	}

	return &Client{config: cfg, rest: rest, auth: authn}, nil
}

// Auth exposes the token lifecycle operations.
func (c *Client) Auth() *auth.Auth {
	return c.auth
}

// Config returns the resolved client configuration.
func (c *Client) Config() core.Config {
	return c.config
}

// Request starts an authenticated request against a REST API path.
func (c *Client) Request(method string, path string) *transport.RequestBuilder {
	return c.rest.Request(method, path).Auth(c.auth)
}

// Transport exposes the underlying HTTP client for unauthenticated or
// externally targeted requests.
func (c *Client) Transport() *transport.Client {
	return c.rest
}

// Paginated wraps an authenticated request for lazy page iteration over
// items of type T.
func Paginated[T any](c *Client, method string, path string, handler transport.ItemHandler[T]) *transport.PaginatedRequestBuilder[T] {
	return transport.NewPaginatedRequest[T](c.Request(method, path), handler)
}
