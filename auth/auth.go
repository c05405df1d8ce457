package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/goliatone/go-pubsub-rest/core"
	"github.com/goliatone/go-pubsub-rest/transport"
)

// Tokens longer than this are rejected with a 40170 error regardless of
// which callback produced them.
const maxTokenLength = 128 * 1024

// Credential is the resolved authentication material attached to a
// request: an API key (HTTP Basic) or a bearer token.
type Credential struct {
	key   *Key
	token string
}

func KeyCredential(key Key) Credential {
	return Credential{key: &key}
}

func TokenCredential(token string) Credential {
	return Credential{token: token}
}

// Apply sets the Authorization header for this credential.
func (c Credential) Apply(req *http.Request) {
	if c.key != nil {
		req.SetBasicAuth(c.key.Name, c.key.Value)
		return
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
}

// Auth resolves credentials, builds signed token requests, exchanges them
// for tokens and attaches the resulting credential to outgoing requests.
// It holds immutable configuration only; concurrent callers get
// independent builders and independent token exchanges.
type Auth struct {
	config   core.Config
	key      *Key
	client   *transport.Client
	callback Callback
	logger   core.Logger
}

type Option func(*Auth)

// WithCallback installs a custom token acquisition callback, taking
// priority over every configured source.
func WithCallback(callback Callback) Option {
	return func(a *Auth) {
		a.callback = callback
	}
}

func WithLogger(logger core.Logger) Option {
	return func(a *Auth) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New builds an Auth from the client configuration. A configured key is
// parsed eagerly so a malformed key fails construction, not the first
// request.
func New(cfg core.Config, client *transport.Client, options ...Option) (*Auth, error) {
	_, logger := core.ResolveLogger("pubsub.auth", nil, nil)
	a := &Auth{
		config: cfg,
		client: client,
		logger: logger,
	}
	if cfg.Key != "" {
		key, err := ParseKey(cfg.Key)
		if err != nil {
			return nil, err
		}
		a.key = &key
	}
	for _, option := range options {
		option(a)
	}
	return a, nil
}

// Authenticate implements transport.Authenticator. When a key is
// configured and token auth has not been forced, Basic auth is attached
// directly without a round trip; otherwise a token is requested and
// attached as Bearer auth.
func (a *Auth) Authenticate(req *http.Request) error {
	cred, err := a.credential(req.Context())
	if err != nil {
		return err
	}
	cred.Apply(req)
	return nil
}

func (a *Auth) credential(ctx context.Context) (Credential, error) {
	if a.key != nil && !a.config.UseTokenAuth {
		return KeyCredential(*a.key), nil
	}
	details, err := a.RequestToken().Send(ctx)
	if err != nil {
		return Credential{}, err
	}
	return TokenCredential(details.Token), nil
}

// CreateTokenRequest starts building a TokenRequest to be signed by the
// locally configured API key.
func (a *Auth) CreateTokenRequest() *CreateTokenRequestBuilder {
	builder := &CreateTokenRequestBuilder{key: a.key}
	if a.config.ClientID != "" {
		builder.ClientID(a.config.ClientID)
	}
	return builder
}

// RequestToken starts building a token request. The token source is
// resolved in strict priority order: custom callback, auth URL, local
// key, literal token. Configured default params and client ID are applied
// before caller overrides.
func (a *Auth) RequestToken() *RequestTokenBuilder {
	builder := &RequestTokenBuilder{auth: a}

	switch {
	case a.callback != nil:
		builder.callback = a.callback
	case a.config.AuthURL != "":
		callback, err := NewURLCallback(a.client, a.config.AuthURL, URLCallbackConfig{
			Method:  a.config.AuthMethod,
			Headers: headersFromMap(a.config.AuthHeaders),
			Params:  a.config.AuthParams,
		})
		if err != nil {
			builder.err = err
		} else {
			builder.callback = callback
		}
	case a.key != nil:
		builder.callback = *a.key
	case a.config.Token != "":
		builder.callback = StaticToken(LiteralToken(a.config.Token))
	}

	if defaults := a.config.DefaultTokenParams; defaults != nil {
		params := TokenParams{Capability: defaults.Capability}
		if defaults.ClientID != "" {
			clientID := defaults.ClientID
			params.ClientID = &clientID
		}
		if defaults.TTL != 0 {
			ttl := defaults.TTL
			params.TTL = &ttl
		}
		builder.params = params
	}
	if a.config.ClientID != "" {
		builder.ClientID(a.config.ClientID)
	}

	return builder
}

// exchange swaps a signed TokenRequest for TokenDetails via the service's
// requestToken endpoint. The exchange request itself is unauthenticated.
func (a *Auth) exchange(ctx context.Context, req *TokenRequest) (*TokenDetails, error) {
	res, err := a.client.
		Request(http.MethodPost, fmt.Sprintf("/keys/%s/requestToken", req.KeyName)).
		Body(req).
		Send(ctx)
	if err != nil {
		return nil, err
	}
	var details TokenDetails
	if err := res.Decode(&details); err != nil {
		return nil, err
	}
	return &details, nil
}

func (a *Auth) logTokenOutcome(operation string, err error) {
	if a.logger == nil {
		return
	}
	if err != nil {
		a.logger.Error(operation+" failed", "error", err.Error())
		return
	}
	a.logger.Info(operation + " succeeded")
}

func headersFromMap(values map[string]string) http.Header {
	if len(values) == 0 {
		return nil
	}
	headers := http.Header{}
	for key, value := range values {
		headers.Set(key, value)
	}
	return headers
}

// CreateTokenRequestBuilder builds and signs a TokenRequest with a local
// API key.
type CreateTokenRequestBuilder struct {
	key    *Key
	params TokenParams
}

// Key overrides the signing key.
func (b *CreateTokenRequestBuilder) Key(key Key) *CreateTokenRequestBuilder {
	b.key = &key
	return b
}

// Capability sets the requested capability.
func (b *CreateTokenRequestBuilder) Capability(capability string) *CreateTokenRequestBuilder {
	b.params.Capability = capability
	return b
}

// ClientID sets the requested client identity.
func (b *CreateTokenRequestBuilder) ClientID(clientID string) *CreateTokenRequestBuilder {
	b.params.ClientID = &clientID
	return b
}

// TTL sets the requested token lifetime in seconds.
func (b *CreateTokenRequestBuilder) TTL(ttl int64) *CreateTokenRequestBuilder {
	b.params.TTL = &ttl
	return b
}

// Timestamp pins the request timestamp, mainly for reproducible signing.
func (b *CreateTokenRequestBuilder) Timestamp(timestamp time.Time) *CreateTokenRequestBuilder {
	b.params.Timestamp = timestamp
	return b
}

// Params replaces the accumulated token params.
func (b *CreateTokenRequestBuilder) Params(params TokenParams) *CreateTokenRequestBuilder {
	b.params = params
	return b
}

// Sign signs and returns the TokenRequest.
func (b *CreateTokenRequestBuilder) Sign() (*TokenRequest, error) {
	if b.key == nil {
		return nil, core.NewError(core.ErrCodeKeyRequired, "API key is required to create signed token requests")
	}
	return b.params.sign(*b.key)
}

// RequestTokenBuilder requests a token from the resolved Callback,
// exchanging a returned TokenRequest when necessary.
type RequestTokenBuilder struct {
	auth     *Auth
	callback Callback
	params   TokenParams
	err      error
}

// Callback overrides the token source with a custom callback.
func (b *RequestTokenBuilder) Callback(callback Callback) *RequestTokenBuilder {
	b.callback = callback
	return b
}

// Key uses an API key as the token source.
func (b *RequestTokenBuilder) Key(key Key) *RequestTokenBuilder {
	return b.Callback(key)
}

// Token uses a literal or structured token as the token source.
func (b *RequestTokenBuilder) Token(token Token) *RequestTokenBuilder {
	return b.Callback(StaticToken(token))
}

// AuthURL uses a token-issuing URL as the token source.
func (b *RequestTokenBuilder) AuthURL(rawURL string, cfg URLCallbackConfig) *RequestTokenBuilder {
	callback, err := NewURLCallback(b.auth.client, rawURL, cfg)
	if err != nil {
		b.err = err
		return b
	}
	return b.Callback(callback)
}

// Params replaces the accumulated token params.
func (b *RequestTokenBuilder) Params(params TokenParams) *RequestTokenBuilder {
	b.params = params
	return b
}

// Capability sets the requested capability.
func (b *RequestTokenBuilder) Capability(capability string) *RequestTokenBuilder {
	b.params.Capability = capability
	return b
}

// ClientID sets the requested client identity.
func (b *RequestTokenBuilder) ClientID(clientID string) *RequestTokenBuilder {
	b.params.ClientID = &clientID
	return b
}

// TTL sets the requested token lifetime in seconds.
func (b *RequestTokenBuilder) TTL(ttl int64) *RequestTokenBuilder {
	b.params.TTL = &ttl
	return b
}

// Timestamp pins the request timestamp.
func (b *RequestTokenBuilder) Timestamp(timestamp time.Time) *RequestTokenBuilder {
	b.params.Timestamp = timestamp
	return b
}

// Send requests a token from the callback. A TokenRequest is exchanged
// with the service, a literal is wrapped, and TokenDetails pass through.
func (b *RequestTokenBuilder) Send(ctx context.Context) (*TokenDetails, error) {
	details, err := b.send(ctx)
	b.auth.logTokenOutcome("token request", err)
	return details, err
}

func (b *RequestTokenBuilder) send(ctx context.Context) (*TokenDetails, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.callback == nil {
		return nil, core.NewError(core.ErrCodeTokenUnrenewal, "no means provided to renew auth token")
	}

	token, err := b.callback.Token(ctx, b.params)
	if err != nil {
		// Normalize heterogeneous callback failures into a single
		// token-acquisition error kind.
		if core.ErrorCode(err) == core.ErrCodeBadRequest {
			return nil, core.NewErrorWithStatus(
				core.ErrCodeTokenFailed,
				core.ErrorMessage(err),
				http.StatusUnauthorized,
			)
		}
		return nil, err
	}

	var details *TokenDetails
	switch token := token.(type) {
	case *TokenRequest:
		details, err = b.auth.exchange(ctx, token)
		if err != nil {
			return nil, err
		}
	case *TokenDetails:
		details = token
	case LiteralToken:
		details = &TokenDetails{Token: string(token)}
	default:
		return nil, core.NewErrorWithStatus(
			core.ErrCodeTokenFailed,
			"auth callback returned no token",
			http.StatusUnauthorized,
		)
	}

	if len(details.Token) > maxTokenLength {
		return nil, core.NewErrorWithStatus(
			core.ErrCodeTokenFailed,
			fmt.Sprintf("Token string exceeded max permitted length (was %d bytes)", len(details.Token)),
			http.StatusUnauthorized,
		)
	}

	return details, nil
}
