package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/goliatone/go-pubsub-rest/core"
	"github.com/goliatone/go-pubsub-rest/transport"
)

// Callback supplies a Token on demand during a token request. Built-in
// implementations cover an API key (returns a self-signed TokenRequest),
// a static Token (returned unchanged) and a token-issuing URL; CallbackFunc
// is the open extension point for custom acquisition logic.
type Callback interface {
	Token(ctx context.Context, params TokenParams) (Token, error)
}

// CallbackFunc adapts a function to the Callback interface.
type CallbackFunc func(ctx context.Context, params TokenParams) (Token, error)

func (f CallbackFunc) Token(ctx context.Context, params TokenParams) (Token, error) {
	return f(ctx, params)
}

// Token implements Callback for a Key: the key signs the params and the
// resulting TokenRequest is exchanged by the caller. Never performs I/O.
func (k Key) Token(_ context.Context, params TokenParams) (Token, error) {
	return k.Sign(params)
}

// StaticToken returns a Callback that yields the given token unchanged,
// without network I/O.
func StaticToken(token Token) Callback {
	return CallbackFunc(func(context.Context, TokenParams) (Token, error) {
		return token, nil
	})
}

// URLCallback requests tokens from an external URL. The response is
// interpreted strictly by Content-Type: JSON decodes to a Token shape,
// text/plain and application/jwt are literal tokens, anything else is an
// error.
type URLCallback struct {
	client  *transport.Client
	url     *url.URL
	method  string
	headers http.Header
	params  map[string]string
}

// URLCallbackConfig shapes the token request issued by a URLCallback.
type URLCallbackConfig struct {
	Method  string
	Headers http.Header
	Params  map[string]string
}

// NewURLCallback builds a URLCallback issuing unauthenticated requests
// through the given transport client.
func NewURLCallback(client *transport.Client, rawURL string, cfg URLCallbackConfig) (*URLCallback, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, core.WrapError(err, core.ErrCodeBadRequest, "auth: invalid auth url")
	}
	method := strings.ToUpper(strings.TrimSpace(cfg.Method))
	if method == "" {
		method = http.MethodGet
	}
	return &URLCallback{
		client:  client,
		url:     parsed,
		method:  method,
		headers: cfg.Headers,
		params:  cfg.Params,
	}, nil
}

func (c *URLCallback) Token(ctx context.Context, _ TokenParams) (Token, error) {
	builder := c.client.RequestURL(c.method, c.url)
	if len(c.headers) > 0 {
		builder.Headers(c.headers)
	}
	if len(c.params) > 0 {
		builder.Params(c.params)
	}
	res, err := builder.Send(ctx)
	if err != nil {
		return nil, err
	}

	contentType := res.ContentType()
	if contentType == "" {
		return nil, core.NewError(core.ErrCodeTokenFailed, "authUrl response is missing a content-type header")
	}
	switch contentType {
	case "application/json":
		data, err := res.Bytes()
		if err != nil {
			return nil, err
		}
		return DecodeToken(data, transport.FormatJSON)
	case "text/plain", "application/jwt":
		text, err := res.Text()
		if err != nil {
			return nil, err
		}
		return LiteralToken(text), nil
	default:
		return nil, core.NewError(
			core.ErrCodeTokenFailed,
			fmt.Sprintf("authUrl responded with unacceptable content-type %s, should be either text/plain, application/jwt or application/json", contentType),
		)
	}
}
