package transport

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-pubsub-rest/core"
)

// Every outbound request carries the protocol version expected by the
// REST service.
const (
	VersionHeader = "X-PubSub-Version"
	Version       = "1.2"
)

const defaultClientTimeout = 30 * time.Second

// Default ceiling on decoded response bodies, matching the size guard
// applied by the service itself.
const defaultResponseBodyLimit int64 = 10 << 20 // 10 MiB

// HTTPDoer executes a single HTTP request. *http.Client satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Authenticator attaches authentication material to an outgoing request.
// It is applied when the request is built, including the derived request
// for each follow-up page of a paginated response.
type Authenticator interface {
	Authenticate(req *http.Request) error
}

// Client is a low-level HTTP client for the REST API. It is safe for
// concurrent use; every call produces an independent RequestBuilder.
type Client struct {
	httpClient           HTTPDoer
	baseURL              *url.URL
	format               Format
	defaultHeaders       map[string]string
	maxResponseBodyBytes int64
	logger               core.Logger
}

type ClientOption func(*Client)

func WithHTTPDoer(doer HTTPDoer) ClientOption {
	return func(c *Client) {
		if doer != nil {
			c.httpClient = doer
		}
	}
}

func WithFormat(format Format) ClientOption {
	return func(c *Client) {
		if format.valid() {
			c.format = format
		}
	}
}

func WithDefaultHeader(key string, value string) ClientOption {
	return func(c *Client) {
		if strings.TrimSpace(key) != "" {
			c.defaultHeaders[key] = value
		}
	}
}

func WithResponseBodyLimit(limit int64) ClientOption {
	return func(c *Client) {
		if limit > 0 {
			c.maxResponseBodyBytes = limit
		}
	}
}

func WithLogger(logger core.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient builds a Client rooted at the given base URL.
func NewClient(baseURL string, options ...ClientOption) (*Client, error) {
	parsed, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, core.WrapError(err, core.ErrCodeBadRequest, "transport: invalid base url")
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, core.NewError(core.ErrCodeBadRequest, "transport: base url requires a scheme and host")
	}

	_, logger := core.ResolveLogger("pubsub.transport", nil, nil)
	client := &Client{
		httpClient:           &http.Client{Timeout: defaultClientTimeout},
		baseURL:              parsed,
		format:               FormatMessagePack,
		defaultHeaders:       map[string]string{},
		maxResponseBodyBytes: defaultResponseBodyLimit,
		logger:               logger,
	}
	for _, option := range options {
		option(client)
	}
	return client, nil
}

// Request starts building a request against a path below the client's
// base URL.
func (c *Client) Request(method string, path string) *RequestBuilder {
	target := *c.baseURL
	target.Path = path
	target.RawQuery = ""
	return c.RequestURL(method, &target)
}

// RequestURL starts building a request against an absolute URL, typically
// an externally configured token endpoint.
func (c *Client) RequestURL(method string, target *url.URL) *RequestBuilder {
	builder := &RequestBuilder{
		client:  c,
		method:  strings.ToUpper(strings.TrimSpace(method)),
		headers: http.Header{},
		query:   url.Values{},
		format:  c.format,
	}
	if builder.method == "" {
		builder.method = http.MethodGet
	}
	if target == nil {
		builder.err = core.NewError(core.ErrCodeBadRequest, "transport: request url is required")
		return builder
	}
	cloned := *target
	builder.url = &cloned
	return builder
}

func (c *Client) logFields(message string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logger := c.logger
	if fieldsLogger, ok := logger.(core.FieldsLogger); ok {
		fieldsLogger.WithFields(fields).Debug(message)
		return
	}
	logger.Debug(message)
}
