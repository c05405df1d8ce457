package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/goliatone/go-pubsub-rest/core"
)

// RequestBuilder accumulates everything needed to issue a single request:
// method, URL, additive query parameters, headers, an encoded body and an
// optional Authenticator applied at build time. Builder errors are held
// until Send or build so callers can chain without checking each step.
type RequestBuilder struct {
	client  *Client
	method  string
	url     *url.URL
	query   url.Values
	headers http.Header
	body    []byte
	stream  io.Reader
	format  Format
	auth    Authenticator
	err     error
}

// Format overrides the client's default body encoding for this request.
func (b *RequestBuilder) Format(format Format) *RequestBuilder {
	if format.valid() {
		b.format = format
	}
	return b
}

// Param adds a query parameter. Parameters accumulate; existing values for
// the same key are preserved.
func (b *RequestBuilder) Param(key string, value string) *RequestBuilder {
	if strings.TrimSpace(key) != "" {
		b.query.Add(key, value)
	}
	return b
}

// Params adds a set of query parameters.
func (b *RequestBuilder) Params(params map[string]string) *RequestBuilder {
	for key, value := range params {
		b.Param(key, value)
	}
	return b
}

// Header sets a request header.
func (b *RequestBuilder) Header(key string, value string) *RequestBuilder {
	if strings.TrimSpace(key) != "" {
		b.headers.Set(key, value)
	}
	return b
}

// Headers merges a set of request headers.
func (b *RequestBuilder) Headers(headers http.Header) *RequestBuilder {
	for key, values := range headers {
		for _, value := range values {
			b.headers.Add(key, value)
		}
	}
	return b
}

// Body encodes the given value in the request format and sets it as the
// request body along with the matching Content-Type.
func (b *RequestBuilder) Body(value any) *RequestBuilder {
	if b.err != nil {
		return b
	}
	var (
		data []byte
		err  error
	)
	switch b.format {
	case FormatJSON:
		data, err = json.Marshal(value)
	default:
		data, err = msgpack.Marshal(value)
	}
	if err != nil {
		b.err = core.WrapError(err, core.ErrCodeBadRequest, "transport: encode request body")
		return b
	}
	b.body = data
	b.headers.Set("Content-Type", b.format.ContentType())
	return b
}

// BodyStream sets a raw streaming body. Streamed requests cannot be cloned
// and are therefore not pageable.
func (b *RequestBuilder) BodyStream(reader io.Reader, contentType string) *RequestBuilder {
	b.stream = reader
	if strings.TrimSpace(contentType) != "" {
		b.headers.Set("Content-Type", contentType)
	}
	return b
}

// Auth attaches an Authenticator invoked when the request is built.
func (b *RequestBuilder) Auth(auth Authenticator) *RequestBuilder {
	b.auth = auth
	return b
}

// Send builds and executes the request.
func (b *RequestBuilder) Send(ctx context.Context) (*Response, error) {
	req, err := b.build(ctx)
	if err != nil {
		return nil, err
	}
	return req.send(ctx)
}

func (b *RequestBuilder) build(ctx context.Context) (*Request, error) {
	if b.err != nil {
		return nil, b.err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	target := *b.url
	merged := target.Query()
	for key, values := range b.query {
		for _, value := range values {
			merged.Add(key, value)
		}
	}
	target.RawQuery = merged.Encode()

	var body io.Reader
	if b.stream != nil {
		body = b.stream
	} else if b.body != nil {
		body = bytes.NewReader(b.body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, b.method, target.String(), body)
	if err != nil {
		return nil, core.WrapError(err, core.ErrCodeBadRequest, "transport: create http request")
	}
	for key, value := range b.client.defaultHeaders {
		httpReq.Header.Set(key, value)
	}
	for key, values := range b.headers {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}
	httpReq.Header.Set(VersionHeader, Version)

	if b.auth != nil {
		if err := b.auth.Authenticate(httpReq); err != nil {
			return nil, err
		}
	}

	return &Request{
		client:   b.client,
		inner:    httpReq,
		body:     b.body,
		streamed: b.stream != nil,
	}, nil
}

// Request is a built, ready-to-send request. It retains the encoded body
// so follow-up page requests can be derived from it.
type Request struct {
	client   *Client
	inner    *http.Request
	body     []byte
	streamed bool
}

// clone copies the request's method, URL and headers so pagination can
// derive the next page request before the original is consumed. Streamed
// bodies cannot be replayed, so such requests are not pageable.
func (r *Request) clone() (*Request, error) {
	if r.streamed {
		return nil, core.NewError(core.ErrCodeBadRequest, "not a pageable request")
	}
	cloned := r.inner.Clone(r.inner.Context())
	if r.body != nil {
		cloned.Body = io.NopCloser(bytes.NewReader(r.body))
		cloned.ContentLength = int64(len(r.body))
	}
	return &Request{
		client: r.client,
		inner:  cloned,
		body:   r.body,
	}, nil
}

func (r *Request) send(ctx context.Context) (*Response, error) {
	httpReq := r.inner
	if ctx != nil {
		httpReq = httpReq.WithContext(ctx)
	}

	requestID := uuid.NewString()
	startedAt := time.Now().UTC()
	r.client.logFields("request dispatched", map[string]any{
		"request_id": requestID,
		"method":     httpReq.Method,
		"url":        httpReq.URL.String(),
	})

	httpRes, err := r.client.httpClient.Do(httpReq)
	if err != nil {
		return nil, core.WrapError(err, core.ErrCodeServerError, "transport: execute http request")
	}

	r.client.logFields("response received", map[string]any{
		"request_id":  requestID,
		"status_code": httpRes.StatusCode,
		"duration_ms": time.Since(startedAt).Milliseconds(),
	})

	// Drain and close the body before handing the response out; decodes
	// read the buffered copy, and a response the caller never decodes
	// does not pin the connection.
	res := newResponse(httpRes, r.client.maxResponseBodyBytes)
	_, readErr := res.Bytes()

	if httpRes.StatusCode >= 200 && httpRes.StatusCode < 300 {
		if readErr != nil {
			return nil, readErr
		}
		return res, nil
	}
	return nil, decodeErrorResponse(res)
}

// decodeErrorResponse maps a non-2xx response onto the client error
// taxonomy: a structured error body when the service provides one, a
// generic error carrying the original status otherwise.
func decodeErrorResponse(res *Response) error {
	statusCode := res.StatusCode()
	var envelope struct {
		Error struct {
			Code       int    `json:"code" msgpack:"code"`
			Message    string `json:"message" msgpack:"message"`
			StatusCode int    `json:"statusCode" msgpack:"statusCode"`
		} `json:"error" msgpack:"error"`
	}
	if err := res.Decode(&envelope); err != nil || envelope.Error.Code == 0 {
		cause := err
		if cause == nil {
			cause = fmt.Errorf("response body carried no error details")
		}
		return core.NewErrorWithStatus(
			core.ErrCodeServerError,
			fmt.Sprintf("Unexpected error: %s", core.ErrorMessage(cause)),
			statusCode,
		)
	}
	if envelope.Error.StatusCode == 0 {
		envelope.Error.StatusCode = statusCode
	}
	return core.NewErrorWithStatus(envelope.Error.Code, envelope.Error.Message, envelope.Error.StatusCode)
}
