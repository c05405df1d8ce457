package transport

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/goliatone/go-pubsub-rest/core"
)

// Response wraps a successful HTTP response. The body is read once, on
// first access, and retained for subsequent decodes.
type Response struct {
	inner     *http.Response
	bodyLimit int64
	body      []byte
	bodyRead  bool
	bodyErr   error
}

func newResponse(res *http.Response, bodyLimit int64) *Response {
	if bodyLimit <= 0 {
		bodyLimit = defaultResponseBodyLimit
	}
	return &Response{inner: res, bodyLimit: bodyLimit}
}

// StatusCode returns the HTTP status of the response.
func (r *Response) StatusCode() int {
	return r.inner.StatusCode
}

// Header returns the response headers.
func (r *Response) Header() http.Header {
	return r.inner.Header
}

// ContentType returns the media type of the response body, stripped of
// parameters, or an empty string when the header is absent or malformed.
func (r *Response) ContentType() string {
	value := r.inner.Header.Get("Content-Type")
	if strings.TrimSpace(value) == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(value)
	if err != nil {
		return ""
	}
	return mediaType
}

// Bytes returns the raw response body.
func (r *Response) Bytes() ([]byte, error) {
	if r.bodyRead {
		return r.body, r.bodyErr
	}
	r.bodyRead = true
	defer r.inner.Body.Close()

	data, err := io.ReadAll(io.LimitReader(r.inner.Body, r.bodyLimit+1))
	if err != nil {
		r.bodyErr = core.WrapError(err, core.ErrCodeServerError, "transport: read response body")
		return nil, r.bodyErr
	}
	if int64(len(data)) > r.bodyLimit {
		r.bodyErr = core.NewError(
			core.ErrCodeServerError,
			fmt.Sprintf("transport: response body exceeds limit of %d bytes", r.bodyLimit),
		)
		return nil, r.bodyErr
	}
	r.body = data
	return r.body, nil
}

// Text returns the response body as a string.
func (r *Response) Text() (string, error) {
	data, err := r.Bytes()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Decode deserializes the response body, dispatching on the Content-Type
// header. Only JSON and MessagePack bodies are accepted.
func (r *Response) Decode(value any) error {
	contentType := r.ContentType()
	if contentType == "" {
		return core.NewError(core.ErrCodeInvalidBody, "missing content-type")
	}
	switch contentType {
	case contentTypeJSON:
		return r.JSON(value)
	case contentTypeMessagePack:
		return r.MessagePack(value)
	default:
		return core.NewError(
			core.ErrCodeInvalidBody,
			fmt.Sprintf("invalid response content-type: %s", contentType),
		)
	}
}

// JSON deserializes the response body as JSON.
func (r *Response) JSON(value any) error {
	data, err := r.Bytes()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, value); err != nil {
		return core.WrapError(err, core.ErrCodeInvalidBody, "transport: decode json response")
	}
	return nil
}

// MessagePack deserializes the response body as MessagePack.
func (r *Response) MessagePack(value any) error {
	data, err := r.Bytes()
	if err != nil {
		return err
	}
	if err := msgpack.Unmarshal(data, value); err != nil {
		return core.WrapError(err, core.ErrCodeInvalidBody, "transport: decode msgpack response")
	}
	return nil
}
