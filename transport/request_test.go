package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/goliatone/go-pubsub-rest/core"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, options ...ClientOption) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL, options...)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client, server
}

func TestRequestBuilder_VersionHeaderAndParams(t *testing.T) {
	var seen *http.Request
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen = r.Clone(context.Background())
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	})

	_, err := client.Request(http.MethodGet, "/channels").
		Param("limit", "10").
		Params(map[string]string{"direction": "forwards"}).
		Param("limit", "20").
		Send(context.Background())
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if got := seen.Header.Get(VersionHeader); got != Version {
		t.Fatalf("expected version header %q, got %q", Version, got)
	}
	query := seen.URL.Query()
	if got := query["limit"]; len(got) != 2 || got[0] != "10" || got[1] != "20" {
		t.Fatalf("expected additive limit params, got %v", got)
	}
	if got := query.Get("direction"); got != "forwards" {
		t.Fatalf("expected direction param, got %q", got)
	}
}

func TestRequestBuilder_JSONBody(t *testing.T) {
	var contentType string
	var decoded map[string]string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&decoded)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	})

	_, err := client.Request(http.MethodPost, "/channels/test/messages").
		Format(FormatJSON).
		Body(map[string]string{"name": "greeting"}).
		Send(context.Background())
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if contentType != "application/json" {
		t.Fatalf("expected json content type, got %q", contentType)
	}
	if decoded["name"] != "greeting" {
		t.Fatalf("unexpected body %v", decoded)
	}
}

func TestRequestBuilder_MessagePackBody(t *testing.T) {
	var contentType string
	var raw []byte
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		raw, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	})

	_, err := client.Request(http.MethodPost, "/channels/test/messages").
		Format(FormatMessagePack).
		Body(map[string]string{"name": "greeting"}).
		Send(context.Background())
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if contentType != "application/x-msgpack" {
		t.Fatalf("expected msgpack content type, got %q", contentType)
	}
	var decoded map[string]string
	if err := msgpack.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode msgpack body: %v", err)
	}
	if decoded["name"] != "greeting" {
		t.Fatalf("unexpected body %v", decoded)
	}
}

func TestRequest_StructuredErrorBody(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"code":40400,"message":"channel not found","statusCode":404}}`))
	})

	_, err := client.Request(http.MethodGet, "/channels/missing").Send(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
	if core.ErrorCode(err) != 40400 {
		t.Fatalf("expected code 40400, got %d", core.ErrorCode(err))
	}
	if core.ErrorStatus(err) != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", core.ErrorStatus(err))
	}
	if core.ErrorMessage(err) != "channel not found" {
		t.Fatalf("unexpected message %q", core.ErrorMessage(err))
	}
}

func TestRequest_UnstructuredErrorFallback(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream blew up"))
	})

	_, err := client.Request(http.MethodGet, "/channels").Send(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
	if core.ErrorCode(err) != core.ErrCodeServerError {
		t.Fatalf("expected code %d, got %d", core.ErrCodeServerError, core.ErrorCode(err))
	}
	if core.ErrorStatus(err) != http.StatusBadGateway {
		t.Fatalf("expected status 502, got %d", core.ErrorStatus(err))
	}
}

type headerAuthenticator struct {
	value string
}

func (a headerAuthenticator) Authenticate(req *http.Request) error {
	req.Header.Set("Authorization", a.value)
	return nil
}

func TestRequestBuilder_AuthAppliedAtBuild(t *testing.T) {
	var authorization string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		authorization = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	})

	_, err := client.Request(http.MethodGet, "/channels").
		Auth(headerAuthenticator{value: "Bearer tok"}).
		Send(context.Background())
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if authorization != "Bearer tok" {
		t.Fatalf("expected auth header, got %q", authorization)
	}
}

type closeRecorder struct {
	io.Reader
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

type stubDoer struct {
	res *http.Response
}

func (d stubDoer) Do(*http.Request) (*http.Response, error) {
	return d.res, nil
}

func TestRequest_ClosesBodyOnErrorPath(t *testing.T) {
	body := &closeRecorder{Reader: strings.NewReader("upstream blew up")}
	client, err := NewClient("https://rest.pubsub.io", WithHTTPDoer(stubDoer{res: &http.Response{
		StatusCode: http.StatusInternalServerError,
		Header:     http.Header{},
		Body:       body,
	}}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	if _, err := client.Request(http.MethodGet, "/messages").Send(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if !body.closed {
		t.Fatalf("expected response body closed on the error path")
	}
}

func TestRequest_ClosesBodyWhenNeverDecoded(t *testing.T) {
	header := http.Header{}
	header.Set("Content-Type", "application/json")
	body := &closeRecorder{Reader: strings.NewReader(`[]`)}
	client, err := NewClient("https://rest.pubsub.io", WithHTTPDoer(stubDoer{res: &http.Response{
		StatusCode: http.StatusOK,
		Header:     header,
		Body:       body,
	}}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	if _, err := client.Request(http.MethodGet, "/messages").Send(context.Background()); err != nil {
		t.Fatalf("send: %v", err)
	}
	// The response is dropped without a decode.
	if !body.closed {
		t.Fatalf("expected response body closed without a decode")
	}
}

func TestNewClient_InvalidBaseURL(t *testing.T) {
	if _, err := NewClient("not a url"); err == nil {
		t.Fatalf("expected error for invalid base url")
	}
	if _, err := NewClient("/relative/only"); err == nil {
		t.Fatalf("expected error for url without host")
	}
}
