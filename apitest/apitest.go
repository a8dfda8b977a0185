// Package apitest provides typed test helpers for envelope responses.
package apitest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

// Client wraps an httptest.Server for convenient API testing.
type Client struct {
	Server *httptest.Server
	Header http.Header
}

// NewClient creates a test client serving h.
func NewClient(t testing.TB, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &Client{Server: srv, Header: make(http.Header)}
}

// Response holds a decoded envelope. Exactly one of Key or Errors is set
// for a well-formed envelope.
type Response[T any] struct {
	Status  int
	Headers http.Header

	// Wrapped is false when the body had no response/data layers.
	Wrapped bool

	// Key is the payload field name ("entities", "entity", ...).
	Key     string
	Data    *T
	Meta    map[string]any
	Message string

	// Errors is the raw errors field, "null" when the envelope has none.
	Errors json.RawMessage

	// Fields lists every key found in the data object.
	Fields []string

	Body []byte
}

// HasErrors reports whether the body was an error envelope.
func (r *Response[T]) HasErrors() bool { return r.Errors != nil }

// Get sends a GET request.
func Get[Resp any](t testing.TB, c *Client, path string) *Response[Resp] {
	t.Helper()
	return do[Resp](t, c, http.MethodGet, path, nil)
}

// Post sends a POST request with a JSON body.
func Post[Req, Resp any](t testing.TB, c *Client, path string, body *Req) *Response[Resp] {
	t.Helper()
	return do[Resp](t, c, http.MethodPost, path, body)
}

// Put sends a PUT request with a JSON body.
func Put[Req, Resp any](t testing.TB, c *Client, path string, body *Req) *Response[Resp] {
	t.Helper()
	return do[Resp](t, c, http.MethodPut, path, body)
}

// Patch sends a PATCH request with a JSON body.
func Patch[Req, Resp any](t testing.TB, c *Client, path string, body *Req) *Response[Resp] {
	t.Helper()
	return do[Resp](t, c, http.MethodPatch, path, body)
}

// Delete sends a DELETE request.
func Delete[Resp any](t testing.TB, c *Client, path string) *Response[Resp] {
	t.Helper()
	return do[Resp](t, c, http.MethodDelete, path, nil)
}

func do[Resp any](t testing.TB, c *Client, method, path string, body any) *Response[Resp] {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("apitest: marshal request body: %v", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, c.Server.URL+path, reqBody)
	if err != nil {
		t.Fatalf("apitest: create request: %v", err)
	}
	for k, vs := range c.Header {
		req.Header[k] = vs
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("apitest: execute request: %v", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			t.Errorf("apitest: close body: %v", closeErr)
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("apitest: read body: %v", err)
	}

	result := Decode[Resp](t, raw)
	result.Status = resp.StatusCode
	result.Headers = resp.Header
	return result
}

// Decode parses an envelope body, such as an httptest.ResponseRecorder's.
// An empty body yields a Response with no fields.
func Decode[T any](t testing.TB, body []byte) *Response[T] {
	t.Helper()

	result := &Response[T]{Body: body}
	if len(bytes.TrimSpace(body)) == 0 {
		return result
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		t.Fatalf("apitest: decode envelope: %v", err)
	}

	data := top
	if outer, ok := top["response"]; ok && len(top) == 1 {
		var inner struct {
			Data map[string]json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(outer, &inner); err != nil {
			t.Fatalf("apitest: decode response.data: %v", err)
		}
		data = inner.Data
		result.Wrapped = true
	}

	for k, v := range data {
		result.Fields = append(result.Fields, k)
		switch k {
		case "message":
			if err := json.Unmarshal(v, &result.Message); err != nil {
				t.Fatalf("apitest: decode message: %v", err)
			}
		case "meta":
			if err := json.Unmarshal(v, &result.Meta); err != nil {
				t.Fatalf("apitest: decode meta: %v", err)
			}
		case "errors":
			result.Errors = v
		default:
			result.Key = k
			var decoded T
			if err := json.Unmarshal(v, &decoded); err != nil {
				t.Fatalf("apitest: decode %s: %v", k, err)
			}
			result.Data = &decoded
		}
	}
	return result
}
