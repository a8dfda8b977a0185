package envelope_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/bjaus/envelope"
)

func newRequest(t *testing.T, method, target string) *http.Request {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), method, target, nil)
	require.NoError(t, err)
	return req
}

func bodyData(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(body, &m))
	resp, ok := m["response"].(map[string]any)
	require.True(t, ok, "missing response in %s", body)
	data, ok := resp["data"].(map[string]any)
	require.True(t, ok, "missing response.data in %s", body)
	return data
}

func TestBuilder_Write(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		force       bool
		accept      string
		contentType string
	}{
		"forced json ignores accept": {force: true, accept: "application/yaml", contentType: "application/json"},
		"no accept":                  {force: false, accept: "", contentType: "application/json"},
		"yaml accepted":              {force: false, accept: "application/yaml", contentType: "application/yaml"},
		"weighted preference":        {force: false, accept: "application/json;q=0.5, application/yaml", contentType: "application/yaml"},
		"wildcard":                   {force: false, accept: "*/*", contentType: "application/json"},
		"unknown falls back":         {force: false, accept: "text/html", contentType: "application/json"},
		"yaml alias":                 {force: false, accept: "application/x-yaml", contentType: "application/yaml"},
		"refused with q zero":        {force: false, accept: "application/yaml;q=0, text/yaml;q=0, */*;q=0.1", contentType: "application/json"},
		"ties keep header order":     {force: false, accept: "text/yaml, application/json", contentType: "application/yaml"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			b := newBuilder(t, func(c *envelope.Config) { c.ForceJSONResponseHeader = tc.force })
			env, err := b.Success(map[string]any{"id": 1}, envelope.WithOperation("show"))
			require.NoError(t, err)

			req := newRequest(t, http.MethodGet, "/")
			req.Header.Set("Accept", tc.accept)
			rec := httptest.NewRecorder()
			require.NoError(t, b.Write(rec, req, env))

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tc.contentType, rec.Header().Get("Content-Type"))
			assert.NotEmpty(t, rec.Body.Bytes())
		})
	}
}

func TestBuilder_Write_yaml_body(t *testing.T) {
	t.Parallel()

	b := newBuilder(t, func(c *envelope.Config) { c.ForceJSONResponseHeader = false })
	env, err := b.Success(map[string]any{"id": 7}, envelope.WithOperation("show"))
	require.NoError(t, err)

	req := newRequest(t, http.MethodGet, "/")
	req.Header.Set("Accept", "application/yaml")
	rec := httptest.NewRecorder()
	require.NoError(t, b.Write(rec, req, env))

	var doc struct {
		Response struct {
			Data struct {
				Entity  map[string]int `yaml:"entity"`
				Message string         `yaml:"message"`
			} `yaml:"data"`
		} `yaml:"response"`
	}
	require.NoError(t, yaml.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, map[string]int{"id": 7}, doc.Response.Data.Entity)
	assert.Equal(t, "Success", doc.Response.Data.Message)
}

func TestBuilder_Write_yaml_key_order(t *testing.T) {
	t.Parallel()

	type profile struct {
		Zip  string `json:"zip"`
		Code string `json:"code"`
		Bio  string `json:"bio"`
	}

	b := newBuilder(t, func(c *envelope.Config) { c.ForceJSONResponseHeader = false })
	env, err := b.Success(profile{Zip: "02134", Code: "true", Bio: ""},
		envelope.WithOperation("show"), envelope.WithMeta(map[string]any{"a": 1}))
	require.NoError(t, err)

	req := newRequest(t, http.MethodGet, "/")
	req.Header.Set("Accept", "application/yaml")
	rec := httptest.NewRecorder()
	require.NoError(t, b.Write(rec, req, env))

	want := `response:
  data:
    entity:
      zip: "02134"
      code: "true"
      bio: ""
    meta:
      a: 1
    message: Success
`
	assert.Equal(t, want, rec.Body.String())

	var back map[string]map[string]map[string]any
	require.NoError(t, yaml.Unmarshal(rec.Body.Bytes(), &back))
	assert.Equal(t, map[string]any{"zip": "02134", "code": "true", "bio": ""}, back["response"]["data"]["entity"])
}

func TestBuilder_Write_strict_accept(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		accept      string
		status      int
		contentType string
	}{
		"unsatisfiable": {accept: "text/html", status: http.StatusNotAcceptable, contentType: "application/json"},
		"yaml":          {accept: "text/html, application/yaml;q=0.2", status: http.StatusOK, contentType: "application/yaml"},
		"no accept":     {accept: "", status: http.StatusOK, contentType: "application/json"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cfg := envelope.DefaultConfig()
			cfg.ForceJSONResponseHeader = false
			b, err := envelope.New(cfg, envelope.WithStrictAccept())
			require.NoError(t, err)

			env, err := b.Success([]int{1}, envelope.WithHeader("X-Total", "1"))
			require.NoError(t, err)

			req := newRequest(t, http.MethodGet, "/")
			req.Header.Set("Accept", tc.accept)
			rec := httptest.NewRecorder()
			require.NoError(t, b.Write(rec, req, env))

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.contentType, rec.Header().Get("Content-Type"))
			if tc.status == http.StatusNotAcceptable {
				assert.JSONEq(t, `{"response":{"data":{"errors":null,"message":"Not Acceptable"}}}`, rec.Body.String())
				assert.Empty(t, rec.Header().Get("X-Total"))
			}
		})
	}
}

func TestBuilder_Write_strict_accept_ignored_when_forced(t *testing.T) {
	t.Parallel()

	b, err := envelope.New(envelope.DefaultConfig(), envelope.WithStrictAccept())
	require.NoError(t, err)

	req := newRequest(t, http.MethodGet, "/")
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	require.NoError(t, b.Write(rec, req, b.NotFound("")))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestBuilder_Write_no_content(t *testing.T) {
	t.Parallel()

	b := newBuilder(t)
	rec := httptest.NewRecorder()
	require.NoError(t, b.Write(rec, newRequest(t, http.MethodDelete, "/users/1"), b.Deleted()))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.Bytes())
	assert.Empty(t, rec.Header().Get("Content-Type"))
}

func TestBuilder_Write_headers(t *testing.T) {
	t.Parallel()

	b := newBuilder(t)
	env, err := b.Success([]int{1}, envelope.WithHeader("X-Total", "1"), envelope.WithHeader("X-Total", "2"))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, b.Write(rec, newRequest(t, http.MethodGet, "/"), env))
	assert.Equal(t, []string{"1", "2"}, rec.Header().Values("X-Total"))
}

func TestBuilder_Respond_infers_operation_from_pattern(t *testing.T) {
	t.Parallel()

	b := newBuilder(t)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /users", func(w http.ResponseWriter, r *http.Request) {
		b.Respond(w, r, []map[string]any{{"id": 1}})
	})
	mux.HandleFunc("GET /users/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.Respond(w, r, map[string]any{"id": r.PathValue("id")})
	})

	tests := map[string]struct {
		path string
		key  string
	}{
		"collection": {path: "/users", key: "entities"},
		"member":     {path: "/users/9", key: "entity"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, newRequest(t, http.MethodGet, tc.path))

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, bodyData(t, rec.Body.Bytes()), tc.key)
		})
	}
}

func TestBuilder_Respond_context_operation_wins(t *testing.T) {
	t.Parallel()

	b := newBuilder(t)
	req := newRequest(t, http.MethodGet, "/anything")
	req = req.WithContext(envelope.WithOperationContext(req.Context(), envelope.OpShow))

	rec := httptest.NewRecorder()
	b.Respond(rec, req, map[string]any{"id": 1})

	data := bodyData(t, rec.Body.Bytes())
	assert.Contains(t, data, "entity")
	assert.NotContains(t, data, "entities")
}

func TestBuilder_Respond_unconvertible_payload(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	b, err := envelope.New(envelope.DefaultConfig(),
		envelope.WithLogger(slog.New(slog.NewJSONHandler(&logs, nil))))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	b.Respond(rec, newRequest(t, http.MethodGet, "/count"), 42)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	data := bodyData(t, rec.Body.Bytes())
	assert.Equal(t, "Server Error", data["message"])
	assert.Contains(t, logs.String(), "build envelope")
}

func TestBuilder_RespondPaginated(t *testing.T) {
	t.Parallel()

	b := newBuilder(t)
	page := envelope.NewPage([]string{"a", "b"}, 4, 1, 2, "/letters")

	rec := httptest.NewRecorder()
	b.RespondPaginated(rec, newRequest(t, http.MethodGet, "/letters"), page)

	require.Equal(t, http.StatusOK, rec.Code)
	data := bodyData(t, rec.Body.Bytes())
	assert.Equal(t, []any{"a", "b"}, data["entities"])

	meta, ok := data["meta"].(map[string]any)
	require.True(t, ok)
	pg, ok := meta["pagination"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 2, pg["last_page"], 0)
	assert.Equal(t, "/letters?page=2", pg["next_page_url"])
}

func TestBuilder_RespondError(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		err     error
		status  int
		message string
		logged  bool
	}{
		"http error":   {err: envelope.Error(http.StatusNotFound, "user not found"), status: 404, message: "user not found"},
		"plain error":  {err: assert.AnError, status: 500, message: "Internal Server Error", logged: true},
		"explicit 503": {err: envelope.Error(http.StatusServiceUnavailable, "later"), status: 503, message: "later", logged: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var logs bytes.Buffer
			b, err := envelope.New(envelope.DefaultConfig(),
				envelope.WithLogger(slog.New(slog.NewJSONHandler(&logs, nil))))
			require.NoError(t, err)

			rec := httptest.NewRecorder()
			b.RespondError(rec, newRequest(t, http.MethodGet, "/"), tc.err)

			assert.Equal(t, tc.status, rec.Code)
			data := bodyData(t, rec.Body.Bytes())
			assert.Equal(t, tc.message, data["message"])
			assert.Contains(t, data, "errors")
			assert.NotContains(t, data, "entity")
			assert.Equal(t, tc.logged, logs.Len() > 0)
		})
	}
}

func TestBuilder_WithRequestIDMeta(t *testing.T) {
	t.Parallel()

	b, err := envelope.New(envelope.DefaultConfig(), envelope.WithRequestIDMeta())
	require.NoError(t, err)

	h := envelope.RequestID(envelope.RequestIDConfig{
		Generator: func() string { return "req-1" },
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.Respond(w, r, []int{}, envelope.WithMeta(map[string]any{"count": 0}))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, newRequest(t, http.MethodGet, "/"))

	meta, ok := bodyData(t, rec.Body.Bytes())["meta"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "req-1", meta["request_id"])
	assert.InDelta(t, 0, meta["count"], 0)
	assert.Equal(t, "req-1", rec.Header().Get("X-Request-ID"))
}
