package envelope_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/envelope"
)

func TestRequestID(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		cfg       []envelope.RequestIDConfig
		reqHeader map[string]string
		checkID   func(t *testing.T, h http.Header)
	}{
		"generates a uuid when none provided": {
			checkID: func(t *testing.T, h http.Header) {
				t.Helper()
				_, err := uuid.Parse(h.Get("X-Request-ID"))
				assert.NoError(t, err)
			},
		},
		"preserves existing X-Request-ID": {
			reqHeader: map[string]string{"X-Request-ID": "my-custom-id-123"},
			checkID: func(t *testing.T, h http.Header) {
				t.Helper()
				assert.Equal(t, "my-custom-id-123", h.Get("X-Request-ID"))
			},
		},
		"custom header name": {
			cfg: []envelope.RequestIDConfig{{Header: "X-Trace-ID"}},
			checkID: func(t *testing.T, h http.Header) {
				t.Helper()
				assert.NotEmpty(t, h.Get("X-Trace-ID"))
				assert.Empty(t, h.Get("X-Request-ID"))
			},
		},
		"custom generator": {
			cfg: []envelope.RequestIDConfig{{Generator: func() string { return "fixed-id-42" }}},
			checkID: func(t *testing.T, h http.Header) {
				t.Helper()
				assert.Equal(t, "fixed-id-42", h.Get("X-Request-ID"))
			},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			handler := envelope.RequestID(tc.cfg...)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, "/", nil)
			require.NoError(t, err)
			for k, v := range tc.reqHeader {
				req.Header.Set(k, v)
			}

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			tc.checkID(t, rec.Header())
		})
	}
}

func TestGetRequestID(t *testing.T) {
	t.Parallel()

	var captured string
	handler := envelope.RequestID()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		captured = envelope.GetRequestID(r)
	}))

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, "/", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "ctx-test-id")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "ctx-test-id", captured)
}

func TestGetRequestID_without_middleware(t *testing.T) {
	t.Parallel()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, "/", nil)
	require.NoError(t, err)
	assert.Empty(t, envelope.GetRequestID(req))
}
