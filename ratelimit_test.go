package envelope_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/envelope"
	"github.com/bjaus/envelope/apitest"
)

func TestRateLimit(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		rate        float64
		burst       int
		numReqs     int
		wantOK      int
		wantLimited int
		retryAfter  string
	}{
		"requests within rate succeed": {
			rate:        100,
			burst:       10,
			numReqs:     5,
			wantOK:      5,
			wantLimited: 0,
		},
		"requests exceeding rate get 429": {
			rate:        1,
			burst:       1,
			numReqs:     5,
			wantOK:      1,
			wantLimited: 4,
			retryAfter:  "1",
		},
		"slow rate rounds retry up": {
			rate:        0.25,
			burst:       2,
			numReqs:     3,
			wantOK:      2,
			wantLimited: 1,
			retryAfter:  "4",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			b := newBuilder(t)
			handler := envelope.RateLimit(b, envelope.RateLimitConfig{
				Rate:  tc.rate,
				Burst: tc.burst,
			})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			okCount, limitedCount := 0, 0
			for range tc.numReqs {
				req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, "/", nil)
				require.NoError(t, err)
				req.RemoteAddr = "192.0.2.1:1234"

				rec := httptest.NewRecorder()
				handler.ServeHTTP(rec, req)

				switch rec.Code {
				case http.StatusOK:
					okCount++
				case http.StatusTooManyRequests:
					limitedCount++
					assert.Equal(t, tc.retryAfter, rec.Header().Get("Retry-After"))
					resp := apitest.Decode[any](t, rec.Body.Bytes())
					assert.True(t, resp.HasErrors())
					assert.Equal(t, "Too Many Requests", resp.Message)
				}
			}

			assert.Equal(t, tc.wantOK, okCount, "expected OK responses")
			assert.Equal(t, tc.wantLimited, limitedCount, "expected rate-limited responses")
		})
	}
}

func TestRateLimit_keys_are_independent(t *testing.T) {
	t.Parallel()

	b := newBuilder(t)
	handler := envelope.RateLimit(b, envelope.RateLimitConfig{
		Rate:    1,
		Burst:   1,
		KeyFunc: func(r *http.Request) string { return r.Header.Get("X-API-Key") },
		Message: "slow down",
	})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(key string) *httptest.ResponseRecorder {
		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, "/", nil)
		require.NoError(t, err)
		req.Header.Set("X-API-Key", key)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, send("a").Code)
	assert.Equal(t, http.StatusOK, send("b").Code)

	rec := send("a")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "slow down", apitest.Decode[any](t, rec.Body.Bytes()).Message)
}
