package apitest_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/envelope"
	"github.com/bjaus/envelope/apitest"
)

type item struct {
	ID int `json:"id"`
}

func TestDecode(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		body    string
		wrapped bool
		key     string
		data    *item
		message string
		errors  string
		fields  []string
	}{
		"wrapped success": {
			body:    `{"response":{"data":{"entity":{"id":4},"meta":{},"message":"Success"}}}`,
			wrapped: true,
			key:     "entity",
			data:    &item{ID: 4},
			message: "Success",
			fields:  []string{"entity", "meta", "message"},
		},
		"unwrapped success": {
			body:    `{"entity":{"id":5},"meta":{},"message":"Success"}`,
			key:     "entity",
			data:    &item{ID: 5},
			message: "Success",
			fields:  []string{"entity", "meta", "message"},
		},
		"wrapped error": {
			body:    `{"response":{"data":{"errors":{"id":["is required"]},"message":"Validation Failed"}}}`,
			wrapped: true,
			message: "Validation Failed",
			errors:  `{"id":["is required"]}`,
			fields:  []string{"errors", "message"},
		},
		"empty body": {
			body: "",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			resp := apitest.Decode[item](t, []byte(tc.body))
			assert.Equal(t, tc.wrapped, resp.Wrapped)
			assert.Equal(t, tc.key, resp.Key)
			assert.Equal(t, tc.data, resp.Data)
			assert.Equal(t, tc.message, resp.Message)
			assert.ElementsMatch(t, tc.fields, resp.Fields)
			if tc.errors == "" {
				assert.False(t, resp.HasErrors())
			} else {
				assert.JSONEq(t, tc.errors, string(resp.Errors))
			}
		})
	}
}

func TestClient_round_trip(t *testing.T) {
	t.Parallel()

	b := envelope.MustNew(envelope.DefaultConfig())
	r := envelope.NewRouter(b)
	envelope.Put(r, "/items/{id}", func(_ context.Context, req *struct {
		ID   int  `path:"id"`
		Body item `json:"-"`
	}) (*item, error) {
		return &item{ID: req.ID + req.Body.ID}, nil
	})

	c := apitest.NewClient(t, r)

	resp := apitest.Put[item, item](t, c, "/items/10", &item{ID: 5})
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "entity", resp.Key)
	assert.Equal(t, &item{ID: 15}, resp.Data)
	assert.Equal(t, "Success", resp.Message)
	assert.Equal(t, map[string]any{}, resp.Meta)
}
