package envelope

import (
	"context"
	"net/http"
)

// Void is used as a type parameter when a request has no parameters/body
// or a response has no payload (results in 204 No Content).
type Void struct{}

// Handler is the typed handler signature. The returned value becomes the
// envelope payload; a returned error becomes an error envelope.
type Handler[Req, Resp any] func(ctx context.Context, req *Req) (*Resp, error)

// RawHandler is an escape hatch for handlers that write their own
// responses, typically through Builder.Respond.
type RawHandler func(w http.ResponseWriter, r *http.Request)
