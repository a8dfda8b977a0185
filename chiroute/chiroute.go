// Package chiroute adapts envelope to go-chi/chi routers. It infers the
// calling operation from chi's matched route pattern and writes envelopes
// through go-chi/render.
package chiroute

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/bjaus/envelope"
)

// Operation derives the REST operation from the chi route pattern that
// matched r. Requests not routed by chi fall back to
// envelope.PatternOperation.
func Operation(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return envelope.OperationFor(r.Method, pattern)
		}
	}
	return envelope.PatternOperation(r)
}

// New returns a builder that infers operations from chi route patterns.
func New(cfg envelope.Config, opts ...envelope.BuilderOption) (*envelope.Builder, error) {
	return envelope.New(cfg, append([]envelope.BuilderOption{envelope.WithOperationFunc(Operation)}, opts...)...)
}

// Render writes env with render.JSON, for chi apps that already use
// go-chi/render. The status is passed through render.Status.
func Render(w http.ResponseWriter, r *http.Request, env *envelope.Envelope) {
	for k, vs := range env.Headers {
		w.Header()[k] = append(w.Header()[k], vs...)
	}
	if env.Status == http.StatusNoContent {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	render.Status(r, env.Status)
	render.JSON(w, r, env)
}

// NotFound returns a chi NotFound handler answering with a 404 envelope.
func NotFound(b *envelope.Builder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.RespondEnvelope(w, r, b.NotFound(""))
	}
}

// MethodNotAllowed returns a chi MethodNotAllowed handler answering with
// a 405 envelope.
func MethodNotAllowed(b *envelope.Builder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.RespondEnvelope(w, r, b.Error("Method Not Allowed", http.StatusMethodNotAllowed))
	}
}

// Mount wires the envelope handlers into a chi.Router.
func Mount(r chi.Router, b *envelope.Builder) {
	r.NotFound(NotFound(b))
	r.MethodNotAllowed(MethodNotAllowed(b))
}
