package envelope

import (
	"errors"
	"log/slog"
	"net/http"
)

// Write writes env to w. The Content-Type is application/json when the
// config forces JSON, otherwise it is negotiated from the Accept header
// with JSON as the fallback. Under WithStrictAccept an unsatisfiable
// Accept header replaces env with a 406 error envelope. 204 and 304
// responses carry no body.
func (b *Builder) Write(w http.ResponseWriter, r *http.Request, env *Envelope) error {
	if env.Status == http.StatusNoContent || env.Status == http.StatusNotModified {
		copyHeaders(w.Header(), env.Headers)
		w.WriteHeader(env.Status)
		return nil
	}

	enc, err := b.encoders.forRequest(r)
	if errors.Is(err, ErrNotAcceptable) {
		env = b.Error(http.StatusText(http.StatusNotAcceptable), http.StatusNotAcceptable)
		enc = b.encoders.fallback()
	}

	copyHeaders(w.Header(), env.Headers)
	w.Header().Set("Content-Type", enc.ContentType())
	w.WriteHeader(env.Status)
	return enc.Encode(w, env)
}

func copyHeaders(dst, src http.Header) {
	for k, vs := range src {
		dst[k] = append(dst[k], vs...)
	}
}

// Respond builds a success envelope for payload and writes it. Without
// WithOperation the hint comes from the request context (set by the typed
// router) or from the builder's OperationFunc. A payload that cannot be
// converted is logged and answered with a 500 error envelope.
func (b *Builder) Respond(w http.ResponseWriter, r *http.Request, payload any, opts ...Option) {
	o := b.requestOptions(r, opts)

	var (
		env *Envelope
		err error
	)
	if o.paginated {
		env, err = b.paginated(payload, o)
	} else {
		env, err = b.success(payload, o)
	}
	if err != nil {
		b.logger.ErrorContext(r.Context(), "build envelope",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("err", err),
		)
		env = b.ServerError("")
	}

	b.write(w, r, env)
}

// RespondPaginated is Respond with WithPaginated.
func (b *Builder) RespondPaginated(w http.ResponseWriter, r *http.Request, data any, opts ...Option) {
	b.Respond(w, r, data, append(opts, WithPaginated())...)
}

// RespondError writes err as an error envelope. Server errors are logged.
func (b *Builder) RespondError(w http.ResponseWriter, r *http.Request, err error) {
	env := b.FromError(err)
	if env.Status >= http.StatusInternalServerError {
		b.logger.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", env.Status),
			slog.Any("err", err),
		)
	}
	b.write(w, r, env)
}

// RespondEnvelope writes a prebuilt envelope, logging encode failures.
func (b *Builder) RespondEnvelope(w http.ResponseWriter, r *http.Request, env *Envelope) {
	b.write(w, r, env)
}

func (b *Builder) write(w http.ResponseWriter, r *http.Request, env *Envelope) {
	if err := b.Write(w, r, env); err != nil {
		// Headers are gone; all that is left is to record it.
		b.logger.WarnContext(r.Context(), "write envelope",
			slog.String("path", r.URL.Path),
			slog.Any("err", err),
		)
	}
}

// requestOptions applies the matched route's options, then opts, and
// fills the operation hint and request ID meta from r.
func (b *Builder) requestOptions(r *http.Request, opts []Option) options {
	if route, ok := GetValue[routeOpts](r.Context()); ok {
		opts = append(append([]Option{}, route...), opts...)
	}
	o := applyOptions(opts)

	if o.operation == "" {
		if op, ok := OperationFromContext(r.Context()); ok {
			o.operation = op
		} else if b.operation != nil {
			o.operation = b.operation(r)
		}
	}

	if b.requestIDMeta {
		if id := GetRequestID(r); id != "" {
			if _, set := o.meta["request_id"]; !set {
				WithMeta(map[string]any{"request_id": id})(&o)
			}
		}
	}
	return o
}
