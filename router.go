package envelope

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// Router dispatches typed handlers over http.ServeMux and envelopes every
// response, including unmatched routes. It implements http.Handler.
type Router struct {
	mux        *http.ServeMux
	middleware []Middleware
	routes     []routeInfo
	builder    *Builder

	validator    Validator
	errorHandler ErrorHandler
	decoders     []Decoder
	bodies       bodyDecoders

	mu sync.Mutex
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithValidator sets a global request validator.
func WithValidator(v Validator) RouterOption {
	return func(r *Router) {
		r.validator = v
	}
}

// ErrorHandler is a custom error response writer.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// WithErrorHandler replaces Builder.RespondError for handler errors.
func WithErrorHandler(h ErrorHandler) RouterOption {
	return func(r *Router) {
		r.errorHandler = h
	}
}

// WithDecoder registers a request body decoder for its content type,
// replacing the built-in JSON or YAML decoder when the types match.
func WithDecoder(dec Decoder) RouterOption {
	return func(r *Router) {
		r.decoders = append(r.decoders, dec)
	}
}

// NewRouter creates a Router that responds through b.
func NewRouter(b *Builder, opts ...RouterOption) *Router {
	r := &Router{
		mux:     http.NewServeMux(),
		builder: b,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.errorHandler == nil {
		r.errorHandler = b.RespondError
	}
	r.bodies = newBodyDecoders(r.decoders)
	return r
}

// Builder returns the builder the router responds through.
func (r *Router) Builder() *Builder { return r.builder }

// Use adds middleware to the router. Middleware is applied in the order added.
func (r *Router) Use(mw ...Middleware) {
	r.middleware = append(r.middleware, mw...)
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	handler := http.Handler(http.HandlerFunc(r.dispatch))
	for i := len(r.middleware) - 1; i >= 0; i-- {
		handler = r.middleware[i](handler)
	}
	handler.ServeHTTP(w, req)
}

// dispatch serves matched routes through the mux. Unmatched requests are
// answered with a 404 or 405 error envelope instead of the mux's plain text.
func (r *Router) dispatch(w http.ResponseWriter, req *http.Request) {
	h, pattern := r.mux.Handler(req)
	if pattern != "" {
		r.mux.ServeHTTP(w, req)
		return
	}

	capture := &statusCapture{header: make(http.Header)}
	h.ServeHTTP(capture, req)

	env := r.builder.NotFound("")
	if capture.status == http.StatusMethodNotAllowed {
		env = r.builder.Error("Method Not Allowed", http.StatusMethodNotAllowed)
		if allow := capture.header.Get("Allow"); allow != "" {
			w.Header().Set("Allow", allow)
		}
	}
	r.builder.RespondEnvelope(w, req, env)
}

// statusCapture records what the mux's fallback handler would write.
type statusCapture struct {
	header http.Header
	status int
}

func (p *statusCapture) Header() http.Header         { return p.header }
func (p *statusCapture) Write(b []byte) (int, error) { return len(b), nil }
func (p *statusCapture) WriteHeader(code int)        { p.status = code }

// RouteInfo describes a registered route.
type RouteInfo struct {
	Method    string
	Pattern   string
	Operation string
	// Key is the payload key success responses use, empty for raw routes.
	Key string
}

// Routes returns the registered routes in registration order.
func (r *Router) Routes() []RouteInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]RouteInfo, len(r.routes))
	for i, ri := range r.routes {
		out[i] = RouteInfo{
			Method:    ri.method,
			Pattern:   ri.pattern,
			Operation: ri.operation,
			Key:       ri.key,
		}
	}
	return out
}

// ListenAndServe starts an HTTP server on the given address.
// It blocks until the context is cancelled, then shuts down gracefully.
func (r *Router) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// addRoute registers a routeInfo with the router's mux. Global middleware
// is applied in ServeHTTP; only group middleware is baked into ri.handler.
func (r *Router) addRoute(ri routeInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.mux.Handle(ri.method+" "+ri.pattern, ri.handler)
	r.routes = append(r.routes, ri)
}

func (r *Router) getBuilder() *Builder          { return r.builder }
func (r *Router) getValidator() Validator       { return r.validator }
func (r *Router) getErrorHandler() ErrorHandler { return r.errorHandler }
func (r *Router) getDecoders() bodyDecoders     { return r.bodies }
func (r *Router) routeMiddleware() []Middleware { return nil }
func (r *Router) routeOptions() []Option        { return nil }
