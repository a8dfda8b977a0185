package envelope

import (
	"errors"
	"net/http"
	"reflect"
)

// Registrar is the interface accepted by the registration functions.
// Both *Router and *Group implement it.
type Registrar interface {
	addRoute(ri routeInfo)
	getBuilder() *Builder
	getValidator() Validator
	getErrorHandler() ErrorHandler
	getDecoders() bodyDecoders
	routeMiddleware() []Middleware
	routeOptions() []Option
}

// register is the internal generic registration function.
func register[Req, Resp any](reg Registrar, method, pattern string, h Handler[Req, Resp], opts ...Option) {
	b := reg.getBuilder()
	void := reflect.TypeFor[Resp]() == reflect.TypeFor[Void]()

	ri := newRouteInfo(b, method, pattern, void, reg.routeOptions(), opts)
	ri.handler = buildHandler(b, h, ri, reg.getDecoders(), reg.getValidator(), reg.getErrorHandler())

	// Apply route-level middleware (from Group).
	routeMW := reg.routeMiddleware()
	for i := len(routeMW) - 1; i >= 0; i-- {
		ri.handler = routeMW[i](ri.handler)
	}

	reg.addRoute(ri)
}

// buildHandler wraps a typed Handler into an http.Handler that envelopes
// its result.
func buildHandler[Req, Resp any](b *Builder, h Handler[Req, Resp], ri routeInfo, decoders bodyDecoders, validator Validator, writeErr ErrorHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r = r.WithContext(withRouteOptions(r.Context(), ri.operation, ri.opts))

		req, err := decodeRequest[Req](r, decoders)
		if err != nil {
			var he *HTTPError
			if !errors.As(err, &he) {
				err = Error(http.StatusBadRequest, err.Error())
			}
			writeErr(w, r, err)
			return
		}

		if sv, ok := any(req).(SelfValidator); ok {
			if err := sv.Validate(); err != nil {
				writeErr(w, r, err)
				return
			}
		}

		if validator != nil {
			if err := validator.Validate(req); err != nil {
				writeErr(w, r, err)
				return
			}
		}

		resp, err := h(r.Context(), req)
		if err != nil {
			writeErr(w, r, err)
			return
		}

		var payload any
		if _, void := any(resp).(*Void); !void && resp != nil {
			payload = resp
		}

		b.Respond(w, r, payload)
	})
}

// Get registers a GET handler.
func Get[Req, Resp any](reg Registrar, pattern string, h Handler[Req, Resp], opts ...Option) {
	register(reg, http.MethodGet, pattern, h, opts...)
}

// Post registers a POST handler.
func Post[Req, Resp any](reg Registrar, pattern string, h Handler[Req, Resp], opts ...Option) {
	register(reg, http.MethodPost, pattern, h, opts...)
}

// Put registers a PUT handler.
func Put[Req, Resp any](reg Registrar, pattern string, h Handler[Req, Resp], opts ...Option) {
	register(reg, http.MethodPut, pattern, h, opts...)
}

// Patch registers a PATCH handler.
func Patch[Req, Resp any](reg Registrar, pattern string, h Handler[Req, Resp], opts ...Option) {
	register(reg, http.MethodPatch, pattern, h, opts...)
}

// Delete registers a DELETE handler.
func Delete[Req, Resp any](reg Registrar, pattern string, h Handler[Req, Resp], opts ...Option) {
	register(reg, http.MethodDelete, pattern, h, opts...)
}

// Raw registers a handler that writes its own response. The route's
// operation and its group and route options are attached to the request
// context, so Builder.Respond inside h answers the way a typed route
// would. Options passed to Respond still win.
func Raw(reg Registrar, method, pattern string, h RawHandler, opts ...Option) {
	ri := newRouteInfo(reg.getBuilder(), method, pattern, false, reg.routeOptions(), opts)
	ri.key = ""
	ri.handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h(w, r.WithContext(withRouteOptions(r.Context(), ri.operation, ri.opts)))
	})

	routeMW := reg.routeMiddleware()
	for i := len(routeMW) - 1; i >= 0; i-- {
		ri.handler = routeMW[i](ri.handler)
	}

	reg.addRoute(ri)
}
