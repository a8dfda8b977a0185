package envelope

import (
	"context"
	"net/http"
)

type contextKey[T any] struct{}

// SetValue stores a typed value in the request context. For use in middleware.
func SetValue[T any](r *http.Request, val T) *http.Request {
	return r.WithContext(withValue(r.Context(), val))
}

// GetValue retrieves a typed value from the request context. For use in handlers.
func GetValue[T any](ctx context.Context) (T, bool) {
	val, ok := ctx.Value(contextKey[T]{}).(T)
	return val, ok
}

func withValue[T any](ctx context.Context, val T) context.Context {
	return context.WithValue(ctx, contextKey[T]{}, val)
}

// operation is the context type for the calling-operation hint.
type operation string

// WithOperationContext attaches an operation hint to ctx. Builder.Respond
// prefers it over inference from the request.
func WithOperationContext(ctx context.Context, op string) context.Context {
	return withValue(ctx, operation(op))
}

// OperationFromContext returns the operation hint attached to ctx.
func OperationFromContext(ctx context.Context) (string, bool) {
	op, ok := GetValue[operation](ctx)
	return string(op), ok
}

// routeOpts is the context type for the response options of the matched
// route.
type routeOpts []Option

func withRouteOptions(ctx context.Context, op string, opts []Option) context.Context {
	return withValue(WithOperationContext(ctx, op), routeOpts(opts))
}
