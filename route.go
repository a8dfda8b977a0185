package envelope

import (
	"fmt"
	"net/http"
)

// routeInfo holds a registered route and the response options shared by
// every request it serves.
type routeInfo struct {
	method    string
	pattern   string
	operation string
	key       string
	opts      []Option

	handler http.Handler
}

// newRouteInfo resolves the route's operation and response defaults.
// Explicit options always come after the defaults so they win. A reserved
// WithKey panics so the mistake surfaces at startup.
func newRouteInfo(b *Builder, method, pattern string, void bool, inherited, opts []Option) routeInfo {
	all := append(append([]Option{}, inherited...), opts...)
	o := applyOptions(all)
	if o.key != "" && isReservedKey(o.key) {
		panic(fmt.Errorf("%w: %q on %s %s", ErrReservedKey, o.key, method, pattern))
	}

	op := o.operation
	if op == "" {
		op = OperationFor(method, pattern)
	}

	key := o.key
	if o.paginated && key == "" {
		key = b.cfg.PluralDataKey
	}

	return routeInfo{
		method:    method,
		pattern:   pattern,
		operation: op,
		key:       b.DataKey(key, op),
		opts:      append(routeDefaults(op, void), all...),
	}
}

// routeDefaults returns the message and status a route answers with unless
// its options say otherwise.
func routeDefaults(op string, void bool) []Option {
	defaults := []Option{WithOperation(op)}

	switch op {
	case OpStore:
		defaults = append(defaults, WithMessage("Stored"), WithStatus(http.StatusCreated))
	case OpDestroy:
		defaults = append(defaults, WithMessage("Deleted"))
	}
	if void {
		defaults = append(defaults, WithStatus(http.StatusNoContent))
	}
	return defaults
}
