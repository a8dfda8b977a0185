package envelope

import (
	"net/http"
	"strings"
)

// Conventional REST operation names used as calling-context hints.
const (
	OpIndex   = "index"
	OpShow    = "show"
	OpStore   = "store"
	OpUpdate  = "update"
	OpDestroy = "destroy"
)

// Reserved names inside the data object.
const (
	metaKey    = "meta"
	messageKey = "message"
	errorsKey  = "errors"
)

func isReservedKey(k string) bool {
	return k == metaKey || k == messageKey || k == errorsKey
}

// OperationFunc derives the operation hint for a request. The default
// implementation reads http.Request.Pattern as set by http.ServeMux.
type OperationFunc func(r *http.Request) string

// dataKey picks the payload key. An explicit override wins; otherwise the
// singular key is used only when REST-aware mode is on and the operation is
// listed as singular.
func (c Config) dataKey(override, operation string) string {
	if override != "" {
		return override
	}
	if !c.UsingForREST {
		return c.PluralDataKey
	}
	if c.IsSingular(operation) {
		return c.SingularDataKey
	}
	return c.PluralDataKey
}

// PatternOperation infers the operation from the ServeMux pattern that
// matched r. Requests served outside a ServeMux fall back to the method.
func PatternOperation(r *http.Request) string {
	return OperationFor(r.Method, r.Pattern)
}

// OperationFor maps an HTTP method and route pattern to a REST operation:
//
//	GET    /users       index
//	GET    /users/{id}  show
//	POST   /users       store
//	PUT    /users/{id}  update
//	PATCH  /users/{id}  update
//	DELETE /users/{id}  destroy
//
// The pattern may carry a ServeMux method and host prefix. Unknown
// methods map to "".
func OperationFor(method, pattern string) string {
	switch method {
	case http.MethodGet, http.MethodHead:
		if endsWithParam(pattern) {
			return OpShow
		}
		return OpIndex
	case http.MethodPost:
		return OpStore
	case http.MethodPut, http.MethodPatch:
		return OpUpdate
	case http.MethodDelete:
		return OpDestroy
	}
	return ""
}

func endsWithParam(pattern string) bool {
	// Strip "GET " style method prefix.
	if i := strings.IndexByte(pattern, ' '); i >= 0 {
		pattern = pattern[i+1:]
	}
	pattern = strings.TrimSuffix(pattern, "/")

	seg := pattern
	if i := strings.LastIndexByte(pattern, '/'); i >= 0 {
		seg = pattern[i+1:]
	}
	return strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") && seg != "{$}"
}
