// Package envelope standardizes JSON API responses for net/http. Every
// response, success or failure, is wrapped in one canonical shape:
//
//	{"response":{"data":{"entities":[...],"meta":{},"message":"Success"}}}
//	{"response":{"data":{"entity":{...},"meta":{},"message":"Success"}}}
//	{"response":{"data":{"errors":null,"message":"Error"}}}
//
// A Builder is created once from an immutable Config and shared by all
// handlers:
//
//	b, err := envelope.New(envelope.DefaultConfig())
//	env, err := b.Success(user, envelope.WithOperation("show"))
//
// Whether the payload sits under the singular or the plural key is decided
// by the calling operation. With REST-aware mode on, operations named in
// Config.MethodsForSingularKey ("show" and "update" by default) use the
// singular key. The operation is inferred from the matched route pattern
// when the builder writes to an http.ResponseWriter:
//
//	func showUser(w http.ResponseWriter, r *http.Request) {
//	    b.Respond(w, r, user) // GET /users/{id} → "entity"
//	}
//
// The typed router removes the ResponseWriter entirely. Handlers return
// plain values and errors, and the router envelopes them:
//
//	r := envelope.NewRouter(b)
//	envelope.Get(r, "/users", listUsers, envelope.WithPaginated())
//	envelope.Post(r, "/users", createUser) // "Stored", 201
//
// Middleware uses the standard func(http.Handler) http.Handler signature.
// Recovery, RateLimit, and the router's not-found handling answer with
// error envelopes, so clients only ever parse one shape.
package envelope
