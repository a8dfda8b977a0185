package envelope

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"slices"
)

// Builder builds and writes envelopes according to an immutable Config.
// It is safe for concurrent use.
type Builder struct {
	cfg       Config
	encoders  *responseEncoders
	operation OperationFunc
	logger    *slog.Logger

	extraEncoders []Encoder
	strictAccept  bool
	requestIDMeta bool
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithOperationFunc sets how the operation hint is derived from a request
// when none is given explicitly. Defaults to PatternOperation.
func WithOperationFunc(fn OperationFunc) BuilderOption {
	return func(b *Builder) {
		b.operation = fn
	}
}

// WithLogger sets the logger used for failures while responding.
// Defaults to slog.Default().
func WithLogger(l *slog.Logger) BuilderOption {
	return func(b *Builder) {
		b.logger = l
	}
}

// WithEncoder registers an additional response encoder for Accept
// negotiation. Encoders are ignored while ForceJSONResponseHeader is set.
func WithEncoder(enc Encoder) BuilderOption {
	return func(b *Builder) {
		b.extraEncoders = append(b.extraEncoders, enc)
	}
}

// WithStrictAccept answers requests whose Accept header no encoder
// satisfies with a 406 error envelope in JSON instead of falling back to
// JSON. It has no effect while ForceJSONResponseHeader is set.
func WithStrictAccept() BuilderOption {
	return func(b *Builder) {
		b.strictAccept = true
	}
}

// WithRequestIDMeta adds meta.request_id to success envelopes written for
// requests that passed through the RequestID middleware.
func WithRequestIDMeta() BuilderOption {
	return func(b *Builder) {
		b.requestIDMeta = true
	}
}

// New validates cfg and returns a Builder.
func New(cfg Config, opts ...BuilderOption) (*Builder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.MethodsForSingularKey = slices.Clone(cfg.MethodsForSingularKey)

	b := &Builder{
		cfg:       cfg,
		operation: PatternOperation,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	b.encoders = newResponseEncoders(b.cfg, b.strictAccept, b.extraEncoders)
	return b, nil
}

// MustNew is like New but panics on an invalid config.
func MustNew(cfg Config, opts ...BuilderOption) *Builder {
	b, err := New(cfg, opts...)
	if err != nil {
		panic(err)
	}
	return b
}

// Config returns a copy of the builder's configuration.
func (b *Builder) Config() Config {
	cfg := b.cfg
	cfg.MethodsForSingularKey = slices.Clone(b.cfg.MethodsForSingularKey)
	return cfg
}

// DataKey returns the payload key chosen for the given override and
// operation hint.
func (b *Builder) DataKey(override, operation string) string {
	return b.cfg.dataKey(override, operation)
}

// Option customizes a single response. Options are also accepted at route
// registration, where they apply to every response of the route.
type Option func(*options)

type options struct {
	meta      map[string]any
	message   string
	status    int
	operation string
	key       string
	headers   http.Header
	paginated bool
}

func applyOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithMeta merges m into the envelope's meta object. Later calls win on
// key conflicts.
func WithMeta(m map[string]any) Option {
	return func(o *options) {
		if o.meta == nil {
			o.meta = make(map[string]any, len(m))
		}
		maps.Copy(o.meta, m)
	}
}

// WithMessage sets the message. Defaults to "Success".
func WithMessage(msg string) Option {
	return func(o *options) {
		o.message = msg
	}
}

// WithStatus sets the HTTP status code. Defaults to 200.
func WithStatus(code int) Option {
	return func(o *options) {
		o.status = code
	}
}

// WithOperation names the calling operation ("index", "show", ...) for
// singular/plural key selection.
func WithOperation(op string) Option {
	return func(o *options) {
		o.operation = op
	}
}

// WithKey forces the payload key, overriding configuration-driven
// selection.
func WithKey(key string) Option {
	return func(o *options) {
		o.key = key
	}
}

// WithHeader adds a response header.
func WithHeader(key, value string) Option {
	return func(o *options) {
		if o.headers == nil {
			o.headers = make(http.Header)
		}
		o.headers.Add(key, value)
	}
}

// WithPaginated makes Respond and typed routes treat the payload as a
// paginated result set. Success ignores it.
func WithPaginated() Option {
	return func(o *options) {
		o.paginated = true
	}
}

// Success wraps payload into a success envelope. The payload may be any
// value whose JSON form is an object or an array, a Mapper, or a Lister;
// nil becomes an empty array. Anything else fails with
// ErrUnconvertiblePayload.
func (b *Builder) Success(payload any, opts ...Option) (*Envelope, error) {
	return b.success(payload, applyOptions(opts))
}

func (b *Builder) success(payload any, o options) (*Envelope, error) {
	raw, err := normalizePayload(payload)
	if err != nil {
		return nil, err
	}
	if o.key != "" && isReservedKey(o.key) {
		return nil, fmt.Errorf("%w: %q", ErrReservedKey, o.key)
	}

	env := &Envelope{
		Status:    http.StatusOK,
		Message:   MessageSuccess,
		Key:       b.cfg.dataKey(o.key, o.operation),
		Payload:   raw,
		Meta:      maps.Clone(o.meta),
		Headers:   o.headers,
		unwrapped: b.cfg.WithoutWrapping,
	}
	if env.Meta == nil {
		env.Meta = map[string]any{}
	}
	if o.status != 0 {
		env.Status = o.status
	}
	if o.message != "" {
		env.Message = o.message
	}
	return env, nil
}

// Paginated wraps a paginated result set. When data implements Paginator
// its items become the payload and meta.pagination carries the page
// details; meta given through WithMeta is merged alongside. Any other data
// is wrapped like Success without pagination. The plural key is used
// unless WithKey says otherwise.
func (b *Builder) Paginated(data any, opts ...Option) (*Envelope, error) {
	return b.paginated(data, applyOptions(opts))
}

func (b *Builder) paginated(data any, o options) (*Envelope, error) {
	if o.key == "" {
		o.key = b.cfg.PluralDataKey
	}

	p, ok := data.(Paginator)
	if !ok || isNil(data) {
		return b.success(data, o)
	}

	pg := p.Pagination()
	meta := map[string]any{"pagination": pg}
	maps.Copy(meta, o.meta)
	o.meta = meta
	return b.success(pg.Data, o)
}

// Error builds an error envelope. errs, when given, becomes the errors
// field: a single value as is, several as an array. Without errs the field
// is null. A zero status means 500 and an empty message means "Error".
//
// A non-empty message is rendered as given: Error("Not found", 404) reads
// "Not found", not "Error". MessageError only replaces a missing message.
func (b *Builder) Error(message string, status int, errs ...any) *Envelope {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	if message == "" {
		message = MessageError
	}

	var detail any
	switch len(errs) {
	case 0:
	case 1:
		detail = errs[0]
	default:
		detail = errs
	}

	return &Envelope{
		Status:    status,
		Message:   message,
		Errors:    detail,
		unwrapped: b.cfg.WithoutWrapping,
	}
}

// FromError converts err into an error envelope. The status comes from
// StatusCoder (500 otherwise) and the detail from ErrorDetailer. HTTPError
// messages are used verbatim; other errors get the status text so internal
// details do not leak. ValidationErrors read "Validation Failed".
func (b *Builder) FromError(err error) *Envelope {
	status := ErrorStatus(err)

	message := http.StatusText(status)
	var (
		he *HTTPError
		ve ValidationErrors
	)
	switch {
	case errors.As(err, &he) && he.Message != "":
		message = he.Message
	case errors.As(err, &ve):
		message = messageValidationFailed
	}

	var errs []any
	var d ErrorDetailer
	if errors.As(err, &d) {
		if detail := d.ErrorDetail(); detail != nil {
			errs = append(errs, detail)
		}
	}
	return b.Error(message, status, errs...)
}

// Stored answers a create: "Stored", 201.
func (b *Builder) Stored(payload any, opts ...Option) (*Envelope, error) {
	return b.Success(payload, prepend(opts,
		WithMessage("Stored"), WithStatus(http.StatusCreated), WithOperation(OpStore))...)
}

// Updated answers an update: "Updated", 200, singular key by default.
func (b *Builder) Updated(payload any, opts ...Option) (*Envelope, error) {
	return b.Success(payload, prepend(opts,
		WithMessage("Updated"), WithStatus(http.StatusOK), WithOperation(OpUpdate))...)
}

// Deleted answers a delete: "Deleted", 204, empty payload.
func (b *Builder) Deleted(opts ...Option) *Envelope {
	env, err := b.Success(nil, prepend(opts,
		WithMessage("Deleted"), WithStatus(http.StatusNoContent), WithOperation(OpDestroy))...)
	if err != nil {
		// Only a reserved WithKey gets here.
		return b.FromError(err)
	}
	return env
}

// NotFound builds a 404 error envelope.
func (b *Builder) NotFound(message string) *Envelope {
	return b.Error(orDefault(message, "Not Found"), http.StatusNotFound)
}

// Unauthorized builds a 401 error envelope.
func (b *Builder) Unauthorized(message string) *Envelope {
	return b.Error(orDefault(message, "Unauthorized"), http.StatusUnauthorized)
}

// Forbidden builds a 403 error envelope.
func (b *Builder) Forbidden(message string) *Envelope {
	return b.Error(orDefault(message, "Forbidden"), http.StatusForbidden)
}

// ValidationFailed builds a 422 error envelope carrying errs.
func (b *Builder) ValidationFailed(errs any) *Envelope {
	return b.Error(messageValidationFailed, http.StatusUnprocessableEntity, errs)
}

// TooManyRequests builds a 429 error envelope.
func (b *Builder) TooManyRequests(message string) *Envelope {
	return b.Error(orDefault(message, "Too Many Requests"), http.StatusTooManyRequests)
}

// ServerError builds a 500 error envelope.
func (b *Builder) ServerError(message string) *Envelope {
	return b.Error(orDefault(message, "Server Error"), http.StatusInternalServerError)
}

func prepend(opts []Option, defaults ...Option) []Option {
	return append(defaults, opts...)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
