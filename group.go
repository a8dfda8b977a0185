package envelope

// Group is a collection of routes under a shared prefix with shared
// middleware and response options.
type Group struct {
	router     *Router
	prefix     string
	middleware []Middleware
	opts       []Option
}

// GroupOption configures a Group.
type GroupOption func(*Group)

// WithGroupMiddleware adds middleware to the group.
func WithGroupMiddleware(mw ...Middleware) GroupOption {
	return func(g *Group) {
		g.middleware = append(g.middleware, mw...)
	}
}

// WithGroupOptions applies response options to every route in the group.
// Route options still win.
func WithGroupOptions(opts ...Option) GroupOption {
	return func(g *Group) {
		g.opts = append(g.opts, opts...)
	}
}

// Group creates a new route group with the given prefix and options.
func (r *Router) Group(prefix string, opts ...GroupOption) *Group {
	g := &Group{
		router: r,
		prefix: prefix,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// addRoute implements Registrar for Group.
func (g *Group) addRoute(ri routeInfo) {
	ri.pattern = g.prefix + ri.pattern
	g.router.addRoute(ri)
}

func (g *Group) getBuilder() *Builder          { return g.router.builder }
func (g *Group) getValidator() Validator       { return g.router.validator }
func (g *Group) getErrorHandler() ErrorHandler { return g.router.errorHandler }
func (g *Group) getDecoders() bodyDecoders     { return g.router.bodies }
func (g *Group) routeMiddleware() []Middleware { return g.middleware }
func (g *Group) routeOptions() []Option        { return g.opts }
