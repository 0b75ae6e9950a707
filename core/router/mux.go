package router

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"slices"
	"strings"
	"sync"

	"github.com/dmitrymomot/starter/core/handler"
)

var knownMethods = []string{
	http.MethodGet,
	http.MethodHead,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodOptions,
}

// shared is the state common to a router and all of its groups.
type shared[C handler.Context] struct {
	serveMux     *http.ServeMux
	errorHandler handler.ErrorHandler[C]
	newContext   func(http.ResponseWriter, *http.Request) C
	logger       *slog.Logger

	mu     sync.RWMutex
	routes []Route
	sealed bool // set once the first route is registered on the root
}

type mux[C handler.Context] struct {
	shared      *shared[C]
	parent      *mux[C]
	prefix      string
	middlewares []handler.Middleware[C]
}

func newMux[C handler.Context](opts ...Option[C]) *mux[C] {
	m := &mux[C]{
		shared: &shared[C]{
			serveMux:     http.NewServeMux(),
			errorHandler: defaultErrorHandler[C],
			logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		},
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.shared.newContext == nil {
		m.shared.newContext = func(w http.ResponseWriter, r *http.Request) C {
			var zero C
			if _, ok := any(zero).(*Context); ok {
				return any(NewContext(w, r)).(C)
			}
			panic(ErrNoContextFactory)
		}
	}

	m.shared.serveMux.HandleFunc("/", m.fallback)

	return m
}

// ServeHTTP implements http.Handler.
func (m *mux[C]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.shared.serveMux.ServeHTTP(w, r)
}

// fallback handles requests no registered pattern accepts.
func (m *mux[C]) fallback(w http.ResponseWriter, r *http.Request) {
	ww := newResponseWriter(w)
	ctx := m.shared.newContext(ww, r)

	if allowed := m.allowedMethods(r); len(allowed) > 0 {
		ww.Header().Set("Allow", strings.Join(allowed, ", "))
		m.shared.errorHandler(ctx, errMethodNotAllowed)
		return
	}
	m.shared.errorHandler(ctx, errNotFound)
}

func (m *mux[C]) allowedMethods(r *http.Request) []string {
	var allowed []string
	for _, method := range knownMethods {
		// OPTIONS is answered by CORS catch-alls and does not make a path exist.
		if method == r.Method || method == http.MethodOptions {
			continue
		}
		probe := r.Clone(r.Context())
		probe.Method = method
		if _, pattern := m.shared.serveMux.Handler(probe); pattern != "/" && pattern != "" {
			allowed = append(allowed, method)
		}
	}
	return allowed
}

func (m *mux[C]) Get(pattern string, h handler.HandlerFunc[C]) {
	m.handle(http.MethodGet, pattern, h)
}

func (m *mux[C]) Post(pattern string, h handler.HandlerFunc[C]) {
	m.handle(http.MethodPost, pattern, h)
}

func (m *mux[C]) Put(pattern string, h handler.HandlerFunc[C]) {
	m.handle(http.MethodPut, pattern, h)
}

func (m *mux[C]) Delete(pattern string, h handler.HandlerFunc[C]) {
	m.handle(http.MethodDelete, pattern, h)
}

func (m *mux[C]) Patch(pattern string, h handler.HandlerFunc[C]) {
	m.handle(http.MethodPatch, pattern, h)
}

func (m *mux[C]) Head(pattern string, h handler.HandlerFunc[C]) {
	m.handle(http.MethodHead, pattern, h)
}

func (m *mux[C]) Options(pattern string, h handler.HandlerFunc[C]) {
	m.handle(http.MethodOptions, pattern, h)
}

func (m *mux[C]) Handle(pattern string, h handler.HandlerFunc[C]) {
	m.handle("", pattern, h)
}

// Method registers h for each of the given methods.
func (m *mux[C]) Method(pattern string, h handler.HandlerFunc[C], methods ...string) {
	if len(methods) == 0 {
		panic(fmt.Errorf("%w: no methods provided", ErrInvalidMethod))
	}

	seen := make(map[string]bool, len(methods))
	for _, method := range methods {
		method = strings.ToUpper(method)
		if !slices.Contains(knownMethods, method) {
			panic(fmt.Errorf("%w: %s", ErrInvalidMethod, method))
		}
		if seen[method] {
			continue
		}
		seen[method] = true
		m.handle(method, pattern, h)
	}
}

// Use appends middleware. It must be called before routes are registered.
func (m *mux[C]) Use(middlewares ...handler.Middleware[C]) {
	m.shared.mu.RLock()
	sealed := m.shared.sealed
	m.shared.mu.RUnlock()
	if sealed && m.parent == nil {
		panic("router: all middlewares must be defined before routes on a mux")
	}
	m.middlewares = append(m.middlewares, middlewares...)
}

// With returns an inline group that adds middlewares to the routes registered on it.
func (m *mux[C]) With(middlewares ...handler.Middleware[C]) Router[C] {
	return &mux[C]{
		shared:      m.shared,
		parent:      m,
		prefix:      m.prefix,
		middlewares: slices.Clone(middlewares),
	}
}

// Group creates an inline group for routes sharing middleware.
func (m *mux[C]) Group(fn func(r Router[C])) Router[C] {
	g := m.With()
	if fn != nil {
		fn(g)
	}
	return g
}

// Route creates a group whose patterns are prefixed with pattern.
func (m *mux[C]) Route(pattern string, fn func(r Router[C])) Router[C] {
	if fn == nil {
		panic(fmt.Errorf("%w on '%s'", ErrNilSubrouter, pattern))
	}
	if pattern == "" || pattern[0] != '/' {
		panic(fmt.Errorf("%w: '%s'", ErrInvalidPattern, pattern))
	}

	g := &mux[C]{
		shared: m.shared,
		parent: m,
		prefix: m.prefix + strings.TrimSuffix(pattern, "/"),
	}
	fn(g)
	return g
}

// Routes returns all registered routes in registration order.
func (m *mux[C]) Routes() []Route {
	m.shared.mu.RLock()
	defer m.shared.mu.RUnlock()
	return slices.Clone(m.shared.routes)
}

// chain returns the middlewares of m and its ancestors, outermost first.
func (m *mux[C]) chain() []handler.Middleware[C] {
	var all []handler.Middleware[C]
	for curr := m; curr != nil; curr = curr.parent {
		all = append(slices.Clone(curr.middlewares), all...)
	}
	return all
}

func (m *mux[C]) handle(method, pattern string, h handler.HandlerFunc[C]) {
	if pattern == "" || pattern[0] != '/' {
		panic(fmt.Errorf("%w: '%s'", ErrInvalidPattern, pattern))
	}

	full := m.prefix + pattern
	if full != "/" && strings.HasSuffix(full, "/") && m.prefix != "" && pattern == "/" {
		full = strings.TrimSuffix(full, "/")
	}

	fn := handler.Chain(h, m.chain()...)

	muxPattern := full
	if method != "" {
		muxPattern = method + " " + full
	}

	m.shared.mu.Lock()
	m.shared.sealed = true
	m.shared.routes = append(m.shared.routes, Route{Method: method, Pattern: full})
	m.shared.mu.Unlock()

	m.shared.serveMux.HandleFunc(muxPattern, m.serve(fn))
}

// serve adapts fn to net/http with panic recovery and error handling.
func (m *mux[C]) serve(fn handler.HandlerFunc[C]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ww := newResponseWriter(w)
		ctx := m.shared.newContext(ww, r)

		defer func() {
			p := recover()
			if p == nil {
				return
			}
			if p == http.ErrAbortHandler {
				panic(p)
			}
			pe := &panicError{value: p, stack: debug.Stack()}
			if ww.Written() {
				m.shared.logger.Error("panic after response written",
					slog.Any("value", pe.value),
					slog.String("stack", string(pe.stack)),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Int("status", ww.Status()),
				)
				return
			}
			m.shared.errorHandler(ctx, pe)
		}()

		resp := fn(ctx)
		if resp == nil {
			m.shared.errorHandler(ctx, ErrNilResponse)
			return
		}

		if err := resp(ww, ctx.Request()); err != nil {
			m.shared.errorHandler(ctx, err)
		}
	}
}
