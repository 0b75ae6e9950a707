// Package routegate decides whether a client route may render for the
// current session.
//
// A Gate reads state from a session store and answers Wait while the
// startup probe runs, Redirect to the login route for anonymous visitors,
// Redirect to the landing route for users without a required role, and
// Render otherwise. Notices for the user are not returned; they are
// published as events, at most once per authentication state:
//
//	gate := routegate.New(store)
//	defer gate.Close()
//	g.Go(gate.Forward(ctx, toaster))
//
//	switch d := gate.Decide(routegate.Route{Path: "/admin", Allowed: []client.Role{client.RoleAdmin}}, "/admin?tab=users"); d.Action {
//	case routegate.Wait:
//		// show a spinner
//	case routegate.Redirect:
//		// navigate to d.Location, remember d.From
//	case routegate.Render:
//		// render the page
//	}
package routegate

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/dmitrymomot/starter/client"
	"github.com/dmitrymomot/starter/client/sessionstore"
	"github.com/dmitrymomot/starter/pkg/broadcast"
)

// Default routes.
const (
	DefaultLoginPath   = "/login"
	DefaultLandingPath = "/app/dashboard"
)

const (
	msgDenied        = "You don't have permission to view this page."
	msgLoginRequired = "You must be logged in to access this page."
	msgLoggedOut     = "Logout successful."
)

// StateSource provides the session state. *sessionstore.Store implements it.
type StateSource interface {
	State() sessionstore.State
	ClearJustLoggedOut()
}

// Action is the outcome of Decide.
type Action int

const (
	// Wait means the session is still loading; render a placeholder.
	Wait Action = iota
	// Render means the route may render.
	Render
	// Redirect means navigate to Decision.Location.
	Redirect
)

func (a Action) String() string {
	switch a {
	case Wait:
		return "wait"
	case Render:
		return "render"
	case Redirect:
		return "redirect"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Route describes a client route.
type Route struct {
	Path string
	// Public routes render for everyone, even while loading.
	Public bool
	// Allowed lists the roles that may view a guarded route.
	// Empty means any authenticated user.
	Allowed []client.Role
}

// Decision tells the caller what to do with a navigation.
type Decision struct {
	Action   Action
	Location string
	// From is the originally requested path, set on login redirects.
	From string
}

// EventKind identifies a notice.
type EventKind int

const (
	// Denied is published when an authenticated user lacks the route's role.
	Denied EventKind = iota + 1
	// LoginRequired is published when an anonymous visitor hits a guarded route.
	LoginRequired
	// LoggedOut replaces LoginRequired right after a logout.
	LoggedOut
)

// Event is a one-time notice for the user.
type Event struct {
	Kind    EventKind
	Path    string
	Message string
}

// Toast converts the event for a client.Notifier.
func (e Event) Toast() client.Toast {
	level := client.LevelError
	if e.Kind == LoggedOut {
		level = client.LevelSuccess
	}
	return client.Toast{Level: level, Message: e.Message}
}

// Gate is a stateless router guard apart from the one-shot notice flags.
type Gate struct {
	source      StateSource
	loginPath   string
	landingPath string
	events      *broadcast.MemoryBroadcaster[Event]

	mu       sync.Mutex
	authKey  string
	notified bool
}

// Option configures a Gate.
type Option func(*Gate)

// WithLoginPath sets where anonymous visitors are sent.
func WithLoginPath(path string) Option {
	return func(g *Gate) {
		if path != "" {
			g.loginPath = path
		}
	}
}

// WithLandingPath sets where users without permission are sent.
func WithLandingPath(path string) Option {
	return func(g *Gate) {
		if path != "" {
			g.landingPath = path
		}
	}
}

// New creates a gate over source.
func New(source StateSource, opts ...Option) *Gate {
	g := &Gate{
		source:      source,
		loginPath:   DefaultLoginPath,
		landingPath: DefaultLandingPath,
		events:      broadcast.NewMemoryBroadcaster[Event](8),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Decide returns what to do when requested resolves to route.
func (g *Gate) Decide(route Route, requested string) Decision {
	if route.Public {
		return Decision{Action: Render}
	}

	st := g.source.State()
	if st.Loading {
		return Decision{Action: Wait}
	}
	g.observe(st)

	if !st.Authenticated() {
		if g.firstNotice() {
			if st.JustLoggedOut {
				g.publish(Event{Kind: LoggedOut, Path: requested, Message: msgLoggedOut})
				g.source.ClearJustLoggedOut()
			} else {
				g.publish(Event{Kind: LoginRequired, Path: requested, Message: msgLoginRequired})
			}
		}
		return Decision{Action: Redirect, Location: g.loginPath, From: requested}
	}

	if !allowed(*st.User, route.Allowed) {
		if g.firstNotice() {
			g.publish(Event{Kind: Denied, Path: requested, Message: msgDenied})
		}
		return Decision{Action: Redirect, Location: g.landingPath}
	}
	return Decision{Action: Render}
}

// Subscribe returns a subscriber for gate events.
func (g *Gate) Subscribe(ctx context.Context) broadcast.Subscriber[Event] {
	return g.events.Subscribe(ctx)
}

// Forward subscribes immediately and returns a function, suitable for
// errgroup, that shows every event through n until ctx is done or the gate
// is closed.
func (g *Gate) Forward(ctx context.Context, n client.Notifier) func() error {
	sub := g.events.Subscribe(ctx)
	return func() error {
		defer sub.Close()
		for msg := range sub.Receive(ctx) {
			n.Notify(ctx, msg.Data.Toast())
		}
		return nil
	}
}

// Close ends all subscriptions.
func (g *Gate) Close() error {
	return g.events.Close()
}

// observe re-arms the notice flag when the authentication state differs
// from the one seen by the previous decision, whatever that decision was.
func (g *Gate) observe(st sessionstore.State) {
	key := fmt.Sprintf("%d:anonymous", st.Epoch)
	if st.User != nil {
		key = fmt.Sprintf("%d:user:%d:%s", st.Epoch, st.User.ID, st.User.Role)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if key != g.authKey {
		g.authKey = key
		g.notified = false
	}
}

// firstNotice reports whether no notice was published yet for the current
// authentication state, and marks it as published.
func (g *Gate) firstNotice() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.notified {
		return false
	}
	g.notified = true
	return true
}

func (g *Gate) publish(e Event) {
	_ = g.events.Broadcast(context.Background(), broadcast.Message[Event]{Data: e})
}

func allowed(u client.User, roles []client.Role) bool {
	return len(roles) == 0 || slices.Contains(roles, u.Role)
}
