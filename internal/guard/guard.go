// Package guard decides, per navigation, whether a route renders, waits
// or redirects. Decisions are explicit values so the HTTP layer (or
// anything else hosting the portal) interprets them; the guards
// themselves never touch a ResponseWriter.
package guard

import (
	"context"
	"sync"

	"github.com/frahmantamala/academy-portal/internal/events"
	"github.com/frahmantamala/academy-portal/internal/identity"
)

type Action int

const (
	// ActionLoading means rehydration has not finished; show a loading
	// indicator and make no redirect decision yet.
	ActionLoading Action = iota
	ActionRender
	ActionRedirect
)

// Decision is the outcome of one guard evaluation. Target is only set
// for redirects.
type Decision struct {
	Action Action
	Target string
}

// SessionState is the read-only view of the session store the guards
// consult. Guards never mutate it.
type SessionState interface {
	Loading() bool
	Identity() *identity.Identity
	HasPermission(token string) bool
}

// Routes names the navigation targets guard decisions can point at.
type Routes struct {
	Login        string
	Unauthorized string
	Dashboard    string
}

func DefaultRoutes() Routes {
	return Routes{
		Login:        "/login",
		Unauthorized: "/unauthorized",
		Dashboard:    "/dashboard",
	}
}

// Protected gates routes that need an authenticated operator, and
// optionally a permission token. Evaluation is re-run on every request
// and never cached, so identity or permission changes take effect
// immediately.
type Protected struct {
	state      SessionState
	permission string
	routes     Routes
	bus        *events.EventBus

	mu       sync.Mutex
	notified map[string]struct{}
}

// NewProtected builds a guard; permission may be empty to require
// authentication only.
func NewProtected(state SessionState, permission string, routes Routes, bus *events.EventBus) *Protected {
	return &Protected{
		state:      state,
		permission: permission,
		routes:     routes,
		bus:        bus,
		notified:   make(map[string]struct{}),
	}
}

func (g *Protected) Evaluate(ctx context.Context, path string) Decision {
	if g.state.Loading() {
		return Decision{Action: ActionLoading}
	}

	ident := g.state.Identity()
	if ident == nil {
		return Decision{Action: ActionRedirect, Target: g.routes.Login}
	}

	// A pending password change can only appear here through a stale
	// store; bounce to login so re-authentication runs the change flow.
	if ident.MustChangePassword {
		g.notifyPasswordChangeOnce(ctx, path)
		return Decision{Action: ActionRedirect, Target: g.routes.Login}
	}

	if g.permission != "" && !g.state.HasPermission(g.permission) {
		return Decision{Action: ActionRedirect, Target: g.routes.Unauthorized}
	}

	return Decision{Action: ActionRender}
}

// notifyPasswordChangeOnce emits the password-change notice at most
// once per route path for this guard instance. Re-evaluating the same
// path stays quiet; a fresh guard instance starts over.
func (g *Protected) notifyPasswordChangeOnce(ctx context.Context, path string) {
	g.mu.Lock()
	_, seen := g.notified[path]
	if !seen {
		g.notified[path] = struct{}{}
	}
	g.mu.Unlock()

	if seen || g.bus == nil {
		return
	}
	_ = g.bus.PublishSync(ctx, events.NewPasswordChangeRequiredEvent(path))
}

// Public gates routes that only make sense logged out, such as the
// login page itself.
type Public struct {
	state  SessionState
	routes Routes
}

func NewPublic(state SessionState, routes Routes) *Public {
	return &Public{state: state, routes: routes}
}

func (g *Public) Evaluate(ctx context.Context, path string) Decision {
	if g.state.Loading() {
		return Decision{Action: ActionLoading}
	}
	if g.state.Identity() != nil {
		return Decision{Action: ActionRedirect, Target: g.routes.Dashboard}
	}
	return Decision{Action: ActionRender}
}
