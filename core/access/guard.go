package access

import (
	"net/url"

	"github.com/trezcool/eadtoolz/core/session"
)

// Kind is the outcome of a guard decision.
type Kind int

const (
	Allow Kind = iota
	Loading
	Redirect
)

func (k Kind) String() string {
	switch k {
	case Allow:
		return "allow"
	case Loading:
		return "loading"
	case Redirect:
		return "redirect"
	}
	return "unknown"
}

// Decision tells a view whether to render, show a loading placeholder or redirect to Location.
// Next is the originally requested path when the redirect goes to the login page.
type Decision struct {
	Kind     Kind
	Location string
	Next     string
}

// URL returns Location, carrying Next as the post-login destination.
func (d Decision) URL() string {
	if d.Next == "" {
		return d.Location
	}
	return d.Location + "?" + url.Values{"next": {d.Next}}.Encode()
}

// Guard decides access to views from the current session state.
type Guard struct {
	routes RouteTable
}

func NewGuard(routes RouteTable) *Guard {
	return &Guard{routes: routes}
}

// Routes returns the table the guard redirects with.
func (g *Guard) Routes() RouteTable {
	return g.routes
}

// Decide checks, in order: a pending resolution shows the loading placeholder, a missing principal is
// sent to the login page, a role outside required is sent home; anything else is allowed.
// An empty required only demands a signed-in principal.
func (g *Guard) Decide(st session.State, required []session.Role, target string) Decision {
	if st.IsResolving {
		return Decision{Kind: Loading}
	}
	if st.Principal == nil {
		return Decision{Kind: Redirect, Location: LoginPath, Next: loginNext(target)}
	}
	if len(required) > 0 && !hasRole(required, st.Role) {
		return Decision{Kind: Redirect, Location: g.routes.HomeOrFallback(st.Role)}
	}
	return Decision{Kind: Allow}
}

func loginNext(target string) string {
	if target == "" {
		return ""
	}
	target = CleanPath(target)
	if target == "/" || target == LoginPath {
		return ""
	}
	return target
}

func hasRole(roles []session.Role, role session.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
