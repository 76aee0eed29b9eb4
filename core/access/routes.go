package access

import (
	"path"
	"strings"

	"github.com/trezcool/eadtoolz/core/session"
)

const (
	LoginPath   = "/login"
	ProfilePath = "/profile"

	// fallbackHome is where principals holding an unknown role land.
	fallbackHome = ProfilePath
)

// Route describes where a role lands and which paths it may reach.
// A prefix ending in "/*" matches its base path and everything below it;
// any other prefix matches the exact path and everything below it.
type Route struct {
	Home            string
	AllowedPrefixes []string
}

// RouteTable maps each role to its Route. It is the single source of post-login
// landings and guard redirects.
type RouteTable map[session.Role]Route

// DefaultRoutes is the route table of the application.
var DefaultRoutes = RouteTable{
	session.RoleAdmin: {
		Home:            "/admin",
		AllowedPrefixes: []string{"/admin/*", ProfilePath},
	},
	session.RoleTeacher: {
		Home:            "/teacher/dashboard",
		AllowedPrefixes: []string{"/teacher/*", ProfilePath},
	},
	session.RoleStudent: {
		Home:            "/student/dashboard",
		AllowedPrefixes: []string{"/student/*", ProfilePath},
	},
}

// Home returns the landing path of role.
func (rt RouteTable) Home(role session.Role) (string, bool) {
	route, ok := rt[role]
	return route.Home, ok
}

// HomeOrFallback returns the landing path of role, or the profile page for unknown roles.
func (rt RouteTable) HomeOrFallback(role session.Role) string {
	if home, ok := rt.Home(role); ok {
		return home
	}
	return fallbackHome
}

// Allows reports whether role may reach path.
func (rt RouteTable) Allows(role session.Role, path string) bool {
	route, ok := rt[role]
	if !ok {
		return path == fallbackHome
	}
	path = CleanPath(path)
	for _, prefix := range route.AllowedPrefixes {
		if matchPrefix(prefix, path) {
			return true
		}
	}
	return false
}

// Landing returns where role goes after signing in: next when role may reach it, its home otherwise.
func (rt RouteTable) Landing(role session.Role, next string) string {
	if next != "" && isLocalPath(next) && rt.Allows(role, next) {
		return CleanPath(next)
	}
	return rt.HomeOrFallback(role)
}

// Roles returns the roles allowed to reach path.
func (rt RouteTable) Roles(path string) []session.Role {
	roles := make([]session.Role, 0, len(rt))
	for _, role := range session.Roles {
		if rt.Allows(role, path) {
			roles = append(roles, role)
		}
	}
	return roles
}

// CleanPath strips the query string and fragment of p, then resolves its dot segments and trailing slash.
func CleanPath(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	return path.Clean("/" + p)
}

func matchPrefix(prefix, path string) bool {
	base := strings.TrimSuffix(prefix, "/*")
	return path == base || strings.HasPrefix(path, base+"/")
}

// isLocalPath rejects absolute and scheme-relative URLs.
func isLocalPath(path string) bool {
	return strings.HasPrefix(path, "/") && !strings.HasPrefix(path, "//") && !strings.Contains(path, `\`)
}
