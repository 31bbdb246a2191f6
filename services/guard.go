package services

import (
	"strings"

	"civicconnect-be/models"
)

type GuardState string

const (
	StateUnauthenticated           GuardState = "unauthenticated"
	StateAuthenticatedUser         GuardState = "authenticated_user"
	StateAuthenticatedOrganization GuardState = "authenticated_organization"
)

type RouteKind string

const (
	RoutePublic        RouteKind = "public"
	RouteUser          RouteKind = "user"
	RouteOrganization  RouteKind = "organization"
	RouteAuthenticated RouteKind = "authenticated"
)

const (
	LoginPath                 = "/auth/login"
	UserDashboardPath         = "/user/dashboard"
	OrganizationDashboardPath = "/organization/dashboard"
)

// Decision is the outcome of a navigation attempt. Redirect is empty when
// the navigation may proceed.
type Decision struct {
	Path     string     `json:"path"`
	Kind     RouteKind  `json:"kind"`
	State    GuardState `json:"state"`
	Allowed  bool       `json:"allowed"`
	Redirect string     `json:"redirect,omitempty"`
}

type routeEntry struct {
	pattern string
	kind    RouteKind
}

// clientRoutes maps client paths to their access kind. ":param" segments
// match any single segment.
var clientRoutes = []routeEntry{
	{"/", RoutePublic},
	{"/community", RoutePublic},
	{"/auth/login", RoutePublic},
	{"/auth/register", RoutePublic},
	{"/user/dashboard", RouteUser},
	{"/user/report-issue", RouteUser},
	{"/user/issues/:id", RouteUser},
	{"/organization/dashboard", RouteOrganization},
}

// RouteKindFor classifies a client path. Unknown paths need authentication.
func RouteKindFor(path string) RouteKind {
	path = normalizePath(path)
	for _, r := range clientRoutes {
		if matchRoute(r.pattern, path) {
			return r.kind
		}
	}
	return RouteAuthenticated
}

func normalizePath(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = "/" + strings.Trim(path, "/")
	return path
}

func matchRoute(pattern, path string) bool {
	ps := strings.Split(strings.Trim(pattern, "/"), "/")
	xs := strings.Split(strings.Trim(path, "/"), "/")
	if len(ps) != len(xs) {
		return false
	}
	for i := range ps {
		if strings.HasPrefix(ps[i], ":") {
			if xs[i] == "" {
				return false
			}
			continue
		}
		if ps[i] != xs[i] {
			return false
		}
	}
	return true
}

// StateFor maps a resolved role to a guard state.
func StateFor(authenticated bool, kind models.Kind) GuardState {
	if !authenticated {
		return StateUnauthenticated
	}
	if kind == models.KindOrganization {
		return StateAuthenticatedOrganization
	}
	return StateAuthenticatedUser
}

// Decide applies the navigation rules.
func Decide(state GuardState, kind RouteKind) (allowed bool, redirect string) {
	if kind == RoutePublic {
		return true, ""
	}
	switch state {
	case StateUnauthenticated:
		return false, LoginPath
	case StateAuthenticatedUser:
		if kind == RouteOrganization {
			return false, UserDashboardPath
		}
	case StateAuthenticatedOrganization:
		if kind == RouteUser {
			return false, OrganizationDashboardPath
		}
	}
	return true, ""
}

// DecidePath classifies path and applies the navigation rules.
func DecidePath(state GuardState, path string) Decision {
	kind := RouteKindFor(path)
	allowed, redirect := Decide(state, kind)
	return Decision{
		Path:     normalizePath(path),
		Kind:     kind,
		State:    state,
		Allowed:  allowed,
		Redirect: redirect,
	}
}

// DashboardFor is where a principal lands after login.
func DashboardFor(state GuardState) string {
	switch state {
	case StateAuthenticatedOrganization:
		return OrganizationDashboardPath
	case StateAuthenticatedUser:
		return UserDashboardPath
	}
	return LoginPath
}
