// Package nav names the client routes and decides where a user lands when
// asking for one of them.
package nav

import (
	"fmt"
	"sync"

	"github.com/dharsanguruparan/CircularNest/internal/model"
)

// Route is a client-visible page path.
type Route string

const (
	RouteHome        Route = "/"
	RouteLogin       Route = "/login"
	RouteSignup      Route = "/signup"
	RouteGuestUpload Route = "/guest-upload"
	RouteDashboard   Route = "/dashboard"
	RouteUpload      Route = "/upload"
	RouteProfile     Route = "/profile"
	RouteAdminReview Route = "/admin/review"
	RouteCirculars   Route = "/circulars"
)

// View is the concrete screen a route resolves to.
type View string

const (
	ViewLanding        View = "landing"
	ViewLogin          View = "login"
	ViewSignup         View = "signup"
	ViewGuestUpload    View = "guest-upload"
	ViewAdminDashboard View = "admin-dashboard"
	ViewUserDashboard  View = "user-dashboard"
	ViewUserUpload     View = "user-upload"
	ViewProfile        View = "profile"
	ViewAdminReview    View = "admin-review"
	ViewCirculars      View = "circulars"
)

var protected = map[Route]bool{
	RouteDashboard:   true,
	RouteUpload:      true,
	RouteProfile:     true,
	RouteAdminReview: true,
}

// Parse checks s against the known routes.
func Parse(s string) (Route, error) {
	switch r := Route(s); r {
	case RouteHome, RouteLogin, RouteSignup, RouteGuestUpload, RouteDashboard,
		RouteUpload, RouteProfile, RouteAdminReview, RouteCirculars:
		return r, nil
	}
	return "", fmt.Errorf("unknown route %q", s)
}

// Resolve returns the view for route given the signed-in user (nil when
// anonymous). Protected routes send anonymous users to the login view, the
// dashboard is split by role and the review queue is admin only.
func Resolve(route Route, user *model.User) (View, Route) {
	if protected[route] && user == nil {
		return ViewLogin, RouteLogin
	}
	switch route {
	case RouteLogin:
		return ViewLogin, route
	case RouteSignup:
		return ViewSignup, route
	case RouteGuestUpload:
		return ViewGuestUpload, route
	case RouteDashboard:
		if user.IsAdmin() {
			return ViewAdminDashboard, route
		}
		return ViewUserDashboard, route
	case RouteUpload:
		return ViewUserUpload, route
	case RouteProfile:
		return ViewProfile, route
	case RouteAdminReview:
		if !user.IsAdmin() {
			return ViewUserDashboard, RouteDashboard
		}
		return ViewAdminReview, route
	case RouteCirculars:
		return ViewCirculars, route
	default:
		return ViewLanding, RouteHome
	}
}

// Navigator moves the client to another route.
type Navigator interface {
	Navigate(route Route)
}

// Recorder is a Navigator that remembers where it was sent.
type Recorder struct {
	mu      sync.Mutex
	history []Route
	onMove  func(Route)
}

// NewRecorder starts at RouteHome. onMove, when non-nil, runs after every
// navigation.
func NewRecorder(onMove func(Route)) *Recorder {
	return &Recorder{history: []Route{RouteHome}, onMove: onMove}
}

// Navigate records route as the current location.
func (r *Recorder) Navigate(route Route) {
	r.mu.Lock()
	r.history = append(r.history, route)
	r.mu.Unlock()
	if r.onMove != nil {
		r.onMove(route)
	}
}

// Current returns the latest route.
func (r *Recorder) Current() Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.history[len(r.history)-1]
}

// History returns every visited route, oldest first.
func (r *Recorder) History() []Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Route, len(r.history))
	copy(out, r.history)
	return out
}
