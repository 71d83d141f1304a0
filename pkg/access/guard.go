package access

import "net/url"

type GuardState string

const (
	StateLoading               GuardState = "loading"
	StateUnauthenticated       GuardState = "unauthenticated"
	StateRoleSelectionRequired GuardState = "role_selection_required"
	StateDenied                GuardState = "denied"
	StateAllowed               GuardState = "allowed"
)

// Decision is the outcome of a guard for one viewer. RedirectTo is only set
// for states that navigate on their own; a denial carries a Message and a
// Link the user may follow but never redirects.
type Decision struct {
	Guard      string     `json:"guard"`
	State      GuardState `json:"state"`
	Message    string     `json:"message,omitempty"`
	Link       string     `json:"link,omitempty"`
	RedirectTo string     `json:"redirectTo,omitempty"`
}

func (d Decision) Allowed() bool {
	return d.State == StateAllowed
}

// Guard gates a group of pages on a single role.
type Guard struct {
	Name   string
	Allow  Role
	denial func(Viewer) string
	backTo func(Viewer) string
}

var BookingGuard = Guard{
	Name:  "booking",
	Allow: RoleGuest,
	denial: func(v Viewer) string {
		if v.Role == RoleHost {
			return "Host accounts cannot book dinners. Switch to a guest account to make bookings."
		}
		return "You must be logged in as a guest to book dinners."
	},
	backTo: func(v Viewer) string { return LandingRoute(v.Role) },
}

var HostGuard = Guard{
	Name:  "host",
	Allow: RoleHost,
	denial: func(v Viewer) string {
		if v.Role == RoleGuest {
			return "Guest accounts cannot access the host dashboard. Switch to a host account or sign up as a host."
		}
		return "You must be logged in as a host to access the dashboard."
	},
	backTo: func(Viewer) string { return HomeRoute },
}

var guards = map[string]Guard{
	BookingGuard.Name: BookingGuard,
	HostGuard.Name:    HostGuard,
}

// LookupGuard finds a guard by name.
func LookupGuard(name string) (Guard, bool) {
	g, ok := guards[name]
	return g, ok
}

// Decide evaluates the guard. returnTo is the page being guarded and is
// carried through the sign-in redirect; it may be empty.
//
// Unauthenticated viewers are redirected to sign-in by every guard.
func (g Guard) Decide(v Viewer, returnTo string) Decision {
	d := Decision{Guard: g.Name}

	switch {
	case v.Status == Unresolved:
		d.State = StateLoading
	case v.Status == Anonymous:
		d.State = StateUnauthenticated
		d.RedirectTo = SignInURL(returnTo)
	case v.RoleSelectionPending:
		d.State = StateRoleSelectionRequired
		d.RedirectTo = RoleSelectionRoute
	case v.Role != g.Allow:
		d.State = StateDenied
		d.Message = g.denial(v)
		d.Link = g.backTo(v)
	default:
		d.State = StateAllowed
	}
	return d
}

// SignInURL builds the sign-in route with an optional return path.
func SignInURL(returnTo string) string {
	if returnTo == "" || returnTo == SignInRoute {
		return SignInRoute
	}
	return SignInRoute + "?" + url.Values{"callbackUrl": {returnTo}}.Encode()
}
