package access

const (
	HomeRoute          = "/"
	HostDashboardRoute = "/host/dashboard"
	SignInRoute        = "/auth/signin"
	RoleSelectionRoute = "/auth/role-selection"
	CallbackRoute      = "/auth/callback"
	AuthErrorRoute     = "/auth/error"
)

// LandingRoute is where a user of the given role goes after signing in or
// signing up. It knows nothing about pending role selection; callers check
// that first.
func LandingRoute(role Role) string {
	if role == RoleHost {
		return HostDashboardRoute
	}
	return HomeRoute
}

// AfterCallback is the post-OAuth variant: pending accounts are sent to role
// selection, everyone else to their landing route.
func AfterCallback(v Viewer) string {
	if v.Status != Identified {
		return SignInRoute
	}
	if v.RoleSelectionPending {
		return RoleSelectionRoute
	}
	return LandingRoute(v.Role)
}
