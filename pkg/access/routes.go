package access

import "strings"

// RoutePolicy decides which page paths can be reached without a session.
// Exact paths match after trailing slashes are dropped; prefixes cover
// dynamic segments such as /dinners/{id}.
type RoutePolicy struct {
	Public         []string
	PublicPrefixes []string
	// Bypass paths are never inspected: auth API calls and static assets.
	Bypass []string
}

var DefaultRoutePolicy = RoutePolicy{
	Public: []string{
		"/",
		"/search",
		"/auth/signin",
		"/auth/signup",
		"/auth/error",
		"/auth/forgot-password",
		"/terms",
		"/privacy",
		"/help",
		"/about",
	},
	PublicPrefixes: []string{"/dinners/"},
	Bypass: []string{
		"/api/auth/",
		"/_next/static/",
		"/_next/image/",
		"/favicon.ico",
		"/assets/",
		"/healthz",
	},
}

func (p RoutePolicy) IsBypassed(path string) bool {
	for _, prefix := range p.Bypass {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func (p RoutePolicy) IsPublic(path string) bool {
	if p.IsBypassed(path) {
		return true
	}
	clean := normalizePath(path)
	for _, route := range p.Public {
		if clean == route {
			return true
		}
	}
	for _, prefix := range p.PublicPrefixes {
		if strings.HasPrefix(path, prefix) && len(path) > len(prefix) {
			return true
		}
	}
	return false
}
