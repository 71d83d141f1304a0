// Package session resolves who is making a request. A session travels as a
// signed token in a cookie; on every request its role data is re-read from
// the account store so a role change is visible without signing in again.
package session

import (
	"context"

	"github.com/diagnosis/supperclub/pkg/access"
	"github.com/diagnosis/supperclub/pkg/auth"
)

type ctxKey struct{}

// Resolution is the outcome of resolving a request's session. Claims is set
// only when Status is access.Identified.
type Resolution struct {
	Status access.Status
	Claims *auth.Claims
}

func Anonymous() Resolution {
	return Resolution{Status: access.Anonymous}
}

func Identified(c *auth.Claims) Resolution {
	return Resolution{Status: access.Identified, Claims: c}
}

func (r Resolution) IsIdentified() bool {
	return r.Status == access.Identified && r.Claims != nil
}

func (r Resolution) Viewer() access.Viewer {
	if !r.IsIdentified() {
		return access.Viewer{Status: r.Status}
	}
	return access.Viewer{
		Status:               access.Identified,
		Role:                 access.Role(r.Claims.Role),
		RoleSelectionPending: r.Claims.RoleSelectionPending,
	}
}

func WithResolution(ctx context.Context, r Resolution) context.Context {
	return context.WithValue(ctx, ctxKey{}, r)
}

// FromContext returns the request's resolution. Requests that never went
// through the session middleware are Unresolved.
func FromContext(ctx context.Context) Resolution {
	if r, ok := ctx.Value(ctxKey{}).(Resolution); ok {
		return r
	}
	return Resolution{Status: access.Unresolved}
}
