package core

import "context"

// Principal is the authenticated identity a request or job acts as.
type Principal struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

// Require fails with ErrUnauthenticated when p is nil
// and with ErrForbidden when p holds none of roles. No roles means any authenticated principal.
func (p *Principal) Require(roles ...string) error {
	if p == nil || p.UserID == "" {
		return ErrUnauthenticated
	}
	if len(roles) == 0 {
		return nil
	}
	for _, r := range roles {
		if p.Role == r {
			return nil
		}
	}
	return ErrForbidden
}

func (p *Principal) HasRole(roles ...string) bool {
	return p != nil && p.Require(roles...) == nil
}

type principalCtxKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey{}, p)
}

// PrincipalFrom returns the principal stored in ctx, nil if there is none.
func PrincipalFrom(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalCtxKey{}).(*Principal)
	return p
}
