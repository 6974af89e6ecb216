package authcontext

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// Role is the coarse access role carried by an authenticated principal.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleIssuer   Role = "issuer"
	RoleCustomer Role = "customer"
)

// Principal is the authenticated caller extracted from the request token.
type Principal struct {
	ID    snowflake.ID
	Email string
	Role  Role
	OrgID snowflake.ID
}

func (p Principal) IsAdmin() bool    { return p.Role == RoleAdmin }
func (p Principal) IsIssuer() bool   { return p.Role == RoleIssuer }
func (p Principal) IsCustomer() bool { return p.Role == RoleCustomer }

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
