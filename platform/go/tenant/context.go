package tenant

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/steinberg-edv/mandant-api/platform/go/identity"
)

// Scope is the fully resolved tenant state attached to a request by the
// access middleware: who is calling, which Mandant, and the live handle
// to that Mandant's database.
type Scope struct {
	Email    string
	Identity identity.Employee
	Tenant   Tenant
	DB       *sqlx.DB
}

type ctxKey struct{}

// WithScope returns a derived context carrying the resolved tenant scope.
func WithScope(ctx context.Context, scope Scope) context.Context {
	return context.WithValue(ctx, ctxKey{}, scope)
}

// ScopeFromContext extracts the tenant scope and whether it is present.
func ScopeFromContext(ctx context.Context) (Scope, bool) {
	v := ctx.Value(ctxKey{})
	if v == nil {
		return Scope{}, false
	}
	scope, ok := v.(Scope)
	return scope, ok
}
