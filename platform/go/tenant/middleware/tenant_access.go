// Package middleware resolves the request principal and the requested
// Mandant into a live database scope. It is the single place where tenant
// resolution happens; handlers never re-validate tenant existence.
package middleware

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/steinberg-edv/mandant-api/platform/go/apierr"
	"github.com/steinberg-edv/mandant-api/platform/go/auth"
	"github.com/steinberg-edv/mandant-api/platform/go/identity"
	"github.com/steinberg-edv/mandant-api/platform/go/logging"
	"github.com/steinberg-edv/mandant-api/platform/go/persistence"
	"github.com/steinberg-edv/mandant-api/platform/go/respond"
	"github.com/steinberg-edv/mandant-api/platform/go/tenant"
)

// HeaderTenant selects the logical tenant for every tenant-scoped call.
const HeaderTenant = "X-Mandant"

// Deps are the collaborators the access middleware needs. All required.
type Deps struct {
	Directory *tenant.Directory
	Pools     *persistence.Manager
	Runner    *persistence.Runner
	Identity  *identity.Resolver
	Respond   *respond.Writer
}

// TenantAccess short-circuits at the first unmet precondition:
// principal → identity → tenant header → directory entry → reachable pool.
// On success the request context carries the resolved tenant scope.
func TenantAccess(deps Deps) func(http.Handler) http.Handler {
	if deps.Directory == nil || deps.Pools == nil || deps.Runner == nil || deps.Identity == nil || deps.Respond == nil {
		panic("tenant middleware: all deps are required")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			principal, ok := auth.PrincipalFromContext(ctx)
			if !ok {
				deps.Respond.Err(w, r, apierr.NoPrincipal())
				return
			}

			emp, err := deps.Identity.ResolveByEmail(ctx, principal.Email)
			if err != nil {
				switch {
				case errors.Is(err, identity.ErrNoPrincipal):
					deps.Respond.Err(w, r, apierr.NoPrincipal())
				case errors.Is(err, identity.ErrUnknownEmployee):
					deps.Respond.Err(w, r, apierr.EmployeeUnknown())
				default:
					deps.Respond.Err(w, r, apierr.Storage(err))
				}
				return
			}

			name := r.Header.Get(HeaderTenant)
			if name == "" {
				deps.Respond.Err(w, r, apierr.TenantHeaderMissing())
				return
			}

			desc, err := deps.Directory.Get(name)
			if err != nil {
				deps.Respond.Err(w, r, apierr.TenantUnknown(name))
				return
			}

			db, err := deps.Pools.Acquire(ctx, desc.DatabaseName)
			if err != nil {
				// The descriptor exists but its database does not answer;
				// clients see the same terminal state as an unknown tenant.
				deps.Respond.Err(w, r, apierr.TenantUnknown(name))
				return
			}

			if !deps.Runner.CanReach(ctx, db) {
				deps.Respond.Err(w, r, apierr.TenantUnknown(name))
				return
			}

			if logger, found := logging.FromContext(ctx); found {
				ctx = logging.WithLogger(ctx, logger.With(
					zap.String("tenant", desc.Name),
					zap.Int("person_id", emp.PersonID),
				))
			}

			scope := tenant.Scope{
				Email:    emp.Email,
				Identity: emp,
				Tenant:   desc,
				DB:       db,
			}

			next.ServeHTTP(w, r.WithContext(tenant.WithScope(ctx, scope)))
		})
	}
}
