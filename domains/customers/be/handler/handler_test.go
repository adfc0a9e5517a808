package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/steinberg-edv/mandant-api/domains/customers/be/service"
	"github.com/steinberg-edv/mandant-api/platform/go/apierr"
	"github.com/steinberg-edv/mandant-api/platform/go/respond"
	"github.com/steinberg-edv/mandant-api/platform/go/tenant"
)

type mockService struct {
	list func(ctx context.Context, scope tenant.Scope, opts service.ListOptions) (service.ListResult, error)
	get  func(ctx context.Context, scope tenant.Scope, id string) (map[string]any, error)
}

func (m *mockService) List(ctx context.Context, scope tenant.Scope, opts service.ListOptions) (service.ListResult, error) {
	return m.list(ctx, scope, opts)
}

func (m *mockService) Get(ctx context.Context, scope tenant.Scope, id string) (map[string]any, error) {
	return m.get(ctx, scope, id)
}

func scopedRequest(method, target string) *http.Request {
	r := httptest.NewRequest(method, target, nil)
	scope := tenant.Scope{
		Email:  "max@firma.de",
		Tenant: tenant.Tenant{Name: "Steinberg", DatabaseName: "STB_PROD", CompanyID: 1},
	}
	return r.WithContext(tenant.WithScope(r.Context(), scope))
}

func serve(h *Handler, r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, r)
	return rec
}

func newHandler(svc service.Service) *Handler {
	return New(svc, respond.NewWriter(apierr.NewBundle(), zap.NewNop()))
}

func TestListEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("query parameters reach the service", func(t *testing.T) {
		t.Parallel()

		var got service.ListOptions
		h := newHandler(&mockService{
			list: func(_ context.Context, scope tenant.Scope, opts service.ListOptions) (service.ListResult, error) {
				require.Equal(t, "Steinberg", scope.Tenant.Name)
				got = opts
				return service.ListResult{
					Rows:     []map[string]any{{"KdNr": 1}},
					Page:     2,
					PageSize: 10,
					Total:    31,
					Q:        opts.Q,
					Sort:     "Name1",
					Dir:      "DESC",
				}, nil
			},
		})

		rec := serve(h, scopedRequest(http.MethodGet, "/?q=Meyer&sort=name1&dir=desc&page=2&pageSize=10"))
		require.Equal(t, http.StatusOK, rec.Code)

		require.Equal(t, "Meyer", got.Q)
		require.Equal(t, "name1", got.Sort)
		require.Equal(t, "desc", got.Dir)
		require.Equal(t, 2, got.Page)
		require.Equal(t, 10, got.PageSize)

		var env respond.Envelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))

		meta, ok := env.Meta.(map[string]any)
		require.True(t, ok)
		require.EqualValues(t, 31, meta["total"])
		require.EqualValues(t, 1, meta["count"])
		require.Equal(t, "Steinberg", meta["tenant"])
	})

	t.Run("missing scope yields 401", func(t *testing.T) {
		t.Parallel()

		h := newHandler(&mockService{})

		rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("service errors pass through the writer", func(t *testing.T) {
		t.Parallel()

		h := newHandler(&mockService{
			list: func(context.Context, tenant.Scope, service.ListOptions) (service.ListResult, error) {
				return service.ListResult{}, apierr.RecordNotFound()
			},
		})

		rec := serve(h, scopedRequest(http.MethodGet, "/"))
		require.Equal(t, http.StatusNotFound, rec.Code)

		var env respond.Envelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		require.Equal(t, apierr.CodeRecordNotFound, env.Error.Code)
	})
}

func TestGetEndpoint(t *testing.T) {
	t.Parallel()

	h := newHandler(&mockService{
		get: func(_ context.Context, _ tenant.Scope, id string) (map[string]any, error) {
			require.Equal(t, "42", id)
			return map[string]any{"KdNr": 42, "Name1": "Meyer"}, nil
		},
	})

	rec := serve(h, scopedRequest(http.MethodGet, "/42"))
	require.Equal(t, http.StatusOK, rec.Code)

	var env respond.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))

	row, ok := env.Data.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "Meyer", row["Name1"])
}
