package service

import (
	"context"
	"net/http"
	"testing"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/stretchr/testify/require"

	"github.com/steinberg-edv/mandant-api/domains/temporders/be/repo"
	"github.com/steinberg-edv/mandant-api/platform/go/apierr"
	"github.com/steinberg-edv/mandant-api/platform/go/identity"
	"github.com/steinberg-edv/mandant-api/platform/go/tenant"
)

type mockRepo struct {
	list              func(ctx context.Context, scope tenant.Scope, p repo.ListParams) ([]map[string]any, int, error)
	get               func(ctx context.Context, scope tenant.Scope, id int) (*repo.DraftOrder, error)
	create            func(ctx context.Context, scope tenant.Scope, input repo.DraftInput) (*repo.DraftOrder, error)
	replace           func(ctx context.Context, scope tenant.Scope, id int, input repo.DraftInput) (*repo.DraftOrder, error)
	remove            func(ctx context.Context, scope tenant.Scope, id int) error
	hasSpecialPayment func(ctx context.Context, scope tenant.Scope, code string) (bool, error)
	hasIncoterm       func(ctx context.Context, scope tenant.Scope, code string) (bool, error)
}

func (m *mockRepo) List(ctx context.Context, scope tenant.Scope, p repo.ListParams) ([]map[string]any, int, error) {
	return m.list(ctx, scope, p)
}

func (m *mockRepo) Get(ctx context.Context, scope tenant.Scope, id int) (*repo.DraftOrder, error) {
	return m.get(ctx, scope, id)
}

func (m *mockRepo) Create(ctx context.Context, scope tenant.Scope, input repo.DraftInput) (*repo.DraftOrder, error) {
	return m.create(ctx, scope, input)
}

func (m *mockRepo) Replace(ctx context.Context, scope tenant.Scope, id int, input repo.DraftInput) (*repo.DraftOrder, error) {
	return m.replace(ctx, scope, id, input)
}

func (m *mockRepo) Delete(ctx context.Context, scope tenant.Scope, id int) error {
	return m.remove(ctx, scope, id)
}

func (m *mockRepo) HasSpecialPayment(ctx context.Context, scope tenant.Scope, code string) (bool, error) {
	if m.hasSpecialPayment == nil {
		return true, nil
	}
	return m.hasSpecialPayment(ctx, scope, code)
}

func (m *mockRepo) HasIncoterm(ctx context.Context, scope tenant.Scope, code string) (bool, error) {
	if m.hasIncoterm == nil {
		return true, nil
	}
	return m.hasIncoterm(ctx, scope, code)
}

func requireCode(t *testing.T, err error, status int, code string) {
	t.Helper()

	var apiErr *apierr.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, status, apiErr.Status)
	require.Equal(t, code, apiErr.Code)
}

func testScope() tenant.Scope {
	return tenant.Scope{
		Email:    "max@firma.de",
		Identity: identity.Employee{PersonID: 42, ShortCode: "MM"},
		Tenant:   tenant.Tenant{Name: "Steinberg", DatabaseName: "STB_PROD", CompanyID: 1},
	}
}

func validDraft() DraftInput {
	customer := 1001
	return DraftInput{
		CustomerID: &customer,
		Note:       "  Probelieferung KW 38  ",
		Positions: []PositionInput{
			{BeNumber: "BE-1", WarehouseID: "L01", AmountInKg: 100, SalePricePerKg: 2.5, CostPricePerKg: 1.8},
			{BeNumber: "BE-2", WarehouseID: "L02", AmountInKg: 50, SalePricePerKg: 3.1, CostPricePerKg: 2.2},
		},
	}
}

func TestCreate(t *testing.T) {
	t.Parallel()

	t.Run("valid draft is stamped with the creator short code", func(t *testing.T) {
		t.Parallel()

		var got repo.DraftInput
		svc := New(&mockRepo{
			create: func(_ context.Context, _ tenant.Scope, input repo.DraftInput) (*repo.DraftOrder, error) {
				got = input
				return &repo.DraftOrder{ID: 5}, nil
			},
		})

		order, err := svc.Create(context.Background(), testScope(), validDraft())
		require.NoError(t, err)
		require.Equal(t, 5, order.ID)

		require.Equal(t, "MM", got.CreatedBy)
		require.Equal(t, "Probelieferung KW 38", got.Note)
		require.Len(t, got.Positions, 2)
		require.Equal(t, "BE-1", got.Positions[0].BeNumber)
	})

	t.Run("at least one position required", func(t *testing.T) {
		t.Parallel()

		svc := New(&mockRepo{})

		input := validDraft()
		input.Positions = nil
		_, err := svc.Create(context.Background(), testScope(), input)
		requireCode(t, err, http.StatusBadRequest, apierr.CodeMissingKey)
	})

	t.Run("position field validation names the offending line", func(t *testing.T) {
		t.Parallel()

		svc := New(&mockRepo{})

		for _, tc := range []struct {
			mutate func(*PositionInput)
			code   string
		}{
			{mutate: func(p *PositionInput) { p.BeNumber = " " }, code: apierr.CodeMissingKey},
			{mutate: func(p *PositionInput) { p.WarehouseID = "" }, code: apierr.CodeMissingKey},
			{mutate: func(p *PositionInput) { p.AmountInKg = 0 }, code: apierr.CodeInvalidAmount},
			{mutate: func(p *PositionInput) { p.SalePricePerKg = -1 }, code: apierr.CodeInvalidAmount},
			{mutate: func(p *PositionInput) { p.CostPricePerKg = 0 }, code: apierr.CodeInvalidAmount},
		} {
			input := validDraft()
			tc.mutate(&input.Positions[1])

			_, err := svc.Create(context.Background(), testScope(), input)
			requireCode(t, err, http.StatusBadRequest, tc.code)

			var apiErr *apierr.Error
			require.ErrorAs(t, err, &apiErr)
			require.EqualValues(t, 2, apiErr.Details["position"])
		}
	})

	t.Run("unknown reference codes rejected", func(t *testing.T) {
		t.Parallel()

		svc := New(&mockRepo{
			hasSpecialPayment: func(_ context.Context, _ tenant.Scope, code string) (bool, error) {
				require.Equal(t, "SZ9", code)
				return false, nil
			},
		})

		code := "SZ9"
		input := validDraft()
		input.SpecialPayment = &code

		_, err := svc.Create(context.Background(), testScope(), input)
		requireCode(t, err, http.StatusBadRequest, apierr.CodeUnknownReference)
	})

	t.Run("blank reference codes are dropped, not validated", func(t *testing.T) {
		t.Parallel()

		svc := New(&mockRepo{
			hasIncoterm: func(context.Context, tenant.Scope, string) (bool, error) {
				t.Fatal("lookup must not run for blank codes")
				return false, nil
			},
			create: func(_ context.Context, _ tenant.Scope, input repo.DraftInput) (*repo.DraftOrder, error) {
				require.Nil(t, input.Incoterm)
				return &repo.DraftOrder{ID: 1}, nil
			},
		})

		blank := "   "
		input := validDraft()
		input.Incoterm = &blank

		_, err := svc.Create(context.Background(), testScope(), input)
		require.NoError(t, err)
	})

	t.Run("missing position table surfaces as a schema error", func(t *testing.T) {
		t.Parallel()

		svc := New(&mockRepo{
			create: func(context.Context, tenant.Scope, repo.DraftInput) (*repo.DraftOrder, error) {
				return nil, mssql.Error{Number: 208, Message: "Invalid object name 'TempAuftragPos'."}
			},
		})

		_, err := svc.Create(context.Background(), testScope(), validDraft())
		requireCode(t, err, http.StatusInternalServerError, apierr.CodeSchemaObjectMissing)
	})
}

func TestReplace(t *testing.T) {
	t.Parallel()

	t.Run("unknown id maps to not found", func(t *testing.T) {
		t.Parallel()

		svc := New(&mockRepo{
			replace: func(context.Context, tenant.Scope, int, repo.DraftInput) (*repo.DraftOrder, error) {
				return nil, repo.ErrNotFound
			},
		})

		_, err := svc.Replace(context.Background(), testScope(), 99, validDraft())
		requireCode(t, err, http.StatusNotFound, apierr.CodeRecordNotFound)
	})

	t.Run("non-positive id rejected", func(t *testing.T) {
		t.Parallel()

		svc := New(&mockRepo{})

		_, err := svc.Replace(context.Background(), testScope(), 0, validDraft())
		requireCode(t, err, http.StatusBadRequest, apierr.CodeMissingKey)
	})
}

func TestDelete(t *testing.T) {
	t.Parallel()

	t.Run("delete passes through", func(t *testing.T) {
		t.Parallel()

		var deleted int
		svc := New(&mockRepo{
			remove: func(_ context.Context, _ tenant.Scope, id int) error {
				deleted = id
				return nil
			},
		})

		require.NoError(t, svc.Delete(context.Background(), testScope(), 7))
		require.Equal(t, 7, deleted)
	})

	t.Run("unknown id maps to not found", func(t *testing.T) {
		t.Parallel()

		svc := New(&mockRepo{
			remove: func(context.Context, tenant.Scope, int) error {
				return repo.ErrNotFound
			},
		})

		err := svc.Delete(context.Background(), testScope(), 99)
		requireCode(t, err, http.StatusNotFound, apierr.CodeRecordNotFound)
	})
}

func TestGet(t *testing.T) {
	t.Parallel()

	svc := New(&mockRepo{
		get: func(_ context.Context, _ tenant.Scope, id int) (*repo.DraftOrder, error) {
			if id == 5 {
				return &repo.DraftOrder{ID: 5, Note: "Probelieferung"}, nil
			}
			return nil, nil
		},
	})

	_, err := svc.Get(context.Background(), testScope(), 0)
	requireCode(t, err, http.StatusBadRequest, apierr.CodeMissingKey)

	_, err = svc.Get(context.Background(), testScope(), 6)
	requireCode(t, err, http.StatusNotFound, apierr.CodeRecordNotFound)

	order, err := svc.Get(context.Background(), testScope(), 5)
	require.NoError(t, err)
	require.Equal(t, "Probelieferung", order.Note)
}
