package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/steinberg-edv/mandant-api/domains/orders/be/repo"
	"github.com/steinberg-edv/mandant-api/platform/go/apierr"
	"github.com/steinberg-edv/mandant-api/platform/go/tenant"
)

type mockRepo struct {
	list func(ctx context.Context, scope tenant.Scope, p repo.ListParams) ([]map[string]any, int, error)
	get  func(ctx context.Context, scope tenant.Scope, id string) (map[string]any, error)
}

func (m *mockRepo) List(ctx context.Context, scope tenant.Scope, p repo.ListParams) ([]map[string]any, int, error) {
	return m.list(ctx, scope, p)
}

func (m *mockRepo) Get(ctx context.Context, scope tenant.Scope, id string) (map[string]any, error) {
	return m.get(ctx, scope, id)
}

func requireCode(t *testing.T, err error, status int, code string) {
	t.Helper()

	var apiErr *apierr.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, status, apiErr.Status)
	require.Equal(t, code, apiErr.Code)
}

func TestListSortAllowList(t *testing.T) {
	t.Parallel()

	var got repo.ListParams
	svc := New(&mockRepo{
		list: func(_ context.Context, _ tenant.Scope, p repo.ListParams) ([]map[string]any, int, error) {
			got = p
			return []map[string]any{}, 0, nil
		},
	})

	_, err := svc.List(context.Background(), tenant.Scope{}, ListOptions{
		Sort: "kdname",
		Dir:  "DESC",
	})
	require.NoError(t, err)
	require.Equal(t, "KdName", got.Sort)
	require.Equal(t, "DESC", got.Dir)

	_, err = svc.List(context.Background(), tenant.Scope{}, ListOptions{Sort: "Bezeichnung"})
	require.NoError(t, err)
	require.Equal(t, "AuftragNr", got.Sort)
}

func TestListStorageFailure(t *testing.T) {
	t.Parallel()

	svc := New(&mockRepo{
		list: func(context.Context, tenant.Scope, repo.ListParams) ([]map[string]any, int, error) {
			return nil, 0, errors.New("view gone")
		},
	})

	_, err := svc.List(context.Background(), tenant.Scope{}, ListOptions{})
	requireCode(t, err, http.StatusInternalServerError, apierr.CodeStorage)
}

func TestGet(t *testing.T) {
	t.Parallel()

	svc := New(&mockRepo{
		get: func(_ context.Context, _ tenant.Scope, id string) (map[string]any, error) {
			if id == "A-2026-001" {
				return map[string]any{"AuftragNr": "A-2026-001"}, nil
			}
			return nil, nil
		},
	})

	_, err := svc.Get(context.Background(), tenant.Scope{}, "")
	requireCode(t, err, http.StatusBadRequest, apierr.CodeMissingKey)

	_, err = svc.Get(context.Background(), tenant.Scope{}, "A-0000-000")
	requireCode(t, err, http.StatusNotFound, apierr.CodeRecordNotFound)

	row, err := svc.Get(context.Background(), tenant.Scope{}, "A-2026-001")
	require.NoError(t, err)
	require.Equal(t, "A-2026-001", row["AuftragNr"])
}
