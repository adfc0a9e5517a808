package service

import (
	"context"

	"github.com/steinberg-edv/mandant-api/domains/orders/be/repo"
	"github.com/steinberg-edv/mandant-api/platform/go/apierr"
	"github.com/steinberg-edv/mandant-api/platform/go/sqlgen"
	"github.com/steinberg-edv/mandant-api/platform/go/tenant"
)

// ListOptions are the raw request parameters before normalization.
type ListOptions struct {
	Q        string
	Sort     string
	Dir      string
	Page     int
	PageSize int
}

// ListResult is one page of orders plus the effective query parameters.
type ListResult struct {
	Rows     []map[string]any
	Page     int
	PageSize int
	Total    int
	Q        string
	Sort     string
	Dir      string
}

// Repository is the storage seam for the orders domain.
type Repository interface {
	List(ctx context.Context, scope tenant.Scope, p repo.ListParams) ([]map[string]any, int, error)
	Get(ctx context.Context, scope tenant.Scope, id string) (map[string]any, error)
}

// Service implements the orders read operations.
type Service interface {
	List(ctx context.Context, scope tenant.Scope, opts ListOptions) (ListResult, error)
	Get(ctx context.Context, scope tenant.Scope, id string) (map[string]any, error)
}

type service struct {
	repo Repository
}

// New constructs the orders service.
func New(r Repository) Service {
	if r == nil {
		panic("orders service: repository is required")
	}
	return &service{repo: r}
}

func (s *service) List(ctx context.Context, scope tenant.Scope, opts ListOptions) (ListResult, error) {
	desc := repo.Descriptor()

	params := repo.ListParams{
		Q:        opts.Q,
		Sort:     sqlgen.ResolveSortColumn(desc, opts.Sort),
		Dir:      sqlgen.NormalizeDirection(opts.Dir),
		Page:     sqlgen.NormalizePage(opts.Page),
		PageSize: sqlgen.NormalizePageSize(opts.PageSize),
	}

	rows, total, err := s.repo.List(ctx, scope, params)
	if err != nil {
		return ListResult{}, apierr.Storage(err)
	}

	return ListResult{
		Rows:     rows,
		Page:     params.Page,
		PageSize: params.PageSize,
		Total:    total,
		Q:        opts.Q,
		Sort:     params.Sort,
		Dir:      params.Dir,
	}, nil
}

func (s *service) Get(ctx context.Context, scope tenant.Scope, id string) (map[string]any, error) {
	if id == "" {
		return nil, apierr.Validation(apierr.CodeMissingKey)
	}

	row, err := s.repo.Get(ctx, scope, id)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	if row == nil {
		return nil, apierr.RecordNotFound()
	}
	return row, nil
}
