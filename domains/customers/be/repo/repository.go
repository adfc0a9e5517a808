package repo

import (
	"context"
	"fmt"

	"github.com/steinberg-edv/mandant-api/platform/go/persistence"
	"github.com/steinberg-edv/mandant-api/platform/go/sqlgen"
	"github.com/steinberg-edv/mandant-api/platform/go/tenant"
)

// Kunden is the legacy customer master table. Column names are historic and
// fixed; the descriptor is the only place they appear.
var descriptor = sqlgen.Descriptor{
	Name:        "customers",
	Table:       "Kunden",
	PrimaryKey:  "KdNr",
	DefaultSort: "Name1",
	Searchable:  []string{"Name1", "Name2", "Strasse", "PLZ", "Ort"},
	Paging:      sqlgen.OffsetFetch{},
}.MustValidate()

// Descriptor exposes the customers metadata to the service layer for sort
// allow-listing.
func Descriptor() sqlgen.Descriptor {
	return descriptor
}

// ListParams arrive pre-normalized from the service.
type ListParams struct {
	Q        string
	Sort     string
	Dir      string
	Page     int
	PageSize int
}

// Repository queries the customer master of the resolved tenant database.
type Repository struct {
	runner *persistence.Runner
}

// New constructs the customers repository.
func New(runner *persistence.Runner) *Repository {
	if runner == nil {
		panic("customers repository: runner is required")
	}
	return &Repository{runner: runner}
}

// List returns one page of customers plus the filtered total.
func (r *Repository) List(ctx context.Context, scope tenant.Scope, p ListParams) ([]map[string]any, int, error) {
	condition, args := sqlgen.SearchClause(descriptor, p.Q)
	whereSQL := sqlgen.Where(condition)

	countRow, err := r.runner.RunOne(ctx, scope.DB, sqlgen.CountQuery(descriptor, whereSQL), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("count customers: %w", err)
	}
	total := totalFrom(countRow)

	query := descriptor.Paging.ListQuery(descriptor, whereSQL, p.Sort, p.Dir, p.Page, p.PageSize, total)
	if query == "" {
		return []map[string]any{}, total, nil
	}

	rows, err := r.runner.Run(ctx, scope.DB, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list customers: %w", err)
	}

	return rows, total, nil
}

// Get returns a single customer by KdNr, or nil when absent.
func (r *Repository) Get(ctx context.Context, scope tenant.Scope, id string) (map[string]any, error) {
	row, err := r.runner.RunOne(ctx, scope.DB, sqlgen.DetailQuery(descriptor), id)
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return row, nil
}

func totalFrom(row map[string]any) int {
	if row == nil {
		return 0
	}
	total, _ := persistence.Int64Field(row["total"])
	return int(total)
}
