package repo

import (
	"context"
	"fmt"

	"github.com/steinberg-edv/mandant-api/platform/go/persistence"
	"github.com/steinberg-edv/mandant-api/platform/go/sqlgen"
	"github.com/steinberg-edv/mandant-api/platform/go/tenant"
)

// AuftragsUebersicht is the committed-order view inherited from the Access
// era. The view family has no OFFSET support, hence the nested-TOP paging.
var descriptor = sqlgen.Descriptor{
	Name:          "orders",
	Table:         "AuftragsUebersicht",
	PrimaryKey:    "AuftragNr",
	DefaultSort:   "AuftragNr",
	Searchable:    []string{"AuftragNr", "KdName", "BENr"},
	CompanyColumn: "FirmenNr",
	Paging:        sqlgen.NestedTop{},
}.MustValidate()

// Descriptor exposes the orders metadata to the service layer.
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

// Repository queries the committed-order view of the resolved tenant.
type Repository struct {
	runner *persistence.Runner
}

// New constructs the orders repository.
func New(runner *persistence.Runner) *Repository {
	if runner == nil {
		panic("orders repository: runner is required")
	}
	return &Repository{runner: runner}
}

// List returns one page of orders plus the filtered total. The nested-TOP
// strategy needs the total up front to clamp a partial last page, which is
// why the count query always runs first.
func (r *Repository) List(ctx context.Context, scope tenant.Scope, p ListParams) ([]map[string]any, int, error) {
	condition, args := sqlgen.SearchClause(descriptor, p.Q)

	companyCondition := sqlgen.Quote(descriptor.CompanyColumn) + " = ?"
	args = append(args, scope.Tenant.CompanyID)

	whereSQL := sqlgen.Where(condition, companyCondition)

	countRow, err := r.runner.RunOne(ctx, scope.DB, sqlgen.CountQuery(descriptor, whereSQL), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}
	total := totalFrom(countRow)

	query := descriptor.Paging.ListQuery(descriptor, whereSQL, p.Sort, p.Dir, p.Page, p.PageSize, total)
	if query == "" {
		return []map[string]any{}, total, nil
	}

	rows, err := r.runner.Run(ctx, scope.DB, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}

	return rows, total, nil
}

// Get returns a single order by AuftragNr, or nil when absent.
func (r *Repository) Get(ctx context.Context, scope tenant.Scope, id string) (map[string]any, error) {
	query := "SELECT TOP 1 * FROM " + sqlgen.Quote(descriptor.Table) +
		" WHERE " + sqlgen.Quote(descriptor.PrimaryKey) + " = ?" +
		" AND " + sqlgen.Quote(descriptor.CompanyColumn) + " = ?"

	row, err := r.runner.RunOne(ctx, scope.DB, query, id, scope.Tenant.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
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
