package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/steinberg-edv/mandant-api/platform/go/persistence"
	"github.com/steinberg-edv/mandant-api/platform/go/sqlgen"
	"github.com/steinberg-edv/mandant-api/platform/go/tenant"
)

// Domain sentinel errors surfaced to the service for classification.
var (
	// ErrAvailabilityMissing means no availability row matches the BE
	// number and warehouse.
	ErrAvailabilityMissing = errors.New("availability row not found")
	// ErrInsufficientStock means the requested amount exceeds the free stock.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// BestandUebersicht is the per-warehouse availability view. Rows are shared
// across companies, hence the FirmenNr scope column.
var descriptor = sqlgen.Descriptor{
	Name:          "products",
	Table:         "BestandUebersicht",
	PrimaryKey:    "BENr",
	DefaultSort:   "BENr",
	Searchable:    []string{"BENr", "ArtikelBezeichnung", "LagerID"},
	CompanyColumn: "FirmenNr",
	Paging:        sqlgen.OffsetFetch{},
}.MustValidate()

// Descriptor exposes the products metadata to the service layer.
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

// ReserveParams is a validated reservation ready for insertion.
type ReserveParams struct {
	BeNumber    string
	WarehouseID string
	Amount      float64
	EndDate     time.Time
	Comment     string
	ShortCode   string
}

// Repository queries availability and writes reservations.
type Repository struct {
	runner *persistence.Runner
}

// New constructs the products repository.
func New(runner *persistence.Runner) *Repository {
	if runner == nil {
		panic("products repository: runner is required")
	}
	return &Repository{runner: runner}
}

// List returns one page of availability rows scoped to the tenant's company.
func (r *Repository) List(ctx context.Context, scope tenant.Scope, p ListParams) ([]map[string]any, int, error) {
	condition, args := sqlgen.SearchClause(descriptor, p.Q)

	companyCondition := sqlgen.Quote(descriptor.CompanyColumn) + " = ?"
	args = append(args, scope.Tenant.CompanyID)

	whereSQL := sqlgen.Where(condition, companyCondition)

	countRow, err := r.runner.RunOne(ctx, scope.DB, sqlgen.CountQuery(descriptor, whereSQL), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("count availability: %w", err)
	}
	total := totalFrom(countRow)

	query := descriptor.Paging.ListQuery(descriptor, whereSQL, p.Sort, p.Dir, p.Page, p.PageSize, total)
	if query == "" {
		return []map[string]any{}, total, nil
	}

	rows, err := r.runner.Run(ctx, scope.DB, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list availability: %w", err)
	}

	return rows, total, nil
}

// Get returns a single availability row by BE number, or nil when absent.
func (r *Repository) Get(ctx context.Context, scope tenant.Scope, id string) (map[string]any, error) {
	query := "SELECT TOP 1 * FROM " + sqlgen.Quote(descriptor.Table) +
		" WHERE " + sqlgen.Quote(descriptor.PrimaryKey) + " = ?" +
		" AND " + sqlgen.Quote(descriptor.CompanyColumn) + " = ?"

	row, err := r.runner.RunOne(ctx, scope.DB, query, id, scope.Tenant.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("get availability: %w", err)
	}
	return row, nil
}

// Reserve checks free stock and inserts the reservation in one transaction.
// The availability read takes UPDLOCK/HOLDLOCK so two racing reservations
// serialize on the stock row instead of overselling.
func (r *Repository) Reserve(ctx context.Context, scope tenant.Scope, p ReserveParams) (map[string]any, error) {
	var created map[string]any

	err := r.runner.WithTx(ctx, scope.DB, func(tx *sqlx.Tx) error {
		availQuery := "SELECT Verfuegbar FROM " + sqlgen.Quote(descriptor.Table) +
			" WITH (UPDLOCK, HOLDLOCK)" +
			" WHERE " + sqlgen.Quote(descriptor.PrimaryKey) + " = ? AND " + sqlgen.Quote("LagerID") + " = ?" +
			" AND " + sqlgen.Quote(descriptor.CompanyColumn) + " = ?"

		row, err := r.runner.RunOne(ctx, tx, availQuery, p.BeNumber, p.WarehouseID, scope.Tenant.CompanyID)
		if err != nil {
			return fmt.Errorf("read availability: %w", err)
		}
		if row == nil {
			return ErrAvailabilityMissing
		}

		available, ok := persistence.Float64Field(row["Verfuegbar"])
		if !ok || available < p.Amount {
			return ErrInsufficientStock
		}

		insert := `INSERT INTO Reservierungen
(BENr, LagerID, Menge, ReserviertBis, Kommentar, FirmenNr, ErfasstVon, ErfasstAm)
OUTPUT INSERTED.*
VALUES (?, ?, ?, ?, ?, ?, ?, GETDATE())`

		created, err = r.runner.RunOne(ctx, tx, insert,
			p.BeNumber, p.WarehouseID, p.Amount, p.EndDate, p.Comment,
			scope.Tenant.CompanyID, p.ShortCode)
		if err != nil {
			return fmt.Errorf("insert reservation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

func totalFrom(row map[string]any) int {
	if row == nil {
		return 0
	}
	total, _ := persistence.Int64Field(row["total"])
	return int(total)
}
