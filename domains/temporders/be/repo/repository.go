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

// ErrNotFound means the draft order does not exist in this tenant.
var ErrNotFound = errors.New("draft order not found")

// TempAuftrag carries the draft-order headers; TempAuftragPos the child
// position rows, keyed by parent id and a dense 1-based line number.
var descriptor = sqlgen.Descriptor{
	Name:          "temp-orders",
	Table:         "TempAuftrag",
	PrimaryKey:    "TempAuftragID",
	DefaultSort:   "TempAuftragID",
	Searchable:    []string{"Bezeichnung", "ErfasstVon"},
	CompanyColumn: "FirmenNr",
	Paging:        sqlgen.OffsetFetch{},
}.MustValidate()

const positionTable = "TempAuftragPos"

// Descriptor exposes the draft-order metadata to the service layer.
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

// Position is one draft-order line.
type Position struct {
	LineNumber     int     `json:"lineNumber"`
	BeNumber       string  `json:"beNumber"`
	WarehouseID    string  `json:"warehouseId"`
	AmountInKg     float64 `json:"amountInKg"`
	SalePricePerKg float64 `json:"salePricePerKg"`
	CostPricePerKg float64 `json:"costPricePerKg"`
	WpzNumber      *string `json:"wpzNumber,omitempty"`
}

// DraftOrder is the parent record with its ordered positions.
type DraftOrder struct {
	ID             int        `json:"id"`
	CustomerID     *int       `json:"customerId,omitempty"`
	Note           string     `json:"note"`
	SpecialPayment *string    `json:"specialPayment,omitempty"`
	Incoterm       *string    `json:"incoterm,omitempty"`
	CreatedBy      string     `json:"createdBy"`
	CreatedAt      *time.Time `json:"createdAt,omitempty"`
	Positions      []Position `json:"positions"`
}

// DraftInput is a validated draft order ready for persistence. Positions are
// written with line numbers 1..N in input order.
type DraftInput struct {
	CustomerID     *int
	Note           string
	SpecialPayment *string
	Incoterm       *string
	CreatedBy      string
	Positions      []Position
}

// Repository persists draft orders in the resolved tenant database.
type Repository struct {
	runner *persistence.Runner
	probe  *schemaProbe
}

// New constructs the temp-orders repository.
func New(runner *persistence.Runner) *Repository {
	if runner == nil {
		panic("temp-orders repository: runner is required")
	}
	return &Repository{runner: runner, probe: newSchemaProbe(runner)}
}

// List returns one page of draft-order headers plus the filtered total.
func (r *Repository) List(ctx context.Context, scope tenant.Scope, p ListParams) ([]map[string]any, int, error) {
	condition, args := sqlgen.SearchClause(descriptor, p.Q)

	companyCondition := sqlgen.Quote(descriptor.CompanyColumn) + " = ?"
	args = append(args, scope.Tenant.CompanyID)

	whereSQL := sqlgen.Where(condition, companyCondition)

	countRow, err := r.runner.RunOne(ctx, scope.DB, sqlgen.CountQuery(descriptor, whereSQL), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("count draft orders: %w", err)
	}
	total := totalFrom(countRow)

	query := descriptor.Paging.ListQuery(descriptor, whereSQL, p.Sort, p.Dir, p.Page, p.PageSize, total)
	if query == "" {
		return []map[string]any{}, total, nil
	}

	rows, err := r.runner.Run(ctx, scope.DB, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list draft orders: %w", err)
	}

	return rows, total, nil
}

// Get loads a draft order with its positions, or nil when absent.
func (r *Repository) Get(ctx context.Context, scope tenant.Scope, id int) (*DraftOrder, error) {
	headerQuery := `SELECT TOP 1 * FROM TempAuftrag WHERE TempAuftragID = ? AND FirmenNr = ?`

	header, err := r.runner.RunOne(ctx, scope.DB, headerQuery, id, scope.Tenant.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("get draft order: %w", err)
	}
	if header == nil {
		return nil, nil
	}

	order := draftFromRow(header)

	wpzColumn, _, err := r.probe.PositionColumns(ctx, scope)
	if err != nil {
		return nil, err
	}

	posQuery := `SELECT * FROM TempAuftragPos WHERE TempAuftragID = ? ORDER BY PosNr ASC`
	posRows, err := r.runner.Run(ctx, scope.DB, posQuery, id)
	if err != nil {
		return nil, fmt.Errorf("load draft order positions: %w", err)
	}

	order.Positions = make([]Position, 0, len(posRows))
	for _, row := range posRows {
		order.Positions = append(order.Positions, positionFromRow(row, wpzColumn))
	}

	return &order, nil
}

// Create inserts the parent and all positions inside one transaction.
func (r *Repository) Create(ctx context.Context, scope tenant.Scope, input DraftInput) (*DraftOrder, error) {
	var id int

	err := r.runner.WithTx(ctx, scope.DB, func(tx *sqlx.Tx) error {
		insert := `INSERT INTO TempAuftrag
(FirmenNr, KdNr, Bezeichnung, Sonderzahlung, Lieferbedingung, ErfasstVon, ErfasstAm)
OUTPUT INSERTED.TempAuftragID
VALUES (?, ?, ?, ?, ?, ?, GETDATE())`

		row, err := r.runner.RunOne(ctx, tx, insert,
			scope.Tenant.CompanyID, input.CustomerID, input.Note,
			input.SpecialPayment, input.Incoterm, input.CreatedBy)
		if err != nil {
			return fmt.Errorf("insert draft order: %w", err)
		}

		created, ok := persistence.Int64Field(row["TempAuftragID"])
		if !ok {
			return errors.New("draft order insert returned no id")
		}
		id = int(created)

		return r.insertPositions(ctx, tx, scope, id, input.Positions)
	})
	if err != nil {
		return nil, err
	}

	return r.Get(ctx, scope, id)
}

// Replace rewrites the header and swaps all positions: prior child rows are
// deleted, then the new set is inserted renumbered 1..N. One transaction; a
// crash can no longer leave a parent with partial positions.
func (r *Repository) Replace(ctx context.Context, scope tenant.Scope, id int, input DraftInput) (*DraftOrder, error) {
	err := r.runner.WithTx(ctx, scope.DB, func(tx *sqlx.Tx) error {
		update := `UPDATE TempAuftrag
SET KdNr = ?, Bezeichnung = ?, Sonderzahlung = ?, Lieferbedingung = ?
WHERE TempAuftragID = ? AND FirmenNr = ?`

		affected, err := r.runner.Exec(ctx, tx, update,
			input.CustomerID, input.Note, input.SpecialPayment, input.Incoterm,
			id, scope.Tenant.CompanyID)
		if err != nil {
			return fmt.Errorf("update draft order: %w", err)
		}
		if affected == 0 {
			return ErrNotFound
		}

		if _, err := r.runner.Exec(ctx, tx,
			`DELETE FROM TempAuftragPos WHERE TempAuftragID = ?`, id); err != nil {
			return fmt.Errorf("delete prior positions: %w", err)
		}

		return r.insertPositions(ctx, tx, scope, id, input.Positions)
	})
	if err != nil {
		return nil, err
	}

	return r.Get(ctx, scope, id)
}

// Delete removes the positions first, then the parent. The storage layer has
// no cascading delete; the ordering is enforced here.
func (r *Repository) Delete(ctx context.Context, scope tenant.Scope, id int) error {
	return r.runner.WithTx(ctx, scope.DB, func(tx *sqlx.Tx) error {
		if _, err := r.runner.Exec(ctx, tx,
			`DELETE FROM TempAuftragPos WHERE TempAuftragID = ?`, id); err != nil {
			return fmt.Errorf("delete positions: %w", err)
		}

		affected, err := r.runner.Exec(ctx, tx,
			`DELETE FROM TempAuftrag WHERE TempAuftragID = ? AND FirmenNr = ?`,
			id, scope.Tenant.CompanyID)
		if err != nil {
			return fmt.Errorf("delete draft order: %w", err)
		}
		if affected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *Repository) insertPositions(ctx context.Context, tx *sqlx.Tx, scope tenant.Scope, orderID int, positions []Position) error {
	wpzColumn, hasWpz, err := r.probe.PositionColumns(ctx, scope)
	if err != nil {
		return err
	}

	for i, pos := range positions {
		lineNumber := i + 1

		columns := "TempAuftragID, PosNr, BENr, LagerID, MengeKg, VKPreisKg, EKPreisKg"
		placeholders := "?, ?, ?, ?, ?, ?, ?"
		args := []any{orderID, lineNumber, pos.BeNumber, pos.WarehouseID,
			pos.AmountInKg, pos.SalePricePerKg, pos.CostPricePerKg}

		if hasWpz && pos.WpzNumber != nil {
			columns += ", " + sqlgen.Quote(wpzColumn)
			placeholders += ", ?"
			args = append(args, *pos.WpzNumber)
		}

		insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			sqlgen.Quote(positionTable), columns, placeholders)

		if _, err := r.runner.Exec(ctx, tx, insert, args...); err != nil {
			return fmt.Errorf("insert position %d: %w", lineNumber, err)
		}
	}

	return nil
}

// HasSpecialPayment reports whether the code exists in the reference table.
func (r *Repository) HasSpecialPayment(ctx context.Context, scope tenant.Scope, code string) (bool, error) {
	row, err := r.runner.RunOne(ctx, scope.DB,
		`SELECT TOP 1 Code FROM Sonderzahlungen WHERE Code = ?`, code)
	if err != nil {
		return false, fmt.Errorf("lookup special payment: %w", err)
	}
	return row != nil, nil
}

// HasIncoterm reports whether the delivery-condition code is on file.
func (r *Repository) HasIncoterm(ctx context.Context, scope tenant.Scope, code string) (bool, error) {
	row, err := r.runner.RunOne(ctx, scope.DB,
		`SELECT TOP 1 Incoterm FROM Lieferbedingungen WHERE Incoterm = ?`, code)
	if err != nil {
		return false, fmt.Errorf("lookup incoterm: %w", err)
	}
	return row != nil, nil
}

func draftFromRow(row map[string]any) DraftOrder {
	order := DraftOrder{}

	if id, ok := persistence.Int64Field(row["TempAuftragID"]); ok {
		order.ID = int(id)
	}
	if kdNr, ok := persistence.Int64Field(row["KdNr"]); ok {
		customerID := int(kdNr)
		order.CustomerID = &customerID
	}
	if note, ok := row["Bezeichnung"].(string); ok {
		order.Note = note
	}
	if v, ok := row["Sonderzahlung"].(string); ok && v != "" {
		order.SpecialPayment = &v
	}
	if v, ok := row["Lieferbedingung"].(string); ok && v != "" {
		order.Incoterm = &v
	}
	if v, ok := row["ErfasstVon"].(string); ok {
		order.CreatedBy = v
	}
	if v, ok := row["ErfasstAm"].(time.Time); ok {
		order.CreatedAt = &v
	}

	return order
}

func positionFromRow(row map[string]any, wpzColumn string) Position {
	pos := Position{}

	if v, ok := persistence.Int64Field(row["PosNr"]); ok {
		pos.LineNumber = int(v)
	}
	if v, ok := row["BENr"].(string); ok {
		pos.BeNumber = v
	}
	if v, ok := row["LagerID"].(string); ok {
		pos.WarehouseID = v
	}
	if v, ok := persistence.Float64Field(row["MengeKg"]); ok {
		pos.AmountInKg = v
	}
	if v, ok := persistence.Float64Field(row["VKPreisKg"]); ok {
		pos.SalePricePerKg = v
	}
	if v, ok := persistence.Float64Field(row["EKPreisKg"]); ok {
		pos.CostPricePerKg = v
	}
	if wpzColumn != "" {
		if v, ok := row[wpzColumn].(string); ok && v != "" {
			pos.WpzNumber = &v
		}
	}

	return pos
}

func totalFrom(row map[string]any) int {
	if row == nil {
		return 0
	}
	total, _ := persistence.Int64Field(row["total"])
	return int(total)
}
