package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	mssql "github.com/microsoft/go-mssqldb"
	"go.uber.org/zap"
)

// Invalid object name. Raised when a legacy tenant database lacks an
// optional table the application knows how to live without.
const sqlErrInvalidObject = 208

// Runner executes parameterized statements and normalizes results.
// Queries use `?` positional placeholders; the rebind to the driver's @pN
// convention is purely mechanical.
type Runner struct {
	logger  *zap.Logger
	timeout time.Duration
}

// NewRunner builds a Runner. The request timeout bounds every statement and
// is floored at the same minimum as connect timeouts.
func NewRunner(logger *zap.Logger, requestTimeout time.Duration) *Runner {
	if logger == nil {
		panic("persistence: logger is required")
	}
	if requestTimeout < minTimeout {
		requestTimeout = minTimeout
	}
	return &Runner{logger: logger, timeout: requestTimeout}
}

// Run executes a query and returns the rows as ordered column→value maps.
// No result set yields an empty, non-nil slice. Failures are logged with
// full diagnostic context and returned raw for the caller to classify.
func (r *Runner) Run(ctx context.Context, db sqlx.ExtContext, query string, args ...any) ([]map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	bound := sqlx.Rebind(sqlx.AT, query)

	rows, err := db.QueryxContext(ctx, bound, args...)
	if err != nil {
		r.logFailure(query, args, err)
		return nil, err
	}
	defer rows.Close()

	out := make([]map[string]any, 0)
	for rows.Next() {
		row := map[string]any{}
		if err := rows.MapScan(row); err != nil {
			r.logFailure(query, args, err)
			return nil, err
		}
		normalizeRow(row)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		r.logFailure(query, args, err)
		return nil, err
	}

	return out, nil
}

// RunOne returns the first row of a query, or (nil, nil) when there is none.
func (r *Runner) RunOne(ctx context.Context, db sqlx.ExtContext, query string, args ...any) (map[string]any, error) {
	rows, err := r.Run(ctx, db, query, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// Exec executes a statement and returns the number of affected rows.
func (r *Runner) Exec(ctx context.Context, db sqlx.ExtContext, query string, args ...any) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	bound := sqlx.Rebind(sqlx.AT, query)

	result, err := db.ExecContext(ctx, bound, args...)
	if err != nil {
		r.logFailure(query, args, err)
		return 0, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return affected, nil
}

// CanReach reports whether the database answers a trivial liveness query.
// It never returns an error; any failure means false.
func (r *Runner) CanReach(ctx context.Context, db sqlx.ExtContext) bool {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var one int
	row := db.QueryRowxContext(ctx, "SELECT 1")
	if err := row.Scan(&one); err != nil {
		return false
	}
	return true
}

// WithTx runs fn inside a transaction, rolling back on error.
func (r *Runner) WithTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit()
}

// IsMissingObject reports whether err is the driver's "invalid object name"
// error, i.e. an expected table or view does not exist in this database.
func IsMissingObject(err error) bool {
	var sqlErr mssql.Error
	if errors.As(err, &sqlErr) {
		return sqlErr.Number == sqlErrInvalidObject
	}
	return false
}

func (r *Runner) logFailure(query string, args []any, err error) {
	fields := []zap.Field{
		zap.String("query", query),
		zap.Any("params", args),
		zap.Error(err),
	}

	var sqlErr mssql.Error
	if errors.As(err, &sqlErr) {
		fields = append(fields,
			zap.Int32("sql_number", sqlErr.Number),
			zap.Uint8("sql_state", sqlErr.State),
			zap.Uint8("sql_class", sqlErr.Class),
		)
	}

	r.logger.Error("statement failed", fields...)
}

// normalizeRow converts driver byte slices to strings so rows serialize as
// JSON text instead of base64.
func normalizeRow(row map[string]any) {
	for k, v := range row {
		if b, ok := v.([]byte); ok {
			row[k] = string(b)
		}
	}
}
