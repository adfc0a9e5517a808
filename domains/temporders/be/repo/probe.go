package repo

import (
	"context"
	"sync"

	"github.com/steinberg-edv/mandant-api/platform/go/persistence"
	"github.com/steinberg-edv/mandant-api/platform/go/tenant"
)

// wpzColumnName is the one optional column the application knows about.
// Some tenant databases were migrated without the WPZ reference on the
// position table; payloads silently omit the field there.
const wpzColumnName = "WPZNr"

// schemaProbe discovers the optional position-table columns once per
// physical database. This is the only dynamic column discovery in the
// system; everything else is static descriptors.
type schemaProbe struct {
	runner *persistence.Runner

	mu    sync.Mutex
	known map[string]string // database name -> actual column name, "" when absent
}

func newSchemaProbe(runner *persistence.Runner) *schemaProbe {
	return &schemaProbe{
		runner: runner,
		known:  make(map[string]string),
	}
}

// PositionColumns returns the WPZ column name as stored in this tenant's
// schema and whether it exists at all.
func (p *schemaProbe) PositionColumns(ctx context.Context, scope tenant.Scope) (string, bool, error) {
	p.mu.Lock()
	column, probed := p.known[scope.Tenant.DatabaseName]
	p.mu.Unlock()

	if probed {
		return column, column != "", nil
	}

	query := `SELECT COLUMN_NAME FROM INFORMATION_SCHEMA.COLUMNS
WHERE TABLE_NAME = ? AND COLUMN_NAME = ?`

	row, err := p.runner.RunOne(ctx, scope.DB, query, positionTable, wpzColumnName)
	if err != nil {
		return "", false, err
	}

	column = ""
	if row != nil {
		if name, ok := row["COLUMN_NAME"].(string); ok {
			column = name
		}
	}

	p.mu.Lock()
	p.known[scope.Tenant.DatabaseName] = column
	p.mu.Unlock()

	return column, column != "", nil
}
