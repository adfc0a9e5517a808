// Package persistencetest starts disposable SQL Server instances for
// repository integration tests.
package persistencetest

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/microsoft/go-mssqldb"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mssql"
)

const (
	image = "mcr.microsoft.com/mssql/server:2022-latest"

	// Must satisfy the server's password complexity policy.
	saPassword = "Integr4tion!Pass"

	startTimeout = 3 * time.Minute
)

// StartSQLServer launches a disposable SQL Server container and returns a
// connected handle, torn down with the test. Skipped in short mode and when
// no container runtime is available.
func StartSQLServer(t *testing.T) *sqlx.DB {
	t.Helper()

	if testing.Short() {
		t.Skip("container-backed test skipped in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), startTimeout)
	t.Cleanup(cancel)

	ctr, err := mssql.Run(ctx, image,
		mssql.WithAcceptEULA(),
		mssql.WithPassword(saPassword),
	)
	if err != nil {
		t.Skipf("container runtime unavailable: %v", err)
	}
	t.Cleanup(func() {
		_ = testcontainers.TerminateContainer(ctr)
	})

	dsn, err := ctr.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("container connection string: %v", err)
	}

	db, err := sqlx.ConnectContext(ctx, "sqlserver", dsn)
	if err != nil {
		t.Fatalf("connect to container: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return db
}

// MustExecAll applies schema statements one by one, failing the test on the
// first error.
func MustExecAll(t *testing.T, db *sqlx.DB, statements ...string) {
	t.Helper()

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("apply schema: %v\n%s", err, stmt)
		}
	}
}
