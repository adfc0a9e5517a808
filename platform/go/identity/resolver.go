// Package identity maps authenticated emails to employee records in the
// central directory database.
package identity

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/steinberg-edv/mandant-api/platform/go/persistence"
)

// Domain sentinel errors.
var (
	// ErrNoPrincipal means the request carried no usable email at all.
	ErrNoPrincipal = errors.New("no principal email")
	// ErrUnknownEmployee means the email is not in the employee directory.
	ErrUnknownEmployee = errors.New("employee not found")
)

// Employee is the canonical identity of a directory user inside the legacy
// Mitarbeiter table.
type Employee struct {
	PersonID    int
	ShortCode   string
	DisplayName string
	Email       string
}

const (
	lookupByEmailQuery = `SELECT TOP 1 MitarbeiterNr, Kuerzel, Vorname, Name, EMail
FROM Mitarbeiter
WHERE LOWER(LTRIM(RTRIM(EMail))) = ?`

	lookupByPersonQuery = `SELECT TOP 1 MitarbeiterNr, Kuerzel, Vorname, Name, EMail
FROM Mitarbeiter
WHERE MitarbeiterNr = ?`
)

// Resolver resolves employee identities with a time-bounded cache.
// State is injected, never global, so tests get fresh instances.
type Resolver struct {
	central *sqlx.DB
	runner  *persistence.Runner
	cache   *cache
}

// NewResolver builds a Resolver against the central directory database.
func NewResolver(central *sqlx.DB, runner *persistence.Runner, ttl time.Duration) *Resolver {
	if central == nil {
		panic("identity: central database is required")
	}
	if runner == nil {
		panic("identity: runner is required")
	}
	return &Resolver{
		central: central,
		runner:  runner,
		cache:   newCache(ttl),
	}
}

// ResolveByEmail maps an email to its employee record. The email is trimmed
// and lower-cased before the cache lookup and before the SQL comparison; the
// statement additionally normalizes the stored value server-side so collation
// quirks cannot split the two sides.
func (r *Resolver) ResolveByEmail(ctx context.Context, email string) (Employee, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return Employee{}, ErrNoPrincipal
	}

	if emp, ok := r.cache.getByEmail(normalized); ok {
		return emp, nil
	}

	row, err := r.runner.RunOne(ctx, r.central, lookupByEmailQuery, normalized)
	if err != nil {
		return Employee{}, fmt.Errorf("lookup employee by email: %w", err)
	}
	if row == nil {
		return Employee{}, ErrUnknownEmployee
	}

	emp, ok := employeeFromRow(row)
	if !ok {
		// A row whose person id cannot be read is treated as absent,
		// not as a malformed-result failure.
		return Employee{}, ErrUnknownEmployee
	}
	if emp.Email == "" {
		emp.Email = normalized
	}

	r.cache.put(normalized, emp)
	return emp, nil
}

// DisplayNameByPersonID returns the composed display name for a person id,
// or "" when the person is unknown. Lookup failures other than storage
// errors never surface.
func (r *Resolver) DisplayNameByPersonID(ctx context.Context, personID int) (string, error) {
	emp, found, err := r.byPersonID(ctx, personID)
	if err != nil || !found {
		return "", err
	}
	return emp.DisplayName, nil
}

// ShortCodeByPersonID returns the employee short code for a person id, or ""
// when the person is unknown.
func (r *Resolver) ShortCodeByPersonID(ctx context.Context, personID int) (string, error) {
	emp, found, err := r.byPersonID(ctx, personID)
	if err != nil || !found {
		return "", err
	}
	return emp.ShortCode, nil
}

func (r *Resolver) byPersonID(ctx context.Context, personID int) (Employee, bool, error) {
	if emp, ok := r.cache.getByPersonID(personID); ok {
		return emp, true, nil
	}

	row, err := r.runner.RunOne(ctx, r.central, lookupByPersonQuery, personID)
	if err != nil {
		return Employee{}, false, fmt.Errorf("lookup employee by person id: %w", err)
	}
	if row == nil {
		return Employee{}, false, nil
	}

	emp, ok := employeeFromRow(row)
	if !ok {
		return Employee{}, false, nil
	}

	r.cache.put(strings.ToLower(strings.TrimSpace(emp.Email)), emp)
	return emp, true, nil
}

func employeeFromRow(row map[string]any) (Employee, bool) {
	personID, ok := numericField(row["MitarbeiterNr"])
	if !ok {
		return Employee{}, false
	}

	first := strings.TrimSpace(stringField(row["Vorname"]))
	last := strings.TrimSpace(stringField(row["Name"]))

	return Employee{
		PersonID:    personID,
		ShortCode:   strings.TrimSpace(stringField(row["Kuerzel"])),
		DisplayName: strings.TrimSpace(first + " " + last),
		Email:       strings.ToLower(strings.TrimSpace(stringField(row["EMail"]))),
	}, true
}

// numericField reads the untyped legacy person id. Non-finite values count
// as unreadable.
func numericField(v any) (int, bool) {
	switch n := v.(type) {
	case int64:
		return int(n), true
	case int32:
		return int(n), true
	case int:
		return n, true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int(n), true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
			return 0, false
		}
		return int(parsed), true
	default:
		return 0, false
	}
}

func stringField(v any) string {
	s, _ := v.(string)
	return s
}
