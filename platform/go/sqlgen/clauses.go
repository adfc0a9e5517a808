package sqlgen

import (
	"strings"
)

const (
	// Ascending is the default sort direction.
	Ascending = "ASC"
	// Descending is applied only on an exact case-insensitive "desc".
	Descending = "DESC"

	// DefaultPageSize applies when the client sends no page size.
	DefaultPageSize = 25
	// MaxPageSize caps a single page.
	MaxPageSize = 500
)

// SearchClause builds the free-text filter: a disjunction of LIKE predicates
// over every searchable column, binding the same wildcard value once per
// column in declaration order. An empty filter yields no condition and no
// parameters.
func SearchClause(d Descriptor, q string) (string, []any) {
	q = strings.TrimSpace(q)
	if q == "" || len(d.Searchable) == 0 {
		return "", nil
	}

	wildcard := "%" + q + "%"
	predicates := make([]string, 0, len(d.Searchable))
	args := make([]any, 0, len(d.Searchable))
	for _, col := range d.Searchable {
		predicates = append(predicates, Quote(col)+" LIKE ?")
		args = append(args, wildcard)
	}

	return "(" + strings.Join(predicates, " OR ") + ")", args
}

// Where joins non-empty conditions with AND into a WHERE fragment, or
// returns "" when every condition is empty.
func Where(conditions ...string) string {
	kept := make([]string, 0, len(conditions))
	for _, c := range conditions {
		if c != "" {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(kept, " AND ")
}

// NormalizeDirection maps any input to exactly ASC or DESC. Only an exact
// case-insensitive "desc" flips the order; everything else falls back to
// ascending because sort direction is cosmetic, not worth a 400.
func NormalizeDirection(dir string) string {
	if strings.EqualFold(strings.TrimSpace(dir), Descending) {
		return Descending
	}
	return Ascending
}

// ResolveSortColumn intersects the requested sort key with the resource's
// declared columns. Unknown keys fall back to the default sort column, so
// nothing the client sends ever reaches the builder unvetted.
func ResolveSortColumn(d Descriptor, requested string) string {
	requested = strings.TrimSpace(requested)
	if requested == "" {
		return d.DefaultSort
	}
	if strings.EqualFold(requested, d.PrimaryKey) {
		return d.PrimaryKey
	}
	if strings.EqualFold(requested, d.DefaultSort) {
		return d.DefaultSort
	}
	for _, col := range d.Searchable {
		if strings.EqualFold(requested, col) {
			return col
		}
	}
	return d.DefaultSort
}

// NormalizePage floors the 1-based page number at 1.
func NormalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// NormalizePageSize clamps the page size to [1, MaxPageSize].
func NormalizePageSize(size int) int {
	if size <= 0 {
		return DefaultPageSize
	}
	if size > MaxPageSize {
		return MaxPageSize
	}
	return size
}

// CountQuery pairs with a list query: same WHERE fragment, same parameters.
func CountQuery(d Descriptor, whereSQL string) string {
	query := "SELECT COUNT(*) AS total FROM " + Quote(d.Table)
	if whereSQL != "" {
		query += " " + whereSQL
	}
	return query
}

// DetailQuery selects a single record by primary key; the id is the only
// bound parameter.
func DetailQuery(d Descriptor) string {
	return "SELECT TOP 1 * FROM " + Quote(d.Table) + " WHERE " + Quote(d.PrimaryKey) + " = ?"
}
