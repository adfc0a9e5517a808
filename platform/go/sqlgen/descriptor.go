// Package sqlgen builds parameterized SQL fragments against the fixed legacy
// schema. Identifiers come exclusively from static resource descriptors;
// user input only ever travels as bound parameters.
package sqlgen

import (
	"fmt"
	"regexp"
	"strings"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Descriptor is the immutable metadata for one table-backed resource.
// Declared at startup, validated once, never inferred at runtime.
type Descriptor struct {
	// Name is the resource name used in logs and routes.
	Name string
	// Table is the physical table or view name.
	Table string
	// PrimaryKey is the detail-lookup column.
	PrimaryKey string
	// DefaultSort is the fallback sort column.
	DefaultSort string
	// Searchable lists the free-text columns in declaration order.
	Searchable []string
	// CompanyColumn, when set, scopes rows in shared tables by company id.
	CompanyColumn string
	// Paging selects the SQL paging dialect for this resource.
	Paging PagingStrategy
}

// Validate checks the descriptor once at startup. Anything invalid here is a
// programming error, not a request error.
func (d Descriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("descriptor: name is required")
	}
	for _, ident := range append([]string{d.Table, d.PrimaryKey, d.DefaultSort}, d.Searchable...) {
		if !identPattern.MatchString(ident) {
			return fmt.Errorf("descriptor %s: invalid identifier %q", d.Name, ident)
		}
	}
	if d.CompanyColumn != "" && !identPattern.MatchString(d.CompanyColumn) {
		return fmt.Errorf("descriptor %s: invalid company column %q", d.Name, d.CompanyColumn)
	}
	if d.Paging == nil {
		return fmt.Errorf("descriptor %s: paging strategy is required", d.Name)
	}
	return nil
}

// MustValidate panics on an invalid descriptor; used at wiring time.
func (d Descriptor) MustValidate() Descriptor {
	if err := d.Validate(); err != nil {
		panic(err)
	}
	return d
}

// Quote wraps an identifier in bracket delimiters, doubling any closing
// bracket inside the name. Names originate from descriptors only, never
// from request input.
func Quote(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}
