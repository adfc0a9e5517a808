// Package tenant holds the static Mandant directory and the per-request
// tenant context attached by the access middleware.
package tenant

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrTenantUnknown is returned when a requested tenant name is not configured.
var ErrTenantUnknown = errors.New("tenant unknown")

// Tenant describes one legacy per-customer database.
// The logical name is the case-sensitive match key clients send in the
// tenant header; the company id scopes rows inside shared tables.
type Tenant struct {
	Name         string `yaml:"name"`
	DatabaseName string `yaml:"databaseName"`
	CompanyID    int    `yaml:"companyId"`
}

// Directory is the immutable, process-lifetime list of configured tenants.
// It is loaded exactly once at boot; a malformed artifact aborts startup.
type Directory struct {
	ordered []string
	byName  map[string]Tenant
}

// LoadDirectory reads and validates the tenant directory artifact.
func LoadDirectory(path string) (*Directory, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tenant directory %q: %w", path, err)
	}

	var artifact struct {
		Tenants []Tenant `yaml:"tenants"`
	}
	if err := yaml.Unmarshal(raw, &artifact); err != nil {
		return nil, fmt.Errorf("parse tenant directory %q: %w", path, err)
	}

	return NewDirectory(artifact.Tenants)
}

// NewDirectory validates the tenant records and builds the lookup structure.
func NewDirectory(tenants []Tenant) (*Directory, error) {
	if len(tenants) == 0 {
		return nil, errors.New("tenant directory is empty")
	}

	dir := &Directory{
		ordered: make([]string, 0, len(tenants)),
		byName:  make(map[string]Tenant, len(tenants)),
	}

	for i, t := range tenants {
		if t.Name == "" {
			return nil, fmt.Errorf("tenant %d: name is required", i)
		}
		if t.DatabaseName == "" {
			return nil, fmt.Errorf("tenant %q: databaseName is required", t.Name)
		}
		if t.CompanyID <= 0 {
			return nil, fmt.Errorf("tenant %q: companyId must be positive", t.Name)
		}
		if _, exists := dir.byName[t.Name]; exists {
			return nil, fmt.Errorf("tenant %q: duplicate name", t.Name)
		}

		dir.ordered = append(dir.ordered, t.Name)
		dir.byName[t.Name] = t
	}

	return dir, nil
}

// Names returns the tenant names in declaration order.
func (d *Directory) Names() []string {
	out := make([]string, len(d.ordered))
	copy(out, d.ordered)
	return out
}

// Get looks up a tenant by its logical name. The match is case-sensitive.
func (d *Directory) Get(name string) (Tenant, error) {
	t, ok := d.byName[name]
	if !ok {
		return Tenant{}, fmt.Errorf("%w: %q", ErrTenantUnknown, name)
	}
	return t, nil
}
