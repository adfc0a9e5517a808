package tenant

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeArtifact(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tenants.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDirectory(t *testing.T) {
	t.Parallel()

	t.Run("valid artifact", func(t *testing.T) {
		t.Parallel()

		path := writeArtifact(t, `
tenants:
  - name: Steinberg
    databaseName: STB_PROD
    companyId: 1
  - name: Nordwerk
    databaseName: NW_PROD
    companyId: 2
`)

		dir, err := LoadDirectory(path)
		require.NoError(t, err)
		require.Equal(t, []string{"Steinberg", "Nordwerk"}, dir.Names())

		got, err := dir.Get("Nordwerk")
		require.NoError(t, err)
		require.Equal(t, Tenant{Name: "Nordwerk", DatabaseName: "NW_PROD", CompanyID: 2}, got)
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := LoadDirectory(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		t.Parallel()

		_, err := LoadDirectory(writeArtifact(t, "tenants: [broken"))
		require.Error(t, err)
	})
}

func TestNewDirectory(t *testing.T) {
	t.Parallel()

	base := Tenant{Name: "Steinberg", DatabaseName: "STB_PROD", CompanyID: 1}

	t.Run("empty list rejected", func(t *testing.T) {
		t.Parallel()

		_, err := NewDirectory(nil)
		require.Error(t, err)
	})

	t.Run("missing fields rejected", func(t *testing.T) {
		t.Parallel()

		for _, bad := range []Tenant{
			{DatabaseName: "X", CompanyID: 1},
			{Name: "A", CompanyID: 1},
			{Name: "A", DatabaseName: "X", CompanyID: 0},
			{Name: "A", DatabaseName: "X", CompanyID: -5},
		} {
			_, err := NewDirectory([]Tenant{bad})
			require.Error(t, err, "%+v", bad)
		}
	})

	t.Run("duplicate names rejected", func(t *testing.T) {
		t.Parallel()

		_, err := NewDirectory([]Tenant{base, base})
		require.Error(t, err)
	})

	t.Run("lookup is case-sensitive", func(t *testing.T) {
		t.Parallel()

		dir, err := NewDirectory([]Tenant{base})
		require.NoError(t, err)

		_, err = dir.Get("steinberg")
		require.ErrorIs(t, err, ErrTenantUnknown)

		_, err = dir.Get("Steinberg")
		require.NoError(t, err)
	})

	t.Run("Names returns a copy", func(t *testing.T) {
		t.Parallel()

		dir, err := NewDirectory([]Tenant{base})
		require.NoError(t, err)

		names := dir.Names()
		names[0] = "mutated"
		require.Equal(t, []string{"Steinberg"}, dir.Names())
	})
}
