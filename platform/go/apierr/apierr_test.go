package apierr

import (
	"errors"
	"net/http"
	"testing"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/stretchr/testify/require"
)

func TestFromError(t *testing.T) {
	t.Parallel()

	t.Run("typed errors pass through", func(t *testing.T) {
		t.Parallel()

		original := RecordNotFound()
		require.Same(t, original, FromError(original))
	})

	t.Run("wrapped typed errors are unwrapped", func(t *testing.T) {
		t.Parallel()

		wrapped := errors.Join(errors.New("context"), TenantHeaderMissing())
		got := FromError(wrapped)
		require.Equal(t, CodeTenantHeaderMissing, got.Code)
		require.Equal(t, http.StatusBadRequest, got.Status)
	})

	t.Run("unclassified errors become opaque 500s", func(t *testing.T) {
		t.Parallel()

		cause := errors.New("mssql: login failed for user 'sa'")
		got := FromError(cause)
		require.Equal(t, CodeInternal, got.Code)
		require.Equal(t, http.StatusInternalServerError, got.Status)
		require.ErrorIs(t, got, cause)
	})
}

func TestWithDetail(t *testing.T) {
	t.Parallel()

	err := Validation(CodeInvalidAmount).
		WithDetail("position", 2).
		WithDetail("field", "amountInKg")

	require.Equal(t, map[string]any{"position": 2, "field": "amountInKg"}, err.Details)
}

func TestConstructorsCarryStatus(t *testing.T) {
	t.Parallel()

	require.Equal(t, http.StatusUnauthorized, NoPrincipal().Status)
	require.Equal(t, http.StatusForbidden, EmployeeUnknown().Status)
	require.Equal(t, http.StatusBadRequest, TenantHeaderMissing().Status)
	require.Equal(t, http.StatusNotFound, TenantUnknown("X").Status)
	require.Equal(t, http.StatusNotFound, RecordNotFound().Status)
	require.Equal(t, http.StatusBadRequest, Validation("").Status)
	require.Equal(t, CodeValidation, Validation("").Code)
	require.Equal(t, http.StatusInternalServerError, Storage(errors.New("x")).Status)
}

func TestLocalize(t *testing.T) {
	t.Parallel()

	bundle := NewBundle()

	t.Run("german is the default", func(t *testing.T) {
		t.Parallel()

		localizer := i18n.NewLocalizer(bundle)
		require.Equal(t, "Der Datensatz wurde nicht gefunden.", Localize(localizer, CodeRecordNotFound))
	})

	t.Run("english on request", func(t *testing.T) {
		t.Parallel()

		localizer := i18n.NewLocalizer(bundle, "en-US")
		require.Equal(t, "The record was not found.", Localize(localizer, CodeRecordNotFound))
	})

	t.Run("unsupported locale falls back to german", func(t *testing.T) {
		t.Parallel()

		localizer := i18n.NewLocalizer(bundle, "fr")
		require.Equal(t, "Der Datensatz wurde nicht gefunden.", Localize(localizer, CodeRecordNotFound))
	})

	t.Run("unknown code falls back to the internal message", func(t *testing.T) {
		t.Parallel()

		localizer := i18n.NewLocalizer(bundle, "en")
		require.Equal(t, "An unexpected error occurred.", Localize(localizer, "NOT_A_CODE"))
	})
}
