package respond

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/steinberg-edv/mandant-api/platform/go/apierr"
)

func newTestWriter() *Writer {
	return NewWriter(apierr.NewBundle(), zap.NewNop())
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()

	require.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestWriterData(t *testing.T) {
	t.Parallel()

	wr := newTestWriter()
	rec := httptest.NewRecorder()

	wr.Data(rec, http.StatusOK, []string{"a", "b"}, ListMeta{Page: 1, PageSize: 25, Count: 2, Total: 2})

	require.Equal(t, http.StatusOK, rec.Code)
	env := decode(t, rec)
	require.Nil(t, env.Error)
	require.Equal(t, []any{"a", "b"}, env.Data)

	meta, ok := env.Meta.(map[string]any)
	require.True(t, ok)
	require.EqualValues(t, 1, meta["page"])
	require.EqualValues(t, 2, meta["total"])
}

func TestWriterErr(t *testing.T) {
	t.Parallel()

	t.Run("typed error with german default", func(t *testing.T) {
		t.Parallel()

		wr := newTestWriter()
		rec := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)

		wr.Err(rec, r, apierr.RecordNotFound())

		require.Equal(t, http.StatusNotFound, rec.Code)
		env := decode(t, rec)
		require.Nil(t, env.Data)
		require.NotNil(t, env.Error)
		require.Equal(t, apierr.CodeRecordNotFound, env.Error.Code)
		require.Equal(t, "Der Datensatz wurde nicht gefunden.", env.Error.Message)
	})

	t.Run("accept-language selects english", func(t *testing.T) {
		t.Parallel()

		bundle := apierr.NewBundle()
		wr := NewWriter(bundle, zap.NewNop())

		handler := Locale(bundle)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wr.Err(w, r, apierr.TenantHeaderMissing())
		}))

		rec := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Accept-Language", "en-GB,en;q=0.9")
		handler.ServeHTTP(rec, r)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		env := decode(t, rec)
		require.Equal(t, "No tenant was specified.", env.Error.Message)
	})

	t.Run("details reach the client, the cause does not", func(t *testing.T) {
		t.Parallel()

		wr := newTestWriter()
		rec := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)

		cause := errors.New("SELECT failed: syntax error near FROM")
		wr.Err(rec, r, apierr.Storage(cause).WithDetail("resource", "customers"))

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		env := decode(t, rec)
		require.Equal(t, map[string]any{"resource": "customers"}, env.Error.Details)
		require.NotContains(t, rec.Body.String(), "syntax error")
	})

	t.Run("unclassified errors surface as internal", func(t *testing.T) {
		t.Parallel()

		wr := newTestWriter()
		rec := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)

		wr.Err(rec, r, errors.New("boom"))

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		env := decode(t, rec)
		require.Equal(t, apierr.CodeInternal, env.Error.Code)
		require.NotContains(t, rec.Body.String(), "boom")
	})
}
