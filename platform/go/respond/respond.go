// Package respond writes the uniform {data, meta, error} envelope and carries
// the request locale used for error message translation.
package respond

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"go.uber.org/zap"

	"github.com/steinberg-edv/mandant-api/platform/go/apierr"
	"github.com/steinberg-edv/mandant-api/platform/go/logging"
)

// Envelope is the wire shape of every response.
type Envelope struct {
	Data  any        `json:"data"`
	Meta  any        `json:"meta"`
	Error *ErrorBody `json:"error"`
}

// ErrorBody is the client-facing error shape.
type ErrorBody struct {
	Message string         `json:"message"`
	Status  int            `json:"status"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

// ListMeta accompanies every list response.
type ListMeta struct {
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize"`
	Count    int    `json:"count"`
	Total    int    `json:"total"`
	Q        string `json:"q"`
	Sort     string `json:"sort"`
	Dir      string `json:"dir"`
	Tenant   string `json:"tenant"`
}

type localizerKey struct{}

// Locale returns middleware that builds an i18n localizer from Accept-Language
// and stores it on the request context.
func Locale(bundle *i18n.Bundle) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			localizer := i18n.NewLocalizer(bundle, r.Header.Get("Accept-Language"))
			ctx := context.WithValue(r.Context(), localizerKey{}, localizer)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func localizerFrom(ctx context.Context, bundle *i18n.Bundle) *i18n.Localizer {
	if l, ok := ctx.Value(localizerKey{}).(*i18n.Localizer); ok {
		return l
	}
	return i18n.NewLocalizer(bundle)
}

// Writer is the single error-translation boundary. All handlers reply through it.
type Writer struct {
	bundle *i18n.Bundle
	logger *zap.Logger
}

// NewWriter builds a Writer. Both arguments are required.
func NewWriter(bundle *i18n.Bundle, logger *zap.Logger) *Writer {
	if bundle == nil {
		panic("respond: bundle is required")
	}
	if logger == nil {
		panic("respond: logger is required")
	}
	return &Writer{bundle: bundle, logger: logger}
}

// Data writes a success envelope.
func (wr *Writer) Data(w http.ResponseWriter, status int, data any, meta any) {
	writeJSON(w, status, Envelope{Data: data, Meta: meta})
}

// Err classifies err, localizes its message, and writes the error envelope.
// Server errors are logged with their cause; client errors at warn level.
func (wr *Writer) Err(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := apierr.FromError(err)

	logger := logging.FromRequest(r, wr.logger)
	fields := []zap.Field{
		zap.String("code", apiErr.Code),
		zap.Int("status", apiErr.Status),
		zap.Error(err),
	}
	switch {
	case apiErr.Status >= http.StatusInternalServerError:
		logger.Error("request failed", fields...)
	case apiErr.Status == http.StatusNotFound:
		logger.Info("resource not found", fields...)
	default:
		logger.Warn("request rejected", fields...)
	}

	localizer := localizerFrom(r.Context(), wr.bundle)
	body := &ErrorBody{
		Message: apierr.Localize(localizer, apiErr.Code),
		Status:  apiErr.Status,
		Code:    apiErr.Code,
		Details: apiErr.Details,
	}

	writeJSON(w, apiErr.Status, Envelope{Error: body})
}

func writeJSON(w http.ResponseWriter, status int, payload Envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
