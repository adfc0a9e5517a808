package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/steinberg-edv/mandant-api/domains/products/be/repo"
	"github.com/steinberg-edv/mandant-api/platform/go/apierr"
	"github.com/steinberg-edv/mandant-api/platform/go/sqlgen"
	"github.com/steinberg-edv/mandant-api/platform/go/tenant"
)

// Date layouts accepted for reservationEndDate. The legacy frontend sends
// plain dates; newer clients send RFC 3339.
var dateLayouts = []string{"2006-01-02", time.RFC3339}

// ListOptions are the raw request parameters before normalization.
type ListOptions struct {
	Q        string
	Sort     string
	Dir      string
	Page     int
	PageSize int
}

// ListResult is one page of availability rows plus the effective parameters.
type ListResult struct {
	Rows     []map[string]any
	Page     int
	PageSize int
	Total    int
	Q        string
	Sort     string
	Dir      string
}

// ReserveInput is the raw reservation payload.
type ReserveInput struct {
	BeNumber           string  `json:"beNumber"`
	WarehouseID        string  `json:"warehouseId"`
	Amount             float64 `json:"amount"`
	ReservationEndDate string  `json:"reservationEndDate"`
	Comment            string  `json:"comment"`
}

// Repository is the storage seam for the products domain.
type Repository interface {
	List(ctx context.Context, scope tenant.Scope, p repo.ListParams) ([]map[string]any, int, error)
	Get(ctx context.Context, scope tenant.Scope, id string) (map[string]any, error)
	Reserve(ctx context.Context, scope tenant.Scope, p repo.ReserveParams) (map[string]any, error)
}

// Service implements the products business operations.
type Service interface {
	List(ctx context.Context, scope tenant.Scope, opts ListOptions) (ListResult, error)
	Get(ctx context.Context, scope tenant.Scope, id string) (map[string]any, error)
	Reserve(ctx context.Context, scope tenant.Scope, input ReserveInput) (map[string]any, error)
}

type service struct {
	repo Repository
}

// New constructs the products service.
func New(r Repository) Service {
	if r == nil {
		panic("products service: repository is required")
	}
	return &service{repo: r}
}

func (s *service) List(ctx context.Context, scope tenant.Scope, opts ListOptions) (ListResult, error) {
	desc := repo.Descriptor()

	params := repo.ListParams{
		Q:        opts.Q,
		Sort:     sqlgen.ResolveSortColumn(desc, opts.Sort),
		Dir:      sqlgen.NormalizeDirection(opts.Dir),
		Page:     sqlgen.NormalizePage(opts.Page),
		PageSize: sqlgen.NormalizePageSize(opts.PageSize),
	}

	rows, total, err := s.repo.List(ctx, scope, params)
	if err != nil {
		return ListResult{}, apierr.Storage(err)
	}

	return ListResult{
		Rows:     rows,
		Page:     params.Page,
		PageSize: params.PageSize,
		Total:    total,
		Q:        opts.Q,
		Sort:     params.Sort,
		Dir:      params.Dir,
	}, nil
}

func (s *service) Get(ctx context.Context, scope tenant.Scope, id string) (map[string]any, error) {
	if id == "" {
		return nil, apierr.Validation(apierr.CodeMissingKey)
	}

	row, err := s.repo.Get(ctx, scope, id)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	if row == nil {
		return nil, apierr.RecordNotFound()
	}
	return row, nil
}

func (s *service) Reserve(ctx context.Context, scope tenant.Scope, input ReserveInput) (map[string]any, error) {
	beNumber := strings.TrimSpace(input.BeNumber)
	warehouseID := strings.TrimSpace(input.WarehouseID)
	if beNumber == "" || warehouseID == "" {
		return nil, apierr.Validation(apierr.CodeMissingKey)
	}

	if input.Amount <= 0 {
		return nil, apierr.Validation(apierr.CodeInvalidAmount)
	}

	endDate, err := parseEndDate(input.ReservationEndDate)
	if err != nil {
		return nil, apierr.Validation(apierr.CodeInvalidDate)
	}

	created, err := s.repo.Reserve(ctx, scope, repo.ReserveParams{
		BeNumber:    beNumber,
		WarehouseID: warehouseID,
		Amount:      input.Amount,
		EndDate:     endDate,
		Comment:     strings.TrimSpace(input.Comment),
		ShortCode:   scope.Identity.ShortCode,
	})
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrAvailabilityMissing):
			return nil, apierr.RecordNotFound()
		case errors.Is(err, repo.ErrInsufficientStock):
			return nil, apierr.Validation(apierr.CodeInsufficientStock)
		default:
			return nil, apierr.Storage(err)
		}
	}

	return created, nil
}

func parseEndDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errors.New("reservation end date is required")
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, errors.New("unparseable reservation end date")
}
