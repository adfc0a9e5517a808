package service

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/steinberg-edv/mandant-api/domains/temporders/be/repo"
	"github.com/steinberg-edv/mandant-api/platform/go/apierr"
	"github.com/steinberg-edv/mandant-api/platform/go/persistence"
	"github.com/steinberg-edv/mandant-api/platform/go/sqlgen"
	"github.com/steinberg-edv/mandant-api/platform/go/tenant"
)

// ListOptions are the raw request parameters before normalization.
type ListOptions struct {
	Q        string
	Sort     string
	Dir      string
	Page     int
	PageSize int
}

// ListResult is one page of draft-order headers.
type ListResult struct {
	Rows     []map[string]any
	Page     int
	PageSize int
	Total    int
	Q        string
	Sort     string
	Dir      string
}

// PositionInput is one raw position from the request body.
type PositionInput struct {
	BeNumber       string  `json:"beNumber"`
	WarehouseID    string  `json:"warehouseId"`
	AmountInKg     float64 `json:"amountInKg"`
	SalePricePerKg float64 `json:"salePricePerKg"`
	CostPricePerKg float64 `json:"costPricePerKg"`
	WpzNumber      *string `json:"wpzNumber,omitempty"`
}

// DraftInput is the raw draft-order payload.
type DraftInput struct {
	CustomerID     *int            `json:"customerId,omitempty"`
	Note           string          `json:"note"`
	SpecialPayment *string         `json:"specialPayment,omitempty"`
	Incoterm       *string         `json:"incoterm,omitempty"`
	Positions      []PositionInput `json:"positions"`
}

// Repository is the storage seam for the temp-orders domain.
type Repository interface {
	List(ctx context.Context, scope tenant.Scope, p repo.ListParams) ([]map[string]any, int, error)
	Get(ctx context.Context, scope tenant.Scope, id int) (*repo.DraftOrder, error)
	Create(ctx context.Context, scope tenant.Scope, input repo.DraftInput) (*repo.DraftOrder, error)
	Replace(ctx context.Context, scope tenant.Scope, id int, input repo.DraftInput) (*repo.DraftOrder, error)
	Delete(ctx context.Context, scope tenant.Scope, id int) error
	HasSpecialPayment(ctx context.Context, scope tenant.Scope, code string) (bool, error)
	HasIncoterm(ctx context.Context, scope tenant.Scope, code string) (bool, error)
}

// Service implements the draft-order lifecycle.
type Service interface {
	List(ctx context.Context, scope tenant.Scope, opts ListOptions) (ListResult, error)
	Get(ctx context.Context, scope tenant.Scope, id int) (*repo.DraftOrder, error)
	Create(ctx context.Context, scope tenant.Scope, input DraftInput) (*repo.DraftOrder, error)
	Replace(ctx context.Context, scope tenant.Scope, id int, input DraftInput) (*repo.DraftOrder, error)
	Delete(ctx context.Context, scope tenant.Scope, id int) error
}

type service struct {
	repo Repository
}

// New constructs the temp-orders service.
func New(r Repository) Service {
	if r == nil {
		panic("temp-orders service: repository is required")
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
		return ListResult{}, storageError(err)
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

func (s *service) Get(ctx context.Context, scope tenant.Scope, id int) (*repo.DraftOrder, error) {
	if id <= 0 {
		return nil, apierr.Validation(apierr.CodeMissingKey)
	}

	order, err := s.repo.Get(ctx, scope, id)
	if err != nil {
		return nil, storageError(err)
	}
	if order == nil {
		return nil, apierr.RecordNotFound()
	}
	return order, nil
}

func (s *service) Create(ctx context.Context, scope tenant.Scope, input DraftInput) (*repo.DraftOrder, error) {
	prepared, err := s.prepare(ctx, scope, input)
	if err != nil {
		return nil, err
	}
	prepared.CreatedBy = scope.Identity.ShortCode

	order, err := s.repo.Create(ctx, scope, prepared)
	if err != nil {
		return nil, storageError(err)
	}
	return order, nil
}

func (s *service) Replace(ctx context.Context, scope tenant.Scope, id int, input DraftInput) (*repo.DraftOrder, error) {
	if id <= 0 {
		return nil, apierr.Validation(apierr.CodeMissingKey)
	}

	prepared, err := s.prepare(ctx, scope, input)
	if err != nil {
		return nil, err
	}

	order, err := s.repo.Replace(ctx, scope, id, prepared)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, apierr.RecordNotFound()
		}
		return nil, storageError(err)
	}
	return order, nil
}

func (s *service) Delete(ctx context.Context, scope tenant.Scope, id int) error {
	if id <= 0 {
		return apierr.Validation(apierr.CodeMissingKey)
	}

	if err := s.repo.Delete(ctx, scope, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return apierr.RecordNotFound()
		}
		return storageError(err)
	}
	return nil
}

// prepare validates the payload and resolves it into a persistable input.
func (s *service) prepare(ctx context.Context, scope tenant.Scope, input DraftInput) (repo.DraftInput, error) {
	if len(input.Positions) == 0 {
		return repo.DraftInput{}, apierr.Validation(apierr.CodeMissingKey).
			WithDetail("field", "positions")
	}

	positions := make([]repo.Position, 0, len(input.Positions))
	for i, pos := range input.Positions {
		beNumber := strings.TrimSpace(pos.BeNumber)
		warehouseID := strings.TrimSpace(pos.WarehouseID)
		if beNumber == "" || warehouseID == "" {
			return repo.DraftInput{}, apierr.Validation(apierr.CodeMissingKey).
				WithDetail("position", i+1)
		}
		if pos.AmountInKg <= 0 {
			return repo.DraftInput{}, apierr.Validation(apierr.CodeInvalidAmount).
				WithDetail("position", i+1).WithDetail("field", "amountInKg")
		}
		if pos.SalePricePerKg <= 0 || pos.CostPricePerKg <= 0 {
			return repo.DraftInput{}, apierr.Validation(apierr.CodeInvalidAmount).
				WithDetail("position", i+1).WithDetail("field", "price")
		}

		positions = append(positions, repo.Position{
			BeNumber:       beNumber,
			WarehouseID:    warehouseID,
			AmountInKg:     pos.AmountInKg,
			SalePricePerKg: pos.SalePricePerKg,
			CostPricePerKg: pos.CostPricePerKg,
			WpzNumber:      pos.WpzNumber,
		})
	}

	if err := s.checkReference(ctx, scope, input.SpecialPayment, s.repo.HasSpecialPayment, "specialPayment"); err != nil {
		return repo.DraftInput{}, err
	}
	if err := s.checkReference(ctx, scope, input.Incoterm, s.repo.HasIncoterm, "incoterm"); err != nil {
		return repo.DraftInput{}, err
	}

	return repo.DraftInput{
		CustomerID:     input.CustomerID,
		Note:           strings.TrimSpace(input.Note),
		SpecialPayment: trimmedOrNil(input.SpecialPayment),
		Incoterm:       trimmedOrNil(input.Incoterm),
		Positions:      positions,
	}, nil
}

func (s *service) checkReference(
	ctx context.Context,
	scope tenant.Scope,
	code *string,
	lookup func(context.Context, tenant.Scope, string) (bool, error),
	field string,
) error {
	if code == nil || strings.TrimSpace(*code) == "" {
		return nil
	}

	found, err := lookup(ctx, scope, strings.TrimSpace(*code))
	if err != nil {
		return storageError(err)
	}
	if !found {
		return apierr.Validation(apierr.CodeUnknownReference).WithDetail("field", field)
	}
	return nil
}

// storageError distinguishes a missing schema object (the optional position
// table family) from ordinary storage failures.
func storageError(err error) error {
	if persistence.IsMissingObject(err) {
		return apierr.Wrap(http.StatusInternalServerError, apierr.CodeSchemaObjectMissing, err)
	}
	return apierr.Storage(err)
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
