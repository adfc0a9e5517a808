package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/steinberg-edv/mandant-api/domains/products/be/service"
	"github.com/steinberg-edv/mandant-api/platform/go/apierr"
	"github.com/steinberg-edv/mandant-api/platform/go/respond"
	"github.com/steinberg-edv/mandant-api/platform/go/tenant"
)

// Handler wires the products service to the HTTP surface.
type Handler struct {
	svc service.Service
	out *respond.Writer
}

// New constructs a Handler instance.
func New(svc service.Service, out *respond.Writer) *Handler {
	if svc == nil {
		panic("products handler: service is required")
	}
	if out == nil {
		panic("products handler: writer is required")
	}
	return &Handler{svc: svc, out: out}
}

// Routes returns the products sub-router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Post("/reserve", h.reserve)
	r.Get("/{id}", h.get)
	return r
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	scope, ok := tenant.ScopeFromContext(r.Context())
	if !ok {
		h.out.Err(w, r, apierr.NoPrincipal())
		return
	}

	opts := parseListOptions(r)

	result, err := h.svc.List(r.Context(), scope, opts)
	if err != nil {
		h.out.Err(w, r, err)
		return
	}

	h.out.Data(w, http.StatusOK, result.Rows, respond.ListMeta{
		Page:     result.Page,
		PageSize: result.PageSize,
		Count:    len(result.Rows),
		Total:    result.Total,
		Q:        result.Q,
		Sort:     result.Sort,
		Dir:      result.Dir,
		Tenant:   scope.Tenant.Name,
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	scope, ok := tenant.ScopeFromContext(r.Context())
	if !ok {
		h.out.Err(w, r, apierr.NoPrincipal())
		return
	}

	row, err := h.svc.Get(r.Context(), scope, chi.URLParam(r, "id"))
	if err != nil {
		h.out.Err(w, r, err)
		return
	}

	h.out.Data(w, http.StatusOK, row, nil)
}

func (h *Handler) reserve(w http.ResponseWriter, r *http.Request) {
	scope, ok := tenant.ScopeFromContext(r.Context())
	if !ok {
		h.out.Err(w, r, apierr.NoPrincipal())
		return
	}

	var input service.ReserveInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.out.Err(w, r, apierr.Validation(apierr.CodeValidation))
		return
	}

	created, err := h.svc.Reserve(r.Context(), scope, input)
	if err != nil {
		h.out.Err(w, r, err)
		return
	}

	h.out.Data(w, http.StatusCreated, created, nil)
}

func parseListOptions(r *http.Request) service.ListOptions {
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("pageSize"))

	return service.ListOptions{
		Q:        q.Get("q"),
		Sort:     q.Get("sort"),
		Dir:      q.Get("dir"),
		Page:     page,
		PageSize: pageSize,
	}
}
