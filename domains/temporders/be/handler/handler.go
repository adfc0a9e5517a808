package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/steinberg-edv/mandant-api/domains/temporders/be/service"
	"github.com/steinberg-edv/mandant-api/platform/go/apierr"
	"github.com/steinberg-edv/mandant-api/platform/go/respond"
	"github.com/steinberg-edv/mandant-api/platform/go/tenant"
)

// Handler wires the temp-orders service to the HTTP surface.
type Handler struct {
	svc service.Service
	out *respond.Writer
}

// New constructs a Handler instance.
func New(svc service.Service, out *respond.Writer) *Handler {
	if svc == nil {
		panic("temp-orders handler: service is required")
	}
	if out == nil {
		panic("temp-orders handler: writer is required")
	}
	return &Handler{svc: svc, out: out}
}

// Routes returns the temp-orders sub-router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.replace)
	r.Delete("/{id}", h.delete)
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

	order, err := h.svc.Get(r.Context(), scope, pathID(r))
	if err != nil {
		h.out.Err(w, r, err)
		return
	}

	h.out.Data(w, http.StatusOK, order, nil)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	scope, ok := tenant.ScopeFromContext(r.Context())
	if !ok {
		h.out.Err(w, r, apierr.NoPrincipal())
		return
	}

	var input service.DraftInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.out.Err(w, r, apierr.Validation(apierr.CodeValidation))
		return
	}

	order, err := h.svc.Create(r.Context(), scope, input)
	if err != nil {
		h.out.Err(w, r, err)
		return
	}

	h.out.Data(w, http.StatusCreated, order, nil)
}

func (h *Handler) replace(w http.ResponseWriter, r *http.Request) {
	scope, ok := tenant.ScopeFromContext(r.Context())
	if !ok {
		h.out.Err(w, r, apierr.NoPrincipal())
		return
	}

	var input service.DraftInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.out.Err(w, r, apierr.Validation(apierr.CodeValidation))
		return
	}

	order, err := h.svc.Replace(r.Context(), scope, pathID(r), input)
	if err != nil {
		h.out.Err(w, r, err)
		return
	}

	h.out.Data(w, http.StatusOK, order, nil)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	scope, ok := tenant.ScopeFromContext(r.Context())
	if !ok {
		h.out.Err(w, r, apierr.NoPrincipal())
		return
	}

	if err := h.svc.Delete(r.Context(), scope, pathID(r)); err != nil {
		h.out.Err(w, r, err)
		return
	}

	h.out.Data(w, http.StatusOK, map[string]any{"deleted": true}, nil)
}

func pathID(r *http.Request) int {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	return id
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
