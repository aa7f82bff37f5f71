package api

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"resource-site-backend/internal/auth"
	"resource-site-backend/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const (
	defaultPage     = 1
	defaultPageSize = 49
	maxPageSize     = 200
	defaultLanguage = "PHP"

	// maxPage keeps (page-1)*page_size within an int32 offset.
	maxPage = math.MaxInt32 / maxPageSize
)

// PaginationParams are the query parameters of the listing endpoints.
type PaginationParams struct {
	Category string
	Language string
	Page     int
	PageSize int
}

// ResourcePage is the body of the listing endpoints.
type ResourcePage struct {
	Page     int                       `json:"page"`
	PageSize int                       `json:"page_size"`
	Items    []service.ResourceSummary `json:"items"`
}

// paginationFrom reads the listing query. Values that do not parse or are
// below 1 fall back to the defaults; large values are clamped.
func paginationFrom(r *http.Request) PaginationParams {
	q := r.URL.Query()
	size := positiveOr(q.Get("page_size"), defaultPageSize)
	if size > maxPageSize {
		size = maxPageSize
	}
	page := positiveOr(q.Get("page"), defaultPage)
	if page > maxPage {
		page = maxPage
	}
	return PaginationParams{
		Category: strings.TrimSpace(q.Get("category")),
		Language: strings.TrimSpace(q.Get("language")),
		Page:     page,
		PageSize: size,
	}
}

func positiveOr(raw string, def int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	return n
}

func (p PaginationParams) page() service.Page {
	return service.Page{Number: p.Page, Size: p.PageSize}
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s %q: %w", name, raw, errBadRequest)
	}
	return id, nil
}

func (h *Handler) respondPage(w http.ResponseWriter, r *http.Request, params PaginationParams, items []service.ResourceSummary, err error) {
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	if items == nil {
		items = []service.ResourceSummary{}
	}
	respondJSON(w, r, http.StatusOK, ResourcePage{Page: params.Page, PageSize: params.PageSize, Items: items})
}

// listResources (GET /index/resources) picks the listing from the filters present.
func (h *Handler) listResources(w http.ResponseWriter, r *http.Request, _ auth.Principal) {
	params := paginationFrom(r)
	ctx := r.Context()

	var (
		items []service.ResourceSummary
		err   error
	)
	switch {
	case params.Category != "" && params.Language != "":
		items, err = h.resources.ListByCategoryAndLanguage(ctx, params.Category, params.Language, params.page())
	case params.Category != "":
		items, err = h.resources.ListByCategory(ctx, params.Category, params.page())
	case params.Language != "":
		items, err = h.resources.ListByLanguage(ctx, params.Language, params.page())
	default:
		items, err = h.resources.ListAll(ctx, params.page())
	}
	h.respondPage(w, r, params, items, err)
}

// listByLanguage (GET /index/resources/list_of_language)
func (h *Handler) listByLanguage(w http.ResponseWriter, r *http.Request, _ auth.Principal) {
	params := paginationFrom(r)
	if params.Language == "" {
		params.Language = defaultLanguage
	}
	items, err := h.resources.ListByLanguage(r.Context(), params.Language, params.page())
	h.respondPage(w, r, params, items, err)
}

// listByCategory (GET /index/resources/list_of_category)
func (h *Handler) listByCategory(w http.ResponseWriter, r *http.Request, _ auth.Principal) {
	params := paginationFrom(r)
	if params.Category == "" {
		respondError(w, r, http.StatusBadRequest, "category is required")
		return
	}
	items, err := h.resources.ListByCategory(r.Context(), params.Category, params.page())
	h.respondPage(w, r, params, items, err)
}

// listByCategoryAndLanguage (GET /index/resources/list_category_language)
func (h *Handler) listByCategoryAndLanguage(w http.ResponseWriter, r *http.Request, _ auth.Principal) {
	params := paginationFrom(r)
	if params.Category == "" || params.Language == "" {
		respondError(w, r, http.StatusBadRequest, "category and language are required")
		return
	}
	items, err := h.resources.ListByCategoryAndLanguage(r.Context(), params.Category, params.Language, params.page())
	h.respondPage(w, r, params, items, err)
}

// getResourceDetail (GET /index/resources/{uuid})
func (h *Handler) getResourceDetail(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	id, err := uuidParam(r, "uuid")
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	detail, err := h.resources.GetDetailByUUID(r.Context(), id, p)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, detail)
}

// createResource (POST /resource/create)
func (h *Handler) createResource(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	if !requirePrincipal(w, r, p) {
		return
	}
	var req service.CreateResourceRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.handleError(w, r, err)
		return
	}

	res, err := h.resources.Create(r.Context(), req, p.UserID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, res)
}

// changeDownloadLink (PUT /resource/change_link)
func (h *Handler) changeDownloadLink(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	if !requirePrincipal(w, r, p) {
		return
	}
	var req service.ChangeLinkRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.handleError(w, r, err)
		return
	}

	if err := h.resources.ChangeDownloadLink(r.Context(), p, req); err != nil {
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, req)
}

// deleteImage (DELETE /resource/image/{uuid})
func (h *Handler) deleteImage(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	if !requirePrincipal(w, r, p) {
		return
	}
	id, err := uuidParam(r, "uuid")
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	if err := h.resources.DeleteImage(r.Context(), id, p); err != nil {
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]string{"deleted": id.String()})
}

// purchaseResource (PUT /user/resource/{uuid})
func (h *Handler) purchaseResource(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	if !requirePrincipal(w, r, p) {
		return
	}
	id, err := uuidParam(r, "uuid")
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	order, err := h.orders.Purchase(r.Context(), p.UserID, id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, order)
}
