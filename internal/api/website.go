package api

import (
	"net/http"

	"resource-site-backend/internal/auth"
)

func (h *Handler) getLoginBackground(w http.ResponseWriter, r *http.Request, _ auth.Principal) {
	respondJSON(w, r, http.StatusOK, h.website.LoginBackground())
}

func (h *Handler) getWebsite(w http.ResponseWriter, r *http.Request, _ auth.Principal) {
	respondJSON(w, r, http.StatusOK, h.website.Profile())
}

func (h *Handler) getCarousel(w http.ResponseWriter, r *http.Request, _ auth.Principal) {
	items, err := h.website.Carousel(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, items)
}
