package api

import (
	"net/http"

	"resource-site-backend/internal/auth"
	"resource-site-backend/internal/service"
)

// viewProfile (GET /user/profile/view/{uuid})
func (h *Handler) viewProfile(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	if !requirePrincipal(w, r, p) {
		return
	}
	id, err := uuidParam(r, "uuid")
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	user, err := h.users.GetProfile(r.Context(), p, id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, user)
}

// changePassword (PUT /user/profile/change_pwd/{uuid})
func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	if !requirePrincipal(w, r, p) {
		return
	}
	id, err := uuidParam(r, "uuid")
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	var req service.ChangePasswordRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.handleError(w, r, err)
		return
	}

	if err := h.users.ChangePassword(r.Context(), p, id, req); err != nil {
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]string{"status": "password changed"})
}

// changeProfile (PUT /user/profile/change_profile/{uuid})
func (h *Handler) changeProfile(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	if !requirePrincipal(w, r, p) {
		return
	}
	id, err := uuidParam(r, "uuid")
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	var req service.ProfileUpdate
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.handleError(w, r, err)
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), p, id, req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, user)
}

// listOrders (GET /user/profile/orders/{uuid})
func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	if !requirePrincipal(w, r, p) {
		return
	}
	id, err := uuidParam(r, "uuid")
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	orders, err := h.orders.ListOrders(r.Context(), p, id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, orders)
}
