package api

import (
	"net/http"

	"resource-site-backend/internal/auth"
	"resource-site-backend/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

type loginRequest struct {
	Username    string `json:"username" validate:"required"`
	Password    string `json:"password" validate:"required"`
	CaptchaID   string `json:"captcha_id" validate:"required"`
	CaptchaCode string `json:"captcha_code" validate:"required"`
}

type registerRequest struct {
	service.RegisterRequest
	CaptchaID   string `json:"captcha_id" validate:"required"`
	CaptchaCode string `json:"captcha_code" validate:"required"`
}

// decodeJSON reads a bounded JSON body into dst and validates it.
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
	if err := render.DecodeJSON(r.Body, dst); err != nil {
		return validationError(err)
	}
	if err := h.validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

// issueCaptcha (GET /comm/login/{captchaType}, GET /comm/register/{captchaType})
func (h *Handler) issueCaptcha(w http.ResponseWriter, r *http.Request, _ auth.Principal) {
	challenge, err := h.captcha.Issue(r.Context(), chi.URLParam(r, "captchaType"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, challenge)
}

// login (POST /comm/login/loading)
func (h *Handler) login(w http.ResponseWriter, r *http.Request, _ auth.Principal) {
	var req loginRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.handleError(w, r, err)
		return
	}
	if err := h.captcha.Verify(r.Context(), req.CaptchaID, req.CaptchaCode); err != nil {
		h.handleError(w, r, err)
		return
	}

	res, err := h.users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, res)
}

// register (POST /comm/register/create)
func (h *Handler) register(w http.ResponseWriter, r *http.Request, _ auth.Principal) {
	var req registerRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.handleError(w, r, err)
		return
	}
	if err := h.captcha.Verify(r.Context(), req.CaptchaID, req.CaptchaCode); err != nil {
		h.handleError(w, r, err)
		return
	}

	user, err := h.users.Register(r.Context(), req.RegisterRequest)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, user)
}
