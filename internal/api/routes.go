package api

import (
	"net/http"
	"path"
	"slices"
	"strings"

	"resource-site-backend/internal/auth"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

// RouteHandler serves one route. p is the caller resolved by the auth gate;
// it is auth.Anonymous on open routes.
type RouteHandler func(w http.ResponseWriter, r *http.Request, p auth.Principal)

type bodyKind int

const (
	bodyNone bodyKind = iota
	bodyJSON
	bodyMultipart
)

// Route is one entry of the route table.
type Route struct {
	Method       string
	Path         string
	Handler      RouteHandler
	AuthRequired bool
	// OptionalAuth resolves a Principal from a valid token and treats a
	// missing or invalid token as anonymous.
	OptionalAuth bool
	RateLimited  bool

	Summary   string
	Tag       string
	Query     []string
	Body      bodyKind
	FileField string
	Status    int
}

const (
	openAPIPath   = "/api-doc/openapi.json"
	swaggerUIPath = "/swagger-ui/*"
)

// routeTable lists every endpoint. It only reads method values of h, so the
// result depends on nothing but the handler it is given.
func routeTable(h *Handler) []Route {
	open := []Route{
		{Method: http.MethodGet, Path: "/comm/login/get_login_bg", Handler: h.getLoginBackground, Summary: "Login page background", Tag: "site"},
		{Method: http.MethodGet, Path: "/comm/login/{captchaType}", Handler: h.issueCaptcha, RateLimited: true, Summary: "Issue a login captcha", Tag: "account"},
		{Method: http.MethodPost, Path: "/comm/login/loading", Handler: h.login, RateLimited: true, Body: bodyJSON, Summary: "Log in and receive a token", Tag: "account"},
		{Method: http.MethodGet, Path: "/comm/get_website", Handler: h.getWebsite, Summary: "Public website information", Tag: "site"},
		{Method: http.MethodGet, Path: "/comm/register/{captchaType}", Handler: h.issueCaptcha, RateLimited: true, Summary: "Issue a registration captcha", Tag: "account"},
		{Method: http.MethodPost, Path: "/comm/register/create", Handler: h.register, RateLimited: true, Body: bodyJSON, Status: http.StatusCreated, Summary: "Register an account", Tag: "account"},
		{Method: http.MethodGet, Path: "/index/resources", Handler: h.listResources, Query: []string{"category", "language", "page", "page_size"}, Summary: "List resources", Tag: "resources"},
		{Method: http.MethodGet, Path: "/index/resources/list_of_language", Handler: h.listByLanguage, Query: []string{"language", "page", "page_size"}, Summary: "List resources by language", Tag: "resources"},
		{Method: http.MethodGet, Path: "/index/resources/list_of_category", Handler: h.listByCategory, Query: []string{"category", "page", "page_size"}, Summary: "List resources by category", Tag: "resources"},
		{Method: http.MethodGet, Path: "/index/resources/list_category_language", Handler: h.listByCategoryAndLanguage, Query: []string{"category", "language", "page", "page_size"}, Summary: "List resources by category and language", Tag: "resources"},
		{Method: http.MethodGet, Path: "/index/resources/{uuid}", Handler: h.getResourceDetail, OptionalAuth: true, Summary: "Resource detail", Tag: "resources"},
		{Method: http.MethodGet, Path: "/index/carousel", Handler: h.getCarousel, Summary: "Home page carousel", Tag: "site"},
	}

	protected := []Route{
		{Method: http.MethodGet, Path: "/user/profile/view/{uuid}", Handler: h.viewProfile, Summary: "View a profile", Tag: "users"},
		{Method: http.MethodPut, Path: "/user/profile/change_pwd/{uuid}", Handler: h.changePassword, Body: bodyJSON, Summary: "Change password", Tag: "users"},
		{Method: http.MethodPut, Path: "/user/profile/change_profile/{uuid}", Handler: h.changeProfile, Body: bodyJSON, Summary: "Edit a profile", Tag: "users"},
		{Method: http.MethodGet, Path: "/user/profile/orders/{uuid}", Handler: h.listOrders, Summary: "Order history", Tag: "users"},
		{Method: http.MethodPut, Path: "/user/profile/avatar", Handler: h.uploadAvatar, Body: bodyMultipart, FileField: avatarField, Summary: "Upload an avatar", Tag: "users"},
		{Method: http.MethodPut, Path: "/user/resource/{uuid}", Handler: h.purchaseResource, Status: http.StatusCreated, Summary: "Purchase a resource", Tag: "users"},
		{Method: http.MethodPost, Path: "/resource/create", Handler: h.createResource, Body: bodyJSON, Status: http.StatusCreated, Summary: "Create a resource", Tag: "resources"},
		{Method: http.MethodPut, Path: "/resource/change_link", Handler: h.changeDownloadLink, Body: bodyJSON, Summary: "Change a download link", Tag: "resources"},
		{Method: http.MethodDelete, Path: "/resource/image/{uuid}", Handler: h.deleteImage, Summary: "Delete a screenshot", Tag: "resources"},
		{Method: http.MethodPut, Path: "/resource/upload/description", Handler: h.uploadDescription, Body: bodyMultipart, FileField: descriptionField, Summary: "Upload a description file", Tag: "uploads"},
		{Method: http.MethodPut, Path: "/resource/upload/image", Handler: h.uploadImages, Body: bodyMultipart, FileField: avatarField, Summary: "Upload screenshots", Tag: "uploads"},
	}
	for i := range protected {
		protected[i].AuthRequired = true
	}

	return append(open, protected...)
}

// Routes builds the router: global middleware, the route table and the
// documentation, health and metrics endpoints.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: !allowsAnyOrigin(h.opts.AllowedOrigins),
		MaxAge:           300,
	}))
	r.Use(middleware.RequestID)
	r.Use(h.structuredLogger)
	r.Use(h.metrics.middleware)
	r.Use(h.recoverer)
	r.Use(middleware.StripSlashes)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})

	for _, rt := range h.routes {
		r.Method(rt.Method, rt.Path, h.bind(rt))
	}
	for routePath, methods := range shadowedMethods(h.routes) {
		allow := strings.Join(servedMethods(h.routes, routePath), ", ")
		for _, m := range methods {
			r.MethodFunc(m, routePath, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Allow", allow)
				respondError(w, r, http.StatusMethodNotAllowed, "method not allowed")
			})
		}
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", h.metrics.handler())
	r.Get(openAPIPath, h.serveOpenAPI)
	r.Get(swaggerUIPath, httpSwagger.Handler(httpSwagger.URL(openAPIPath)))

	return r
}

// bind puts the auth gate and, where configured, the rate limiter in front of
// the route handler.
func (h *Handler) bind(rt Route) http.Handler {
	handle := rt.Handler
	if rt.RateLimited {
		handle = h.limiter.wrap(handle)
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := h.authenticate(w, r, rt)
		if !ok {
			return
		}
		handle(w, r, p)
	})
}

// shadowedMethods finds static paths with a "{param}" sibling serving a method
// the static path does not. Without an explicit answer the sibling would
// capture those requests, e.g. GET /comm/login/loading as a captcha type.
func shadowedMethods(routes []Route) map[string][]string {
	shadowed := make(map[string][]string)
	for _, static := range routes {
		if strings.Contains(static.Path, "{") {
			continue
		}
		parent := path.Dir(static.Path)
		for _, param := range routes {
			if path.Dir(param.Path) != parent || !isParamSegment(path.Base(param.Path)) {
				continue
			}
			if slices.Contains(servedMethods(routes, static.Path), param.Method) ||
				slices.Contains(shadowed[static.Path], param.Method) {
				continue
			}
			shadowed[static.Path] = append(shadowed[static.Path], param.Method)
		}
	}
	return shadowed
}

func servedMethods(routes []Route, routePath string) []string {
	var methods []string
	for _, rt := range routes {
		if rt.Path == routePath {
			methods = append(methods, rt.Method)
		}
	}
	return methods
}

func isParamSegment(seg string) bool {
	return strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}")
}

func allowsAnyOrigin(origins []string) bool {
	for _, o := range origins {
		if strings.TrimSpace(o) == "*" {
			return true
		}
	}
	return false
}
