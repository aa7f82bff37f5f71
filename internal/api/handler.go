package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"mime/multipart"

	"resource-site-backend/internal/auth"
	"resource-site-backend/internal/models"
	"resource-site-backend/internal/service"
	"resource-site-backend/internal/upload"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// TokenValidator turns a bearer token into a Principal.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (auth.Principal, error)
}

// ResourceService is what the handlers need from the resource layer.
type ResourceService interface {
	ListAll(ctx context.Context, page service.Page) ([]service.ResourceSummary, error)
	ListByCategory(ctx context.Context, category string, page service.Page) ([]service.ResourceSummary, error)
	ListByLanguage(ctx context.Context, language string, page service.Page) ([]service.ResourceSummary, error)
	ListByCategoryAndLanguage(ctx context.Context, category, language string, page service.Page) ([]service.ResourceSummary, error)
	GetDetailByUUID(ctx context.Context, resourceID uuid.UUID, requester auth.Principal) (*service.ResourceDetail, error)
	Create(ctx context.Context, req service.CreateResourceRequest, ownerID uuid.UUID) (*models.Resource, error)
	ChangeDownloadLink(ctx context.Context, requester auth.Principal, req service.ChangeLinkRequest) error
	SaveImageMetadata(ctx context.Context, uploaderID uuid.UUID, pairs []upload.Result) error
	DeleteImage(ctx context.Context, imageID uuid.UUID, requester auth.Principal) error
}

// UserService is what the handlers need from the account layer.
type UserService interface {
	Register(ctx context.Context, req service.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, username, password string) (*service.LoginResult, error)
	GetProfile(ctx context.Context, requester auth.Principal, userID uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, requester auth.Principal, userID uuid.UUID, req service.ProfileUpdate) (*models.User, error)
	ChangePassword(ctx context.Context, requester auth.Principal, userID uuid.UUID, req service.ChangePasswordRequest) error
	UpdateAvatar(ctx context.Context, userID uuid.UUID, path string) (*models.User, error)
}

type OrderService interface {
	Purchase(ctx context.Context, userID, resourceID uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, requester auth.Principal, userID uuid.UUID) ([]*models.Order, error)
}

type WebsiteService interface {
	Profile() service.WebsiteProfile
	LoginBackground() service.LoginBackground
	Carousel(ctx context.Context) ([]service.CarouselItem, error)
}

type CaptchaService interface {
	Issue(ctx context.Context, captchaType string) (*service.Challenge, error)
	Verify(ctx context.Context, id, code string) error
}

// Ingestor validates and stores uploaded files.
type Ingestor interface {
	SaveDescription(fh *multipart.FileHeader) (upload.Result, error)
	SaveImages(ctx context.Context, files []*multipart.FileHeader) upload.Batch
	Remove(results []upload.Result)
}

// Services groups the collaborators of the handlers.
type Services struct {
	Resources ResourceService
	Users     UserService
	Orders    OrderService
	Website   WebsiteService
	Captcha   CaptchaService
	Uploads   Ingestor
}

// Options tunes the HTTP layer.
type Options struct {
	AllowedOrigins []string
	MaxUploadBytes int64
	AuthRateLimit  float64
	AuthRateBurst  int
}

const maxJSONBytes = 1 << 20

// Handler holds the dependencies of every endpoint. It keeps no per-request state.
type Handler struct {
	tokens    TokenValidator
	resources ResourceService
	users     UserService
	orders    OrderService
	website   WebsiteService
	captcha   CaptchaService
	uploads   Ingestor

	opts     Options
	validate *validator.Validate
	log      *slog.Logger
	metrics  *metrics
	limiter  *rateLimiter
	routes   []Route
	openapi  []byte
}

// NewHandler wires the handlers and builds the route table and its API document.
func NewHandler(tokens TokenValidator, svc Services, opts Options, log *slog.Logger) (*Handler, error) {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 32 << 20
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}

	h := &Handler{
		tokens:    tokens,
		resources: svc.Resources,
		users:     svc.Users,
		orders:    svc.Orders,
		website:   svc.Website,
		captcha:   svc.Captcha,
		uploads:   svc.Uploads,
		opts:      opts,
		validate:  validator.New(),
		log:       log,
		metrics:   newMetrics(),
		limiter:   newRateLimiter(opts.AuthRateLimit, opts.AuthRateBurst, log),
	}
	h.routes = routeTable(h)

	doc, err := json.Marshal(buildOpenAPI(h.routes))
	if err != nil {
		return nil, err
	}
	h.openapi = doc
	return h, nil
}

// RouteTable returns a copy of the routes served by the handler.
func (h *Handler) RouteTable() []Route {
	return append([]Route(nil), h.routes...)
}
