package api

import (
	"context"
	"mime/multipart"
	"sync"

	"resource-site-backend/internal/auth"
	"resource-site-backend/internal/models"
	"resource-site-backend/internal/service"
	"resource-site-backend/internal/upload"

	"github.com/google/uuid"
)

// callCounter counts calls into every spy service of a test.
type callCounter struct {
	mu sync.Mutex
	n  int
}

func (c *callCounter) hit() {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

func (c *callCounter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

const validToken = "valid-token"

var testUserID = uuid.MustParse("7b0e4f36-3c55-4f0e-9b1a-0d5c5a1f2e11")

type spyTokens struct {
	ValidateFn func(ctx context.Context, token string) (auth.Principal, error)
	calls      int
}

func (s *spyTokens) Validate(ctx context.Context, token string) (auth.Principal, error) {
	s.calls++
	if s.ValidateFn != nil {
		return s.ValidateFn(ctx, token)
	}
	if token == validToken {
		return auth.Principal{UserID: testUserID}, nil
	}
	return auth.Anonymous, auth.ErrInvalidToken
}

type spyResources struct {
	calls                       *callCounter
	ListAllFn                   func(ctx context.Context, page service.Page) ([]service.ResourceSummary, error)
	ListByCategoryFn            func(ctx context.Context, category string, page service.Page) ([]service.ResourceSummary, error)
	ListByLanguageFn            func(ctx context.Context, language string, page service.Page) ([]service.ResourceSummary, error)
	ListByCategoryAndLanguageFn func(ctx context.Context, category, language string, page service.Page) ([]service.ResourceSummary, error)
	GetDetailByUUIDFn           func(ctx context.Context, id uuid.UUID, requester auth.Principal) (*service.ResourceDetail, error)
	CreateFn                    func(ctx context.Context, req service.CreateResourceRequest, ownerID uuid.UUID) (*models.Resource, error)
	ChangeDownloadLinkFn        func(ctx context.Context, requester auth.Principal, req service.ChangeLinkRequest) error
	SaveImageMetadataFn         func(ctx context.Context, uploaderID uuid.UUID, pairs []upload.Result) error
	DeleteImageFn               func(ctx context.Context, imageID uuid.UUID, requester auth.Principal) error
}

func (s *spyResources) ListAll(ctx context.Context, page service.Page) ([]service.ResourceSummary, error) {
	s.calls.hit()
	if s.ListAllFn != nil {
		return s.ListAllFn(ctx, page)
	}
	return nil, nil
}

func (s *spyResources) ListByCategory(ctx context.Context, category string, page service.Page) ([]service.ResourceSummary, error) {
	s.calls.hit()
	if s.ListByCategoryFn != nil {
		return s.ListByCategoryFn(ctx, category, page)
	}
	return nil, nil
}

func (s *spyResources) ListByLanguage(ctx context.Context, language string, page service.Page) ([]service.ResourceSummary, error) {
	s.calls.hit()
	if s.ListByLanguageFn != nil {
		return s.ListByLanguageFn(ctx, language, page)
	}
	return nil, nil
}

func (s *spyResources) ListByCategoryAndLanguage(ctx context.Context, category, language string, page service.Page) ([]service.ResourceSummary, error) {
	s.calls.hit()
	if s.ListByCategoryAndLanguageFn != nil {
		return s.ListByCategoryAndLanguageFn(ctx, category, language, page)
	}
	return nil, nil
}

func (s *spyResources) GetDetailByUUID(ctx context.Context, id uuid.UUID, requester auth.Principal) (*service.ResourceDetail, error) {
	s.calls.hit()
	if s.GetDetailByUUIDFn != nil {
		return s.GetDetailByUUIDFn(ctx, id, requester)
	}
	return &service.ResourceDetail{Resource: models.Resource{ID: id}}, nil
}

func (s *spyResources) Create(ctx context.Context, req service.CreateResourceRequest, ownerID uuid.UUID) (*models.Resource, error) {
	s.calls.hit()
	if s.CreateFn != nil {
		return s.CreateFn(ctx, req, ownerID)
	}
	return &models.Resource{ID: uuid.New(), OwnerID: ownerID, Name: req.Name}, nil
}

func (s *spyResources) ChangeDownloadLink(ctx context.Context, requester auth.Principal, req service.ChangeLinkRequest) error {
	s.calls.hit()
	if s.ChangeDownloadLinkFn != nil {
		return s.ChangeDownloadLinkFn(ctx, requester, req)
	}
	return nil
}

func (s *spyResources) SaveImageMetadata(ctx context.Context, uploaderID uuid.UUID, pairs []upload.Result) error {
	s.calls.hit()
	if s.SaveImageMetadataFn != nil {
		return s.SaveImageMetadataFn(ctx, uploaderID, pairs)
	}
	return nil
}

func (s *spyResources) DeleteImage(ctx context.Context, imageID uuid.UUID, requester auth.Principal) error {
	s.calls.hit()
	if s.DeleteImageFn != nil {
		return s.DeleteImageFn(ctx, imageID, requester)
	}
	return nil
}

type spyUsers struct {
	calls            *callCounter
	RegisterFn       func(ctx context.Context, req service.RegisterRequest) (*models.User, error)
	LoginFn          func(ctx context.Context, username, password string) (*service.LoginResult, error)
	GetProfileFn     func(ctx context.Context, requester auth.Principal, userID uuid.UUID) (*models.User, error)
	UpdateProfileFn  func(ctx context.Context, requester auth.Principal, userID uuid.UUID, req service.ProfileUpdate) (*models.User, error)
	ChangePasswordFn func(ctx context.Context, requester auth.Principal, userID uuid.UUID, req service.ChangePasswordRequest) error
	UpdateAvatarFn   func(ctx context.Context, userID uuid.UUID, path string) (*models.User, error)
}

func (s *spyUsers) Register(ctx context.Context, req service.RegisterRequest) (*models.User, error) {
	s.calls.hit()
	if s.RegisterFn != nil {
		return s.RegisterFn(ctx, req)
	}
	return &models.User{ID: uuid.New(), Username: req.Username}, nil
}

func (s *spyUsers) Login(ctx context.Context, username, password string) (*service.LoginResult, error) {
	s.calls.hit()
	if s.LoginFn != nil {
		return s.LoginFn(ctx, username, password)
	}
	return &service.LoginResult{Token: validToken}, nil
}

func (s *spyUsers) GetProfile(ctx context.Context, requester auth.Principal, userID uuid.UUID) (*models.User, error) {
	s.calls.hit()
	if s.GetProfileFn != nil {
		return s.GetProfileFn(ctx, requester, userID)
	}
	return &models.User{ID: userID}, nil
}

func (s *spyUsers) UpdateProfile(ctx context.Context, requester auth.Principal, userID uuid.UUID, req service.ProfileUpdate) (*models.User, error) {
	s.calls.hit()
	if s.UpdateProfileFn != nil {
		return s.UpdateProfileFn(ctx, requester, userID, req)
	}
	return &models.User{ID: userID, Nickname: req.Nickname}, nil
}

func (s *spyUsers) ChangePassword(ctx context.Context, requester auth.Principal, userID uuid.UUID, req service.ChangePasswordRequest) error {
	s.calls.hit()
	if s.ChangePasswordFn != nil {
		return s.ChangePasswordFn(ctx, requester, userID, req)
	}
	return nil
}

func (s *spyUsers) UpdateAvatar(ctx context.Context, userID uuid.UUID, path string) (*models.User, error) {
	s.calls.hit()
	if s.UpdateAvatarFn != nil {
		return s.UpdateAvatarFn(ctx, userID, path)
	}
	return &models.User{ID: userID, Avatar: path}, nil
}

type spyOrders struct {
	calls        *callCounter
	PurchaseFn   func(ctx context.Context, userID, resourceID uuid.UUID) (*models.Order, error)
	ListOrdersFn func(ctx context.Context, requester auth.Principal, userID uuid.UUID) ([]*models.Order, error)
}

func (s *spyOrders) Purchase(ctx context.Context, userID, resourceID uuid.UUID) (*models.Order, error) {
	s.calls.hit()
	if s.PurchaseFn != nil {
		return s.PurchaseFn(ctx, userID, resourceID)
	}
	return &models.Order{ID: uuid.New(), UserID: userID, ResourceID: resourceID}, nil
}

func (s *spyOrders) ListOrders(ctx context.Context, requester auth.Principal, userID uuid.UUID) ([]*models.Order, error) {
	s.calls.hit()
	if s.ListOrdersFn != nil {
		return s.ListOrdersFn(ctx, requester, userID)
	}
	return []*models.Order{}, nil
}

type spyWebsite struct {
	calls      *callCounter
	CarouselFn func(ctx context.Context) ([]service.CarouselItem, error)
}

func (s *spyWebsite) Profile() service.WebsiteProfile {
	s.calls.hit()
	return service.WebsiteProfile{Name: "test site"}
}

func (s *spyWebsite) LoginBackground() service.LoginBackground {
	s.calls.hit()
	return service.LoginBackground{URL: "/static/bg.jpg"}
}

func (s *spyWebsite) Carousel(ctx context.Context) ([]service.CarouselItem, error) {
	s.calls.hit()
	if s.CarouselFn != nil {
		return s.CarouselFn(ctx)
	}
	return []service.CarouselItem{}, nil
}

type spyCaptcha struct {
	calls    *callCounter
	IssueFn  func(ctx context.Context, captchaType string) (*service.Challenge, error)
	VerifyFn func(ctx context.Context, id, code string) error
}

func (s *spyCaptcha) Issue(ctx context.Context, captchaType string) (*service.Challenge, error) {
	s.calls.hit()
	if s.IssueFn != nil {
		return s.IssueFn(ctx, captchaType)
	}
	return &service.Challenge{ID: "captcha-1", Type: captchaType, Challenge: "123456"}, nil
}

func (s *spyCaptcha) Verify(ctx context.Context, id, code string) error {
	s.calls.hit()
	if s.VerifyFn != nil {
		return s.VerifyFn(ctx, id, code)
	}
	return nil
}

type spyIngestor struct {
	calls             *callCounter
	SaveDescriptionFn func(fh *multipart.FileHeader) (upload.Result, error)
	SaveImagesFn      func(ctx context.Context, files []*multipart.FileHeader) upload.Batch
	removed           []upload.Result
}

func (s *spyIngestor) SaveDescription(fh *multipart.FileHeader) (upload.Result, error) {
	s.calls.hit()
	if s.SaveDescriptionFn != nil {
		return s.SaveDescriptionFn(fh)
	}
	return upload.Result{StoredPath: "desc/" + fh.Filename, GeneratedID: "id"}, nil
}

func (s *spyIngestor) SaveImages(ctx context.Context, files []*multipart.FileHeader) upload.Batch {
	s.calls.hit()
	if s.SaveImagesFn != nil {
		return s.SaveImagesFn(ctx, files)
	}
	return upload.Batch{Uploaded: []upload.Result{}, Failed: []upload.Failure{}}
}

func (s *spyIngestor) Remove(results []upload.Result) {
	s.removed = append(s.removed, results...)
}

// spies bundles one spy per collaborator, all sharing a call counter.
type spies struct {
	calls     *callCounter
	tokens    *spyTokens
	resources *spyResources
	users     *spyUsers
	orders    *spyOrders
	website   *spyWebsite
	captcha   *spyCaptcha
	uploads   *spyIngestor
}

func newSpies() *spies {
	calls := &callCounter{}
	return &spies{
		calls:     calls,
		tokens:    &spyTokens{},
		resources: &spyResources{calls: calls},
		users:     &spyUsers{calls: calls},
		orders:    &spyOrders{calls: calls},
		website:   &spyWebsite{calls: calls},
		captcha:   &spyCaptcha{calls: calls},
		uploads:   &spyIngestor{calls: calls},
	}
}

func (s *spies) services() Services {
	return Services{
		Resources: s.resources,
		Users:     s.users,
		Orders:    s.orders,
		Website:   s.website,
		Captcha:   s.captcha,
		Uploads:   s.uploads,
	}
}
