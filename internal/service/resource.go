package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"

	"resource-site-backend/internal/auth"
	"resource-site-backend/internal/models"
	"resource-site-backend/internal/repository"
	"resource-site-backend/internal/upload"

	"github.com/google/uuid"
)

// Page selects a window of a listing. Number starts at 1.
type Page struct {
	Number int
	Size   int
}

// offset saturates at math.MaxInt32 so far-away pages read as empty.
func (p Page) offset() int {
	if p.Number < 1 || p.Size < 1 {
		return 0
	}
	if p.Number-1 > math.MaxInt32/p.Size {
		return math.MaxInt32
	}
	return (p.Number - 1) * p.Size
}

// CreateResourceRequest is the payload of the create endpoint.
type CreateResourceRequest struct {
	Name         string   `json:"name" validate:"required,max=200"`
	Description  string   `json:"description" validate:"max=1024"`
	Category     string   `json:"category" validate:"required,max=64"`
	Language     string   `json:"language" validate:"required,max=64"`
	Price        int64    `json:"price" validate:"gte=0"`
	DownloadLink string   `json:"download_link" validate:"omitempty,url"`
	CoverImage   string   `json:"cover_image" validate:"max=512"`
	Images       []string `json:"images" validate:"max=20,dive,max=512"`
}

// ChangeLinkRequest is the payload of the change-link endpoint.
type ChangeLinkRequest struct {
	ResourceID   string `json:"resource_uuid" validate:"required,uuid"`
	ResourceLink string `json:"resource_link" validate:"required,url"`
}

// ResourceSummary is one entry of a listing. It never carries the download link.
type ResourceSummary struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Category   string    `json:"category"`
	Language   string    `json:"language"`
	Price      int64     `json:"price"`
	CoverImage string    `json:"coverImage"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ResourceDetail is a resource as seen by a particular requester.
type ResourceDetail struct {
	models.Resource
	Purchased bool `json:"purchased"`
}

// ResourceService implements resource CRUD, listings and screenshot metadata.
type ResourceService struct {
	store repository.Store
	log   *slog.Logger
	now   func() time.Time
}

// NewResourceService creates a resource service.
func NewResourceService(store repository.Store, log *slog.Logger) *ResourceService {
	return &ResourceService{
		store: store,
		log:   log,
		now:   time.Now,
	}
}

// ListAll lists every resource, newest first.
func (s *ResourceService) ListAll(ctx context.Context, page Page) ([]ResourceSummary, error) {
	return s.list(ctx, models.ResourceFilter{}, page)
}

// ListByCategory lists resources of one category.
func (s *ResourceService) ListByCategory(ctx context.Context, category string, page Page) ([]ResourceSummary, error) {
	return s.list(ctx, models.ResourceFilter{Category: category}, page)
}

// ListByLanguage lists resources written in one language.
func (s *ResourceService) ListByLanguage(ctx context.Context, language string, page Page) ([]ResourceSummary, error) {
	return s.list(ctx, models.ResourceFilter{Language: language}, page)
}

// ListByCategoryAndLanguage lists resources matching both filters.
func (s *ResourceService) ListByCategoryAndLanguage(ctx context.Context, category, language string, page Page) ([]ResourceSummary, error) {
	return s.list(ctx, models.ResourceFilter{Category: category, Language: language}, page)
}

func (s *ResourceService) list(ctx context.Context, filter models.ResourceFilter, page Page) ([]ResourceSummary, error) {
	resources, err := s.store.ListResources(ctx, filter, page.Size, page.offset())
	if err != nil {
		return nil, storeError(err, "list resources")
	}

	summaries := make([]ResourceSummary, 0, len(resources))
	for _, r := range resources {
		summaries = append(summaries, ResourceSummary{
			ID:         r.ID,
			Name:       r.Name,
			Category:   r.Category,
			Language:   r.Language,
			Price:      r.Price,
			CoverImage: r.CoverImage,
			CreatedAt:  r.CreatedAt,
		})
	}
	return summaries, nil
}

// GetDetailByUUID returns a resource. The download link is only kept for the
// owner, administrators and buyers.
func (s *ResourceService) GetDetailByUUID(ctx context.Context, resourceID uuid.UUID, requester auth.Principal) (*ResourceDetail, error) {
	res, err := s.store.GetResourceByID(ctx, resourceID)
	if err != nil {
		return nil, storeError(err, "get resource")
	}

	detail := &ResourceDetail{Resource: *res}
	if !requester.Authenticated() {
		detail.DownloadLink = ""
		return detail, nil
	}

	purchased, err := s.store.HasPurchased(ctx, requester.UserID, resourceID)
	if err != nil {
		return nil, storeError(err, "check purchase")
	}
	detail.Purchased = purchased
	if !purchased && !requester.CanActFor(res.OwnerID) {
		detail.DownloadLink = ""
	}
	return detail, nil
}

// Create stores a new resource owned by ownerID.
func (s *ResourceService) Create(ctx context.Context, req CreateResourceRequest, ownerID uuid.UUID) (*models.Resource, error) {
	if ownerID == uuid.Nil {
		return nil, fmt.Errorf("owner is required: %w", ErrValidation)
	}

	now := s.now().UTC()
	images := req.Images
	if images == nil {
		images = []string{}
	}
	res := &models.Resource{
		ID:           uuid.New(),
		OwnerID:      ownerID,
		Name:         req.Name,
		Description:  req.Description,
		Category:     req.Category,
		Language:     req.Language,
		Price:        req.Price,
		DownloadLink: req.DownloadLink,
		CoverImage:   req.CoverImage,
		Images:       images,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.CreateResource(ctx, res); err != nil {
		return nil, storeError(err, "create resource")
	}
	s.log.InfoContext(ctx, "resource created", "resource_id", res.ID, "owner_id", ownerID)
	return res, nil
}

// ChangeDownloadLink replaces the download link of a resource owned by the requester.
func (s *ResourceService) ChangeDownloadLink(ctx context.Context, requester auth.Principal, req ChangeLinkRequest) error {
	id, err := uuid.Parse(req.ResourceID)
	if err != nil {
		return fmt.Errorf("resource id %q: %w", req.ResourceID, ErrValidation)
	}

	res, err := s.store.GetResourceByID(ctx, id)
	if err != nil {
		return storeError(err, "get resource")
	}
	if !requester.CanActFor(res.OwnerID) {
		return fmt.Errorf("change link of resource %s: %w", id, ErrForbidden)
	}

	if err := s.store.UpdateDownloadLink(ctx, id, req.ResourceLink); err != nil {
		return storeError(err, "update download link")
	}
	return nil
}

// SaveImageMetadata records stored screenshots for the uploader.
func (s *ResourceService) SaveImageMetadata(ctx context.Context, uploaderID uuid.UUID, pairs []upload.Result) error {
	if len(pairs) == 0 {
		return nil
	}

	now := s.now().UTC()
	images := make([]*models.ResourceImage, 0, len(pairs))
	for _, p := range pairs {
		id, err := uuid.Parse(p.GeneratedID)
		if err != nil {
			return fmt.Errorf("image id %q: %w", p.GeneratedID, ErrValidation)
		}
		images = append(images, &models.ResourceImage{
			ID:         id,
			Path:       p.StoredPath,
			UploaderID: uploaderID,
			CreatedAt:  now,
		})
	}

	if err := s.store.SaveImages(ctx, images); err != nil {
		return storeError(err, "save image metadata")
	}
	return nil
}

// DeleteImage removes a screenshot uploaded by the requester, then its file.
func (s *ResourceService) DeleteImage(ctx context.Context, imageID uuid.UUID, requester auth.Principal) error {
	img, err := s.store.GetImage(ctx, imageID)
	if err != nil {
		return storeError(err, "get image")
	}
	if !requester.CanActFor(img.UploaderID) {
		return fmt.Errorf("delete image %s: %w", imageID, ErrForbidden)
	}

	if err := s.store.DeleteImage(ctx, imageID); err != nil {
		return storeError(err, "delete image")
	}
	if err := os.Remove(img.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.log.WarnContext(ctx, "image metadata deleted but file removal failed",
			"image_id", imageID,
			"path", img.Path,
			"error", err)
	}
	return nil
}
