package service

import (
	"context"

	"resource-site-backend/internal/models"
	"resource-site-backend/internal/repository"

	"github.com/google/uuid"
)

// WebsiteSettings are the static site values served to the front end.
type WebsiteSettings struct {
	Name         string
	Description  string
	LoginBG      string
	CarouselSize int
}

// WebsiteProfile is the public description of the site.
type WebsiteProfile struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoginBackground is the image shown behind the login form.
type LoginBackground struct {
	URL string `json:"url"`
}

// CarouselItem is one slide of the home page carousel.
type CarouselItem struct {
	ResourceID uuid.UUID `json:"resourceId"`
	Name       string    `json:"name"`
	Image      string    `json:"image"`
}

// WebsiteService serves site settings and the carousel.
type WebsiteService struct {
	store    repository.ResourceStore
	settings WebsiteSettings
}

// NewWebsiteService creates a website service.
func NewWebsiteService(store repository.ResourceStore, settings WebsiteSettings) *WebsiteService {
	return &WebsiteService{store: store, settings: settings}
}

func (s *WebsiteService) Profile() WebsiteProfile {
	return WebsiteProfile{Name: s.settings.Name, Description: s.settings.Description}
}

func (s *WebsiteService) LoginBackground() LoginBackground {
	return LoginBackground{URL: s.settings.LoginBG}
}

// Carousel returns the newest resources that have a cover image.
func (s *WebsiteService) Carousel(ctx context.Context) ([]CarouselItem, error) {
	size := s.settings.CarouselSize
	items := make([]CarouselItem, 0, size)
	if size <= 0 {
		return items, nil
	}

	// Resources without a cover are skipped, so scan a few pages at most.
	const scanPages = 4
	for page := 0; page < scanPages && len(items) < size; page++ {
		resources, err := s.store.ListResources(ctx, models.ResourceFilter{}, size, page*size)
		if err != nil {
			return nil, storeError(err, "list carousel resources")
		}
		for _, r := range resources {
			if r.CoverImage == "" {
				continue
			}
			items = append(items, CarouselItem{ResourceID: r.ID, Name: r.Name, Image: r.CoverImage})
			if len(items) == size {
				break
			}
		}
		if len(resources) < size {
			break
		}
	}
	return items, nil
}
