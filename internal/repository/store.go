package repository

import (
	"context"
	"errors"

	"resource-site-backend/internal/models"

	"github.com/google/uuid"
)

// Store errors shared by every implementation.
var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
)

// UserStore defines persistence for user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
}

// ResourceStore defines persistence for resources.
type ResourceStore interface {
	CreateResource(ctx context.Context, res *models.Resource) error
	GetResourceByID(ctx context.Context, id uuid.UUID) (*models.Resource, error)
	// ListResources returns resources newest first.
	ListResources(ctx context.Context, filter models.ResourceFilter, limit, offset int) ([]*models.Resource, error)
	UpdateDownloadLink(ctx context.Context, id uuid.UUID, link string) error
}

// ImageStore defines persistence for uploaded screenshot metadata.
type ImageStore interface {
	SaveImages(ctx context.Context, images []*models.ResourceImage) error
	GetImage(ctx context.Context, id uuid.UUID) (*models.ResourceImage, error)
	DeleteImage(ctx context.Context, id uuid.UUID) error
}

// OrderStore defines persistence for purchases.
type OrderStore interface {
	// CreateOrder fails with ErrAlreadyExists when the user already owns the resource.
	CreateOrder(ctx context.Context, order *models.Order) error
	ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]*models.Order, error)
	HasPurchased(ctx context.Context, userID, resourceID uuid.UUID) (bool, error)
}

// Store aggregates every store interface for dependency injection.
type Store interface {
	UserStore
	ResourceStore
	ImageStore
	OrderStore
}
