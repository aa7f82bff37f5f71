package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a registered site account.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Nickname     string    `json:"nickname"`
	Email        string    `json:"email"`
	Avatar       string    `json:"avatar"`
	Role         *uint     `json:"role,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Resource is a downloadable package listed on the site.
type Resource struct {
	ID           uuid.UUID `json:"id"`
	OwnerID      uuid.UUID `json:"ownerId"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Category     string    `json:"category"`
	Language     string    `json:"language"`
	Price        int64     `json:"price"`
	DownloadLink string    `json:"downloadLink"`
	CoverImage   string    `json:"coverImage"`
	Images       []string  `json:"images"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ResourceImage is an uploaded screenshot recorded after ingestion.
type ResourceImage struct {
	ID         uuid.UUID `json:"id"`
	Path       string    `json:"path"`
	UploaderID uuid.UUID `json:"uploaderId"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Order records a purchase of a resource by a user.
type Order struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"userId"`
	ResourceID uuid.UUID `json:"resourceId"`
	Price      int64     `json:"price"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ResourceFilter narrows resource listings. Empty fields match everything.
type ResourceFilter struct {
	Category string
	Language string
}
