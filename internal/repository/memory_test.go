package repository

import (
	"context"
	"math"
	"testing"
	"time"

	"resource-site-backend/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStore_Users(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	user := &models.User{ID: uuid.New(), Username: "alice", CreatedAt: time.Now()}
	require.NoError(t, s.CreateUser(ctx, user))

	err := s.CreateUser(ctx, &models.User{ID: uuid.New(), Username: "alice"})
	assert.ErrorIs(t, err, ErrAlreadyExists)

	got, err := s.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	got.Username = "alice2"
	require.NoError(t, s.UpdateUser(ctx, got))

	_, err = s.GetUserByUsername(ctx, "alice")
	assert.ErrorIs(t, err, ErrNotFound)

	byID, err := s.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice2", byID.Username)

	_, err = s.GetUserByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInMemoryStore_ListResources(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	base := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

	fixtures := []struct {
		category, language string
	}{
		{"web", "PHP"},
		{"web", "Go"},
		{"game", "PHP"},
		{"web", "PHP"},
	}
	for i, f := range fixtures {
		require.NoError(t, s.CreateResource(ctx, &models.Resource{
			ID:        uuid.New(),
			Name:      f.category + "-" + f.language,
			Category:  f.category,
			Language:  f.language,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	tests := []struct {
		name   string
		filter models.ResourceFilter
		limit  int
		offset int
		want   int
	}{
		{name: "all", limit: 10, want: 4},
		{name: "by category", filter: models.ResourceFilter{Category: "web"}, limit: 10, want: 3},
		{name: "by language", filter: models.ResourceFilter{Language: "PHP"}, limit: 10, want: 3},
		{name: "by both", filter: models.ResourceFilter{Category: "web", Language: "PHP"}, limit: 10, want: 2},
		{name: "paged", limit: 3, offset: 3, want: 1},
		{name: "past the end", limit: 3, offset: 9, want: 0},
		{name: "negative offset", limit: 3, offset: -147, want: 0},
		{name: "huge limit", limit: math.MaxInt, offset: 1, want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListResources(ctx, tt.filter, tt.limit, tt.offset)
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
			assert.NotNil(t, got)
		})
	}

	all, err := s.ListResources(ctx, models.ResourceFilter{}, 10, 0)
	require.NoError(t, err)
	for i := 1; i < len(all); i++ {
		assert.False(t, all[i].CreatedAt.After(all[i-1].CreatedAt), "newest first")
	}
}

func TestInMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	res := &models.Resource{ID: uuid.New(), Images: []string{"a.png"}}
	require.NoError(t, s.CreateResource(ctx, res))
	res.Images[0] = "mutated.png"

	got, err := s.GetResourceByID(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.png"}, got.Images)
}

func TestInMemoryStore_ImagesAndOrders(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	img := &models.ResourceImage{ID: uuid.New(), Path: "x.png", UploaderID: uuid.New()}
	require.NoError(t, s.SaveImages(ctx, []*models.ResourceImage{img}))
	assert.ErrorIs(t, s.SaveImages(ctx, []*models.ResourceImage{img}), ErrAlreadyExists)

	got, err := s.GetImage(ctx, img.ID)
	require.NoError(t, err)
	assert.Equal(t, "x.png", got.Path)
	require.NoError(t, s.DeleteImage(ctx, img.ID))
	assert.ErrorIs(t, s.DeleteImage(ctx, img.ID), ErrNotFound)

	userID, resourceID := uuid.New(), uuid.New()
	order := &models.Order{ID: uuid.New(), UserID: userID, ResourceID: resourceID, Price: 10}
	require.NoError(t, s.CreateOrder(ctx, order))
	assert.ErrorIs(t, s.CreateOrder(ctx, &models.Order{ID: uuid.New(), UserID: userID, ResourceID: resourceID}), ErrAlreadyExists)

	bought, err := s.HasPurchased(ctx, userID, resourceID)
	require.NoError(t, err)
	assert.True(t, bought)

	orders, err := s.ListOrdersByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, order.ID, orders[0].ID)
}
