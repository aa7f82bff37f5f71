package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"resource-site-backend/internal/models"

	"github.com/google/uuid"
)

// InMemoryStore is an in-memory Store used by tests and local runs.
type InMemoryStore struct {
	mu              sync.RWMutex
	usersByID       map[uuid.UUID]*models.User
	usersByUsername map[string]*models.User
	resources       map[uuid.UUID]*models.Resource
	images          map[uuid.UUID]*models.ResourceImage
	ordersByUser    map[uuid.UUID][]*models.Order
}

var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		usersByID:       make(map[uuid.UUID]*models.User),
		usersByUsername: make(map[string]*models.User),
		resources:       make(map[uuid.UUID]*models.Resource),
		images:          make(map[uuid.UUID]*models.ResourceImage),
		ordersByUser:    make(map[uuid.UUID][]*models.Order),
	}
}

// --- UserStore ---

func (s *InMemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByUsername[user.Username]; exists {
		return fmt.Errorf("user %q: %w", user.Username, ErrAlreadyExists)
	}

	u := *user
	s.usersByID[u.ID] = &u
	s.usersByUsername[u.Username] = &u
	return nil
}

func (s *InMemoryStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.usersByUsername[username]
	if !exists {
		return nil, fmt.Errorf("user %q: %w", username, ErrNotFound)
	}
	u := *user
	return &u, nil
}

func (s *InMemoryStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.usersByID[id]
	if !exists {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	u := *user
	return &u, nil
}

func (s *InMemoryStore) UpdateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.usersByID[user.ID]
	if !exists {
		return fmt.Errorf("user %s: %w", user.ID, ErrNotFound)
	}
	if current.Username != user.Username {
		if _, taken := s.usersByUsername[user.Username]; taken {
			return fmt.Errorf("user %q: %w", user.Username, ErrAlreadyExists)
		}
		delete(s.usersByUsername, current.Username)
	}

	u := *user
	s.usersByID[u.ID] = &u
	s.usersByUsername[u.Username] = &u
	return nil
}

// --- ResourceStore ---

func (s *InMemoryStore) CreateResource(ctx context.Context, res *models.Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.resources[res.ID]; exists {
		return fmt.Errorf("resource %s: %w", res.ID, ErrAlreadyExists)
	}
	s.resources[res.ID] = cloneResource(res)
	return nil
}

func (s *InMemoryStore) GetResourceByID(ctx context.Context, id uuid.UUID) (*models.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res, exists := s.resources[id]
	if !exists {
		return nil, fmt.Errorf("resource %s: %w", id, ErrNotFound)
	}
	return cloneResource(res), nil
}

func (s *InMemoryStore) ListResources(ctx context.Context, filter models.ResourceFilter, limit, offset int) ([]*models.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*models.Resource, 0, len(s.resources))
	for _, res := range s.resources {
		if filter.Category != "" && res.Category != filter.Category {
			continue
		}
		if filter.Language != "" && res.Language != filter.Language {
			continue
		}
		matched = append(matched, res)
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID.String() < matched[j].ID.String()
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	result := []*models.Resource{}
	if offset < 0 || offset >= len(matched) {
		return result, nil
	}
	end := len(matched)
	if limit > 0 && limit < end-offset {
		end = offset + limit
	}
	for _, res := range matched[offset:end] {
		result = append(result, cloneResource(res))
	}
	return result, nil
}

func (s *InMemoryStore) UpdateDownloadLink(ctx context.Context, id uuid.UUID, link string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, exists := s.resources[id]
	if !exists {
		return fmt.Errorf("resource %s: %w", id, ErrNotFound)
	}
	res.DownloadLink = link
	return nil
}

// --- ImageStore ---

func (s *InMemoryStore) SaveImages(ctx context.Context, images []*models.ResourceImage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, img := range images {
		if _, exists := s.images[img.ID]; exists {
			return fmt.Errorf("image %s: %w", img.ID, ErrAlreadyExists)
		}
	}
	for _, img := range images {
		i := *img
		s.images[i.ID] = &i
	}
	return nil
}

func (s *InMemoryStore) GetImage(ctx context.Context, id uuid.UUID) (*models.ResourceImage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	img, exists := s.images[id]
	if !exists {
		return nil, fmt.Errorf("image %s: %w", id, ErrNotFound)
	}
	i := *img
	return &i, nil
}

func (s *InMemoryStore) DeleteImage(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.images[id]; !exists {
		return fmt.Errorf("image %s: %w", id, ErrNotFound)
	}
	delete(s.images, id)
	return nil
}

// --- OrderStore ---

func (s *InMemoryStore) CreateOrder(ctx context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.ordersByUser[order.UserID] {
		if existing.ResourceID == order.ResourceID {
			return fmt.Errorf("order for resource %s: %w", order.ResourceID, ErrAlreadyExists)
		}
	}
	o := *order
	s.ordersByUser[o.UserID] = append(s.ordersByUser[o.UserID], &o)
	return nil
}

func (s *InMemoryStore) ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := make([]*models.Order, 0, len(s.ordersByUser[userID]))
	for i := len(s.ordersByUser[userID]) - 1; i >= 0; i-- {
		o := *s.ordersByUser[userID][i]
		orders = append(orders, &o)
	}
	return orders, nil
}

func (s *InMemoryStore) HasPurchased(ctx context.Context, userID, resourceID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, o := range s.ordersByUser[userID] {
		if o.ResourceID == resourceID {
			return true, nil
		}
	}
	return false, nil
}

func cloneResource(res *models.Resource) *models.Resource {
	r := *res
	if res.Images != nil {
		r.Images = append([]string(nil), res.Images...)
	}
	return &r
}
