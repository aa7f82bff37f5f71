package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"resource-site-backend/internal/auth"
	"resource-site-backend/internal/models"
	"resource-site-backend/internal/repository"

	"github.com/google/uuid"
)

// OrderService records purchases. An order only snapshots the price at the
// time of purchase.
type OrderService struct {
	store repository.Store
	log   *slog.Logger
	now   func() time.Time
}

// NewOrderService creates an order service.
func NewOrderService(store repository.Store, log *slog.Logger) *OrderService {
	return &OrderService{
		store: store,
		log:   log,
		now:   time.Now,
	}
}

// Purchase records that userID bought resourceID. Buying twice, or buying your
// own resource, is a conflict.
func (s *OrderService) Purchase(ctx context.Context, userID, resourceID uuid.UUID) (*models.Order, error) {
	res, err := s.store.GetResourceByID(ctx, resourceID)
	if err != nil {
		return nil, storeError(err, "get resource")
	}
	if res.OwnerID == userID {
		return nil, fmt.Errorf("resource %s is owned by the buyer: %w", resourceID, ErrConflict)
	}

	order := &models.Order{
		ID:         uuid.New(),
		UserID:     userID,
		ResourceID: resourceID,
		Price:      res.Price,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.store.CreateOrder(ctx, order); err != nil {
		return nil, storeError(err, "create order")
	}

	s.log.InfoContext(ctx, "resource purchased",
		"order_id", order.ID,
		"user_id", userID,
		"resource_id", resourceID)
	return order, nil
}

// ListOrders returns the purchases of userID, newest first.
func (s *OrderService) ListOrders(ctx context.Context, requester auth.Principal, userID uuid.UUID) ([]*models.Order, error) {
	if !requester.CanActFor(userID) {
		return nil, fmt.Errorf("list orders of %s: %w", userID, ErrForbidden)
	}
	orders, err := s.store.ListOrdersByUser(ctx, userID)
	if err != nil {
		return nil, storeError(err, "list orders")
	}
	return orders, nil
}
