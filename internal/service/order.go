package service

import (
	"context"
	"fmt"

	"github.com/akulikov/webshop/internal/logging"
	"github.com/akulikov/webshop/internal/models"
	"github.com/akulikov/webshop/internal/repo"
	"github.com/akulikov/webshop/internal/transport"
)

type OrderService struct {
	Repo *repo.GormRepo
}

// CreateOrder converts a resolved cart into a durable order inside one
// transaction: re-check eligibility for every referenced product, fail if any
// line exceeds stock, insert the order with its items, then decrement stock
// through the guarded update. Any failure rolls the whole thing back.
func (s *OrderService) CreateOrder(ctx context.Context, userID uint, cart *transport.CartView) (*models.Order, error) {
	var order *models.Order
	err := s.Repo.WithTransaction(ctx, func(tx *repo.GormRepo) error {
		var err error
		order, err = s.placeOrder(ctx, tx, userID, cart)
		return err
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// placeOrder is the transaction body of CreateOrder. Callers that need the
// order write to share a transaction with other work (checkout clears the
// cart in the same scope) invoke it with their own tx.
func (s *OrderService) placeOrder(ctx context.Context, tx *repo.GormRepo, userID uint, cart *transport.CartView) (*models.Order, error) {
	l := logging.FromContext(ctx).With("svc", "order.create_order")

	if len(cart.Items) == 0 {
		return nil, fmt.Errorf("%w: no items in cart", ErrValidation)
	}

	ids := make([]uint, 0, len(cart.Items))
	for _, line := range cart.Items {
		ids = append(ids, line.ProductID)
	}

	products, err := tx.GetEligibleProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	// A shorter result set means something was disabled or soft-deleted
	// after it went into the cart.
	if len(products) < len(ids) {
		return nil, fmt.Errorf("%w: some products are no longer available", ErrValidation)
	}

	stock := make(map[uint]uint, len(products))
	for _, p := range products {
		stock[p.ID] = p.Stock
	}
	for _, line := range cart.Items {
		if stock[line.ProductID] < line.Quantity {
			return nil, fmt.Errorf("%w: not enough stock for product %d", ErrValidation, line.ProductID)
		}
	}

	items := make([]models.OrderItem, 0, len(cart.Items))
	for _, line := range cart.Items {
		items = append(items, models.OrderItem{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Price:     line.Price,
		})
	}
	order := &models.Order{
		UserID: userID,
		Total:  cart.TotalPrice,
		Items:  items,
	}
	if err := tx.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	for _, line := range cart.Items {
		ok, err := tx.DecrementStock(ctx, line.ProductID, line.Quantity)
		if err != nil {
			return nil, err
		}
		// A concurrent checkout got there first; the guarded update saw
		// stock below the requested quantity.
		if !ok {
			return nil, fmt.Errorf("%w: not enough stock for product %d", ErrValidation, line.ProductID)
		}
	}

	l.Info("create_order_success", "user_id", userID, "order_id", order.ID, "total", order.Total)
	return order, nil
}

// GetOrdersForUser checks the user exists (manager lookups of arbitrary ids
// get a 404, not an empty list) and returns the user's orders with items.
func (s *OrderService) GetOrdersForUser(ctx context.Context, userID uint) ([]models.Order, error) {
	exists, err := s.Repo.UserExists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, userID)
	}

	orders, err := s.Repo.ListOrdersByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}
