package service

import (
	"context"
	"fmt"

	"github.com/akulikov/webshop/internal/logging"
	"github.com/akulikov/webshop/internal/models"
	"github.com/akulikov/webshop/internal/repo"
	"github.com/akulikov/webshop/internal/transport"
)

type CartService struct {
	Repo   *repo.GormRepo
	Orders *OrderService
}

// GetOrCreateCart returns the user's cart with only eligible product lines
// and the computed total.
func (s *CartService) GetOrCreateCart(ctx context.Context, userID uint) (*transport.CartView, error) {
	cart, err := s.Repo.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.buildView(ctx, cart)
}

// UpdateItems applies (productId, quantity) pairs to the cart: quantity < 1
// deletes the line (no-op when absent), quantity >= 1 upserts it. The product
// must exist and be eligible.
func (s *CartService) UpdateItems(ctx context.Context, userID uint, updates []transport.CartItemUpdate) (*transport.CartView, error) {
	l := logging.FromContext(ctx).With("svc", "cart.update_items")

	if len(updates) == 0 {
		return nil, fmt.Errorf("%w: the cart does not include any products", ErrValidation)
	}

	cart, err := s.Repo.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	for _, upd := range updates {
		if upd.Quantity < 1 {
			if err := s.Repo.DeleteCartItem(ctx, cart.ID, upd.ProductID); err != nil {
				return nil, err
			}
			continue
		}

		if _, err := s.Repo.GetEligibleProduct(ctx, upd.ProductID); err != nil {
			if repo.IsNotFound(err) {
				return nil, fmt.Errorf("%w: unable to update the cart, the product %d does not exist", ErrValidation, upd.ProductID)
			}
			return nil, err
		}
		if err := s.Repo.UpsertCartItem(ctx, cart.ID, upd.ProductID, upd.Quantity); err != nil {
			return nil, err
		}
	}

	l.Info("update_items_success", "user_id", userID, "updates", len(updates))
	return s.buildView(ctx, cart)
}

// Checkout places the order from the current cart and clears the cart inside
// the same transaction, so a committed order never leaves its purchased lines
// behind. Unlike the read path it keeps lines whose product went ineligible
// after being added: the order engine must see them and reject the checkout.
func (s *CartService) Checkout(ctx context.Context, userID uint) (*models.Order, error) {
	cart, err := s.Repo.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	var order *models.Order
	err = s.Repo.WithTransaction(ctx, func(tx *repo.GormRepo) error {
		view, err := s.checkoutView(ctx, tx, cart)
		if err != nil {
			return err
		}
		order, err = s.Orders.placeOrder(ctx, tx, userID, view)
		if err != nil {
			return err
		}
		return tx.DeleteCart(ctx, userID)
	})
	if err != nil {
		return nil, err
	}

	// Recreate eagerly so the next read sees a fresh empty cart.
	if _, err := s.Repo.GetOrCreateCart(ctx, userID); err != nil {
		return nil, err
	}
	return order, nil
}

// Clear deletes the cart and immediately recreates it empty. Idempotent.
func (s *CartService) Clear(ctx context.Context, userID uint) (*transport.CartView, error) {
	if err := s.Repo.DeleteCart(ctx, userID); err != nil {
		return nil, err
	}
	return s.GetOrCreateCart(ctx, userID)
}

func (s *CartService) buildView(ctx context.Context, cart *models.Cart) (*transport.CartView, error) {
	items, err := s.Repo.GetCartItems(ctx, cart.ID)
	if err != nil {
		return nil, err
	}

	view := &transport.CartView{
		ID:        cart.ID,
		UserID:    cart.UserID,
		CreatedAt: cart.CreatedAt,
		UpdatedAt: cart.UpdatedAt,
		Items:     []transport.CartLine{},
	}
	if len(items) == 0 {
		return view, nil
	}

	ids := make([]uint, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	products, err := s.Repo.GetEligibleProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	// Lines whose product went ineligible since being added are dropped from
	// the read view; checkout re-checks against the full item set.
	for _, it := range items {
		p, ok := byID[it.ProductID]
		if !ok {
			continue
		}
		view.Items = append(view.Items, transport.CartLine{
			ProductID: it.ProductID,
			Name:      p.Name,
			Quantity:  it.Quantity,
			Price:     p.Price,
		})
		view.TotalPrice += int64(it.Quantity) * p.Price
	}
	return view, nil
}

// checkoutView keeps every cart line, eligible or not, pricing from the raw
// product rows. The order engine decides whether the set is purchasable. It
// reads through r so checkout can run it inside its transaction.
func (s *CartService) checkoutView(ctx context.Context, r *repo.GormRepo, cart *models.Cart) (*transport.CartView, error) {
	items, err := r.GetCartItems(ctx, cart.ID)
	if err != nil {
		return nil, err
	}

	view := &transport.CartView{
		ID:     cart.ID,
		UserID: cart.UserID,
		Items:  []transport.CartLine{},
	}
	if len(items) == 0 {
		return view, nil
	}

	ids := make([]uint, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	products, err := r.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	for _, it := range items {
		p := byID[it.ProductID]
		view.Items = append(view.Items, transport.CartLine{
			ProductID: it.ProductID,
			Name:      p.Name,
			Quantity:  it.Quantity,
			Price:     p.Price,
		})
		view.TotalPrice += int64(it.Quantity) * p.Price
	}
	return view, nil
}
