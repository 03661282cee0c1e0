package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/akulikov/webshop/internal/models"
	"github.com/akulikov/webshop/internal/repo"
	"github.com/akulikov/webshop/internal/service"
	"github.com/akulikov/webshop/internal/transport"
)

func countRows(t *testing.T, r *repo.GormRepo, model any) int64 {
	t.Helper()
	var count int64
	require.NoError(t, r.DB.Model(model).Count(&count).Error)
	return count
}

func productStock(t *testing.T, r *repo.GormRepo, id uint) uint {
	t.Helper()
	var p models.Product
	require.NoError(t, r.DB.First(&p, id).Error)
	return p.Stock
}

func TestCheckoutEndToEnd(t *testing.T) {
	r := newTestRepo(t)
	carts := newCartService(r)
	ctx := context.Background()

	p := seedProduct(t, r, "pineapple cakes", 99, 3)

	view, err := carts.UpdateItems(ctx, 1, []transport.CartItemUpdate{{ProductID: p.ID, Quantity: 2}})
	require.NoError(t, err)
	require.Equal(t, int64(198), view.TotalPrice)

	order, err := carts.Checkout(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(198), order.Total)
	require.Len(t, order.Items, 1)
	require.Equal(t, p.ID, order.Items[0].ProductID)
	require.Equal(t, uint(2), order.Items[0].Quantity)
	require.Equal(t, int64(99), order.Items[0].Price)

	require.Equal(t, uint(1), productStock(t, r, p.ID))

	// The cart lines are gone at the row level, not just hidden in the view.
	require.Zero(t, countRows(t, r, &models.CartItem{}))

	after, err := carts.GetOrCreateCart(ctx, 1)
	require.NoError(t, err)
	require.Empty(t, after.Items)
	require.Zero(t, after.TotalPrice)
}

func TestCheckoutEmptyCartFails(t *testing.T) {
	r := newTestRepo(t)
	carts := newCartService(r)

	_, err := carts.Checkout(context.Background(), 1)
	require.ErrorIs(t, err, service.ErrValidation)
}

func TestCheckoutAtomicityOnInsufficientStock(t *testing.T) {
	r := newTestRepo(t)
	carts := newCartService(r)
	ctx := context.Background()

	plenty := seedProduct(t, r, "plenty", 100, 50)
	scarce := seedProduct(t, r, "scarce", 200, 1)

	_, err := carts.UpdateItems(ctx, 1, []transport.CartItemUpdate{
		{ProductID: plenty.ID, Quantity: 2},
		{ProductID: scarce.ID, Quantity: 5},
	})
	require.NoError(t, err)

	_, err = carts.Checkout(ctx, 1)
	require.ErrorIs(t, err, service.ErrValidation)
	require.Contains(t, err.Error(), fmt.Sprintf("not enough stock for product %d", scarce.ID))

	// Nothing committed: no orders, no items, stock untouched on every line,
	// and the cart keeps its lines for a corrected retry.
	require.Zero(t, countRows(t, r, &models.Order{}))
	require.Zero(t, countRows(t, r, &models.OrderItem{}))
	require.Equal(t, uint(50), productStock(t, r, plenty.ID))
	require.Equal(t, uint(1), productStock(t, r, scarce.ID))
	require.Equal(t, int64(2), countRows(t, r, &models.CartItem{}))
}

func TestCheckoutNoOversell(t *testing.T) {
	r := newTestRepo(t)
	carts := newCartService(r)
	ctx := context.Background()

	p := seedProduct(t, r, "last unit", 100, 1)

	for userID := uint(1); userID <= 2; userID++ {
		_, err := carts.UpdateItems(ctx, userID, []transport.CartItemUpdate{{ProductID: p.ID, Quantity: 1}})
		require.NoError(t, err)
	}

	// Two checkouts race for the single unit. The single-connection pool
	// serializes the transactions; the guarded update decides the loser.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = carts.Checkout(ctx, uint(i+1))
		}(i)
	}
	wg.Wait()

	var won, lost int
	for _, err := range errs {
		if err == nil {
			won++
			continue
		}
		require.ErrorIs(t, err, service.ErrValidation)
		require.Contains(t, err.Error(), "not enough stock")
		lost++
	}
	require.Equal(t, 1, won)
	require.Equal(t, 1, lost)

	require.Equal(t, uint(0), productStock(t, r, p.ID))
	require.Equal(t, int64(1), countRows(t, r, &models.Order{}))
}

func TestCheckoutRejectsProductsGoneIneligible(t *testing.T) {
	r := newTestRepo(t)
	carts := newCartService(r)
	ctx := context.Background()

	p := seedProduct(t, r, "short lived", 100, 10)
	_, err := carts.UpdateItems(ctx, 1, []transport.CartItemUpdate{{ProductID: p.ID, Quantity: 1}})
	require.NoError(t, err)

	// Disabled after being added to the cart.
	p.Disabled = true
	require.NoError(t, r.SaveProduct(ctx, p))

	_, err = carts.Checkout(ctx, 1)
	require.ErrorIs(t, err, service.ErrValidation)
	require.Contains(t, err.Error(), "no longer available")
	require.Zero(t, countRows(t, r, &models.Order{}))

	// Soft deletion behaves the same way.
	p.Disabled = false
	require.NoError(t, r.SaveProduct(ctx, p))
	require.NoError(t, r.SoftDeleteProduct(ctx, p.ID))

	_, err = carts.Checkout(ctx, 1)
	require.ErrorIs(t, err, service.ErrValidation)
	require.Contains(t, err.Error(), "no longer available")
}

func TestOrderPriceIsSnapshotted(t *testing.T) {
	r := newTestRepo(t)
	carts := newCartService(r)
	ctx := context.Background()

	p := seedProduct(t, r, "volatile", 99, 10)
	_, err := carts.UpdateItems(ctx, 1, []transport.CartItemUpdate{{ProductID: p.ID, Quantity: 1}})
	require.NoError(t, err)

	order, err := carts.Checkout(ctx, 1)
	require.NoError(t, err)

	p.Price = 500
	require.NoError(t, r.SaveProduct(ctx, p))

	orders := &service.OrderService{Repo: r}
	seedOrderUser(t, r, 1)
	got, err := orders.GetOrdersForUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, order.ID, got[0].ID)
	require.Equal(t, int64(99), got[0].Items[0].Price)
}

func TestGetOrdersForUser(t *testing.T) {
	r := newTestRepo(t)
	orders := &service.OrderService{Repo: r}
	ctx := context.Background()

	_, err := orders.GetOrdersForUser(ctx, 42)
	require.ErrorIs(t, err, service.ErrNotFound)

	seedOrderUser(t, r, 7)
	got, err := orders.GetOrdersForUser(ctx, 7)
	require.NoError(t, err)
	require.Empty(t, got)
}

// seedOrderUser inserts a bare user row with a fixed id for order lookups.
func seedOrderUser(t *testing.T, r *repo.GormRepo, id uint) {
	t.Helper()
	user := models.User{
		ID:           id,
		Email:        fmt.Sprintf("user%d@example.com", id),
		PasswordHash: "x",
		Role:         models.RoleClient,
	}
	require.NoError(t, r.DB.Create(&user).Error)
}
