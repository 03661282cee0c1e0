package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/akulikov/webshop/internal/logging"
	"github.com/akulikov/webshop/internal/service"
	"github.com/akulikov/webshop/internal/transport"
)

type CartHTTP struct {
	Svc *service.CartService
}

func (h *CartHTTP) GetCart(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := userIDFromContext(c)
	if err != nil {
		return err
	}

	view, err := h.Svc.GetOrCreateCart(ctx, userID)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *CartHTTP) UpdateCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.update_cart")

	userID, err := userIDFromContext(c)
	if err != nil {
		return err
	}

	var req transport.UpdateCartRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	view, err := h.Svc.UpdateItems(ctx, userID, req.Products)
	if err != nil {
		he := domainError(err)
		l.Warn("update_cart_error", "status", he.Code, "error", err)
		return he
	}
	return c.JSON(http.StatusOK, view)
}

func (h *CartHTTP) Checkout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.checkout")

	userID, err := userIDFromContext(c)
	if err != nil {
		return err
	}

	order, err := h.Svc.Checkout(ctx, userID)
	if err != nil {
		he := domainError(err)
		l.Warn("checkout_error", "status", he.Code, "error", err)
		return he
	}

	l.Info("checkout_success", "order_id", order.ID)
	return c.JSON(http.StatusCreated, order)
}

func (h *CartHTTP) ClearCart(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := userIDFromContext(c)
	if err != nil {
		return err
	}

	view, err := h.Svc.Clear(ctx, userID)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, view)
}
