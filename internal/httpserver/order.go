package httpserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/akulikov/webshop/internal/logging"
	"github.com/akulikov/webshop/internal/service"
)

type OrderHTTP struct {
	Svc *service.OrderService
}

func (h *OrderHTTP) ListMyOrders(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := userIDFromContext(c)
	if err != nil {
		return err
	}

	orders, err := h.Svc.GetOrdersForUser(ctx, userID)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, orders)
}

// ListUserOrders is the manager-only lookup of another user's orders.
func (h *OrderHTTP) ListUserOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.list_user_orders")

	userID, err := strconv.ParseUint(c.Param("userId"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}

	orders, err := h.Svc.GetOrdersForUser(ctx, uint(userID))
	if err != nil {
		he := domainError(err)
		l.Warn("list_user_orders_error", "status", he.Code, "user_id", userID)
		return he
	}
	return c.JSON(http.StatusOK, orders)
}
