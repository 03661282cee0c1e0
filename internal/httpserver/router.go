package httpserver

import (
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/akulikov/webshop/internal/logging"
)

type Deps struct {
	AuthHandler    *AuthHTTP
	CartHandler    *CartHTTP
	OrderHandler   *OrderHTTP
	ProductHandler *ProductHTTP
	SearchHandler  *SearchHTTP
	JWTSecret      []byte
	Logger         *slog.Logger
}

func Register(e *echo.Echo, d *Deps) {
	if d.Logger != nil {
		e.Use(loggerIntoContext(d.Logger))
	}

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	v1 := e.Group("/api/v1")

	auth := v1.Group("/auth")
	auth.POST("/register", d.AuthHandler.Register)
	auth.POST("/login", d.AuthHandler.Login)
	auth.POST("/refresh", d.AuthHandler.Refresh)
	auth.POST("/resetPassword", d.AuthHandler.ResetPassword)

	authed := v1.Group("/auth", RequireLogin(d.JWTSecret))
	authed.POST("/logout", d.AuthHandler.Logout)
	authed.POST("/changePassword", d.AuthHandler.ChangePassword)

	products := v1.Group("/products")
	products.GET("", d.ProductHandler.GetProducts)
	products.GET("/:id", d.ProductHandler.GetProduct)

	if d.SearchHandler != nil {
		v1.GET("/search", d.SearchHandler.Search)
	}

	manager := v1.Group("/products", RequireLogin(d.JWTSecret), ManagerOnly)
	manager.POST("", d.ProductHandler.CreateProduct)
	manager.PATCH("/:id", d.ProductHandler.PatchProduct)
	manager.DELETE("/:id", d.ProductHandler.DeleteProduct)

	carts := v1.Group("/carts", RequireLogin(d.JWTSecret))
	carts.GET("", d.CartHandler.GetCart)
	carts.PATCH("", d.CartHandler.UpdateCart)
	carts.POST("", d.CartHandler.Checkout)
	carts.DELETE("", d.CartHandler.ClearCart)

	orders := v1.Group("/orders", RequireLogin(d.JWTSecret))
	orders.GET("", d.OrderHandler.ListMyOrders)
	orders.GET("/:userId", d.OrderHandler.ListUserOrders, ManagerOnly)
}

func loggerIntoContext(l *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			ctx := logging.IntoContext(req.Context(), l)
			c.SetRequest(req.WithContext(ctx))
			return next(c)
		}
	}
}
