package httpserver_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/akulikov/webshop/internal/httpserver"
	"github.com/akulikov/webshop/internal/models"
	"github.com/akulikov/webshop/internal/repo"
	"github.com/akulikov/webshop/internal/service"
	"github.com/akulikov/webshop/internal/transport"
	"github.com/akulikov/webshop/pkg/db"
)

var testSecret = []byte("test-access-secret")

type testEnv struct {
	e    *echo.Echo
	repo *repo.GormRepo
}

func newTestServer(t *testing.T) *testEnv {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.Migrate(gdb))

	r := repo.New(gdb)
	auth := &service.AuthService{
		Repo:          r,
		JWTSecret:     testSecret,
		RefreshSecret: []byte("test-refresh-secret"),
	}
	orders := &service.OrderService{Repo: r}
	carts := &service.CartService{Repo: r, Orders: orders}
	catalog := &service.CatalogService{Repo: r}

	e := echo.New()
	httpserver.Register(e, &httpserver.Deps{
		AuthHandler:    &httpserver.AuthHTTP{Svc: auth},
		CartHandler:    &httpserver.CartHTTP{Svc: carts},
		OrderHandler:   &httpserver.OrderHTTP{Svc: orders},
		ProductHandler: &httpserver.ProductHTTP{Svc: catalog},
		JWTSecret:      testSecret,
	})
	return &testEnv{e: e, repo: r}
}

func (env *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

// login registers the account on first use and returns an access token.
func (env *testEnv) login(t *testing.T, email, password string) string {
	t.Helper()

	creds := transport.LoginRequest{Email: email, Password: password}
	rec := env.do(t, http.MethodPost, "/api/v1/auth/register", "", creds)
	require.Contains(t, []int{http.StatusCreated, http.StatusConflict}, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/auth/login", "", creds)
	require.Equal(t, http.StatusOK, rec.Code)
	return decode[transport.TokenPairResponse](t, rec).AccessToken
}

// loginManager promotes the account to manager before logging in so the
// access token carries the manager role.
func (env *testEnv) loginManager(t *testing.T, email, password string) string {
	t.Helper()

	rec := env.do(t, http.MethodPost, "/api/v1/auth/register", "",
		transport.RegisterRequest{Email: email, Password: password})
	require.Equal(t, http.StatusCreated, rec.Code)

	err := env.repo.DB.Model(&models.User{}).
		Where("email = ?", email).
		Update("role", models.RoleManager).Error
	require.NoError(t, err)

	return env.login(t, email, password)
}

func TestRegisterEndpoint(t *testing.T) {
	env := newTestServer(t)

	rec := env.do(t, http.MethodPost, "/api/v1/auth/register", "",
		transport.RegisterRequest{Email: "User@Example.com", Password: "secret"})
	require.Equal(t, http.StatusCreated, rec.Code)
	user := decode[models.User](t, rec)
	require.Equal(t, "user@example.com", user.Email)

	rec = env.do(t, http.MethodPost, "/api/v1/auth/register", "",
		transport.RegisterRequest{Email: "user@example.com", Password: "other"})
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/auth/register", "",
		transport.RegisterRequest{Email: "", Password: "secret"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginEndpoint(t *testing.T) {
	env := newTestServer(t)
	env.login(t, "user@example.com", "secret")

	rec := env.do(t, http.MethodPost, "/api/v1/auth/login", "",
		transport.LoginRequest{Email: "user@example.com", Password: "wrong"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/auth/login", "",
		transport.LoginRequest{Email: "nobody@example.com", Password: "secret"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshEndpoint(t *testing.T) {
	env := newTestServer(t)

	rec := env.do(t, http.MethodPost, "/api/v1/auth/register", "",
		transport.RegisterRequest{Email: "user@example.com", Password: "secret"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/auth/login", "",
		transport.LoginRequest{Email: "user@example.com", Password: "secret"})
	require.Equal(t, http.StatusOK, rec.Code)
	pair := decode[transport.TokenPairResponse](t, rec)

	rec = env.do(t, http.MethodPost, "/api/v1/auth/refresh", "",
		transport.RefreshRequest{RefreshToken: pair.RefreshToken})
	require.Equal(t, http.StatusCreated, rec.Code)
	rotated := decode[transport.TokenPairResponse](t, rec)
	require.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	// A consumed or garbage refresh token is a bad request, not a 401.
	rec = env.do(t, http.MethodPost, "/api/v1/auth/refresh", "",
		transport.RefreshRequest{RefreshToken: pair.RefreshToken})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/auth/refresh", "",
		transport.RefreshRequest{RefreshToken: "not-a-jwt"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newTestServer(t)

	rec := env.do(t, http.MethodGet, "/api/v1/carts", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/carts", "garbage-token", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/orders", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestManagerOnlyRoutes(t *testing.T) {
	env := newTestServer(t)

	client := env.login(t, "client@example.com", "secret")
	manager := env.loginManager(t, "manager@example.com", "secret")

	body := transport.ProductRequest{Name: "cookies", Price: 299, Stock: 3}

	rec := env.do(t, http.MethodPost, "/api/v1/products", client, body)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/products", manager, body)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[models.Product](t, rec)
	require.NotZero(t, created.ID)

	// Partial patch: only the supplied field changes.
	rec = env.do(t, http.MethodPatch, fmt.Sprintf("/api/v1/products/%d", created.ID), manager,
		map[string]any{"price": 349})
	require.Equal(t, http.StatusOK, rec.Code)
	patched := decode[models.Product](t, rec)
	require.Equal(t, int64(349), patched.Price)
	require.Equal(t, "cookies", patched.Name)
	require.Equal(t, uint(3), patched.Stock)

	rec = env.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/products/%d", created.ID), manager, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// Soft-deleted products disappear from the public catalog.
	rec = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/products/%d", created.ID), "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProductListing(t *testing.T) {
	env := newTestServer(t)
	manager := env.loginManager(t, "manager@example.com", "secret")

	for i := 0; i < 3; i++ {
		rec := env.do(t, http.MethodPost, "/api/v1/products", manager,
			transport.ProductRequest{Name: fmt.Sprintf("product %d", i), Price: 100, Stock: 1})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := env.do(t, http.MethodGet, "/api/v1/products?page=1&size=2", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Data []models.Product   `json:"data"`
		Meta transport.ListMeta `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Data, 2)
	require.Equal(t, int64(3), out.Meta.Total)
	require.Equal(t, int64(2), out.Meta.TotalPages)
}

func TestCartAndCheckoutFlow(t *testing.T) {
	env := newTestServer(t)
	manager := env.loginManager(t, "manager@example.com", "secret")
	client := env.login(t, "client@example.com", "secret")

	rec := env.do(t, http.MethodPost, "/api/v1/products", manager,
		transport.ProductRequest{Name: "cakes", Price: 99, Stock: 3})
	require.Equal(t, http.StatusCreated, rec.Code)
	product := decode[models.Product](t, rec)

	rec = env.do(t, http.MethodGet, "/api/v1/carts", client, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, decode[transport.CartView](t, rec).Items)

	rec = env.do(t, http.MethodPatch, "/api/v1/carts", client, transport.UpdateCartRequest{
		Products: []transport.CartItemUpdate{{ProductID: product.ID, Quantity: 2}},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[transport.CartView](t, rec)
	require.Equal(t, int64(198), view.TotalPrice)

	rec = env.do(t, http.MethodPost, "/api/v1/carts", client, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	order := decode[models.Order](t, rec)
	require.Equal(t, int64(198), order.Total)

	rec = env.do(t, http.MethodGet, "/api/v1/orders", client, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[[]models.Order](t, rec), 1)

	// Checkout drained the cart, so a second one fails.
	rec = env.do(t, http.MethodPost, "/api/v1/carts", client, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckoutInsufficientStock(t *testing.T) {
	env := newTestServer(t)
	manager := env.loginManager(t, "manager@example.com", "secret")
	client := env.login(t, "client@example.com", "secret")

	rec := env.do(t, http.MethodPost, "/api/v1/products", manager,
		transport.ProductRequest{Name: "rare", Price: 500, Stock: 1})
	require.Equal(t, http.StatusCreated, rec.Code)
	product := decode[models.Product](t, rec)

	// The cart itself accepts any quantity; only checkout reconciles stock.
	rec = env.do(t, http.MethodPatch, "/api/v1/carts", client, transport.UpdateCartRequest{
		Products: []transport.CartItemUpdate{{ProductID: product.ID, Quantity: 5}},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/carts", client, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/orders", client, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, decode[[]models.Order](t, rec))
}

func TestManagerOrderLookup(t *testing.T) {
	env := newTestServer(t)
	manager := env.loginManager(t, "manager@example.com", "secret")
	client := env.login(t, "client@example.com", "secret")

	rec := env.do(t, http.MethodGet, "/api/v1/orders/2", client, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/orders/2", manager, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, decode[[]models.Order](t, rec))

	rec = env.do(t, http.MethodGet, "/api/v1/orders/999", manager, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/orders/abc", manager, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestServer(t)

	rec := env.do(t, http.MethodGet, "/health/live", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
