package service_test

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/akulikov/webshop/internal/models"
	"github.com/akulikov/webshop/internal/repo"
	"github.com/akulikov/webshop/internal/service"
	"github.com/akulikov/webshop/pkg/db"
)

func newTestRepo(t *testing.T) *repo.GormRepo {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	// One connection, one in-memory database.
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.Migrate(gdb))
	return repo.New(gdb)
}

func newAuthService(t *testing.T, r *repo.GormRepo) *service.AuthService {
	t.Helper()
	return &service.AuthService{
		Repo:          r,
		JWTSecret:     []byte("test-access-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
	}
}

func newCartService(r *repo.GormRepo) *service.CartService {
	return &service.CartService{
		Repo:   r,
		Orders: &service.OrderService{Repo: r},
	}
}

func seedProduct(t *testing.T, r *repo.GormRepo, name string, price int64, stock uint) *models.Product {
	t.Helper()
	p := &models.Product{Name: name, Price: price, Stock: stock}
	require.NoError(t, r.DB.Create(p).Error)
	return p
}

func seedUser(t *testing.T, auth *service.AuthService, email, password string) *models.User {
	t.Helper()
	user, err := auth.Register(t.Context(), email, password)
	require.NoError(t, err)
	return user
}
