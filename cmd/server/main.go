package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/akulikov/webshop/internal/config"
	"github.com/akulikov/webshop/internal/emails"
	"github.com/akulikov/webshop/internal/es"
	"github.com/akulikov/webshop/internal/httpserver"
	"github.com/akulikov/webshop/internal/logging"
	"github.com/akulikov/webshop/internal/mykafka"
	"github.com/akulikov/webshop/internal/repo"
	"github.com/akulikov/webshop/internal/service"
	"github.com/akulikov/webshop/pkg/db"
)

const productIndex = "products"

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)

	ctx := context.Background()
	database, err := db.Open(ctx, configuration.DSN())
	if err != nil {
		log.Fatalf("database init error: %v", err)
	}
	if err := db.Migrate(database); err != nil {
		log.Fatalf("migration error: %v", err)
	}

	producer := mykafka.NewProducer([]string{configuration.KAFKA_ADDRESS})

	esClient, err := es.NewClient(configuration)
	if err != nil {
		// Search and indexing degrade gracefully; the shop keeps selling.
		logger.Warn("elasticsearch unavailable", "error", err)
		esClient = nil
	}

	repository := repo.New(database)
	emailSvc := &emails.Service{Producer: producer}

	jwtSecret := []byte(configuration.JWT_SECRET)
	refreshSecret := []byte(configuration.REFRESH_SECRET)

	authSvc := &service.AuthService{
		Repo:          repository,
		Emails:        emailSvc,
		JWTSecret:     jwtSecret,
		RefreshSecret: refreshSecret,
	}
	orderSvc := &service.OrderService{Repo: repository}
	cartSvc := &service.CartService{Repo: repository, Orders: orderSvc}
	catalogSvc := &service.CatalogService{
		Repo:   repository,
		Emails: emailSvc,
		ES:     esClient,
		Index:  productIndex,
	}

	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())

	deps := httpserver.Deps{
		AuthHandler:    &httpserver.AuthHTTP{Svc: authSvc},
		CartHandler:    &httpserver.CartHTTP{Svc: cartSvc},
		OrderHandler:   &httpserver.OrderHTTP{Svc: orderSvc},
		ProductHandler: &httpserver.ProductHTTP{Svc: catalogSvc},
		JWTSecret:      jwtSecret,
		Logger:         logger,
	}
	if esClient != nil {
		deps.SearchHandler = &httpserver.SearchHTTP{ES: esClient, Index: productIndex}
	}
	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         configuration.HTTP_ADDR,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("http server listening", "addr", configuration.HTTP_ADDR)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if sqlDB, err := database.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db close error", "error", err)
		}
	}

	if err := producer.Close(); err != nil {
		logger.Error("kafka close error", "error", err)
	}

	logger.Info("shutdown complete")
}
