package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/akulikov/webshop/internal/emails"
	"github.com/akulikov/webshop/internal/logging"
	"github.com/akulikov/webshop/internal/models"
	"github.com/akulikov/webshop/internal/repo"
	"github.com/akulikov/webshop/internal/transport"
)

type CatalogService struct {
	Repo   *repo.GormRepo
	Emails *emails.Service
	ES     *elasticsearch.Client
	Index  string
}

func (s *CatalogService) ListProducts(ctx context.Context, offset, limit int) ([]models.Product, int64, error) {
	return s.Repo.ListEligibleProducts(ctx, offset, limit)
}

func (s *CatalogService) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	product, err := s.Repo.GetEligibleProduct(ctx, id)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, fmt.Errorf("%w: product %d", ErrNotFound, id)
		}
		return nil, err
	}
	return product, nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, req transport.ProductRequest) (*models.Product, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.create_product")

	if req.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if req.Price < 0 {
		return nil, fmt.Errorf("%w: price must be >= 0", ErrValidation)
	}

	product := models.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		CategoryID:  req.CategoryID,
	}
	if err := s.Repo.CreateProduct(ctx, &product); err != nil {
		return nil, err
	}

	l.Info("create_product_success", "product_id", product.ID)
	s.indexProduct(ctx, &product)
	return &product, nil
}

// UpdateProduct applies a partial patch: fields absent from the request keep
// their stored values.
func (s *CatalogService) UpdateProduct(ctx context.Context, id uint, req transport.ProductUpdateRequest) (*models.Product, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.update_product")

	product, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, fmt.Errorf("%w: product %d", ErrNotFound, id)
		}
		return nil, err
	}
	if req.Name != nil && *req.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if req.Price != nil && *req.Price < 0 {
		return nil, fmt.Errorf("%w: price must be >= 0", ErrValidation)
	}

	restocked := req.Stock != nil && product.Stock == 0 && *req.Stock > 0

	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.Price != nil {
		product.Price = *req.Price
	}
	if req.Stock != nil {
		product.Stock = *req.Stock
	}
	if req.CategoryID != nil {
		product.CategoryID = *req.CategoryID
	}
	if req.Disabled != nil {
		product.Disabled = *req.Disabled
	}

	if err := s.Repo.SaveProduct(ctx, product); err != nil {
		return nil, err
	}

	l.Info("update_product_success", "product_id", product.ID)
	s.indexProduct(ctx, product)
	if restocked {
		s.Emails.SendProductInStockEmail(ctx, product.Name)
	}
	return product, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id uint) error {
	l := logging.FromContext(ctx).With("svc", "catalog.delete_product")

	if err := s.Repo.SoftDeleteProduct(ctx, id); err != nil {
		if repo.IsNotFound(err) {
			return fmt.Errorf("%w: product %d", ErrNotFound, id)
		}
		return err
	}

	l.Info("delete_product_success", "product_id", id)
	s.removeFromIndex(ctx, id)
	return nil
}

// indexProduct mirrors the product into Elasticsearch. Fire-and-forget: the
// catalog write already committed, an indexing failure only gets logged.
func (s *CatalogService) indexProduct(ctx context.Context, p *models.Product) {
	if s.ES == nil {
		return
	}
	l := logging.FromContext(ctx)

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(p); err != nil {
		l.Error("es_index_error", "product_id", p.ID, "error", err)
		return
	}

	res, err := s.ES.Index(
		s.Index,
		&buf,
		s.ES.Index.WithContext(ctx),
		s.ES.Index.WithDocumentID(strconv.FormatUint(uint64(p.ID), 10)),
	)
	if err != nil {
		l.Error("es_index_error", "product_id", p.ID, "error", err)
		return
	}
	defer res.Body.Close()
	if res.IsError() {
		l.Error("es_index_error", "product_id", p.ID, "status", res.Status())
	}
}

func (s *CatalogService) removeFromIndex(ctx context.Context, id uint) {
	if s.ES == nil {
		return
	}
	l := logging.FromContext(ctx)

	res, err := s.ES.Delete(
		s.Index,
		strconv.FormatUint(uint64(id), 10),
		s.ES.Delete.WithContext(ctx),
	)
	if err != nil {
		l.Error("es_delete_error", "product_id", id, "error", err)
		return
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != 404 {
		l.Error("es_delete_error", "product_id", id, "status", res.Status())
	}
}
