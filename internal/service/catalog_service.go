package service

import (
	"context"

	"storefront/internal/models"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// ProductCache is the read-through cache in front of the catalog.
type ProductCache interface {
	GetProducts(ctx context.Context) ([]models.Product, bool, error)
	SetProducts(ctx context.Context, products []models.Product) error
	GetProduct(ctx context.Context, productID int64) (*models.Product, bool, error)
	SetProduct(ctx context.Context, product *models.Product) error
}

// CatalogService serves product reads, optionally through a cache. Cache
// failures degrade to direct store reads.
type CatalogService struct {
	products ProductCatalog
	cache    ProductCache
	logger   *zap.Logger
}

// NewCatalogService creates a new catalog service. cache may be nil.
func NewCatalogService(products ProductCatalog, cache ProductCache) *CatalogService {
	return &CatalogService{
		products: products,
		cache:    cache,
		logger:   util.GetLogger(),
	}
}

// ListProducts returns all catalog products.
func (s *CatalogService) ListProducts(ctx context.Context) ([]models.Product, error) {
	if s.cache != nil {
		cached, ok, err := s.cache.GetProducts(ctx)
		if err != nil {
			s.logger.Warn("Product list cache read failed", zap.Error(err))
		} else if ok {
			return cached, nil
		}
	}

	products, err := s.products.Products(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetProducts(ctx, products); err != nil {
			s.logger.Warn("Product list cache write failed", zap.Error(err))
		}
	}
	return products, nil
}

// GetProduct returns a single product.
func (s *CatalogService) GetProduct(ctx context.Context, productID int64) (*models.Product, error) {
	if s.cache != nil {
		cached, ok, err := s.cache.GetProduct(ctx, productID)
		if err != nil {
			s.logger.Warn("Product cache read failed",
				zap.Int64("product_id", productID), zap.Error(err))
		} else if ok {
			return cached, nil
		}
	}

	product, err := s.products.ProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetProduct(ctx, product); err != nil {
			s.logger.Warn("Product cache write failed",
				zap.Int64("product_id", productID), zap.Error(err))
		}
	}
	return product, nil
}
