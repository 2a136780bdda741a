package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/linemk/storefront/internal/domain/models"
	"github.com/linemk/storefront/internal/storage"
)

const (
	DefaultPageLimit   = 12
	MaxPageLimit       = 100
	DefaultSearchLimit = 20
)

// CatalogService читает каталог, авторизация не нужна
type CatalogService interface {
	ListProducts(ctx context.Context, query ProductQuery) (*ProductPage, error)
	SearchProducts(ctx context.Context, q string, limit int) ([]*models.Product, error)
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	ListCategories(ctx context.Context) ([]*models.Category, error)
}

// ProductQuery — фильтры и пагинация каталога, Page начинается с 1
type ProductQuery struct {
	CategoryID *int64
	Featured   bool
	Bestseller bool
	New        bool
	Page       int
	Limit      int
}

type ProductPage struct {
	Products []*models.Product
	Total    int
	Page     int
	Limit    int
	Pages    int
}

type catalogService struct {
	log         *slog.Logger
	productRepo storage.ProductStorage
}

func NewCatalogService(log *slog.Logger, productRepo storage.ProductStorage) CatalogService {
	return &catalogService{
		log:         log,
		productRepo: productRepo,
	}
}

func (s *catalogService) ListProducts(ctx context.Context, query ProductQuery) (*ProductPage, error) {
	const op = "service.CatalogService.ListProducts"

	page := query.Page
	if page < 1 {
		page = 1
	}
	limit := clampLimit(query.Limit, DefaultPageLimit)

	products, total, err := s.productRepo.ListProducts(ctx, models.ProductFilter{
		CategoryID: query.CategoryID,
		Featured:   query.Featured,
		Bestseller: query.Bestseller,
		New:        query.New,
		Limit:      limit,
		Offset:     (page - 1) * limit,
	})
	if err != nil {
		s.log.Error("failed to list products", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to list products: %w", op, err)
	}

	return &ProductPage{
		Products: products,
		Total:    total,
		Page:     page,
		Limit:    limit,
		Pages:    (total + limit - 1) / limit,
	}, nil
}

// SearchProducts ищет по подстроке, точное совпадение названия выводится первым
func (s *catalogService) SearchProducts(ctx context.Context, q string, limit int) ([]*models.Product, error) {
	const op = "service.CatalogService.SearchProducts"

	q = strings.TrimSpace(q)
	if q == "" {
		return nil, fmt.Errorf("%s: %w", op, invalidField("q", "is required"))
	}

	products, err := s.productRepo.SearchProducts(ctx, q, clampLimit(limit, DefaultSearchLimit))
	if err != nil {
		s.log.Error("failed to search products", slog.String("op", op), slog.String("query", q), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to search products: %w", op, err)
	}
	return products, nil
}

func (s *catalogService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	const op = "service.CatalogService.GetProduct"

	product, err := s.productRepo.GetProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrProductNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		s.log.Error("failed to get product", slog.String("op", op), slog.Int64("productID", id), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get product: %w", op, err)
	}
	return product, nil
}

func (s *catalogService) ListCategories(ctx context.Context) ([]*models.Category, error) {
	const op = "service.CatalogService.ListCategories"

	categories, err := s.productRepo.ListCategories(ctx)
	if err != nil {
		s.log.Error("failed to list categories", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to list categories: %w", op, err)
	}
	return categories, nil
}

func clampLimit(limit, def int) int {
	switch {
	case limit <= 0:
		return def
	case limit > MaxPageLimit:
		return MaxPageLimit
	default:
		return limit
	}
}
