package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/linemk/storefront/internal/domain/models"
)

var (
	ErrProductNotFound = errors.New("product not found")
	// условное списание не затронуло ни одной строки
	ErrStockConflict = errors.New("stock changed concurrently")
)

// ProductStorage описывает методы для работы с каталогом.
type ProductStorage interface {
	// ListProducts возвращает страницу каталога и общее число товаров по фильтру.
	ListProducts(ctx context.Context, filter models.ProductFilter) ([]*models.Product, int, error)
	// SearchProducts ищет товары по подстроке, точное совпадение имени идёт первым.
	SearchProducts(ctx context.Context, query string, limit int) ([]*models.Product, error)
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	ListCategories(ctx context.Context) ([]*models.Category, error)
	// DecrementStockTx списывает остаток только если его хватает.
	DecrementStockTx(ctx context.Context, tx *sql.Tx, productID int64, quantity int) error
}

type productRepository struct {
	db *sqlx.DB
}

// NewProductRepository создаёт репозиторий каталога поверх общего подключения.
func NewProductRepository(db *sql.DB) ProductStorage {
	return &productRepository{db: sqlx.NewDb(db, "postgres")}
}

const productSelect = `
	SELECT p.id, p.name, p.description, p.price, p.category_id, c.name AS category_name,
	       p.stock_quantity, p.is_featured, p.is_bestseller, p.is_new, p.brand, p.rating, p.created_at
	FROM products p
	LEFT JOIN categories c ON c.id = p.category_id`

func (r *productRepository) ListProducts(ctx context.Context, filter models.ProductFilter) ([]*models.Product, int, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		conds = append(conds, fmt.Sprintf("p.category_id = $%d", len(args)))
	}
	if filter.Featured {
		conds = append(conds, "p.is_featured")
	}
	if filter.Bestseller {
		conds = append(conds, "p.is_bestseller")
	}
	if filter.New {
		conds = append(conds, "p.is_new")
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM products p"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf("%s%s ORDER BY p.created_at DESC, p.id DESC LIMIT $%d OFFSET $%d",
		productSelect, where, len(args)-1, len(args))

	products := []*models.Product{}
	if err := r.db.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	return products, total, nil
}

func (r *productRepository) SearchProducts(ctx context.Context, query string, limit int) ([]*models.Product, error) {
	escaped := escapeLike(query)
	q := productSelect + `
	WHERE p.name ILIKE $1 OR p.description ILIKE $1 OR p.brand ILIKE $1
	ORDER BY CASE
	             WHEN LOWER(p.name) = LOWER($2) THEN 0
	             WHEN p.name ILIKE $3 THEN 1
	             ELSE 2
	         END, p.created_at DESC
	LIMIT $4`

	products := []*models.Product{}
	if err := r.db.SelectContext(ctx, &products, q, "%"+escaped+"%", query, escaped+"%", limit); err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	return products, nil
}

func (r *productRepository) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	product := &models.Product{}
	if err := r.db.GetContext(ctx, product, productSelect+" WHERE p.id = $1", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return product, nil
}

func (r *productRepository) ListCategories(ctx context.Context) ([]*models.Category, error) {
	categories := []*models.Category{}
	err := r.db.SelectContext(ctx, &categories, "SELECT id, name, slug, description FROM categories ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

func (r *productRepository) DecrementStockTx(ctx context.Context, tx *sql.Tx, productID int64, quantity int) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE products SET stock_quantity = stock_quantity - $1
		 WHERE id = $2 AND stock_quantity >= $1`,
		quantity, productID)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrStockConflict
	}
	return nil
}

// escapeLike экранирует спецсимволы шаблона LIKE
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
