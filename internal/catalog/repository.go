package catalog

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/shopfront-labs/shopfront/internal/domain"
)

var ErrInsufficientStock = errors.New("insufficient stock")

type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) Create(ctx context.Context, product *domain.Product) error {
	product.ID = uuid.New().String()
	normalizeVariants(product)

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products (id, name, description, category, image, price, sale_price,
			stock_quantity, reserved, sizes, colors, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, $9, $10, $11)
	`, product.ID, product.Name, product.Description, product.Category, product.Image,
		product.Price, product.SalePrice, product.StockQuantity,
		pq.Array(product.Sizes), pq.Array(product.Colors), product.CreatedAt)

	return err
}

func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	product := &domain.Product{}

	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, description, category, image, price, sale_price,
			stock_quantity, reserved, sizes, colors, created_at
		FROM products
		WHERE id = $1
	`, id).Scan(&product.ID, &product.Name, &product.Description, &product.Category,
		&product.Image, &product.Price, &product.SalePrice, &product.StockQuantity,
		&product.Reserved, pq.Array(&product.Sizes), pq.Array(&product.Colors),
		&product.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return product, nil
}

func (r *ProductRepository) List(ctx context.Context, category string) ([]domain.Product, error) {
	query := `
		SELECT id, name, description, category, image, price, sale_price,
			stock_quantity, reserved, sizes, colors, created_at
		FROM products
	`
	args := []any{}
	if category != "" {
		query += ` WHERE category = $1`
		args = append(args, category)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	products := []domain.Product{}
	for rows.Next() {
		var product domain.Product
		if err := rows.Scan(&product.ID, &product.Name, &product.Description,
			&product.Category, &product.Image, &product.Price, &product.SalePrice,
			&product.StockQuantity, &product.Reserved, pq.Array(&product.Sizes),
			pq.Array(&product.Colors), &product.CreatedAt); err != nil {
			return nil, err
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func (r *ProductRepository) Update(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	normalizeVariants(product)

	result, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, description = $3, category = $4, image = $5, price = $6,
			sale_price = $7, stock_quantity = $8, sizes = $9, colors = $10
		WHERE id = $1
	`, product.ID, product.Name, product.Description, product.Category, product.Image,
		product.Price, product.SalePrice, product.StockQuantity,
		pq.Array(product.Sizes), pq.Array(product.Colors))
	if err != nil {
		return nil, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}

	if rowsAffected == 0 {
		return nil, nil
	}

	return r.GetByID(ctx, product.ID)
}

func (r *ProductRepository) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected > 0, nil
}

// normalizeVariants keeps nil variant slices out of the TEXT[] columns,
// which are NOT NULL.
func normalizeVariants(product *domain.Product) {
	if product.Sizes == nil {
		product.Sizes = []string{}
	}
	if product.Colors == nil {
		product.Colors = []string{}
	}
}

func (r *ProductRepository) GetStock(ctx context.Context, id string) (*domain.StockLevel, error) {
	stock := &domain.StockLevel{}

	err := r.db.QueryRowContext(ctx, `
		SELECT id, stock_quantity, reserved
		FROM products
		WHERE id = $1
	`, id).Scan(&stock.ProductID, &stock.Quantity, &stock.Reserved)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return stock, nil
}

// Reserve commits quantity units of a product's stock. Products with an
// untracked stock quantity (zero) always reserve successfully.
func (r *ProductRepository) Reserve(ctx context.Context, id string, quantity int) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET reserved = reserved + $2
		WHERE id = $1 AND (stock_quantity <= 0 OR stock_quantity - reserved >= $2)
	`, id, quantity)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrInsufficientStock
	}

	return nil
}

func (r *ProductRepository) Release(ctx context.Context, id string, quantity int) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET reserved = reserved - $2
		WHERE id = $1 AND reserved >= $2
	`, id, quantity)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return errors.New("insufficient reserved stock to release")
	}

	return nil
}
