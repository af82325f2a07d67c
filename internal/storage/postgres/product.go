package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-storefront/internal/domain/product"
)

const (
	listProductsSQL = `SELECT id, name, description, price, stock, is_recommended
		FROM products ORDER BY position`

	listDiscountsSQL = `SELECT product_id, quantity, rate
		FROM product_discounts ORDER BY product_id, ordinal`

	upsertProductSQL = `INSERT INTO products (id, name, description, price, stock, is_recommended)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			price = EXCLUDED.price,
			stock = EXCLUDED.stock,
			is_recommended = EXCLUDED.is_recommended,
			updated_at = now()`

	deleteDiscountsSQL = `DELETE FROM product_discounts WHERE product_id = $1`

	insertDiscountSQL = `INSERT INTO product_discounts (product_id, ordinal, quantity, rate)
		VALUES ($1, $2, $3, $4)`

	deleteProductSQL = `DELETE FROM products WHERE id = $1`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns all products in creation order with their discount tiers.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}

	rows, err = r.pool.Query(ctx, listDiscountsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing discounts: %w", err)
	}
	tiers, err := pgx.CollectRows(rows, scanTier)
	if err != nil {
		return nil, fmt.Errorf("listing discounts: %w", err)
	}

	byProduct := make(map[string][]product.Tier, len(products))
	for _, t := range tiers {
		byProduct[t.productID] = append(byProduct[t.productID], t.Tier)
	}
	for i := range products {
		products[i].Discounts = byProduct[products[i].ID]
	}
	return products, nil
}

// Upsert writes the product row and replaces its tiers in one transaction.
func (r *ProductRepository) Upsert(ctx context.Context, p product.Product) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin upsert product %q: %w", p.ID, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, upsertProductSQL,
		p.ID, p.Name, p.Description, p.Price, p.Stock, p.IsRecommended,
	); err != nil {
		return fmt.Errorf("upserting product %q: %w", p.ID, err)
	}
	if _, err := tx.Exec(ctx, deleteDiscountsSQL, p.ID); err != nil {
		return fmt.Errorf("clearing discounts of %q: %w", p.ID, err)
	}

	if len(p.Discounts) > 0 {
		batch := &pgx.Batch{}
		for i, t := range p.Discounts {
			batch.Queue(insertDiscountSQL, p.ID, i, t.Quantity, t.Rate)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("inserting discounts of %q: %w", p.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit upsert product %q: %w", p.ID, err)
	}
	return nil
}

// Delete removes a product and, by cascade, its tiers.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteProductSQL, id)
	if err != nil {
		return fmt.Errorf("deleting product %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.IsRecommended)
	return p, err
}

type productTier struct {
	product.Tier
	productID string
}

func scanTier(row pgx.CollectableRow) (productTier, error) {
	var (
		t        productTier
		quantity int32
		rate     decimal.Decimal
	)
	err := row.Scan(&t.productID, &quantity, &rate)
	t.Quantity = int(quantity)
	t.Rate = rate
	return t, err
}
