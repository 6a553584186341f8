package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fjod/storefront/internal/domain"
)

const productColumns = `id, name_en, name_hy, name_ru, description_en, description_hy, description_ru,
	price, volume_ml, category, image, in_stock, created_at`

type SQLiteCatalogRepository struct {
	db *sql.DB
}

func NewSQLiteCatalogRepository(db *sql.DB) *SQLiteCatalogRepository {
	return &SQLiteCatalogRepository{db: db}
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	p := &domain.Product{}
	var price string
	if err := row.Scan(
		&p.ID,
		&p.Name.EN,
		&p.Name.HY,
		&p.Name.RU,
		&p.Description.EN,
		&p.Description.HY,
		&p.Description.RU,
		&price,
		&p.VolumeMl,
		&p.Category,
		&p.ImageRef,
		&p.InStock,
		&p.CreatedAt,
	); err != nil {
		return nil, err
	}

	d, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("product %s price: %w", p.ID, err)
	}
	p.Price = d
	return p, nil
}

func (r *SQLiteCatalogRepository) query(ctx context.Context, where string, args ...any) ([]*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ` + where + ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	// rows must be closed before the price lookups reuse the single connection
	rows.Close()
	for _, p := range products {
		if err := r.loadPrices(ctx, p); err != nil {
			return nil, err
		}
	}
	return products, nil
}

func (r *SQLiteCatalogRepository) loadPrices(ctx context.Context, p *domain.Product) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT region, price, currency, currency_symbol, discount, tax_rate, available
		FROM product_prices
		WHERE product_id = ?`, p.ID)
	if err != nil {
		return fmt.Errorf("failed to query prices of %s: %w", p.ID, err)
	}
	defer rows.Close()

	p.Pricing = map[domain.Region]domain.RegionPrice{}
	p.Availability = map[domain.Region]bool{}
	for rows.Next() {
		var (
			region, price, discount string
			taxRate                 sql.NullString
			available               bool
			rp                      domain.RegionPrice
		)
		if err := rows.Scan(&region, &price, &rp.Currency, &rp.CurrencySymbol, &discount, &taxRate, &available); err != nil {
			return fmt.Errorf("failed to scan price of %s: %w", p.ID, err)
		}
		if rp.Price, err = decimal.NewFromString(price); err != nil {
			return fmt.Errorf("product %s region %s price: %w", p.ID, region, err)
		}
		if rp.Discount, err = decimal.NewFromString(discount); err != nil {
			return fmt.Errorf("product %s region %s discount: %w", p.ID, region, err)
		}
		if taxRate.Valid {
			rate, err := decimal.NewFromString(taxRate.String)
			if err != nil {
				return fmt.Errorf("product %s region %s tax rate: %w", p.ID, region, err)
			}
			rp.TaxRate = &rate
		}
		p.Pricing[domain.Region(region)] = rp
		p.Availability[domain.Region(region)] = available
	}
	return rows.Err()
}

func (r *SQLiteCatalogRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	products, err := r.query(ctx, "WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, ErrProductNotFound
	}
	return products[0], nil
}

func (r *SQLiteCatalogRepository) GetByCategory(ctx context.Context, category domain.Category) ([]*domain.Product, error) {
	return r.query(ctx, "WHERE category = ?", string(category))
}

func (r *SQLiteCatalogRepository) List(ctx context.Context) ([]*domain.Product, error) {
	return r.query(ctx, "")
}

// Upsert writes a product and replaces its regional prices.
func (r *SQLiteCatalogRepository) Upsert(ctx context.Context, p *domain.Product) error {
	if err := p.Validate(); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name_en = excluded.name_en, name_hy = excluded.name_hy, name_ru = excluded.name_ru,
			description_en = excluded.description_en, description_hy = excluded.description_hy,
			description_ru = excluded.description_ru, price = excluded.price,
			volume_ml = excluded.volume_ml, category = excluded.category,
			image = excluded.image, in_stock = excluded.in_stock`,
		p.ID, p.Name.EN, p.Name.HY, p.Name.RU,
		p.Description.EN, p.Description.HY, p.Description.RU,
		p.Price.String(), p.VolumeMl, string(p.Category), p.ImageRef, p.InStock, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert product %s: %w", p.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM product_prices WHERE product_id = ?`, p.ID); err != nil {
		return fmt.Errorf("clear prices of %s: %w", p.ID, err)
	}
	for region, rp := range p.Pricing {
		var taxRate sql.NullString
		if rp.TaxRate != nil {
			taxRate = sql.NullString{String: rp.TaxRate.String(), Valid: true}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO product_prices (product_id, region, price, currency, currency_symbol, discount, tax_rate, available)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, string(region), rp.Price.String(), rp.Currency, rp.CurrencySymbol,
			rp.Discount.String(), taxRate, p.Availability[region])
		if err != nil {
			return fmt.Errorf("insert price of %s in %s: %w", p.ID, region, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit product %s: %w", p.ID, err)
	}
	return nil
}

// Seed inserts the starter catalog when the products table is empty.
func (r *SQLiteCatalogRepository) Seed(ctx context.Context) error {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&n); err != nil {
		return fmt.Errorf("count products: %w", err)
	}
	if n > 0 {
		return nil
	}
	var errs []error
	for _, p := range SeedProducts() {
		errs = append(errs, r.Upsert(ctx, p))
	}
	return errors.Join(errs...)
}

func (r *SQLiteCatalogRepository) Close() error {
	return r.db.Close()
}

var _ CatalogRepository = (*SQLiteCatalogRepository)(nil)
