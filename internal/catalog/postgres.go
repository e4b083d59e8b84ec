package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresCatalog reads product listings from PostgreSQL.
type PostgresCatalog struct {
	db *pgxpool.Pool
}

// NewPostgresCatalog builds a Postgres-backed catalog.
func NewPostgresCatalog(db *pgxpool.Pool) *PostgresCatalog {
	return &PostgresCatalog{db: db}
}

// Product resolves a listing by identifier.
func (c *PostgresCatalog) Product(ctx context.Context, id string) (Product, error) {
	productID, err := uuid.Parse(id)
	if err != nil {
		return Product{}, ErrProductNotFound
	}
	row := c.db.QueryRow(ctx, `SELECT id, seller_id, name, price, active, created_at
        FROM products WHERE id = $1`, productID)
	return scanProduct(row)
}

// List returns active listings, newest first.
func (c *PostgresCatalog) List(ctx context.Context, limit int) ([]Product, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	rows, err := c.db.Query(ctx, `SELECT id, seller_id, name, price, active, created_at
        FROM products WHERE active ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProduct(row pgx.Row) (Product, error) {
	var (
		p        Product
		id       uuid.UUID
		sellerID uuid.UUID
	)
	if err := row.Scan(&id, &sellerID, &p.Name, &p.Price, &p.Active, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrProductNotFound
		}
		return Product{}, err
	}
	p.ID = id.String()
	p.SellerID = sellerID.String()
	return p, nil
}
