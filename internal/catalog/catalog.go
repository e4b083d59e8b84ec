package catalog

import (
	"context"
	"errors"
	"time"
)

// ErrProductNotFound indicates the product does not exist or is no longer listed.
var ErrProductNotFound = errors.New("product not found")

// Product is a marketplace listing the ledger consults when settling a purchase.
type Product struct {
	ID        string
	SellerID  string
	Name      string
	Price     int64
	Active    bool
	CreatedAt time.Time
}

// Catalog resolves product listings for purchase validation.
type Catalog interface {
	Product(ctx context.Context, id string) (Product, error)
	List(ctx context.Context, limit int) ([]Product, error)
}
