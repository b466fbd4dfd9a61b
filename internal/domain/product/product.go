package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item as received from the remote source.
// Values are immutable once fetched.
type Product struct {
	ID          string
	Title       string
	Price       decimal.Decimal
	Description string
	Category    string
	Image       string
	Rating      Rating
}

// Rating holds the aggregate customer rating published with a product.
// The zero value means the source did not report one.
type Rating struct {
	Rate  decimal.Decimal
	Count int
}

// Source defines read operations against the remote product catalog.
// Implementations hold no local state and never filter or paginate.
type Source interface {
	FetchProducts(ctx context.Context) ([]Product, error)
	FetchCategories(ctx context.Context) ([]string, error)
	FetchProduct(ctx context.Context, id string) (*Product, error)
}
