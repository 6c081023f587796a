package core

import (
	"context"

	"github.com/shopspring/decimal"
)

// ProductsCollection is the remote collection stock items live in.
const ProductsCollection = "products"

// Product is one stock-keeping item.
type Product struct {
	ID       string          `json:"id" yaml:"id"`
	Name     string          `json:"name" yaml:"name"`
	Category string          `json:"category" yaml:"category"`
	Stock    int             `json:"stock" yaml:"stock"`
	Price    decimal.Decimal `json:"price" yaml:"price"`
}

// Value is price times units on hand.
func (p Product) Value() decimal.Decimal {
	return p.Price.Mul(decimal.NewFromInt(int64(p.Stock)))
}

// ProductInput is the raw text of the product form.
type ProductInput struct {
	Name     string `json:"name" validate:"required,alnumspace"`
	Category string `json:"category" validate:"required"`
	Stock    string `json:"stock" validate:"required"`
	Price    string `json:"price" validate:"required"`
}

// StockService keeps the product list in step with the remote store.
type StockService interface {
	// Save creates a product when id is empty and updates it otherwise.
	Save(ctx context.Context, id string, input ProductInput) (Product, error)
	Delete(ctx context.Context, id string) error

	// Watch replaces the local product list with every remote snapshot.
	Watch(ctx context.Context) (func(), error)

	// Refresh loads the product list once.
	Refresh(ctx context.Context) error

	// Products returns the last known products sorted by name.
	Products() []Product
	Get(id string) (Product, error)
}
