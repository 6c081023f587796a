package core

import (
	"context"
)

// SuppliersCollection is the remote collection suppliers live in.
const SuppliersCollection = "suppliers"

// Supplier is a business the shop buys from.
type Supplier struct {
	ID            string `json:"id" yaml:"id"`
	Code          string `json:"code" yaml:"code"`
	Name          string `json:"name" yaml:"name"`
	ContactPerson string `json:"contactPerson,omitempty" yaml:"contactPerson,omitempty"`
	Email         string `json:"email,omitempty" yaml:"email,omitempty"`
	Phone         string `json:"phone,omitempty" yaml:"phone,omitempty"`
	Address       string `json:"address,omitempty" yaml:"address,omitempty"`
}

// SupplierInput holds the fields of the supplier form.
type SupplierInput struct {
	Code          string `json:"code" validate:"required,max=32"`
	Name          string `json:"name" validate:"required,max=120"`
	ContactPerson string `json:"contactPerson"`
	Email         string `json:"email" validate:"omitempty,email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
}

// SupplierService provides supplier master data operations.
type SupplierService interface {
	// Create stores a new supplier. The code must not be in use.
	Create(ctx context.Context, input SupplierInput) (Supplier, error)

	// Update replaces every field of the supplier with id.
	Update(ctx context.Context, id string, input SupplierInput) (Supplier, error)

	Delete(ctx context.Context, id string) error

	Watch(ctx context.Context) (func(), error)
	Refresh(ctx context.Context) error

	// Suppliers returns the last known suppliers ordered by code.
	Suppliers() []Supplier
	Get(id string) (Supplier, error)
	GetByCode(code string) (Supplier, error)

	// ResolveSupplier maps a known supplier code to its name. Anything else
	// is returned trimmed, as a free-text supplier name.
	ResolveSupplier(ref string) string
}
