package app

import (
	"github.com/shopspring/decimal"

	"puerto-real/internal/core"
)

// PurchaseListResult is returned by ListPurchases.
type PurchaseListResult struct {
	Purchases []core.Purchase `json:"purchases"`
	Total     decimal.Decimal `json:"total"` // sum of the listed purchases
}

// PurchaseResult is returned by single-purchase operations.
type PurchaseResult struct {
	Purchase core.Purchase `json:"purchase"`
}

// DraftResult is returned by PreviewPurchase.
type DraftResult struct {
	Supplier string          `json:"supplier"`
	Items    []core.LineItem `json:"items"`
	Total    decimal.Decimal `json:"total"`
	NextCode string          `json:"nextCode,omitempty"` // empty when assigned on save
	Problems []string        `json:"problems"` // empty when the draft would commit
}

// SupplierListResult is returned by ListSuppliers.
type SupplierListResult struct {
	Suppliers []core.Supplier `json:"suppliers"`
}

// ProductListResult is returned by ListProducts.
type ProductListResult struct {
	Products []core.Product `json:"products"`
}

// UserResult bundles a user with their preferences.
type UserResult struct {
	User        *core.User        `json:"user"`
	Preferences *core.Preferences `json:"preferences,omitempty"`
}

// PasswordResetResult is returned by RequestPasswordReset. Delivering the
// token (mail, SMS) is the caller's concern.
type PasswordResetResult struct {
	Email string `json:"email"`
	Token string `json:"-"`
}
