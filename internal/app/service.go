package app

import (
	"context"
	"io"

	"puerto-real/internal/core"
)

// ApplicationService is the single interface all UI adapters (REPL, CLI, Web) call.
// It decouples presentation from business logic. Implementations must contain
// no fmt.Println, no ANSI codes, and no display logic of any kind.
type ApplicationService interface {
	// ListPurchases returns the ledger filtered by a free-text search, newest first.
	ListPurchases(ctx context.Context, req SearchPurchasesRequest) (*PurchaseListResult, error)

	// GetPurchase returns one purchase. ref may be the document id or the
	// purchase code (COMPRA-001).
	GetPurchase(ctx context.Context, ref string) (*PurchaseResult, error)

	// OpenPurchaseForm starts a draft. An empty ref opens a new purchase;
	// anything else opens the referenced purchase for editing.
	OpenPurchaseForm(ctx context.Context, ref string) (*core.PurchaseForm, error)

	// SubmitPurchaseForm commits a draft opened with OpenPurchaseForm.
	SubmitPurchaseForm(ctx context.Context, form *core.PurchaseForm) (*PurchaseResult, error)

	// CreatePurchase builds and commits a new purchase in one call.
	CreatePurchase(ctx context.Context, req PurchaseRequest) (*PurchaseResult, error)

	// UpdatePurchase replaces supplier and items of an existing purchase.
	// Code, id and date never change.
	UpdatePurchase(ctx context.Context, ref string, req PurchaseRequest) (*PurchaseResult, error)

	DeletePurchase(ctx context.Context, ref string) error

	// PreviewPurchase stages a draft without saving it and reports what a
	// commit would do.
	PreviewPurchase(ctx context.Context, req PurchaseRequest) (*DraftResult, error)

	// ExportPurchases writes the filtered ledger in the given format. Only
	// "xlsx" is supported.
	ExportPurchases(ctx context.Context, w io.Writer, format string, req SearchPurchasesRequest) error

	// GetPurchaseSummary aggregates spend per supplier.
	GetPurchaseSummary(ctx context.Context) (*core.PurchaseSummary, error)

	ListSuppliers(ctx context.Context) (*SupplierListResult, error)
	CreateSupplier(ctx context.Context, input core.SupplierInput) (*core.Supplier, error)
	UpdateSupplier(ctx context.Context, id string, input core.SupplierInput) (*core.Supplier, error)
	DeleteSupplier(ctx context.Context, id string) error

	ListProducts(ctx context.Context) (*ProductListResult, error)

	// SaveProduct creates a product when id is empty and updates it otherwise.
	SaveProduct(ctx context.Context, id string, input core.ProductInput) (*core.Product, error)
	DeleteProduct(ctx context.Context, id string) error

	// GetInventoryReport computes the analytics dashboard from the current stock.
	GetInventoryReport(ctx context.Context) (*core.InventoryReport, error)

	SignUp(ctx context.Context, input core.SignUpInput) (*UserResult, error)
	Login(ctx context.Context, email, password string) (*core.Session, error)

	// Authenticate resolves a session token to its user.
	Authenticate(ctx context.Context, token string) (*UserResult, error)

	RequestPasswordReset(ctx context.Context, email string) (*PasswordResetResult, error)
	ResetPassword(ctx context.Context, req ResetPasswordRequest) error
	ChangePassword(ctx context.Context, req ChangePasswordRequest) error

	GetProfile(ctx context.Context, userID uint) (*UserResult, error)
	UpdateDisplayName(ctx context.Context, userID uint, name string) (*UserResult, error)
	GetPreferences(ctx context.Context, userID uint) (*core.Preferences, error)
	UpdatePreferences(ctx context.Context, userID uint, req PreferencesRequest) (*core.Preferences, error)

	// Seed loads a YAML seed file (or the built-in demo data when path is
	// empty) into the store.
	Seed(ctx context.Context, path string, replace bool) (*core.SeedResult, error)
}
