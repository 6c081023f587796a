package app

// SearchPurchasesRequest is the input for ListPurchases and ExportPurchases.
type SearchPurchasesRequest struct {
	Query         string
	Fields        []string // code, supplier, date, amount; empty means all
	CaseSensitive bool
}

// PurchaseRequest is the input for creating, editing or previewing a purchase.
type PurchaseRequest struct {
	Supplier string // supplier code or free-text name
	Items    []ItemInput
}

// ItemInput is a single line within a PurchaseRequest. Price is the raw text
// typed by the user.
type ItemInput struct {
	Name  string
	Price string
}

// ResetPasswordRequest completes a password reset.
type ResetPasswordRequest struct {
	Token           string
	NewPassword     string
	ConfirmPassword string
}

// ChangePasswordRequest is the input for changing a signed-in user's password.
type ChangePasswordRequest struct {
	UserID          uint
	CurrentPassword string
	NewPassword     string
	ConfirmPassword string
}

// PreferencesRequest carries the preferences screen toggles.
type PreferencesRequest struct {
	DarkMode      bool
	Notifications bool
}
