package core

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/shopspring/decimal"
)

// PurchasesCollection is the remote collection purchases are stored in.
const PurchasesCollection = "purchases"

// CodePrefix prefixes every human-readable purchase code.
const CodePrefix = "COMPRA-"

// LineItem is one priced product entry within a purchase.
type LineItem struct {
	Name      string          `json:"name" yaml:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice" yaml:"unitPrice"`
}

// Valid reports whether the item has a name and a non-negative price.
func (it LineItem) Valid() bool {
	return strings.TrimSpace(it.Name) != "" && !it.UnitPrice.IsNegative()
}

// Purchase is one procurement transaction from a supplier.
type Purchase struct {
	ID           string          `json:"id" yaml:"id"`
	Code         string          `json:"code" yaml:"code"`
	SupplierName string          `json:"supplierName" yaml:"supplierName"`
	Date         string          `json:"date" yaml:"date"` // YYYY-MM-DD
	Items        []LineItem      `json:"items" yaml:"items"`
	TotalAmount  decimal.Decimal `json:"totalAmount" yaml:"totalAmount"`
}

// PurchaseFields is the replace payload of an edit. The total is always
// derived from Items.
type PurchaseFields struct {
	SupplierName string
	Items        []LineItem
}

// SearchField selects which purchase attribute a free-text query is matched
// against.
type SearchField string

const (
	FieldCode     SearchField = "code"
	FieldSupplier SearchField = "supplier"
	FieldDate     SearchField = "date"
	FieldAmount   SearchField = "amount"
)

// AllSearchFields is the field set used when a query selects none.
var AllSearchFields = []SearchField{FieldCode, FieldSupplier, FieldDate, FieldAmount}

// ParseSearchField accepts the field names used by the adapters.
func ParseSearchField(s string) (SearchField, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "code", "codigo":
		return FieldCode, nil
	case "supplier", "proveedor":
		return FieldSupplier, nil
	case "date", "fecha":
		return FieldDate, nil
	case "amount", "importe", "total":
		return FieldAmount, nil
	}
	return "", fmt.Errorf("unknown search field %q (expected code, supplier, date or amount)", s)
}

// ListOptions filters a ledger listing.
type ListOptions struct {
	Query         string
	Fields        []SearchField
	CaseSensitive bool
}

// SumItems is the only way a purchase total is computed.
func SumItems(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.UnitPrice)
	}
	return total
}

// FormatCode renders the purchase code for a 1-based sequence number.
func FormatCode(sequence int) string {
	return fmt.Sprintf("%s%03d", CodePrefix, sequence)
}

func cloneItems(items []LineItem) []LineItem {
	if items == nil {
		return nil
	}
	out := make([]LineItem, len(items))
	copy(out, items)
	return out
}

func clonePurchase(p Purchase) Purchase {
	p.Items = cloneItems(p.Items)
	return p
}

// fieldValue renders the attribute a search field matches against.
func (p Purchase) fieldValue(f SearchField) string {
	switch f {
	case FieldCode:
		return p.Code
	case FieldSupplier:
		return p.SupplierName
	case FieldDate:
		return p.Date
	case FieldAmount:
		return p.TotalAmount.StringFixed(2)
	}
	return ""
}

// Matches reports whether the purchase satisfies opts.
func (p Purchase) Matches(opts ListOptions) bool {
	query := strings.TrimSpace(opts.Query)
	if query == "" {
		return true
	}
	fields := opts.Fields
	if len(fields) == 0 {
		fields = AllSearchFields
	}
	if !opts.CaseSensitive {
		query = strings.ToLower(query)
	}
	for _, f := range fields {
		value := p.fieldValue(f)
		if !opts.CaseSensitive {
			value = strings.ToLower(value)
		}
		if strings.Contains(value, query) {
			return true
		}
	}
	return false
}

// PurchaseService keeps the local ledger in step with the remote store.
type PurchaseService interface {
	// Create commits a new draft and persists it. The ledger changes only
	// after the store acknowledges the write.
	Create(ctx context.Context, form *PurchaseForm) (Purchase, error)

	// Update commits an edit draft over the purchase with id.
	Update(ctx context.Context, id string, form *PurchaseForm) (Purchase, error)

	// Delete removes the purchase remotely, then locally.
	Delete(ctx context.Context, id string) error

	Get(id string) (Purchase, error)
	List(opts ListOptions) iter.Seq[Purchase]

	// Watch replaces the ledger with every snapshot of the purchases
	// collection until the returned handle is called or ctx ends.
	Watch(ctx context.Context) (func(), error)

	// PreviewCode is the code the next Create would assign, or "" when
	// codes come from a store sequencer and are only known on save.
	PreviewCode() string

	// Ledger exposes the authoritative ledger for read-only use.
	Ledger() *PurchaseLedger
}
