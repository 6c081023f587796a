package core

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"puerto-real/internal/apperr"
)

const (
	msgInvalidItem    = "missing or invalid name/price"
	msgCommitRequired = "supplier and at least one item required"
)

// FormMode tells a draft for a new purchase from an edit of an existing one.
type FormMode int

const (
	ModeNew FormMode = iota
	ModeEdit
)

func (m FormMode) String() string {
	if m == ModeEdit {
		return "edit"
	}
	return "new"
}

// FormOption customises a PurchaseForm.
type FormOption func(*PurchaseForm)

// WithClock overrides the time source used for the default date.
func WithClock(now func() time.Time) FormOption {
	return func(f *PurchaseForm) { f.now = now }
}

// WithIDGenerator overrides the allocator for new purchase ids.
func WithIDGenerator(newID func() (string, error)) FormOption {
	return func(f *PurchaseForm) { f.newID = newID }
}

// PurchaseForm stages a new or modified purchase. Nothing it does touches a
// ledger; Commit hands back a Purchase for the caller to insert or replace.
type PurchaseForm struct {
	mode     FormMode
	original Purchase
	supplier string
	date     string
	items    []LineItem

	now   func() time.Time
	newID func() (string, error)
}

// NewPurchaseForm opens a draft for a new purchase dated today.
func NewPurchaseForm(opts ...FormOption) *PurchaseForm {
	f := &PurchaseForm{
		now:   time.Now,
		newID: newTimeOrderedID,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.Reset()
	return f
}

// OpenEdit opens a draft initialised from an existing purchase.
func OpenEdit(existing Purchase, opts ...FormOption) *PurchaseForm {
	f := NewPurchaseForm(opts...)
	f.mode = ModeEdit
	f.original = clonePurchase(existing)
	f.supplier = existing.SupplierName
	f.date = existing.Date
	f.items = cloneItems(existing.Items)
	return f
}

// Reset discards every staged change and returns the form to an empty new
// draft.
func (f *PurchaseForm) Reset() {
	f.mode = ModeNew
	f.original = Purchase{}
	f.supplier = ""
	f.date = f.now().Format(time.DateOnly)
	f.items = nil
}

func (f *PurchaseForm) Mode() FormMode { return f.mode }

func (f *PurchaseForm) Supplier() string { return f.supplier }

// Date is today for a new draft and the original date for an edit.
func (f *PurchaseForm) Date() string { return f.date }

// Original returns the purchase being edited; zero for a new draft.
func (f *PurchaseForm) Original() Purchase { return clonePurchase(f.original) }

// Items returns a copy of the staged items.
func (f *PurchaseForm) Items() []LineItem { return cloneItems(f.items) }

// AddItem parses priceText and stages a new line item.
func (f *PurchaseForm) AddItem(name, priceText string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return apperr.New(apperr.CodeValidation, msgInvalidItem)
	}
	price, err := decimal.NewFromString(strings.TrimSpace(priceText))
	if err != nil || price.IsNegative() {
		return apperr.Wrap(apperr.CodeValidation, err, msgInvalidItem)
	}
	items := make([]LineItem, len(f.items), len(f.items)+1)
	copy(items, f.items)
	f.items = append(items, LineItem{Name: name, UnitPrice: price})
	return nil
}

// RemoveItem drops the staged item at index.
func (f *PurchaseForm) RemoveItem(index int) error {
	if index < 0 || index >= len(f.items) {
		return apperr.Newf(apperr.CodeIndex, "item index %d out of range [0, %d)", index, len(f.items))
	}
	items := make([]LineItem, 0, len(f.items)-1)
	items = append(items, f.items[:index]...)
	f.items = append(items, f.items[index+1:]...)
	return nil
}

// SetSupplier records the supplier; it is only checked at commit time.
func (f *PurchaseForm) SetSupplier(name string) {
	f.supplier = strings.TrimSpace(name)
}

// Total is recomputed from the staged items on every call.
func (f *PurchaseForm) Total() decimal.Decimal {
	return SumItems(f.items)
}

// Validate reports whether Commit would accept the draft.
func (f *PurchaseForm) Validate() error {
	if f.supplier == "" || len(f.items) == 0 {
		return apperr.New(apperr.CodeValidation, msgCommitRequired)
	}
	return nil
}

// Commit validates the draft and builds the resulting purchase. sequence is
// the 1-based number used for a new purchase's code and is ignored for
// edits.
func (f *PurchaseForm) Commit(sequence int) (Purchase, error) {
	if err := f.Validate(); err != nil {
		return Purchase{}, err
	}

	items := cloneItems(f.items)
	if f.mode == ModeEdit {
		p := clonePurchase(f.original)
		p.SupplierName = f.supplier
		p.Items = items
		p.TotalAmount = SumItems(items)
		return p, nil
	}

	id, err := f.newID()
	if err != nil {
		return Purchase{}, apperr.Wrap(apperr.CodeInternal, err, "could not allocate purchase id")
	}
	return Purchase{
		ID:           id,
		Code:         FormatCode(sequence),
		SupplierName: f.supplier,
		Date:         f.now().Format(time.DateOnly),
		Items:        items,
		TotalAmount:  SumItems(items),
	}, nil
}

// Fields returns the replace payload of the staged draft.
func (f *PurchaseForm) Fields() PurchaseFields {
	return PurchaseFields{SupplierName: f.supplier, Items: cloneItems(f.items)}
}

func newTimeOrderedID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
