package core

import (
	"iter"
	"slices"
	"sync"

	"puerto-real/internal/apperr"
)

// PurchaseLedger is the ordered in-memory set of purchases, newest first.
// Every operation either fully applies or leaves the ledger unchanged.
// Purchases are copied on the way in and on the way out.
type PurchaseLedger struct {
	mu        sync.RWMutex
	purchases []Purchase
}

// NewPurchaseLedger builds a ledger holding purchases in the given order.
func NewPurchaseLedger(purchases ...Purchase) (*PurchaseLedger, error) {
	l := &PurchaseLedger{}
	if err := l.ReplaceAll(purchases); err != nil {
		return nil, err
	}
	return l, nil
}

// List yields the purchases matching opts in ledger order. The sequence
// reads a snapshot taken when iteration starts, so it can be ranged over
// more than once and is safe against concurrent mutation.
func (l *PurchaseLedger) List(opts ListOptions) iter.Seq[Purchase] {
	return func(yield func(Purchase) bool) {
		for _, p := range l.Snapshot() {
			if !p.Matches(opts) {
				continue
			}
			if !yield(p) {
				return
			}
		}
	}
}

// Snapshot returns a deep copy of every purchase in ledger order.
func (l *PurchaseLedger) Snapshot() []Purchase {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Purchase, len(l.purchases))
	for i, p := range l.purchases {
		out[i] = clonePurchase(p)
	}
	return out
}

func (l *PurchaseLedger) Get(id string) (Purchase, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i := l.indexLocked(id)
	if i < 0 {
		return Purchase{}, notFound(id)
	}
	return clonePurchase(l.purchases[i]), nil
}

func (l *PurchaseLedger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.purchases)
}

// NextSequence is the number the next new purchase's code is built from.
// Two writers reading it concurrently get the same value.
func (l *PurchaseLedger) NextSequence() int {
	return l.Len() + 1
}

// Insert prepends p.
func (l *PurchaseLedger) Insert(p Purchase) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.indexLocked(p.ID) >= 0 {
		return apperr.Newf(apperr.CodeDuplicateID, "purchase %s already exists", p.ID)
	}
	p = clonePurchase(p)
	p.TotalAmount = SumItems(p.Items)
	l.purchases = slices.Insert(l.purchases, 0, p)
	return nil
}

// Replace swaps supplier and items of the purchase with id, keeping its id,
// code and date.
func (l *PurchaseLedger) Replace(id string, fields PurchaseFields) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.indexLocked(id)
	if i < 0 {
		return notFound(id)
	}
	items := cloneItems(fields.Items)
	l.purchases[i].SupplierName = fields.SupplierName
	l.purchases[i].Items = items
	l.purchases[i].TotalAmount = SumItems(items)
	return nil
}

func (l *PurchaseLedger) Remove(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.indexLocked(id)
	if i < 0 {
		return notFound(id)
	}
	l.purchases = slices.Delete(l.purchases, i, i+1)
	return nil
}

// ReplaceAll swaps the whole content for purchases, in the given order.
// Duplicate ids reject the batch.
func (l *PurchaseLedger) ReplaceAll(purchases []Purchase) error {
	next := make([]Purchase, 0, len(purchases))
	seen := make(map[string]struct{}, len(purchases))
	for _, p := range purchases {
		if _, dup := seen[p.ID]; dup {
			return apperr.Newf(apperr.CodeDuplicateID, "purchase %s appears twice", p.ID)
		}
		seen[p.ID] = struct{}{}
		p = clonePurchase(p)
		p.TotalAmount = SumItems(p.Items)
		next = append(next, p)
	}

	l.mu.Lock()
	l.purchases = next
	l.mu.Unlock()
	return nil
}

// Clone returns an independent ledger with the same content, used to stage
// a mutation before it is confirmed.
func (l *PurchaseLedger) Clone() *PurchaseLedger {
	return &PurchaseLedger{purchases: l.Snapshot()}
}

func (l *PurchaseLedger) indexLocked(id string) int {
	return slices.IndexFunc(l.purchases, func(p Purchase) bool { return p.ID == id })
}

func notFound(id string) error {
	return apperr.Newf(apperr.CodeNotFound, "purchase %s not found", id)
}
