package core

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"puerto-real/internal/apperr"
	"puerto-real/internal/logger"
	"puerto-real/internal/metrics"
	"puerto-real/internal/remote"
)

// purchaseRecord is the stored shape of a purchase; the id is the
// document id.
type purchaseRecord struct {
	Code         string          `json:"code"`
	SupplierName string          `json:"supplierName"`
	Date         string          `json:"date"`
	Items        []LineItem      `json:"items"`
	TotalAmount  decimal.Decimal `json:"totalAmount"`
}

type purchasePatch struct {
	SupplierName string          `json:"supplierName"`
	Items        []LineItem      `json:"items"`
	TotalAmount  decimal.Decimal `json:"totalAmount"`
}

type purchaseService struct {
	ledger    *PurchaseLedger
	calls     storeCall
	sequencer remote.Sequencer
	log       *logger.Logger
}

// PurchaseServiceOption customises NewPurchaseService.
type PurchaseServiceOption func(*purchaseService)

// WithSequencer hands out purchase codes from the store instead of the
// ledger length, closing the duplicate-code gap between clients.
func WithSequencer(seq remote.Sequencer) PurchaseServiceOption {
	return func(s *purchaseService) { s.sequencer = seq }
}

func WithPurchaseLogger(log *logger.Logger) PurchaseServiceOption {
	return func(s *purchaseService) {
		if log != nil {
			s.log = log
		}
	}
}

func WithPurchaseMetrics(m *metrics.StoreMetrics) PurchaseServiceOption {
	return func(s *purchaseService) { s.calls.metrics = m }
}

// NewPurchaseService connects ledger to store. ledger may be nil for a
// fresh empty one.
func NewPurchaseService(ledger *PurchaseLedger, store remote.Store, opts ...PurchaseServiceOption) PurchaseService {
	if ledger == nil {
		ledger = &PurchaseLedger{}
	}
	s := &purchaseService{
		ledger: ledger,
		calls:  storeCall{store: store},
		log:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *purchaseService) Ledger() *PurchaseLedger { return s.ledger }

func (s *purchaseService) Get(id string) (Purchase, error) { return s.ledger.Get(id) }

func (s *purchaseService) List(opts ListOptions) iter.Seq[Purchase] { return s.ledger.List(opts) }

func (s *purchaseService) Create(ctx context.Context, form *PurchaseForm) (Purchase, error) {
	if form == nil || form.Mode() != ModeNew {
		return Purchase{}, apperr.New(apperr.CodeValidation, "form is not a new purchase draft")
	}
	if err := form.Validate(); err != nil {
		return Purchase{}, err
	}

	sequence, err := s.nextSequence(ctx)
	if err != nil {
		return Purchase{}, err
	}
	p, err := form.Commit(sequence)
	if err != nil {
		return Purchase{}, err
	}

	staged := s.ledger.Clone()
	if err := staged.Insert(p); err != nil {
		return Purchase{}, err
	}

	data, err := encodeRecord(purchaseRecord{
		Code:         p.Code,
		SupplierName: p.SupplierName,
		Date:         p.Date,
		Items:        p.Items,
		TotalAmount:  p.TotalAmount,
	})
	if err != nil {
		return Purchase{}, err
	}
	if _, err := s.calls.create(ctx, PurchasesCollection, remote.Document{ID: p.ID, Data: data}); err != nil {
		s.log.Error(ctx, "create purchase "+p.Code, err)
		return Purchase{}, remoteFailure(err, "could not save purchase")
	}

	// A live subscription may already have delivered the new document.
	if err := s.ledger.Insert(p); err != nil && !apperr.IsCode(err, apperr.CodeDuplicateID) {
		return Purchase{}, err
	}
	s.log.Info(s.log.WithFields(ctx, map[string]any{"purchase_id": p.ID, "code": p.Code}), "purchase created")
	return p, nil
}

func (s *purchaseService) Update(ctx context.Context, id string, form *PurchaseForm) (Purchase, error) {
	if form == nil || form.Mode() != ModeEdit {
		return Purchase{}, apperr.New(apperr.CodeValidation, "form is not editing an existing purchase")
	}
	p, err := form.Commit(0)
	if err != nil {
		return Purchase{}, err
	}
	if p.ID != id {
		return Purchase{}, apperr.Newf(apperr.CodeValidation, "form edits purchase %s, not %s", p.ID, id)
	}

	fields := form.Fields()
	staged := s.ledger.Clone()
	if err := staged.Replace(id, fields); err != nil {
		return Purchase{}, err
	}
	updated, err := staged.Get(id)
	if err != nil {
		return Purchase{}, err
	}

	data, err := encodeRecord(purchasePatch{
		SupplierName: updated.SupplierName,
		Items:        updated.Items,
		TotalAmount:  updated.TotalAmount,
	})
	if err != nil {
		return Purchase{}, err
	}
	if err := s.calls.update(ctx, PurchasesCollection, id, data); err != nil {
		s.log.Error(ctx, "update purchase "+id, err)
		return Purchase{}, remoteFailure(err, "could not update purchase")
	}

	if err := s.ledger.Replace(id, fields); err != nil {
		// Removed locally by a snapshot while the write was in flight.
		s.log.Warn(ctx, "purchase "+id+" left the ledger before its update was applied")
	}
	return updated, nil
}

func (s *purchaseService) Delete(ctx context.Context, id string) error {
	staged := s.ledger.Clone()
	if err := staged.Remove(id); err != nil {
		return err
	}

	err := s.calls.delete(ctx, PurchasesCollection, id)
	switch {
	case errors.Is(err, remote.ErrNotFound):
		s.log.Warn(ctx, "purchase "+id+" was already gone remotely")
	case err != nil:
		s.log.Error(ctx, "delete purchase "+id, err)
		return remoteFailure(err, "could not delete purchase")
	}

	if err := s.ledger.Remove(id); err != nil && !apperr.IsCode(err, apperr.CodeNotFound) {
		return err
	}
	return nil
}

func (s *purchaseService) Watch(ctx context.Context) (func(), error) {
	unsubscribe, err := s.calls.store.Subscribe(ctx, PurchasesCollection, func(docs []remote.Document) {
		purchases := decodeSnapshot(ctx, s.log, PurchasesCollection, docs, decodePurchase)
		SortNewestFirst(purchases)
		if err := s.ledger.ReplaceAll(purchases); err != nil {
			s.log.Error(ctx, "apply purchases snapshot", err)
		}
	})
	if err != nil {
		return nil, remoteFailure(err, "could not subscribe to purchases")
	}
	return unsubscribe, nil
}

func (s *purchaseService) PreviewCode() string {
	if s.sequencer != nil {
		return ""
	}
	return FormatCode(s.ledger.NextSequence())
}

func (s *purchaseService) nextSequence(ctx context.Context) (int, error) {
	if s.sequencer == nil {
		return s.ledger.NextSequence(), nil
	}
	n, err := s.sequencer.NextSequence(ctx, PurchasesCollection)
	if err != nil {
		return 0, remoteFailure(err, "could not allocate purchase code")
	}
	return int(n), nil
}

func decodePurchase(doc remote.Document) (Purchase, error) {
	var rec purchaseRecord
	if err := json.Unmarshal(doc.Data, &rec); err != nil {
		return Purchase{}, err
	}
	for i, it := range rec.Items {
		if !it.Valid() {
			return Purchase{}, fmt.Errorf("item %d: %s", i+1, msgInvalidItem)
		}
	}
	return Purchase{
		ID:           doc.ID,
		Code:         rec.Code,
		SupplierName: rec.SupplierName,
		Date:         rec.Date,
		Items:        rec.Items,
		TotalAmount:  SumItems(rec.Items),
	}, nil
}

// SortNewestFirst orders purchases by descending code number, falling back
// to date and id.
func SortNewestFirst(purchases []Purchase) {
	slices.SortStableFunc(purchases, func(a, b Purchase) int {
		if c := cmp.Compare(codeNumber(b.Code), codeNumber(a.Code)); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Date, a.Date); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
}

func codeNumber(code string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(code, CodePrefix))
	if err != nil {
		return 0
	}
	return n
}
