package core

import (
	"cmp"
	"context"
	"encoding/json"
	"strings"

	"puerto-real/internal/apperr"
	"puerto-real/internal/logger"
	"puerto-real/internal/metrics"
	"puerto-real/internal/remote"
)

type supplierRecord struct {
	Code          string `json:"code"`
	Name          string `json:"name"`
	ContactPerson string `json:"contactPerson"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
}

type supplierService struct {
	calls     storeCall
	log       *logger.Logger
	suppliers *localCollection[Supplier]
}

// NewSupplierService constructs a SupplierService over store.
func NewSupplierService(store remote.Store, log *logger.Logger, m *metrics.StoreMetrics) SupplierService {
	if log == nil {
		log = logger.Nop()
	}
	return &supplierService{
		calls: storeCall{store: store, metrics: m},
		log:   log,
		suppliers: newLocalCollection(
			func(s Supplier) string { return s.ID },
			func(a, b Supplier) int { return cmp.Or(cmp.Compare(a.Code, b.Code), cmp.Compare(a.ID, b.ID)) },
		),
	}
}

func normalizeSupplierInput(in SupplierInput) SupplierInput {
	return SupplierInput{
		Code:          strings.ToUpper(strings.TrimSpace(in.Code)),
		Name:          strings.TrimSpace(in.Name),
		ContactPerson: strings.TrimSpace(in.ContactPerson),
		Email:         strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:         strings.TrimSpace(in.Phone),
		Address:       strings.TrimSpace(in.Address),
	}
}

func validateSupplierInput(in SupplierInput) error {
	tags, err := failedTags(in)
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, err, "could not validate supplier")
	}
	switch {
	case tags == nil:
		return nil
	case tags["code"] == "required" || tags["name"] == "required":
		return apperr.New(apperr.CodeValidation, "supplier code and name are required")
	case tags["email"] != "":
		return apperr.New(apperr.CodeValidation, "invalid email format")
	}
	return apperr.New(apperr.CodeValidation, "supplier code or name is too long")
}

func (s *supplierService) Create(ctx context.Context, input SupplierInput) (Supplier, error) {
	input = normalizeSupplierInput(input)
	if err := validateSupplierInput(input); err != nil {
		return Supplier{}, err
	}
	if err := s.checkCodeFree(input.Code, ""); err != nil {
		return Supplier{}, err
	}

	data, err := encodeRecord(supplierRecord(input))
	if err != nil {
		return Supplier{}, err
	}
	id, err := s.calls.create(ctx, SuppliersCollection, remote.Document{Data: data})
	if err != nil {
		s.log.Error(ctx, "create supplier "+input.Code, err)
		return Supplier{}, remoteFailure(err, "could not save supplier")
	}

	sup := supplierFromInput(id, input)
	s.suppliers.upsert(sup)
	return sup, nil
}

func (s *supplierService) Update(ctx context.Context, id string, input SupplierInput) (Supplier, error) {
	input = normalizeSupplierInput(input)
	if err := validateSupplierInput(input); err != nil {
		return Supplier{}, err
	}
	if err := s.checkCodeFree(input.Code, id); err != nil {
		return Supplier{}, err
	}

	data, err := encodeRecord(supplierRecord(input))
	if err != nil {
		return Supplier{}, err
	}
	if err := s.calls.update(ctx, SuppliersCollection, id, data); err != nil {
		s.log.Error(ctx, "update supplier "+id, err)
		return Supplier{}, remoteFailure(err, "could not save supplier")
	}

	sup := supplierFromInput(id, input)
	s.suppliers.upsert(sup)
	return sup, nil
}

func (s *supplierService) Delete(ctx context.Context, id string) error {
	if err := s.calls.delete(ctx, SuppliersCollection, id); err != nil {
		s.log.Error(ctx, "delete supplier "+id, err)
		return remoteFailure(err, "could not delete supplier")
	}
	s.suppliers.remove(id)
	return nil
}

func (s *supplierService) Watch(ctx context.Context) (func(), error) {
	unsubscribe, err := s.calls.store.Subscribe(ctx, SuppliersCollection, func(docs []remote.Document) {
		s.suppliers.replaceAll(decodeSnapshot(ctx, s.log, SuppliersCollection, docs, decodeSupplier))
	})
	if err != nil {
		return nil, remoteFailure(err, "could not subscribe to suppliers")
	}
	return unsubscribe, nil
}

func (s *supplierService) Refresh(ctx context.Context) error {
	docs, err := s.calls.store.List(ctx, SuppliersCollection)
	if err != nil {
		return remoteFailure(err, "could not load suppliers")
	}
	s.suppliers.replaceAll(decodeSnapshot(ctx, s.log, SuppliersCollection, docs, decodeSupplier))
	return nil
}

func (s *supplierService) Suppliers() []Supplier {
	return s.suppliers.all()
}

func (s *supplierService) Get(id string) (Supplier, error) {
	sup, ok := s.suppliers.find(func(v Supplier) bool { return v.ID == id })
	if !ok {
		return Supplier{}, apperr.Newf(apperr.CodeNotFound, "supplier %s not found", id)
	}
	return sup, nil
}

func (s *supplierService) GetByCode(code string) (Supplier, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	sup, ok := s.suppliers.find(func(v Supplier) bool { return v.Code == code })
	if !ok {
		return Supplier{}, apperr.Newf(apperr.CodeNotFound, "supplier %q not found", code)
	}
	return sup, nil
}

func (s *supplierService) ResolveSupplier(ref string) string {
	ref = strings.TrimSpace(ref)
	if sup, err := s.GetByCode(ref); err == nil {
		return sup.Name
	}
	return ref
}

// checkCodeFree rejects a code held by a supplier other than selfID.
func (s *supplierService) checkCodeFree(code, selfID string) error {
	if owner, ok := s.suppliers.find(func(v Supplier) bool { return v.Code == code }); ok && owner.ID != selfID {
		return apperr.Newf(apperr.CodeConflict, "supplier code %s is already in use", code)
	}
	return nil
}

func supplierFromInput(id string, in SupplierInput) Supplier {
	return Supplier{
		ID:            id,
		Code:          in.Code,
		Name:          in.Name,
		ContactPerson: in.ContactPerson,
		Email:         in.Email,
		Phone:         in.Phone,
		Address:       in.Address,
	}
}

func decodeSupplier(doc remote.Document) (Supplier, error) {
	var rec supplierRecord
	if err := json.Unmarshal(doc.Data, &rec); err != nil {
		return Supplier{}, err
	}
	return supplierFromInput(doc.ID, SupplierInput(rec)), nil
}
