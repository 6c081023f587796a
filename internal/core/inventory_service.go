package core

import (
	"cmp"
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"puerto-real/internal/apperr"
	"puerto-real/internal/logger"
	"puerto-real/internal/metrics"
	"puerto-real/internal/remote"
)

const (
	msgProductFieldsRequired = "all fields are required"
	msgProductName           = "product name may only contain letters, numbers and spaces"
	msgProductNegative       = "stock and price cannot be negative"
	msgProductSave           = "could not save product"
	msgProductDelete         = "could not delete product"
)

type productRecord struct {
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Stock    int             `json:"stock"`
	Price    decimal.Decimal `json:"price"`
}

type stockService struct {
	calls    storeCall
	log      *logger.Logger
	products *localCollection[Product]
}

// NewStockService constructs a StockService over store. log and m may be nil.
func NewStockService(store remote.Store, log *logger.Logger, m *metrics.StoreMetrics) StockService {
	if log == nil {
		log = logger.Nop()
	}
	return &stockService{
		calls: storeCall{store: store, metrics: m},
		log:   log,
		products: newLocalCollection(
			func(p Product) string { return p.ID },
			func(a, b Product) int {
				return cmp.Or(cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)), cmp.Compare(a.ID, b.ID))
			},
		),
	}
}

// ParseProductInput validates the product form and converts it.
func ParseProductInput(in ProductInput) (Product, error) {
	in = ProductInput{
		Name:     strings.TrimSpace(in.Name),
		Category: strings.TrimSpace(in.Category),
		Stock:    strings.TrimSpace(in.Stock),
		Price:    strings.TrimSpace(in.Price),
	}
	tags, err := failedTags(in)
	if err != nil {
		return Product{}, apperr.Wrap(apperr.CodeInternal, err, "could not validate product")
	}
	if hasTag(tags, "required") {
		return Product{}, apperr.New(apperr.CodeValidation, msgProductFieldsRequired)
	}
	if len(tags) > 0 {
		return Product{}, apperr.New(apperr.CodeValidation, msgProductName)
	}

	stock, err := strconv.Atoi(in.Stock)
	if err != nil {
		return Product{}, apperr.Wrap(apperr.CodeValidation, err, "stock must be a whole number")
	}
	price, err := decimal.NewFromString(in.Price)
	if err != nil {
		return Product{}, apperr.Wrap(apperr.CodeValidation, err, "price must be a number")
	}
	if stock < 0 || price.IsNegative() {
		return Product{}, apperr.New(apperr.CodeValidation, msgProductNegative)
	}
	return Product{Name: in.Name, Category: in.Category, Stock: stock, Price: price}, nil
}

func (s *stockService) Save(ctx context.Context, id string, input ProductInput) (Product, error) {
	p, err := ParseProductInput(input)
	if err != nil {
		return Product{}, err
	}
	data, err := encodeRecord(productRecord{Name: p.Name, Category: p.Category, Stock: p.Stock, Price: p.Price})
	if err != nil {
		return Product{}, err
	}

	if id == "" {
		newID, err := s.calls.create(ctx, ProductsCollection, remote.Document{Data: data})
		if err != nil {
			s.log.Error(ctx, "create product", err)
			return Product{}, remoteFailure(err, msgProductSave)
		}
		p.ID = newID
	} else {
		if err := s.calls.update(ctx, ProductsCollection, id, data); err != nil {
			s.log.Error(ctx, "update product "+id, err)
			return Product{}, remoteFailure(err, msgProductSave)
		}
		p.ID = id
	}

	s.products.upsert(p)
	return p, nil
}

func (s *stockService) Delete(ctx context.Context, id string) error {
	if err := s.calls.delete(ctx, ProductsCollection, id); err != nil {
		s.log.Error(ctx, "delete product "+id, err)
		return remoteFailure(err, msgProductDelete)
	}
	s.products.remove(id)
	return nil
}

func (s *stockService) Watch(ctx context.Context) (func(), error) {
	unsubscribe, err := s.calls.store.Subscribe(ctx, ProductsCollection, func(docs []remote.Document) {
		s.products.replaceAll(decodeSnapshot(ctx, s.log, ProductsCollection, docs, decodeProduct))
	})
	if err != nil {
		return nil, remoteFailure(err, "could not subscribe to products")
	}
	return unsubscribe, nil
}

func (s *stockService) Refresh(ctx context.Context) error {
	docs, err := s.calls.store.List(ctx, ProductsCollection)
	if err != nil {
		return remoteFailure(err, "could not load products")
	}
	s.products.replaceAll(decodeSnapshot(ctx, s.log, ProductsCollection, docs, decodeProduct))
	return nil
}

func (s *stockService) Products() []Product {
	return s.products.all()
}

func (s *stockService) Get(id string) (Product, error) {
	p, ok := s.products.find(func(p Product) bool { return p.ID == id })
	if !ok {
		return Product{}, apperr.Newf(apperr.CodeNotFound, "product %s not found", id)
	}
	return p, nil
}

func decodeProduct(doc remote.Document) (Product, error) {
	var rec productRecord
	if err := json.Unmarshal(doc.Data, &rec); err != nil {
		return Product{}, err
	}
	return Product{ID: doc.ID, Name: rec.Name, Category: rec.Category, Stock: rec.Stock, Price: rec.Price}, nil
}
