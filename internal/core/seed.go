package core

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"puerto-real/internal/remote"
)

//go:embed seed/demo.yaml
var demoSeed []byte

// Seed is a set of records to load into an empty (or wiped) store.
type Seed struct {
	Purchases []Purchase `yaml:"purchases"`
	Suppliers []Supplier `yaml:"suppliers"`
	Products  []Product  `yaml:"products"`
}

// SeedResult counts what ApplySeed wrote.
type SeedResult struct {
	Created  int
	Replaced int
	Skipped  int
}

// DefaultSeed returns the built-in demo data.
func DefaultSeed() (*Seed, error) {
	return LoadSeed(bytes.NewReader(demoSeed))
}

// LoadSeedFile reads a seed from a YAML file. An empty path means the
// built-in demo data.
func LoadSeedFile(path string) (*Seed, error) {
	if path == "" {
		return DefaultSeed()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening seed file: %w", err)
	}
	defer f.Close()
	return LoadSeed(f)
}

// LoadSeed decodes and checks a YAML seed. Purchase totals are derived from
// their items; any total in the file is ignored.
func LoadSeed(r io.Reader) (*Seed, error) {
	var seed Seed
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding seed: %w", err)
	}
	for i := range seed.Purchases {
		seed.Purchases[i].TotalAmount = SumItems(seed.Purchases[i].Items)
	}
	if err := seed.check(); err != nil {
		return nil, err
	}
	return &seed, nil
}

func (s *Seed) check() error {
	var problems []string
	seen := map[string]bool{}
	unique := func(kind, id string) {
		key := kind + "/" + id
		if id == "" {
			problems = append(problems, kind+" without id")
		} else if seen[key] {
			problems = append(problems, fmt.Sprintf("duplicate %s id %q", kind, id))
		}
		seen[key] = true
	}

	for _, p := range s.Purchases {
		unique("purchase", p.ID)
		if strings.TrimSpace(p.SupplierName) == "" || len(p.Items) == 0 {
			problems = append(problems, fmt.Sprintf("purchase %q needs a supplier and at least one item", p.ID))
		}
		for _, it := range p.Items {
			if !it.Valid() {
				problems = append(problems, fmt.Sprintf("purchase %q has an invalid item", p.ID))
			}
		}
	}
	for _, sup := range s.Suppliers {
		unique("supplier", sup.ID)
		if sup.Code == "" || sup.Name == "" {
			problems = append(problems, fmt.Sprintf("supplier %q needs a code and a name", sup.ID))
		}
	}
	for _, p := range s.Products {
		unique("product", p.ID)
		if p.Stock < 0 || p.Price.IsNegative() {
			problems = append(problems, fmt.Sprintf("product %q has a negative stock or price", p.ID))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid seed: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ApplySeed writes every seed record under its own id. Records that already
// exist are skipped, or overwritten when replace is set.
func ApplySeed(ctx context.Context, store remote.Store, seed *Seed, replace bool) (SeedResult, error) {
	var res SeedResult
	put := func(collection, id string, rec any) error {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encoding %s/%s: %w", collection, id, err)
		}
		_, err = store.Create(ctx, collection, remote.Document{ID: id, Data: data})
		switch {
		case err == nil:
			res.Created++
			return nil
		case !errors.Is(err, remote.ErrExists):
			return fmt.Errorf("seeding %s/%s: %w", collection, id, err)
		case !replace:
			res.Skipped++
			return nil
		}
		if err := store.Update(ctx, collection, id, data); err != nil {
			return fmt.Errorf("replacing %s/%s: %w", collection, id, err)
		}
		res.Replaced++
		return nil
	}

	for _, p := range seed.Purchases {
		rec := purchaseRecord{Code: p.Code, SupplierName: p.SupplierName, Date: p.Date, Items: p.Items, TotalAmount: SumItems(p.Items)}
		if err := put(PurchasesCollection, p.ID, rec); err != nil {
			return res, err
		}
	}
	for _, s := range seed.Suppliers {
		rec := supplierRecord{Code: s.Code, Name: s.Name, ContactPerson: s.ContactPerson, Email: s.Email, Phone: s.Phone, Address: s.Address}
		if err := put(SuppliersCollection, s.ID, rec); err != nil {
			return res, err
		}
	}
	for _, p := range seed.Products {
		rec := productRecord{Name: p.Name, Category: p.Category, Stock: p.Stock, Price: p.Price}
		if err := put(ProductsCollection, p.ID, rec); err != nil {
			return res, err
		}
	}
	return res, nil
}

// SeedLedger builds a ledger holding the seed purchases, newest first.
func SeedLedger(seed *Seed) (*PurchaseLedger, error) {
	purchases := make([]Purchase, len(seed.Purchases))
	copy(purchases, seed.Purchases)
	SortNewestFirst(purchases)
	return NewPurchaseLedger(purchases...)
}
