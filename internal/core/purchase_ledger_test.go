package core_test

import (
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"puerto-real/internal/apperr"
	"puerto-real/internal/core"
)

func demoPurchases() []core.Purchase {
	return []core.Purchase{
		{ID: "3", Code: "COMPRA-003", SupplierName: "Proveedor C", Date: "2025-09-20",
			Items: []core.LineItem{{Name: "Item 1", UnitPrice: dec("100")}, {Name: "Item 2", UnitPrice: dec("200.50")}}},
		{ID: "2", Code: "COMPRA-002", SupplierName: "Proveedor B", Date: "2025-09-19",
			Items: []core.LineItem{{Name: "Item A", UnitPrice: dec("50")}, {Name: "Item B", UnitPrice: dec("150")}}},
		{ID: "1", Code: "COMPRA-001", SupplierName: "Proveedor A", Date: "2025-09-18",
			Items: []core.LineItem{{Name: "Product X", UnitPrice: dec("75.75")}, {Name: "Product Y", UnitPrice: dec("75")}}},
	}
}

func codes(seq []core.Purchase) []string {
	out := make([]string, len(seq))
	for i, p := range seq {
		out[i] = p.Code
	}
	return out
}

func listAll(l *core.PurchaseLedger, opts core.ListOptions) []core.Purchase {
	return slices.Collect(l.List(opts))
}

func TestPurchaseLedger_TotalsAreDerived(t *testing.T) {
	l, err := core.NewPurchaseLedger(demoPurchases()...)
	require.NoError(t, err)

	totals := map[string]string{}
	for p := range l.List(core.ListOptions{}) {
		totals[p.Code] = p.TotalAmount.StringFixed(2)
	}
	assert.Equal(t, map[string]string{
		"COMPRA-001": "150.75",
		"COMPRA-002": "200.00",
		"COMPRA-003": "300.50",
	}, totals)
}

func TestPurchaseLedger_InsertPrependsWithNextCode(t *testing.T) {
	l, err := core.NewPurchaseLedger(core.Purchase{ID: "1", Code: "COMPRA-001", SupplierName: "A",
		Items: []core.LineItem{{Name: "x", UnitPrice: dec("1")}}})
	require.NoError(t, err)

	f := newForm()
	f.SetSupplier("Bodega Sur")
	require.NoError(t, f.AddItem("Barrel", "100.50"))
	p, err := f.Commit(l.NextSequence())
	require.NoError(t, err)
	assert.Equal(t, "COMPRA-002", p.Code)

	require.NoError(t, l.Insert(p))
	assert.Equal(t, []string{"COMPRA-002", "COMPRA-001"}, codes(listAll(l, core.ListOptions{})))

	count := 0
	for got := range l.List(core.ListOptions{}) {
		if got.ID == p.ID {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestPurchaseLedger_InsertDuplicate(t *testing.T) {
	l, err := core.NewPurchaseLedger(demoPurchases()...)
	require.NoError(t, err)

	err = l.Insert(core.Purchase{ID: "2", Code: "COMPRA-099"})
	assert.True(t, apperr.IsCode(err, apperr.CodeDuplicateID))
	assert.Equal(t, 3, l.Len())
}

func TestPurchaseLedger_ReplaceKeepsIdentity(t *testing.T) {
	l, err := core.NewPurchaseLedger(demoPurchases()...)
	require.NoError(t, err)

	require.NoError(t, l.Replace("2", core.PurchaseFields{
		SupplierName: "Proveedor Z",
		Items:        []core.LineItem{{Name: "Only", UnitPrice: dec("12.34")}},
	}))
	p, err := l.Get("2")
	require.NoError(t, err)
	assert.Equal(t, "COMPRA-002", p.Code)
	assert.Equal(t, "2025-09-19", p.Date)
	assert.Equal(t, "Proveedor Z", p.SupplierName)
	assert.Equal(t, "12.34", p.TotalAmount.StringFixed(2))
	assert.Equal(t, []string{"COMPRA-003", "COMPRA-002", "COMPRA-001"}, codes(l.Snapshot()))
}

func TestPurchaseLedger_ReplaceMissingLeavesLedgerUnchanged(t *testing.T) {
	l, err := core.NewPurchaseLedger(demoPurchases()...)
	require.NoError(t, err)
	before := l.Snapshot()

	err = l.Replace("nope", core.PurchaseFields{SupplierName: "X"})
	assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))
	err = l.Replace("nope", core.PurchaseFields{SupplierName: "X"})
	assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))
	assert.Equal(t, before, l.Snapshot())
}

func TestPurchaseLedger_Remove(t *testing.T) {
	l, err := core.NewPurchaseLedger(demoPurchases()...)
	require.NoError(t, err)

	require.NoError(t, l.Remove("2"))
	assert.Equal(t, []string{"COMPRA-003", "COMPRA-001"}, codes(l.Snapshot()))
	_, err = l.Get("2")
	assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))
	assert.True(t, apperr.IsCode(l.Remove("2"), apperr.CodeNotFound))
}

func TestPurchaseLedger_Search(t *testing.T) {
	l, err := core.NewPurchaseLedger(demoPurchases()...)
	require.NoError(t, err)

	cases := []struct {
		name string
		opts core.ListOptions
		want []string
	}{
		{"empty query lists all", core.ListOptions{}, []string{"COMPRA-003", "COMPRA-002", "COMPRA-001"}},
		{"whitespace query lists all", core.ListOptions{Query: "  "}, []string{"COMPRA-003", "COMPRA-002", "COMPRA-001"}},
		{"code", core.ListOptions{Query: "002", Fields: []core.SearchField{core.FieldCode}}, []string{"COMPRA-002"}},
		{"supplier insensitive", core.ListOptions{Query: "proveedor c", Fields: []core.SearchField{core.FieldSupplier}}, []string{"COMPRA-003"}},
		{"supplier sensitive", core.ListOptions{Query: "proveedor c", Fields: []core.SearchField{core.FieldSupplier}, CaseSensitive: true}, nil},
		{"date", core.ListOptions{Query: "09-19", Fields: []core.SearchField{core.FieldDate}}, []string{"COMPRA-002"}},
		{"amount with cents", core.ListOptions{Query: "200.00", Fields: []core.SearchField{core.FieldAmount}}, []string{"COMPRA-002"}},
		{"no fields searches everything", core.ListOptions{Query: "150.75"}, []string{"COMPRA-001"}},
		{"field restricts match", core.ListOptions{Query: "150.75", Fields: []core.SearchField{core.FieldCode}}, nil},
		{"several fields", core.ListOptions{Query: "a", Fields: []core.SearchField{core.FieldCode, core.FieldSupplier}}, []string{"COMPRA-003", "COMPRA-002", "COMPRA-001"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := codes(listAll(l, tc.opts))
			if tc.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestPurchaseLedger_ListIsRestartableAndStopsEarly(t *testing.T) {
	l, err := core.NewPurchaseLedger(demoPurchases()...)
	require.NoError(t, err)
	seq := l.List(core.ListOptions{})

	assert.Len(t, slices.Collect(seq), 3)
	assert.Len(t, slices.Collect(seq), 3)

	seen := 0
	for range seq {
		seen++
		break
	}
	assert.Equal(t, 1, seen)
}

func TestPurchaseLedger_ReturnsCopies(t *testing.T) {
	l, err := core.NewPurchaseLedger(demoPurchases()...)
	require.NoError(t, err)

	p, err := l.Get("1")
	require.NoError(t, err)
	p.Items[0].Name = "tampered"
	p.SupplierName = "tampered"

	again, err := l.Get("1")
	require.NoError(t, err)
	assert.Equal(t, "Product X", again.Items[0].Name)
	assert.Equal(t, "Proveedor A", again.SupplierName)
}

func TestPurchaseLedger_CloneIsIndependent(t *testing.T) {
	l, err := core.NewPurchaseLedger(demoPurchases()...)
	require.NoError(t, err)

	staged := l.Clone()
	require.NoError(t, staged.Remove("1"))
	assert.Equal(t, 3, l.Len())
	assert.Equal(t, 2, staged.Len())
}

func TestPurchaseLedger_ReplaceAllRejectsDuplicates(t *testing.T) {
	l, err := core.NewPurchaseLedger(demoPurchases()...)
	require.NoError(t, err)

	err = l.ReplaceAll([]core.Purchase{{ID: "x"}, {ID: "x"}})
	assert.True(t, apperr.IsCode(err, apperr.CodeDuplicateID))
	assert.Equal(t, 3, l.Len())

	_, err = core.NewPurchaseLedger(core.Purchase{ID: "a"}, core.Purchase{ID: "a"})
	assert.Error(t, err)
}

func TestPurchaseLedger_ConcurrentAccess(t *testing.T) {
	l, err := core.NewPurchaseLedger()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := core.FormatCode(i)
			_ = l.Insert(core.Purchase{ID: id, Code: id})
			_ = slices.Collect(l.List(core.ListOptions{Query: "COMPRA"}))
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, l.Len())
}
