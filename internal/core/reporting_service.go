package core

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"
)

// DefaultLowStockThreshold marks a product as low on stock below this many
// units.
const DefaultLowStockThreshold = 50

// ── Report types ──────────────────────────────────────────────────────────────

// CategoryStock is the number of units on hand across one category.
type CategoryStock struct {
	Category string `json:"category"`
	Stock    int    `json:"stock"`
}

// InventoryReport summarises the product list for the analytics dashboard.
type InventoryReport struct {
	TotalProducts  int             `json:"totalProducts"`
	Categories     []string        `json:"categories"`
	InventoryValue decimal.Decimal `json:"inventoryValue"` // Σ price × stock
	LowStock       []Product       `json:"lowStock"`       // stock < threshold, lowest first
	CategoryStock  []CategoryStock `json:"categoryStock"`  // sorted by category
	Threshold      int             `json:"threshold"`
}

// SupplierSpend is the purchase total attributed to one supplier.
type SupplierSpend struct {
	SupplierName string          `json:"supplierName"`
	Purchases    int             `json:"purchases"`
	Total        decimal.Decimal `json:"total"`
}

// PurchaseSummary totals the ledger.
type PurchaseSummary struct {
	Purchases  int             `json:"purchases"`
	Items      int             `json:"items"`
	TotalSpend decimal.Decimal `json:"totalSpend"`
	BySupplier []SupplierSpend `json:"bySupplier"` // highest spend first
}

// ── Builders ──────────────────────────────────────────────────────────────────

// BuildInventoryReport computes the dashboard figures. A threshold <= 0
// falls back to DefaultLowStockThreshold.
func BuildInventoryReport(products []Product, threshold int) InventoryReport {
	if threshold <= 0 {
		threshold = DefaultLowStockThreshold
	}
	report := InventoryReport{
		TotalProducts:  len(products),
		InventoryValue: decimal.Zero,
		Categories:     []string{},
		LowStock:       []Product{},
		CategoryStock:  []CategoryStock{},
		Threshold:      threshold,
	}

	stockByCategory := map[string]int{}
	for _, p := range products {
		report.InventoryValue = report.InventoryValue.Add(p.Value())
		if _, seen := stockByCategory[p.Category]; !seen {
			report.Categories = append(report.Categories, p.Category)
		}
		stockByCategory[p.Category] += p.Stock
		if p.Stock < threshold {
			report.LowStock = append(report.LowStock, p)
		}
	}

	slices.Sort(report.Categories)
	for _, c := range report.Categories {
		report.CategoryStock = append(report.CategoryStock, CategoryStock{Category: c, Stock: stockByCategory[c]})
	}
	slices.SortStableFunc(report.LowStock, func(a, b Product) int {
		return cmp.Or(cmp.Compare(a.Stock, b.Stock), cmp.Compare(a.Name, b.Name))
	})
	return report
}

// BuildPurchaseSummary totals purchases overall and per supplier.
func BuildPurchaseSummary(purchases []Purchase) PurchaseSummary {
	summary := PurchaseSummary{TotalSpend: decimal.Zero, BySupplier: []SupplierSpend{}}
	index := map[string]int{}
	for _, p := range purchases {
		total := SumItems(p.Items)
		summary.Purchases++
		summary.Items += len(p.Items)
		summary.TotalSpend = summary.TotalSpend.Add(total)

		i, ok := index[p.SupplierName]
		if !ok {
			i = len(summary.BySupplier)
			index[p.SupplierName] = i
			summary.BySupplier = append(summary.BySupplier, SupplierSpend{SupplierName: p.SupplierName, Total: decimal.Zero})
		}
		summary.BySupplier[i].Purchases++
		summary.BySupplier[i].Total = summary.BySupplier[i].Total.Add(total)
	}
	slices.SortStableFunc(summary.BySupplier, func(a, b SupplierSpend) int {
		return cmp.Or(b.Total.Cmp(a.Total), cmp.Compare(a.SupplierName, b.SupplierName))
	})
	return summary
}
