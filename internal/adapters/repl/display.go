package repl

import (
	"fmt"
	"io"
	"strings"

	"puerto-real/internal/app"
	"puerto-real/internal/core"
)

func rule(w io.Writer, ch string, width int) {
	fmt.Fprintln(w, strings.Repeat(ch, width))
}

// PrintPurchases renders the ledger table used by both the REPL and the CLI.
func PrintPurchases(w io.Writer, result *app.PurchaseListResult) {
	fmt.Fprintln(w)
	rule(w, "=", 72)
	fmt.Fprintf(w, "  %-68s\n", "PURCHASES")
	rule(w, "=", 72)
	if len(result.Purchases) == 0 {
		fmt.Fprintln(w, "  No purchases found.")
		rule(w, "=", 72)
		return
	}
	fmt.Fprintf(w, "  %-12s %-28s %-10s %5s %12s\n", "CODE", "SUPPLIER", "DATE", "ITEMS", "TOTAL")
	rule(w, "-", 72)
	for _, p := range result.Purchases {
		fmt.Fprintf(w, "  %-12s %-28s %-10s %5d %12s\n",
			p.Code, clip(p.SupplierName, 28), p.Date, len(p.Items), p.TotalAmount.StringFixed(2))
	}
	rule(w, "-", 72)
	fmt.Fprintf(w, "  %-57s %12s\n", fmt.Sprintf("%d purchase(s)", len(result.Purchases)), result.Total.StringFixed(2))
	rule(w, "=", 72)
}

// PrintPurchase renders a single purchase with its items.
func PrintPurchase(w io.Writer, p core.Purchase) {
	fmt.Fprintln(w)
	rule(w, "-", 60)
	fmt.Fprintf(w, "  Purchase:  %s\n", p.Code)
	fmt.Fprintf(w, "  Supplier:  %s\n", p.SupplierName)
	fmt.Fprintf(w, "  Date:      %s\n", p.Date)
	fmt.Fprintf(w, "  ID:        %s\n", p.ID)
	printItems(w, p.Items, p.TotalAmount.StringFixed(2))
}

func printItems(w io.Writer, items []core.LineItem, total string) {
	rule(w, "-", 60)
	fmt.Fprintf(w, "  %-5s %-37s %14s\n", "LINE", "ITEM", "UNIT PRICE")
	rule(w, "-", 60)
	if len(items) == 0 {
		fmt.Fprintln(w, "  (no items)")
	}
	for i, it := range items {
		fmt.Fprintf(w, "  %-5d %-37s %14s\n", i+1, clip(it.Name, 37), it.UnitPrice.StringFixed(2))
	}
	rule(w, "-", 60)
	fmt.Fprintf(w, "  %-43s %14s\n", "TOTAL", total)
	rule(w, "-", 60)
}

func printForm(w io.Writer, form *core.PurchaseForm) {
	fmt.Fprintln(w)
	rule(w, "-", 60)
	title := "New purchase"
	if form.Mode() == core.ModeEdit {
		title = "Editing " + form.Original().Code
	}
	fmt.Fprintf(w, "  %s (%s)\n", title, form.Date())
	supplier := form.Supplier()
	if supplier == "" {
		supplier = "(not set)"
	}
	fmt.Fprintf(w, "  Supplier:  %s\n", supplier)
	printItems(w, form.Items(), form.Total().StringFixed(2))
}

// PrintSuppliers renders the supplier directory.
func PrintSuppliers(w io.Writer, result *app.SupplierListResult) {
	fmt.Fprintln(w)
	rule(w, "=", 72)
	fmt.Fprintf(w, "  %-68s\n", "SUPPLIERS")
	rule(w, "=", 72)
	if len(result.Suppliers) == 0 {
		fmt.Fprintln(w, "  No suppliers found.")
		rule(w, "=", 72)
		return
	}
	fmt.Fprintf(w, "  %-10s %-28s %-20s  %s\n", "CODE", "NAME", "CONTACT", "EMAIL")
	rule(w, "-", 72)
	for _, s := range result.Suppliers {
		fmt.Fprintf(w, "  %-10s %-28s %-20s  %s\n", s.Code, clip(s.Name, 28), clip(s.ContactPerson, 20), s.Email)
	}
	rule(w, "=", 72)
}

// PrintProducts renders the stock list.
func PrintProducts(w io.Writer, result *app.ProductListResult) {
	fmt.Fprintln(w)
	rule(w, "=", 72)
	fmt.Fprintf(w, "  %-68s\n", "STOCK")
	rule(w, "=", 72)
	if len(result.Products) == 0 {
		fmt.Fprintln(w, "  No products found.")
		rule(w, "=", 72)
		return
	}
	fmt.Fprintf(w, "  %-26s %-16s %8s %12s\n", "NAME", "CATEGORY", "STOCK", "PRICE")
	rule(w, "-", 72)
	for _, p := range result.Products {
		fmt.Fprintf(w, "  %-26s %-16s %8d %12s\n", clip(p.Name, 26), clip(p.Category, 16), p.Stock, p.Price.StringFixed(2))
	}
	rule(w, "=", 72)
}

// PrintInventoryReport renders the analytics dashboard as text.
func PrintInventoryReport(w io.Writer, r *core.InventoryReport) {
	fmt.Fprintln(w)
	rule(w, "=", 60)
	fmt.Fprintf(w, "  %-56s\n", "INVENTORY")
	rule(w, "=", 60)
	fmt.Fprintf(w, "  Products:         %d\n", r.TotalProducts)
	fmt.Fprintf(w, "  Categories:       %d\n", len(r.Categories))
	fmt.Fprintf(w, "  Inventory value:  %s\n", r.InventoryValue.StringFixed(2))
	rule(w, "-", 60)
	fmt.Fprintf(w, "  %-40s %15s\n", "CATEGORY", "UNITS")
	for _, c := range r.CategoryStock {
		fmt.Fprintf(w, "  %-40s %15d\n", clip(c.Category, 40), c.Stock)
	}
	rule(w, "-", 60)
	fmt.Fprintf(w, "  Low stock (below %d units)\n", r.Threshold)
	if len(r.LowStock) == 0 {
		fmt.Fprintln(w, "  None.")
	}
	for _, p := range r.LowStock {
		fmt.Fprintf(w, "  %-40s %15d\n", clip(p.Name, 40), p.Stock)
	}
	rule(w, "=", 60)
}

// PrintPurchaseSummary renders spend per supplier.
func PrintPurchaseSummary(w io.Writer, s *core.PurchaseSummary) {
	fmt.Fprintln(w)
	rule(w, "=", 60)
	fmt.Fprintf(w, "  %-56s\n", "SPEND BY SUPPLIER")
	rule(w, "=", 60)
	fmt.Fprintf(w, "  %-32s %8s %15s\n", "SUPPLIER", "COUNT", "TOTAL")
	rule(w, "-", 60)
	for _, sp := range s.BySupplier {
		fmt.Fprintf(w, "  %-32s %8d %15s\n", clip(sp.SupplierName, 32), sp.Purchases, sp.Total.StringFixed(2))
	}
	rule(w, "-", 60)
	fmt.Fprintf(w, "  %-32s %8d %15s\n", "TOTAL", s.Purchases, s.TotalSpend.StringFixed(2))
	rule(w, "=", 60)
}

func printHelp(w io.Writer) {
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  /list [query]              list purchases, optionally filtered")
	fmt.Fprintln(w, "  /find <fields> <query>     search in fields (code,supplier,date,amount)")
	fmt.Fprintln(w, "  /show <code|id>            show one purchase")
	fmt.Fprintln(w, "  /new                       record a purchase")
	fmt.Fprintln(w, "  /edit <code|id>            edit a purchase")
	fmt.Fprintln(w, "  /delete <code|id>          delete a purchase")
	fmt.Fprintln(w, "  /suppliers                 list suppliers")
	fmt.Fprintln(w, "  /stock                     list products")
	fmt.Fprintln(w, "  /report                    inventory analytics")
	fmt.Fprintln(w, "  /summary                   spend by supplier")
	fmt.Fprintln(w, "  /help                      this help")
	fmt.Fprintln(w, "  /exit                      quit")
}

func printFormHelp(w io.Writer) {
	fmt.Fprintln(w, "Form commands:")
	fmt.Fprintln(w, "  supplier <name|code>       set the supplier")
	fmt.Fprintln(w, "  add <item name> <price>    stage an item")
	fmt.Fprintln(w, "  remove <line>              drop a staged item")
	fmt.Fprintln(w, "  show                       show the draft")
	fmt.Fprintln(w, "  total                      show the running total")
	fmt.Fprintln(w, "  save                       commit the purchase")
	fmt.Fprintln(w, "  cancel                     discard the draft")
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
