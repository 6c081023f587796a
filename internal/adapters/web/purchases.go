package web

import (
	"bytes"
	"net/http"

	"github.com/go-chi/chi/v5"

	"puerto-real/internal/app"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type purchaseBody struct {
	Supplier string `json:"supplier"`
	Items    []struct {
		Name  string     `json:"name"`
		Price numberText `json:"price"`
	} `json:"items"`
}

func (b purchaseBody) request() app.PurchaseRequest {
	req := app.PurchaseRequest{Supplier: b.Supplier, Items: make([]app.ItemInput, len(b.Items))}
	for i, it := range b.Items {
		req.Items[i] = app.ItemInput{Name: it.Name, Price: string(it.Price)}
	}
	return req
}

func searchRequest(r *http.Request) app.SearchPurchasesRequest {
	return app.SearchPurchasesRequest{
		Query:         r.URL.Query().Get("q"),
		Fields:        queryList(r, "fields"),
		CaseSensitive: queryBool(r, "case_sensitive"),
	}
}

// listPurchases handles GET /api/purchases?q=&fields=code,supplier&case_sensitive=.
func (h *Handler) listPurchases(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ListPurchases(r.Context(), searchRequest(r))
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	writeJSON(w, res)
}

// getPurchase handles GET /api/purchases/{ref}; ref is an id or a code.
func (h *Handler) getPurchase(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.GetPurchase(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	writeJSON(w, res.Purchase)
}

// createPurchase handles POST /api/purchases.
func (h *Handler) createPurchase(w http.ResponseWriter, r *http.Request) {
	var body purchaseBody
	if !decodeJSON(w, r, &body) {
		return
	}
	res, err := h.svc.CreatePurchase(r.Context(), body.request())
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, res.Purchase)
}

// updatePurchase handles PUT /api/purchases/{ref}.
func (h *Handler) updatePurchase(w http.ResponseWriter, r *http.Request) {
	var body purchaseBody
	if !decodeJSON(w, r, &body) {
		return
	}
	res, err := h.svc.UpdatePurchase(r.Context(), chi.URLParam(r, "ref"), body.request())
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	writeJSON(w, res.Purchase)
}

// deletePurchase handles DELETE /api/purchases/{ref}.
func (h *Handler) deletePurchase(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeletePurchase(r.Context(), chi.URLParam(r, "ref")); err != nil {
		h.writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// previewPurchase handles POST /api/purchases/preview. Nothing is saved.
func (h *Handler) previewPurchase(w http.ResponseWriter, r *http.Request) {
	var body purchaseBody
	if !decodeJSON(w, r, &body) {
		return
	}
	res, err := h.svc.PreviewPurchase(r.Context(), body.request())
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	writeJSON(w, res)
}

// exportPurchases handles GET /api/purchases/export?format=xlsx plus the
// list filters.
func (h *Handler) exportPurchases(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "pdf" {
		writeError(w, r, "PDF export is not implemented yet", "NOT_IMPLEMENTED", http.StatusNotImplemented)
		return
	}

	// Rendered fully before the first byte so errors can still set a status.
	var buf bytes.Buffer
	if err := h.svc.ExportPurchases(r.Context(), &buf, format, searchRequest(r)); err != nil {
		h.writeAppError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="compras.xlsx"`)
	_, _ = w.Write(buf.Bytes())
}

// purchaseSummary handles GET /api/analytics/purchases.
func (h *Handler) purchaseSummary(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.GetPurchaseSummary(r.Context())
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	writeJSON(w, res)
}
