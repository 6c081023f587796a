package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"puerto-real/internal/core"
)

// ── Suppliers ─────────────────────────────────────────────────────────────────

func (h *Handler) listSuppliers(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ListSuppliers(r.Context())
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	writeJSON(w, res)
}

func (h *Handler) createSupplier(w http.ResponseWriter, r *http.Request) {
	var input core.SupplierInput
	if !decodeJSON(w, r, &input) {
		return
	}
	sup, err := h.svc.CreateSupplier(r.Context(), input)
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, sup)
}

func (h *Handler) updateSupplier(w http.ResponseWriter, r *http.Request) {
	var input core.SupplierInput
	if !decodeJSON(w, r, &input) {
		return
	}
	sup, err := h.svc.UpdateSupplier(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	writeJSON(w, sup)
}

func (h *Handler) deleteSupplier(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteSupplier(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ── Stock ─────────────────────────────────────────────────────────────────────

// productBody mirrors core.ProductInput but accepts stock and price as JSON
// numbers too.
type productBody struct {
	Name     string     `json:"name"`
	Category string     `json:"category"`
	Stock    numberText `json:"stock"`
	Price    numberText `json:"price"`
}

func (b productBody) input() core.ProductInput {
	return core.ProductInput{Name: b.Name, Category: b.Category, Stock: string(b.Stock), Price: string(b.Price)}
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ListProducts(r.Context())
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	writeJSON(w, res)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	h.saveProduct(w, r, "", http.StatusCreated)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	h.saveProduct(w, r, chi.URLParam(r, "id"), http.StatusOK)
}

func (h *Handler) saveProduct(w http.ResponseWriter, r *http.Request, id string, status int) {
	var body productBody
	if !decodeJSON(w, r, &body) {
		return
	}
	p, err := h.svc.SaveProduct(r.Context(), id, body.input())
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	writeJSONStatus(w, status, p)
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// inventoryReport handles GET /api/analytics/inventory.
func (h *Handler) inventoryReport(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.GetInventoryReport(r.Context())
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	writeJSON(w, res)
}
