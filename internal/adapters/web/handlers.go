package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"puerto-real/internal/app"
	"puerto-real/internal/logger"
)

// Options configures NewHandler.
type Options struct {
	// AllowedOrigins is a comma-separated CORS allow list; empty disables CORS.
	AllowedOrigins string

	// StoreDriver is reported by the health endpoint.
	StoreDriver string

	// Metrics, when set, is served at /metrics.
	Metrics http.Handler

	// SecureCookies marks the session cookie Secure. Disable only for plain
	// HTTP development setups.
	SecureCookies bool

	// ExposeResetTokens returns password reset tokens in the API response
	// instead of only logging that one was issued. Development only.
	ExposeResetTokens bool

	Logger *logger.Logger
}

// Handler holds the ApplicationService behind the chi routes.
type Handler struct {
	svc  app.ApplicationService
	opts Options
	log  *logger.Logger
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	h := &Handler{svc: svc, opts: opts, log: log}

	r := chi.NewRouter()
	r.Use(RequestID(log))
	r.Use(RequestLogger(log))
	r.Use(Recoverer(log))
	r.Use(CORS(opts.AllowedOrigins))

	// ── Public ────────────────────────────────────────────────────────────────
	r.Get("/api/health", h.health)
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(RequestBodyLimit(1 << 20)) // 1 MB

		r.Post("/api/auth/signup", h.signUp)
		r.Post("/api/auth/login", h.login)
		r.Post("/api/auth/logout", h.logout)
		r.Post("/api/auth/forgot-password", h.forgotPassword)
		r.Post("/api/auth/reset-password", h.resetPassword)
	})

	// ── Protected API routes (return 401 JSON if unauthenticated) ────────────
	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)
		r.Use(RequestBodyLimit(1 << 20)) // 1 MB

		r.Get("/api/auth/me", h.me)

		// Profile & preferences
		r.Get("/api/profile", h.profile)
		r.Patch("/api/profile", h.updateProfile)
		r.Post("/api/profile/password", h.changePassword)
		r.Get("/api/preferences", h.preferences)
		r.Put("/api/preferences", h.updatePreferences)

		// Purchases
		r.Get("/api/purchases", h.listPurchases)
		r.Post("/api/purchases", h.createPurchase)
		r.Post("/api/purchases/preview", h.previewPurchase)
		r.Get("/api/purchases/export", h.exportPurchases)
		r.Get("/api/purchases/{ref}", h.getPurchase)
		r.Put("/api/purchases/{ref}", h.updatePurchase)
		r.Delete("/api/purchases/{ref}", h.deletePurchase)

		// Suppliers
		r.Get("/api/suppliers", h.listSuppliers)
		r.Post("/api/suppliers", h.createSupplier)
		r.Put("/api/suppliers/{id}", h.updateSupplier)
		r.Delete("/api/suppliers/{id}", h.deleteSupplier)

		// Stock
		r.Get("/api/products", h.listProducts)
		r.Post("/api/products", h.createProduct)
		r.Put("/api/products/{id}", h.updateProduct)
		r.Delete("/api/products/{id}", h.deleteProduct)

		// Analytics
		r.Get("/api/analytics/inventory", h.inventoryReport)
		r.Get("/api/analytics/purchases", h.purchaseSummary)
	})

	return r
}

// health returns service status and the configured store driver.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status string `json:"status"`
		Store  string `json:"store,omitempty"`
	}
	writeJSON(w, response{Status: "ok", Store: h.opts.StoreDriver})
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}

// numberText accepts a JSON string or number and keeps its literal text, so
// form fields can be posted either way and validated by the domain layer.
type numberText string

func (n *numberText) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*n = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*n = numberText(s)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return err
	}
	*n = numberText(num.String())
	return nil
}

// queryList splits a comma-separated query parameter, also accepting the
// parameter repeated.
func queryList(r *http.Request, name string) []string {
	var out []string
	for _, v := range r.URL.Query()[name] {
		out = append(out, splitAndTrim(v)...)
	}
	return out
}

func queryBool(r *http.Request, name string) bool {
	switch strings.ToLower(r.URL.Query().Get(name)) {
	case "1", "true", "yes":
		return true
	}
	return false
}
