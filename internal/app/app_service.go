package app

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"puerto-real/internal/apperr"
	"puerto-real/internal/core"
	"puerto-real/internal/export"
	"puerto-real/internal/logger"
	"puerto-real/internal/remote"
)

// Services are the domain services an appService delegates to.
type Services struct {
	Purchases core.PurchaseService
	Suppliers core.SupplierService
	Stock     core.StockService
	Users     core.UserService
	Store     remote.Store

	LowStockThreshold int
	FormOptions       []core.FormOption
	Logger            *logger.Logger
}

type appService struct {
	purchases core.PurchaseService
	suppliers core.SupplierService
	stock     core.StockService
	users     core.UserService
	store     remote.Store

	lowStockThreshold int
	formOpts          []core.FormOption
	log               *logger.Logger
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(s Services) ApplicationService {
	log := s.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &appService{
		purchases:         s.Purchases,
		suppliers:         s.Suppliers,
		stock:             s.Stock,
		users:             s.Users,
		store:             s.Store,
		lowStockThreshold: s.LowStockThreshold,
		formOpts:          s.FormOptions,
		log:               log,
	}
}

// ── Purchases ─────────────────────────────────────────────────────────────────

// ListPurchases returns the ledger filtered by a free-text search.
func (s *appService) ListPurchases(ctx context.Context, req SearchPurchasesRequest) (*PurchaseListResult, error) {
	opts, err := listOptions(req)
	if err != nil {
		return nil, err
	}
	result := &PurchaseListResult{Purchases: []core.Purchase{}, Total: decimal.Zero}
	for p := range s.purchases.List(opts) {
		result.Purchases = append(result.Purchases, p)
		result.Total = result.Total.Add(p.TotalAmount)
	}
	return result, nil
}

// GetPurchase returns one purchase by id or code.
func (s *appService) GetPurchase(ctx context.Context, ref string) (*PurchaseResult, error) {
	p, err := s.resolvePurchase(ref)
	if err != nil {
		return nil, err
	}
	return &PurchaseResult{Purchase: p}, nil
}

// OpenPurchaseForm starts a new draft or an edit draft of ref.
func (s *appService) OpenPurchaseForm(ctx context.Context, ref string) (*core.PurchaseForm, error) {
	if strings.TrimSpace(ref) == "" {
		return core.NewPurchaseForm(s.formOpts...), nil
	}
	p, err := s.resolvePurchase(ref)
	if err != nil {
		return nil, err
	}
	return core.OpenEdit(p, s.formOpts...), nil
}

// SubmitPurchaseForm commits a draft. The supplier is resolved against the
// supplier list first, so a known code becomes the supplier's name.
func (s *appService) SubmitPurchaseForm(ctx context.Context, form *core.PurchaseForm) (*PurchaseResult, error) {
	if form == nil {
		return nil, apperr.New(apperr.CodeValidation, "no purchase form is open")
	}
	form.SetSupplier(s.suppliers.ResolveSupplier(form.Supplier()))

	var (
		p   core.Purchase
		err error
	)
	if form.Mode() == core.ModeEdit {
		p, err = s.purchases.Update(ctx, form.Original().ID, form)
	} else {
		p, err = s.purchases.Create(ctx, form)
	}
	if err != nil {
		return nil, err
	}
	return &PurchaseResult{Purchase: p}, nil
}

// CreatePurchase builds a new draft from req and commits it.
func (s *appService) CreatePurchase(ctx context.Context, req PurchaseRequest) (*PurchaseResult, error) {
	form := core.NewPurchaseForm(s.formOpts...)
	if err := fillForm(form, req); err != nil {
		return nil, err
	}
	return s.SubmitPurchaseForm(ctx, form)
}

// UpdatePurchase replaces supplier and items of the purchase ref names.
func (s *appService) UpdatePurchase(ctx context.Context, ref string, req PurchaseRequest) (*PurchaseResult, error) {
	form, err := s.OpenPurchaseForm(ctx, ref)
	if err != nil {
		return nil, err
	}
	if form.Mode() != core.ModeEdit {
		return nil, apperr.New(apperr.CodeValidation, "a purchase reference is required")
	}
	for len(form.Items()) > 0 {
		if err := form.RemoveItem(0); err != nil {
			return nil, err
		}
	}
	if err := fillForm(form, req); err != nil {
		return nil, err
	}
	return s.SubmitPurchaseForm(ctx, form)
}

// DeletePurchase removes the purchase ref names.
func (s *appService) DeletePurchase(ctx context.Context, ref string) error {
	p, err := s.resolvePurchase(ref)
	if err != nil {
		return err
	}
	return s.purchases.Delete(ctx, p.ID)
}

// PreviewPurchase stages req on a throwaway draft.
func (s *appService) PreviewPurchase(ctx context.Context, req PurchaseRequest) (*DraftResult, error) {
	form := core.NewPurchaseForm(s.formOpts...)
	form.SetSupplier(s.suppliers.ResolveSupplier(req.Supplier))

	result := &DraftResult{
		NextCode: s.purchases.PreviewCode(),
		Problems: []string{},
	}
	for i, it := range req.Items {
		if err := form.AddItem(it.Name, it.Price); err != nil {
			result.Problems = append(result.Problems, fmt.Sprintf("item %d: %s", i+1, apperr.UserMessage(err)))
		}
	}
	if err := form.Validate(); err != nil {
		result.Problems = append(result.Problems, apperr.UserMessage(err))
	}

	result.Supplier = form.Supplier()
	result.Items = form.Items()
	result.Total = form.Total()
	return result, nil
}

// ExportPurchases writes the filtered ledger to w.
func (s *appService) ExportPurchases(ctx context.Context, w io.Writer, format string, req SearchPurchasesRequest) error {
	list, err := s.ListPurchases(ctx, req)
	if err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "xlsx":
		if err := export.WritePurchasesXLSX(w, list.Purchases); err != nil {
			return apperr.Wrap(apperr.CodeInternal, err, "could not export purchases")
		}
		return nil
	case "pdf":
		return apperr.New(apperr.CodeValidation, "PDF export is not implemented yet")
	}
	return apperr.Newf(apperr.CodeValidation, "unknown export format %q", format)
}

// GetPurchaseSummary aggregates the whole ledger.
func (s *appService) GetPurchaseSummary(ctx context.Context) (*core.PurchaseSummary, error) {
	summary := core.BuildPurchaseSummary(s.purchases.Ledger().Snapshot())
	return &summary, nil
}

// ── Suppliers ─────────────────────────────────────────────────────────────────

func (s *appService) ListSuppliers(ctx context.Context) (*SupplierListResult, error) {
	return &SupplierListResult{Suppliers: s.suppliers.Suppliers()}, nil
}

func (s *appService) CreateSupplier(ctx context.Context, input core.SupplierInput) (*core.Supplier, error) {
	sup, err := s.suppliers.Create(ctx, input)
	if err != nil {
		return nil, err
	}
	return &sup, nil
}

func (s *appService) UpdateSupplier(ctx context.Context, id string, input core.SupplierInput) (*core.Supplier, error) {
	if _, err := s.suppliers.Get(id); err != nil {
		return nil, err
	}
	sup, err := s.suppliers.Update(ctx, id, input)
	if err != nil {
		return nil, err
	}
	return &sup, nil
}

func (s *appService) DeleteSupplier(ctx context.Context, id string) error {
	if _, err := s.suppliers.Get(id); err != nil {
		return err
	}
	return s.suppliers.Delete(ctx, id)
}

// ── Stock & analytics ─────────────────────────────────────────────────────────

func (s *appService) ListProducts(ctx context.Context) (*ProductListResult, error) {
	return &ProductListResult{Products: s.stock.Products()}, nil
}

func (s *appService) SaveProduct(ctx context.Context, id string, input core.ProductInput) (*core.Product, error) {
	if id != "" {
		if _, err := s.stock.Get(id); err != nil {
			return nil, err
		}
	}
	p, err := s.stock.Save(ctx, id, input)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *appService) DeleteProduct(ctx context.Context, id string) error {
	if _, err := s.stock.Get(id); err != nil {
		return err
	}
	return s.stock.Delete(ctx, id)
}

func (s *appService) GetInventoryReport(ctx context.Context) (*core.InventoryReport, error) {
	report := core.BuildInventoryReport(s.stock.Products(), s.lowStockThreshold)
	return &report, nil
}

// ── Accounts ──────────────────────────────────────────────────────────────────

func (s *appService) SignUp(ctx context.Context, input core.SignUpInput) (*UserResult, error) {
	user, err := s.users.SignUp(ctx, input)
	if err != nil {
		return nil, err
	}
	return s.withPreferences(ctx, user)
}

func (s *appService) Login(ctx context.Context, email, password string) (*core.Session, error) {
	return s.users.Login(ctx, email, password)
}

func (s *appService) Authenticate(ctx context.Context, token string) (*UserResult, error) {
	user, err := s.users.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	return &UserResult{User: user}, nil
}

func (s *appService) RequestPasswordReset(ctx context.Context, email string) (*PasswordResetResult, error) {
	token, err := s.users.RequestPasswordReset(ctx, email)
	if err != nil {
		return nil, err
	}
	return &PasswordResetResult{Email: strings.ToLower(strings.TrimSpace(email)), Token: token}, nil
}

func (s *appService) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	return s.users.ResetPassword(ctx, req.Token, req.NewPassword, req.ConfirmPassword)
}

func (s *appService) ChangePassword(ctx context.Context, req ChangePasswordRequest) error {
	return s.users.ChangePassword(ctx, req.UserID, req.CurrentPassword, req.NewPassword, req.ConfirmPassword)
}

func (s *appService) GetProfile(ctx context.Context, userID uint) (*UserResult, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.withPreferences(ctx, user)
}

func (s *appService) UpdateDisplayName(ctx context.Context, userID uint, name string) (*UserResult, error) {
	user, err := s.users.UpdateDisplayName(ctx, userID, name)
	if err != nil {
		return nil, err
	}
	return s.withPreferences(ctx, user)
}

func (s *appService) GetPreferences(ctx context.Context, userID uint) (*core.Preferences, error) {
	return s.users.GetPreferences(ctx, userID)
}

func (s *appService) UpdatePreferences(ctx context.Context, userID uint, req PreferencesRequest) (*core.Preferences, error) {
	return s.users.UpdatePreferences(ctx, userID, req.DarkMode, req.Notifications)
}

// ── Seed ──────────────────────────────────────────────────────────────────────

func (s *appService) Seed(ctx context.Context, path string, replace bool) (*core.SeedResult, error) {
	seed, err := core.LoadSeedFile(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeValidation, err, err.Error())
	}
	res, err := core.ApplySeed(ctx, s.store, seed, replace)
	if err != nil {
		s.log.Error(ctx, "apply seed", err)
		return nil, apperr.Wrap(apperr.CodeRemote, err, "could not load seed data")
	}
	s.log.Info(s.log.WithFields(ctx, map[string]any{
		"created":  res.Created,
		"replaced": res.Replaced,
		"skipped":  res.Skipped,
	}), "seed applied")
	return &res, nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

// resolvePurchase accepts a document id or a purchase code.
func (s *appService) resolvePurchase(ref string) (core.Purchase, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return core.Purchase{}, apperr.New(apperr.CodeValidation, "a purchase reference is required")
	}
	if p, err := s.purchases.Get(ref); err == nil {
		return p, nil
	}
	for p := range s.purchases.List(core.ListOptions{}) {
		if strings.EqualFold(p.Code, ref) {
			return p, nil
		}
	}
	return core.Purchase{}, apperr.Newf(apperr.CodeNotFound, "purchase %s not found", ref)
}

func (s *appService) withPreferences(ctx context.Context, user *core.User) (*UserResult, error) {
	prefs, err := s.users.GetPreferences(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &UserResult{User: user, Preferences: prefs}, nil
}

func fillForm(form *core.PurchaseForm, req PurchaseRequest) error {
	form.SetSupplier(req.Supplier)
	for _, it := range req.Items {
		if err := form.AddItem(it.Name, it.Price); err != nil {
			return err
		}
	}
	return nil
}

func listOptions(req SearchPurchasesRequest) (core.ListOptions, error) {
	opts := core.ListOptions{Query: req.Query, CaseSensitive: req.CaseSensitive}
	for _, name := range req.Fields {
		if strings.TrimSpace(name) == "" {
			continue
		}
		f, err := core.ParseSearchField(name)
		if err != nil {
			return core.ListOptions{}, apperr.Wrap(apperr.CodeValidation, err, err.Error())
		}
		if !slices.Contains(opts.Fields, f) {
			opts.Fields = append(opts.Fields, f)
		}
	}
	return opts, nil
}
