package app_test

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"puerto-real/internal/app"
	"puerto-real/internal/apperr"
	"puerto-real/internal/config"
	"puerto-real/internal/core"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		App:   config.AppConfig{Env: config.AppEnvDev},
		Store: config.StoreConfig{Driver: config.StoreMemory},
		Auth: config.AuthConfig{
			JWTSecret:     "test-secret",
			JWTIssuer:     "puerto-real-test",
			TokenTTL:      time.Hour,
			ResetTokenTTL: 30 * time.Minute,
			UserDBDriver:  "sqlite",
			UserDBDSN:     fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
		},
		Analytics: config.AnalyticsConfig{LowStockThreshold: 50},
	}
}

func openRuntime(t *testing.T) app.ApplicationService {
	t.Helper()
	rt, err := app.Open(context.Background(), testConfig(t), nil, prometheus.NewRegistry())
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, rt.Close()) })
	return rt.Service
}

func TestApp_PurchasesLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := openRuntime(t)

	list, err := svc.ListPurchases(ctx, app.SearchPurchasesRequest{})
	require.NoError(t, err)
	require.Len(t, list.Purchases, 3, "memory store starts with the demo data")
	assert.Equal(t, "651.25", list.Total.StringFixed(2))

	created, err := svc.CreatePurchase(ctx, app.PurchaseRequest{
		Supplier: "prov-b",
		Items:    []app.ItemInput{{Name: "Barrel", Price: "100.50"}, {Name: "Corks", Price: "9.50"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "COMPRA-004", created.Purchase.Code)
	assert.Equal(t, "Proveedor B", created.Purchase.SupplierName, "supplier code resolves to its name")
	assert.Equal(t, "110.00", created.Purchase.TotalAmount.StringFixed(2))

	got, err := svc.GetPurchase(ctx, "compra-004")
	require.NoError(t, err)
	assert.Equal(t, created.Purchase.ID, got.Purchase.ID)

	updated, err := svc.UpdatePurchase(ctx, "COMPRA-004", app.PurchaseRequest{
		Supplier: "Bodega Sur",
		Items:    []app.ItemInput{{Name: "Barrel", Price: "120"}},
	})
	require.NoError(t, err)
	assert.Equal(t, created.Purchase.Date, updated.Purchase.Date)
	assert.Equal(t, "120.00", updated.Purchase.TotalAmount.StringFixed(2))

	found, err := svc.ListPurchases(ctx, app.SearchPurchasesRequest{Query: "bodega", Fields: []string{"proveedor"}})
	require.NoError(t, err)
	require.Len(t, found.Purchases, 1)

	_, err = svc.ListPurchases(ctx, app.SearchPurchasesRequest{Query: "x", Fields: []string{"colour"}})
	assert.True(t, apperr.IsCode(err, apperr.CodeValidation))

	require.NoError(t, svc.DeletePurchase(ctx, "COMPRA-004"))
	_, err = svc.GetPurchase(ctx, created.Purchase.ID)
	assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))
}

func TestApp_PurchaseValidation(t *testing.T) {
	ctx := context.Background()
	svc := openRuntime(t)

	_, err := svc.CreatePurchase(ctx, app.PurchaseRequest{Supplier: "Bodega Sur"})
	assert.Equal(t, "supplier and at least one item required", apperr.UserMessage(err))

	_, err = svc.CreatePurchase(ctx, app.PurchaseRequest{Supplier: "Bodega Sur", Items: []app.ItemInput{{Name: "Barrel", Price: "abc"}}})
	assert.Equal(t, "missing or invalid name/price", apperr.UserMessage(err))

	_, err = svc.UpdatePurchase(ctx, "COMPRA-999", app.PurchaseRequest{Supplier: "X", Items: []app.ItemInput{{Name: "a", Price: "1"}}})
	assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))

	draft, err := svc.PreviewPurchase(ctx, app.PurchaseRequest{
		Supplier: "PROV-A",
		Items:    []app.ItemInput{{Name: "Barrel", Price: "100.50"}, {Name: "", Price: "3"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Proveedor A", draft.Supplier)
	assert.Equal(t, "COMPRA-004", draft.NextCode)
	assert.Equal(t, "100.50", draft.Total.StringFixed(2))
	assert.Equal(t, []string{"item 2: missing or invalid name/price"}, draft.Problems)

	list, err := svc.ListPurchases(ctx, app.SearchPurchasesRequest{})
	require.NoError(t, err)
	assert.Len(t, list.Purchases, 3, "nothing was saved")
}

func TestApp_PreviewWithStoreAssignedCodes(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Store.AtomicCodes = true
	rt, err := app.Open(ctx, cfg, nil, prometheus.NewRegistry())
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, rt.Close()) })

	req := app.PurchaseRequest{Supplier: "PROV-A", Items: []app.ItemInput{{Name: "Barrel", Price: "10"}}}
	draft, err := rt.Service.PreviewPurchase(ctx, req)
	require.NoError(t, err)
	assert.Empty(t, draft.NextCode, "code is only known once the store assigns it")
	assert.Empty(t, draft.Problems)

	created, err := rt.Service.CreatePurchase(ctx, req)
	require.NoError(t, err)
	assert.Regexp(t, `^COMPRA-\d{3}$`, created.Purchase.Code)
}

func TestApp_FormRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := openRuntime(t)

	form, err := svc.OpenPurchaseForm(ctx, "COMPRA-002")
	require.NoError(t, err)
	assert.Equal(t, core.ModeEdit, form.Mode())
	require.NoError(t, form.RemoveItem(0))

	res, err := svc.SubmitPurchaseForm(ctx, form)
	require.NoError(t, err)
	assert.Equal(t, "COMPRA-002", res.Purchase.Code)
	assert.Equal(t, "150.00", res.Purchase.TotalAmount.StringFixed(2))

	summary, err := svc.GetPurchaseSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Purchases)
	assert.Equal(t, "601.25", summary.TotalSpend.StringFixed(2))
}

func TestApp_ExportAndStock(t *testing.T) {
	ctx := context.Background()
	svc := openRuntime(t)

	var buf bytes.Buffer
	require.NoError(t, svc.ExportPurchases(ctx, &buf, "xlsx", app.SearchPurchasesRequest{}))
	assert.NotZero(t, buf.Len())

	err := svc.ExportPurchases(ctx, &buf, "pdf", app.SearchPurchasesRequest{})
	assert.True(t, apperr.IsCode(err, apperr.CodeValidation))

	products, err := svc.ListProducts(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, products.Products)

	saved, err := svc.SaveProduct(ctx, "", core.ProductInput{Name: "Rosado", Category: "Vinos", Stock: "5", Price: "9.90"})
	require.NoError(t, err)

	_, err = svc.SaveProduct(ctx, "missing", core.ProductInput{Name: "X", Category: "Y", Stock: "1", Price: "1"})
	assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))

	report, err := svc.GetInventoryReport(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(products.Products)+1, report.TotalProducts)
	assert.Equal(t, saved.ID, report.LowStock[0].ID, "lowest stock first")

	require.NoError(t, svc.DeleteProduct(ctx, saved.ID))
}

func TestApp_Accounts(t *testing.T) {
	ctx := context.Background()
	svc := openRuntime(t)

	res, err := svc.SignUp(ctx, core.SignUpInput{
		FullName: "Tomás Ibarra", DNI: "28999111", Email: "tomas@puertoreal.com",
		Password: "cosecha", ConfirmPassword: "cosecha", AcceptTerms: true,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Preferences)
	assert.True(t, res.Preferences.Notifications)

	session, err := svc.Login(ctx, "tomas@puertoreal.com", "cosecha")
	require.NoError(t, err)

	who, err := svc.Authenticate(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, who.User.ID)

	prefs, err := svc.UpdatePreferences(ctx, res.User.ID, app.PreferencesRequest{DarkMode: true, Notifications: true})
	require.NoError(t, err)
	assert.True(t, prefs.DarkMode)

	reset, err := svc.RequestPasswordReset(ctx, "Tomas@PuertoReal.com")
	require.NoError(t, err)
	assert.Equal(t, "tomas@puertoreal.com", reset.Email)
	require.NoError(t, svc.ResetPassword(ctx, app.ResetPasswordRequest{Token: reset.Token, NewPassword: "vendimia", ConfirmPassword: "vendimia"}))

	_, err = svc.Login(ctx, "tomas@puertoreal.com", "vendimia")
	require.NoError(t, err)
}

func TestApp_Seed(t *testing.T) {
	ctx := context.Background()
	svc := openRuntime(t)

	res, err := svc.Seed(ctx, "", false)
	require.NoError(t, err)
	assert.Zero(t, res.Created)
	assert.NotZero(t, res.Skipped)

	_, err = svc.Seed(ctx, "does-not-exist.yaml", false)
	assert.Error(t, err)
}
