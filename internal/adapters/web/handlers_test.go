package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"puerto-real/internal/app"
	"puerto-real/internal/config"
)

type apiClient struct {
	t       *testing.T
	handler http.Handler
	token   string
}

func newAPI(t *testing.T) *apiClient {
	t.Helper()
	cfg := &config.Config{
		App:   config.AppConfig{Env: config.AppEnvDev},
		Store: config.StoreConfig{Driver: config.StoreMemory},
		Auth: config.AuthConfig{
			JWTSecret:     "web-test-secret",
			JWTIssuer:     "puerto-real-test",
			TokenTTL:      time.Hour,
			ResetTokenTTL: time.Hour,
			UserDBDriver:  "sqlite",
			UserDBDSN:     fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
		},
	}
	rt, err := app.Open(context.Background(), cfg, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })

	return &apiClient{
		t: t,
		handler: NewHandler(rt.Service, Options{
			StoreDriver:       cfg.Store.Driver,
			ExposeResetTokens: true,
		}),
	}
}

func (c *apiClient) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(c.t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	return rec
}

func (c *apiClient) signIn() {
	c.t.Helper()
	rec := c.do(http.MethodPost, "/api/auth/signup", map[string]any{
		"fullName": "Ana Sosa", "dni": "33444555", "email": "ana@puertoreal.com",
		"password": "bodega1", "confirmPassword": "bodega1", "acceptTerms": true,
	})
	require.Equal(c.t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = c.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "ana@puertoreal.com", "password": "bodega1"})
	require.Equal(c.t, http.StatusOK, rec.Code, rec.Body.String())
	var session struct {
		Token string `json:"token"`
	}
	require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &session))
	require.NotEmpty(c.t, session.Token)
	assert.Contains(c.t, rec.Header().Get("Set-Cookie"), sessionCookie+"=")
	c.token = session.Token
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthIsPublic(t *testing.T) {
	api := newAPI(t)
	rec := api.do(http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","store":"memory"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	api := newAPI(t)
	rec := api.do(http.MethodGet, "/api/purchases", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	api.token = "garbage"
	rec = api.do(http.MethodGet, "/api/purchases", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthErrorsMapToStatus(t *testing.T) {
	api := newAPI(t)
	api.signIn()

	rec := api.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "ana@puertoreal.com", "password": "nope123"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(http.MethodPost, "/api/auth/signup", map[string]any{
		"fullName": "Ana Sosa", "dni": "1", "email": "ana@puertoreal.com",
		"password": "bodega1", "confirmPassword": "bodega1", "acceptTerms": true,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "email already in use", decodeBody[errorResponse](t, rec).Error)

	rec = api.do(http.MethodPost, "/api/auth/forgot-password", map[string]string{"email": "ana@puertoreal.com"})
	require.Equal(t, http.StatusAccepted, rec.Code)
	reset := decodeBody[struct {
		Token string `json:"token"`
	}](t, rec)
	require.NotEmpty(t, reset.Token)

	rec = api.do(http.MethodPost, "/api/auth/reset-password", map[string]string{
		"token": reset.Token, "newPassword": "bodega2", "confirmPassword": "bodega2",
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestPurchaseEndpoints(t *testing.T) {
	api := newAPI(t)
	api.signIn()

	rec := api.do(http.MethodGet, "/api/purchases", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[app.PurchaseListResult](t, rec)
	require.Len(t, list.Purchases, 3)
	assert.Equal(t, "COMPRA-003", list.Purchases[0].Code)

	rec = api.do(http.MethodPost, "/api/purchases", `{"supplier":"PROV-C","items":[{"name":"Barrel","price":100.5},{"name":"Corks","price":"9.50"}]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		ID           string `json:"id"`
		Code         string `json:"code"`
		SupplierName string `json:"supplierName"`
		TotalAmount  string `json:"totalAmount"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "COMPRA-004", created.Code)
	assert.Equal(t, "Proveedor C", created.SupplierName)
	assert.Equal(t, "110", created.TotalAmount)

	rec = api.do(http.MethodPost, "/api/purchases", `{"supplier":"","items":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "supplier and at least one item required", decodeBody[errorResponse](t, rec).Error)

	rec = api.do(http.MethodGet, "/api/purchases?q=corks&fields=supplier", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[app.PurchaseListResult](t, rec).Purchases)

	rec = api.do(http.MethodGet, "/api/purchases?q=proveedor+c", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[app.PurchaseListResult](t, rec).Purchases, 2)

	rec = api.do(http.MethodPut, "/api/purchases/COMPRA-004", `{"supplier":"Bodega Sur","items":[{"name":"Barrel","price":"80"}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = api.do(http.MethodGet, "/api/purchases/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"supplierName":"Bodega Sur"`)

	rec = api.do(http.MethodPost, "/api/purchases/preview", `{"supplier":"X","items":[{"name":"","price":"1"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	draft := decodeBody[app.DraftResult](t, rec)
	assert.Equal(t, "COMPRA-005", draft.NextCode)
	assert.Len(t, draft.Problems, 2)

	rec = api.do(http.MethodGet, "/api/purchases/export?format=xlsx", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")), "xlsx is a zip archive")

	rec = api.do(http.MethodGet, "/api/purchases/export?format=pdf", nil)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)

	rec = api.do(http.MethodDelete, "/api/purchases/COMPRA-004", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = api.do(http.MethodDelete, "/api/purchases/COMPRA-004", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(http.MethodGet, "/api/analytics/purchases", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"purchases":3`)
}

func TestCatalogEndpoints(t *testing.T) {
	api := newAPI(t)
	api.signIn()

	rec := api.do(http.MethodPost, "/api/suppliers", map[string]string{"code": "v9", "name": "Vidrios Cuyo", "email": "ventas@vidrios.com"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"code":"V9"`)

	rec = api.do(http.MethodPost, "/api/suppliers", map[string]string{"code": "V9", "name": "Otro"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(http.MethodPut, "/api/suppliers/missing", map[string]string{"code": "Z1", "name": "Otro"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(http.MethodPost, "/api/products", `{"name":"Espumante","category":"Vinos","stock":3,"price":12.5}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = api.do(http.MethodPost, "/api/products", `{"name":"Bad!","category":"Vinos","stock":3,"price":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "product name may only contain letters, numbers and spaces", decodeBody[errorResponse](t, rec).Error)

	rec = api.do(http.MethodGet, "/api/analytics/inventory", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var report struct {
		LowStock []struct {
			Name string `json:"name"`
		} `json:"lowStock"`
		Threshold int `json:"threshold"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.NotEmpty(t, report.LowStock)
	assert.Equal(t, "Espumante", report.LowStock[0].Name)
	assert.Equal(t, 50, report.Threshold)
}

func TestProfileEndpoints(t *testing.T) {
	api := newAPI(t)
	api.signIn()

	rec := api.do(http.MethodPatch, "/api/profile", map[string]string{"displayName": "Anita"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"displayName":"Anita"`)

	rec = api.do(http.MethodPut, "/api/preferences", map[string]bool{"darkMode": true, "notifications": false})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(http.MethodGet, "/api/preferences", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"darkMode":true`)

	rec = api.do(http.MethodPost, "/api/profile/password", map[string]string{
		"currentPassword": "wrong", "newPassword": "nueva12", "confirmPassword": "nueva12",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(http.MethodGet, "/api/auth/me", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "passwordHash")
}

func TestBodyLimitAndBadJSON(t *testing.T) {
	api := newAPI(t)
	api.signIn()

	rec := api.do(http.MethodPost, "/api/purchases", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	huge := `{"supplier":"` + strings.Repeat("x", 2<<20) + `"}`
	rec = api.do(http.MethodPost, "/api/purchases", huge)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
