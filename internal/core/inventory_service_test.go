package core_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"puerto-real/internal/apperr"
	"puerto-real/internal/core"
	"puerto-real/internal/remote"
)

func TestParseProductInput(t *testing.T) {
	cases := []struct {
		name    string
		in      core.ProductInput
		message string
	}{
		{"missing category", core.ProductInput{Name: "Malbec", Stock: "1", Price: "1"}, "all fields are required"},
		{"blank name", core.ProductInput{Name: "  ", Category: "Tinto", Stock: "1", Price: "1"}, "all fields are required"},
		{"special characters", core.ProductInput{Name: "Malbec!", Category: "Tinto", Stock: "1", Price: "1"}, "product name may only contain letters, numbers and spaces"},
		{"negative stock", core.ProductInput{Name: "Malbec", Category: "Tinto", Stock: "-1", Price: "1"}, "stock and price cannot be negative"},
		{"negative price", core.ProductInput{Name: "Malbec", Category: "Tinto", Stock: "1", Price: "-0.5"}, "stock and price cannot be negative"},
		{"fractional stock", core.ProductInput{Name: "Malbec", Category: "Tinto", Stock: "1.5", Price: "1"}, "stock must be a whole number"},
		{"bad price", core.ProductInput{Name: "Malbec", Category: "Tinto", Stock: "1", Price: "abc"}, "price must be a number"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := core.ParseProductInput(tc.in)
			require.Error(t, err)
			assert.True(t, apperr.IsCode(err, apperr.CodeValidation))
			assert.Equal(t, tc.message, apperr.UserMessage(err))
		})
	}

	p, err := core.ParseProductInput(core.ProductInput{Name: " Malbec Reserva 2020 ", Category: "Tinto", Stock: "0", Price: "12.50"})
	require.NoError(t, err)
	assert.Equal(t, "Malbec Reserva 2020", p.Name)
	assert.Equal(t, 0, p.Stock)
	assert.Equal(t, "12.50", p.Price.StringFixed(2))
}

func TestStockService_SaveAndDelete(t *testing.T) {
	ctx := context.Background()
	store := remote.NewMemoryStore()
	svc := core.NewStockService(store, nil, nil)

	created, err := svc.Save(ctx, "", core.ProductInput{Name: "Torrontes", Category: "Blanco", Stock: "30", Price: "9"})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	updated, err := svc.Save(ctx, created.ID, core.ProductInput{Name: "Torrontes", Category: "Blanco", Stock: "25", Price: "9.50"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)

	got, err := svc.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, 25, got.Stock)

	docs, err := store.List(ctx, core.ProductsCollection)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	var stored map[string]any
	require.NoError(t, json.Unmarshal(docs[0].Data, &stored))
	assert.Equal(t, float64(25), stored["stock"])

	require.NoError(t, svc.Delete(ctx, created.ID))
	assert.Empty(t, svc.Products())

	err = svc.Delete(ctx, created.ID)
	assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))
}

func TestStockService_RemoteFailureMessages(t *testing.T) {
	ctx := context.Background()
	store := remote.NewMemoryStore()
	svc := core.NewStockService(store, nil, nil)
	p, err := svc.Save(ctx, "", core.ProductInput{Name: "Malbec", Category: "Tinto", Stock: "1", Price: "1"})
	require.NoError(t, err)

	store.SetFailure(errors.New("permission denied"))
	_, err = svc.Save(ctx, "", core.ProductInput{Name: "Syrah", Category: "Tinto", Stock: "1", Price: "1"})
	assert.Equal(t, "could not save product", apperr.UserMessage(err))
	assert.True(t, apperr.IsCode(err, apperr.CodeRemote))

	err = svc.Delete(ctx, p.ID)
	assert.Equal(t, "could not delete product", apperr.UserMessage(err))
	assert.Len(t, svc.Products(), 1)
}

func TestStockService_WatchReplacesList(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := remote.NewMemoryStore()
	_, err := store.Create(ctx, core.ProductsCollection, remote.Document{ID: "b", Data: json.RawMessage(`{"name":"Syrah","category":"Tinto","stock":5,"price":20.5}`)})
	require.NoError(t, err)

	svc := core.NewStockService(store, nil, nil)
	stop, err := svc.Watch(ctx)
	require.NoError(t, err)
	defer stop()

	require.Len(t, svc.Products(), 1)
	assert.Equal(t, "20.50", svc.Products()[0].Price.StringFixed(2))

	_, err = store.Create(ctx, core.ProductsCollection, remote.Document{ID: "a", Data: json.RawMessage(`{"name":"Bonarda","category":"Tinto","stock":70,"price":"8"}`)})
	require.NoError(t, err)
	names := []string{}
	for _, p := range svc.Products() {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"Bonarda", "Syrah"}, names)

	fresh := core.NewStockService(store, nil, nil)
	require.NoError(t, fresh.Refresh(ctx))
	assert.Len(t, fresh.Products(), 2)
}
