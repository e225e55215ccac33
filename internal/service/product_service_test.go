package service

import (
	"context"
	"testing"

	"distribuidora/internal/model"
	"distribuidora/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateProduct(t *testing.T) {
	env := newTestEnv(t)
	svc := NewProductService(env.deps)

	p, err := svc.CreateProduct(context.Background(), env.admin, CreateProductRequest{
		Code:      " LAC-01 ",
		Name:      "Leche entera",
		SalePrice: qty("6.5"),
		Stock:     12,
	})

	require.NoError(t, err)
	require.NotNil(t, p.Code)
	assert.Equal(t, "LAC-01", *p.Code)
	assert.Equal(t, model.UnitPiece, p.Unit)
	assert.Equal(t, model.DefaultStockMinimum, p.StockMinimum)
	assert.Equal(t, 12, p.StockOnHand)
	assert.True(t, p.Active)

	require.Len(t, env.store.movements, 1)
	assert.Equal(t, model.MovementManual, env.store.movements[0].Source)
	assert.Equal(t, 12, env.store.movements[0].StockAfter)
	assert.Equal(t, model.ActionCreateProduct, env.store.audits[0].Action)
}

func TestCreateProduct_Validation(t *testing.T) {
	env := newTestEnv(t)
	existing := env.addProduct("Arroz", 1, "10")
	code := "ARZ"
	existing.Code = &code
	env.store.products[existing.ID] = existing
	negative := -1

	tests := []struct {
		name string
		req  CreateProductRequest
		kind error
	}{
		{"blank name", CreateProductRequest{Name: " ", SalePrice: qty("1")}, ErrValidation},
		{"zero price", CreateProductRequest{Name: "Fideo", SalePrice: qty("0")}, ErrValidation},
		{"price above column range", CreateProductRequest{Name: "Fideo", SalePrice: qty("100000000")}, ErrValidation},
		{"bad unit", CreateProductRequest{Name: "Fideo", Unit: "barril", SalePrice: qty("1")}, ErrValidation},
		{"negative stock", CreateProductRequest{Name: "Fideo", SalePrice: qty("1"), Stock: -3}, ErrValidation},
		{"negative minimum", CreateProductRequest{Name: "Fideo", SalePrice: qty("1"), StockMinimum: &negative}, ErrValidation},
		{"duplicate name", CreateProductRequest{Name: "ARROZ", SalePrice: qty("1")}, ErrIntegrityConflict},
		{"duplicate code", CreateProductRequest{Code: "ARZ", Name: "Fideo", SalePrice: qty("1")}, ErrIntegrityConflict},
	}
	svc := NewProductService(env.deps)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateProduct(context.Background(), env.admin, tt.req)
			assert.ErrorIs(t, err, tt.kind)
		})
	}
	assert.Len(t, env.store.products, 1)
}

func TestUpdateProduct_KeepsStock(t *testing.T) {
	env := newTestEnv(t)
	p := env.addProduct("Arroz", 9, "10")

	updated, err := NewProductService(env.deps).UpdateProduct(context.Background(), env.admin, p.ID, UpdateProductRequest{
		Name:         "Arroz grano largo",
		Unit:         model.UnitKilo,
		SalePrice:    qty("11.255"),
		StockMinimum: 3,
	})

	require.NoError(t, err)
	assert.Equal(t, "Arroz grano largo", updated.Name)
	assert.Equal(t, model.UnitKilo, updated.Unit)
	assert.True(t, updated.SalePrice.Equal(qty("11.26")))
	assert.Equal(t, 9, updated.StockOnHand)
	assert.Nil(t, updated.Code)
}

func TestAdjustStock(t *testing.T) {
	env := newTestEnv(t)
	p := env.addProduct("Arroz", 4, "10")
	svc := NewProductService(env.deps)

	added, err := svc.AdjustStock(context.Background(), env.admin, p.ID, AdjustStockRequest{Operation: AdjustAdd, Quantity: 6, Reason: "compra"})
	require.NoError(t, err)
	assert.Equal(t, 10, added.StockOnHand)

	_, err = svc.AdjustStock(context.Background(), env.admin, p.ID, AdjustStockRequest{Operation: AdjustSubtract, Quantity: 11})
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 10, env.stock(p.ID))

	_, err = svc.AdjustStock(context.Background(), env.admin, p.ID, AdjustStockRequest{Operation: "multiply", Quantity: 2})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.AdjustStock(context.Background(), env.admin, p.ID, AdjustStockRequest{Operation: AdjustAdd, Quantity: 0})
	assert.ErrorIs(t, err, ErrValidation)

	movements, total, err := svc.Movements(context.Background(), p.ID, repository.Page{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, 4, movements[0].StockBefore)
	assert.Equal(t, 10, movements[0].StockAfter)
	assert.Len(t, env.notifier.batches, 1)
}

func TestToggleAndDeleteProduct(t *testing.T) {
	env := newTestEnv(t)
	customer := env.addCustomer("Tienda")
	used := env.addProduct("Arroz", 10, "10")
	unused := env.addProduct("Fideo", 10, "3")
	createOrder(t, env, customer.ID, OrderLineInput{ProductID: used.ID, Quantity: qty("1")})
	svc := NewProductService(env.deps)

	toggled, err := svc.ToggleActive(context.Background(), env.admin, used.ID)
	require.NoError(t, err)
	assert.False(t, toggled.Active)

	assert.ErrorIs(t, svc.DeleteProduct(context.Background(), env.admin, used.ID), ErrIntegrityConflict)
	assert.NoError(t, svc.DeleteProduct(context.Background(), env.admin, unused.ID))
	assert.NotContains(t, env.store.products, unused.ID)
	assert.ErrorIs(t, svc.DeleteProduct(context.Background(), env.admin, unused.ID), ErrNotFound)
}

func TestLowStockAndTopSelling(t *testing.T) {
	env := newTestEnv(t)
	customer := env.addCustomer("Tienda")
	empty := env.addProduct("Aceite", 0, "15")
	low := env.addProduct("Arroz", 5, "10")
	plenty := env.addProduct("Fideo", 50, "3")
	createOrder(t, env, customer.ID, OrderLineInput{ProductID: plenty.ID, Quantity: qty("7")})
	createOrder(t, env, customer.ID, OrderLineInput{ProductID: low.ID, Quantity: qty("1")})
	svc := NewProductService(env.deps)

	lowStock, err := svc.LowStock(context.Background())
	require.NoError(t, err)
	require.Len(t, lowStock, 2)
	assert.Equal(t, empty.ID, lowStock[0].ID)
	assert.Equal(t, model.StockStateOutOfStock, lowStock[0].StockState())
	assert.Equal(t, model.StockStateLow, lowStock[1].StockState())

	top, err := svc.TopSelling(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, plenty.ID, top[0].Product.ID)
	assert.True(t, top[0].TotalQuantity.Equal(qty("7")))

	detail, err := svc.GetProduct(context.Background(), plenty.ID)
	require.NoError(t, err)
	assert.True(t, detail.Sales.TotalValue.Equal(qty("21")))

	assert.Equal(t, model.Units, svc.Units())
}
