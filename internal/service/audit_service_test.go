package service

import (
	"context"
	"encoding/json"
	"testing"

	"distribuidora/internal/model"
	"distribuidora/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditTrail(t *testing.T) {
	env := newTestEnv(t)
	customer := env.addCustomer("Tienda")
	p := env.addProduct("Arroz", 10, "10")
	order := createOrder(t, env, customer.ID, OrderLineInput{ProductID: p.ID, Quantity: qty("2")})
	_, err := NewOrderService(env.deps).ChangeStatus(context.Background(), env.admin, order.ID, model.OrderStatusCancelled)
	require.NoError(t, err)

	logs, total, err := NewAuditService(env.deps.Audit).GetAuditLogs(context.Background(), repository.Page{Page: 1, Limit: 10}, model.ActionChangeOrderStatus)
	require.NoError(t, err)
	require.Equal(t, int64(1), total)

	entry := logs[0]
	assert.Equal(t, &env.admin.UserID, entry.UserID)
	assert.Equal(t, order.OrderNumber, entry.EntityName)
	var details map[string]string
	require.NoError(t, json.Unmarshal([]byte(entry.Details), &details))
	assert.Equal(t, map[string]string{"from": model.OrderStatusPending, "to": model.OrderStatusCancelled}, details)
}

func TestGetAuditLogs_NewestFirstAndPaged(t *testing.T) {
	env := newTestEnv(t)
	customer := env.addCustomer("Tienda")
	p := env.addProduct("Arroz", 10, "10")
	createOrder(t, env, customer.ID, OrderLineInput{ProductID: p.ID, Quantity: qty("1")})
	second := createOrder(t, env, customer.ID, OrderLineInput{ProductID: p.ID, Quantity: qty("1")})

	logs, total, err := NewAuditService(env.deps.Audit).GetAuditLogs(context.Background(), repository.Page{Page: 1, Limit: 1}, model.ActionCreateOrder)

	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, logs, 1)
	assert.Equal(t, second.OrderNumber, logs[0].EntityName)
}
