package service

import (
	"context"
	"testing"
	"time"

	"distribuidora/internal/model"
	"distribuidora/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	svc := NewUserService(env.deps)

	res, err := svc.Login(context.Background(), LoginUserRequest{Email: "SELLER@distribuidora.bo", Password: "secret2"})

	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Equal(t, model.RoleSeller, res.User.Role)
	require.NotNil(t, env.store.users[env.seller.UserID].LastLoginAt)

	claims, err := env.deps.Tokens.Parse(res.Token)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, env.seller.UserID, id)
	assert.Equal(t, model.RoleSeller, claims.Role)

	stored := env.store.refresh[res.RefreshToken]
	assert.Equal(t, env.seller.UserID, stored.UserID)
	assert.Equal(t, env.clock.now.Add(24*time.Hour), stored.ExpiresAt)
}

func TestLogin_Failures(t *testing.T) {
	env := newTestEnv(t)
	svc := NewUserService(env.deps)

	_, err := svc.Login(context.Background(), LoginUserRequest{Email: "seller@distribuidora.bo", Password: "wrong"})
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.Login(context.Background(), LoginUserRequest{Email: "nobody@distribuidora.bo", Password: "secret2"})
	assert.ErrorIs(t, err, ErrUnauthorized)

	u := env.store.users[env.seller.UserID]
	u.Active = false
	env.store.users[u.ID] = u
	_, err = svc.Login(context.Background(), LoginUserRequest{Email: "seller@distribuidora.bo", Password: "secret2"})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Empty(t, env.store.refresh)
}

func TestRefreshToken_Rotates(t *testing.T) {
	env := newTestEnv(t)
	svc := NewUserService(env.deps)
	login, err := svc.Login(context.Background(), LoginUserRequest{Email: "admin@distribuidora.bo", Password: "secret1"})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)
	assert.NotContains(t, env.store.refresh, login.RefreshToken)

	_, err = svc.RefreshToken(context.Background(), RefreshTokenRequest{RefreshToken: login.RefreshToken})
	assert.ErrorIs(t, err, ErrUnauthorized)

	env.clock.now = env.clock.now.Add(25 * time.Hour)
	_, err = svc.RefreshToken(context.Background(), RefreshTokenRequest{RefreshToken: refreshed.RefreshToken})
	assert.ErrorIs(t, err, ErrUnauthorized)

	require.NoError(t, svc.Logout(context.Background(), refreshed.RefreshToken))
	assert.NoError(t, svc.Logout(context.Background(), ""))
}

func TestChangeOwnPassword(t *testing.T) {
	env := newTestEnv(t)
	svc := NewUserService(env.deps)

	err := svc.ChangeOwnPassword(context.Background(), env.seller, ChangePasswordRequest{CurrentPassword: "nope", NewPassword: "another1"})
	assert.ErrorIs(t, err, ErrValidation)

	err = svc.ChangeOwnPassword(context.Background(), env.seller, ChangePasswordRequest{CurrentPassword: "secret2", NewPassword: "abc"})
	assert.ErrorIs(t, err, ErrValidation)

	require.NoError(t, svc.ChangeOwnPassword(context.Background(), env.seller, ChangePasswordRequest{CurrentPassword: "secret2", NewPassword: "another1"}))
	_, err = svc.Login(context.Background(), LoginUserRequest{Email: "seller@distribuidora.bo", Password: "another1"})
	assert.NoError(t, err)
}

func TestUserAdministration(t *testing.T) {
	env := newTestEnv(t)
	svc := NewUserService(env.deps)
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, env.admin, CreateUserRequest{Name: "Ana", Email: "Ana@Distribuidora.bo", Password: "secret3", Role: model.RoleSeller})
	require.NoError(t, err)
	assert.Equal(t, "ana@distribuidora.bo", created.Email)
	assert.True(t, created.Active)

	_, err = svc.CreateUser(ctx, env.admin, CreateUserRequest{Name: "Ana 2", Email: "ana@distribuidora.bo", Password: "secret3", Role: model.RoleSeller})
	assert.ErrorIs(t, err, ErrIntegrityConflict)
	_, err = svc.CreateUser(ctx, env.admin, CreateUserRequest{Name: "Bob", Email: "bob@distribuidora.bo", Password: "secret3", Role: "manager"})
	assert.ErrorIs(t, err, ErrValidation)

	updated, err := svc.UpdateUser(ctx, env.admin, created.ID, UpdateUserRequest{Name: "Ana María", Role: model.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, "Ana María", updated.Name)
	assert.Equal(t, model.RoleAdmin, updated.Role)

	_, err = svc.UpdateUser(ctx, env.admin, env.admin.UserID, UpdateUserRequest{Role: model.RoleSeller})
	assert.ErrorIs(t, err, ErrValidation)

	require.NoError(t, svc.ResetPassword(ctx, env.admin, created.ID, ResetPasswordRequest{Password: "fresh-one"}))
	_, err = svc.Login(ctx, LoginUserRequest{Email: "ana@distribuidora.bo", Password: "fresh-one"})
	assert.NoError(t, err)

	users, total, err := svc.ListUsers(ctx, repository.Page{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, users, 2)
}

func TestToggleAndDeleteUser(t *testing.T) {
	env := newTestEnv(t)
	svc := NewUserService(env.deps)
	ctx := context.Background()
	customer := env.addCustomer("Tienda")
	p := env.addProduct("Arroz", 10, "10")
	createOrder(t, env, customer.ID, OrderLineInput{ProductID: p.ID, Quantity: qty("1")})
	idle := env.addUser("idle@distribuidora.bo", "secret9", model.RoleSeller)

	_, err := svc.ToggleActive(ctx, env.admin, env.admin.UserID)
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, svc.DeleteUser(ctx, env.admin, env.admin.UserID), ErrValidation)

	login, err := svc.Login(ctx, LoginUserRequest{Email: "idle@distribuidora.bo", Password: "secret9"})
	require.NoError(t, err)
	toggled, err := svc.ToggleActive(ctx, env.admin, idle.ID)
	require.NoError(t, err)
	assert.False(t, toggled.Active)
	assert.NotContains(t, env.store.refresh, login.RefreshToken)

	assert.ErrorIs(t, svc.DeleteUser(ctx, env.admin, env.seller.UserID), ErrIntegrityConflict)
	assert.NoError(t, svc.DeleteUser(ctx, env.admin, idle.ID))
	assert.NotContains(t, env.store.users, idle.ID)

	me, err := svc.Me(ctx, env.admin)
	require.NoError(t, err)
	assert.Equal(t, "admin@distribuidora.bo", me.Email)
}
