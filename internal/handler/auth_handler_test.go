package handler

import (
	"context"
	"net/http"
	"testing"

	"distribuidora/internal/model"
	"distribuidora/internal/repository"
	"distribuidora/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUsers struct {
	service.UserService
	login  func(ctx context.Context, req service.LoginUserRequest) (*service.TokenResponse, error)
	logout func(ctx context.Context, refreshToken string) error
	list   func(ctx context.Context, page repository.Page) ([]service.UserResponse, int64, error)
	del    func(ctx context.Context, actor service.Actor, id uint) error
}

func (s stubUsers) Login(ctx context.Context, req service.LoginUserRequest) (*service.TokenResponse, error) {
	return s.login(ctx, req)
}

func (s stubUsers) Logout(ctx context.Context, refreshToken string) error {
	return s.logout(ctx, refreshToken)
}

func (s stubUsers) ListUsers(ctx context.Context, page repository.Page) ([]service.UserResponse, int64, error) {
	return s.list(ctx, page)
}

func (s stubUsers) DeleteUser(ctx context.Context, actor service.Actor, id uint) error {
	return s.del(ctx, actor, id)
}

func TestAuthHandler_Login(t *testing.T) {
	users := stubUsers{login: func(_ context.Context, req service.LoginUserRequest) (*service.TokenResponse, error) {
		if req.Password != "secret1" {
			return nil, &service.Error{Kind: service.ErrUnauthorized, Message: "invalid email or password"}
		}
		return &service.TokenResponse{Token: "access", RefreshToken: "refresh", User: service.UserResponse{ID: 1, Role: model.RoleAdmin}}, nil
	}}
	r := newTestRouter(NewAuthHandler(users, nil))

	w, _ := do(t, r, http.MethodPost, "/api/auth/login", "", service.LoginUserRequest{Email: "admin@distribuidora.bo", Password: "secret1"})
	require.Equal(t, http.StatusOK, w.Code)

	names := map[string]string{}
	for _, ck := range w.Result().Cookies() {
		names[ck.Name] = ck.Value
	}
	assert.Equal(t, "access", names["access_token"])
	assert.Equal(t, "refresh", names["refresh_token"])

	w, resp := do(t, r, http.MethodPost, "/api/auth/login", "", service.LoginUserRequest{Email: "admin@distribuidora.bo", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid email or password", resp.Error)

	w, _ = do(t, r, http.MethodPost, "/api/auth/login", "", `{"email": "not-an-email", "password": "x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandler_LogoutRevokesBodyToken(t *testing.T) {
	var revoked string
	users := stubUsers{logout: func(_ context.Context, refreshToken string) error {
		revoked = refreshToken
		return nil
	}}
	r := newTestRouter(NewAuthHandler(users, nil))

	w, _ := do(t, r, http.MethodPost, "/api/auth/logout", "", `{"refresh_token": "abc"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc", revoked)
}

func TestUserHandler_AdminOnly(t *testing.T) {
	users := stubUsers{list: func(_ context.Context, page repository.Page) ([]service.UserResponse, int64, error) {
		return []service.UserResponse{{ID: 1}}, 1, nil
	}}
	r := newTestRouter(NewUserHandler(users))

	w, _ := do(t, r, http.MethodGet, "/api/users", bearer(t, 2, model.RoleSeller), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = do(t, r, http.MethodGet, "/api/users", bearer(t, 1, model.RoleAdmin), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUserHandler_DeleteSelfIsRejected(t *testing.T) {
	users := stubUsers{del: func(_ context.Context, actor service.Actor, id uint) error {
		if actor.UserID == id {
			return &service.Error{Kind: service.ErrValidation, Message: "you cannot delete your own account"}
		}
		return nil
	}}
	r := newTestRouter(NewUserHandler(users))

	w, _ := do(t, r, http.MethodDelete, "/api/users/1", bearer(t, 1, model.RoleAdmin), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, r, http.MethodDelete, "/api/users/3", bearer(t, 1, model.RoleAdmin), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
