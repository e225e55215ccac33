// Command seed-admin creates the first administrator so the API can be used.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"distribuidora/internal/config"
	"distribuidora/internal/database"
	"distribuidora/internal/lock"
	"distribuidora/internal/model"
	"distribuidora/internal/repository"
	"distribuidora/internal/service"
	"distribuidora/pkg/token"
)

func main() {
	logger := config.GetLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	name := flag.String("name", envOr("ADMIN_NAME", "Administrador"), "display name")
	email := flag.String("email", os.Getenv("ADMIN_EMAIL"), "login email (ADMIN_EMAIL)")
	password := flag.String("password", os.Getenv("ADMIN_PASSWORD"), "initial password, at least 6 characters (ADMIN_PASSWORD)")
	flag.Parse()

	if *email == "" || *password == "" {
		logger.Fatal("email and password are required")
	}

	db, err := database.NewConnection(cfg.DB)
	if err != nil {
		logger.WithError(err).Fatal("database connection failed")
	}

	users := service.NewUserService(service.Dependencies{
		TxManager:       repository.NewTransactionManager(db),
		Users:           repository.NewUserRepository(db),
		Audit:           repository.NewAuditRepository(db),
		Locker:          lock.Noop(),
		Clock:           service.NewClock(cfg.Timezone),
		Tokens:          token.NewIssuer([]byte(cfg.Auth.JWTSecret), cfg.Auth.AccessTokenTTL),
		RefreshTokenTTL: cfg.Auth.RefreshTokenTTL,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	user, err := users.CreateUser(ctx, service.Actor{}, service.CreateUserRequest{
		Name:     *name,
		Email:    *email,
		Password: *password,
		Role:     model.RoleAdmin,
	})
	if errors.Is(err, service.ErrIntegrityConflict) {
		logger.WithField("email", *email).Info("admin already exists, nothing to do")
		return
	}
	if err != nil {
		logger.WithError(err).Fatal("failed to create admin")
	}

	logger.WithField("id", user.ID).WithField("email", user.Email).Info("admin created")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
