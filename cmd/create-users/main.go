// Command create-users bootstraps the default admin and user accounts. It
// is safe to run repeatedly; existing usernames are left untouched.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"ledger/internal/backend"
	"ledger/internal/cli"
	"ledger/internal/config"
	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/services"
)

func main() {
	cfg, logger := cli.Bootstrap(applog.ComponentApp)
	if err := run(context.Background(), cfg, logger); err != nil {
		logger.Error("Failed to create default users", applog.FieldError, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *applog.Logger) error {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	res, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return err
	}
	defer res.Cleanup()
	if bcfg.Type == backend.MemoryBackend {
		logger.Warn("Memory backend selected, created users last only for this process")
	}

	return createDefaultUsers(ctx, services.NewUserService(res.Store, nil), cfg, logger)
}

type accountSeed struct {
	user     core.User
	password string
}

func defaultUsers(cfg *config.Config) []accountSeed {
	return []accountSeed{
		{
			user: core.User{
				Username:  cfg.AdminUsername,
				Email:     cfg.AdminEmail,
				FirstName: "Administrator",
				LastName:  "System",
				Role:      core.RoleAdmin,
				Active:    true,
			},
			password: cfg.AdminPassword,
		},
		{
			user: core.User{
				Username:  "user",
				Email:     "user@example.com",
				FirstName: "Common",
				LastName:  "User",
				Role:      core.RoleUser,
				Active:    true,
			},
			password: cfg.DefaultUserPassword,
		},
	}
}

func createDefaultUsers(ctx context.Context, users *services.UserService, cfg *config.Config, logger *applog.Logger) error {
	if cfg.AdminPassword == "" {
		return errors.New("ADMIN_PASSWORD is required to create the admin user")
	}

	for _, seed := range defaultUsers(cfg) {
		if seed.password == "" {
			logger.Info("No password configured, skipping user", applog.FieldUsername, seed.user.Username)
			continue
		}
		u, created, err := users.EnsureUser(ctx, seed.user, seed.password)
		if err != nil {
			return fmt.Errorf("create %s: %w", seed.user.Username, err)
		}
		if created {
			logger.Info("User created", applog.FieldUsername, u.Username, applog.FieldUserID, u.ID, "role", u.Role)
		} else {
			logger.Info("User already exists", applog.FieldUsername, u.Username)
		}
	}
	return nil
}
