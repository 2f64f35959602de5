package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"passchecker/internal/config"
	"passchecker/internal/db"
	"passchecker/internal/logging"
	"passchecker/internal/model"
	"passchecker/internal/repository"
)

// SeedUser is a demo account created on first run.
type SeedUser struct {
	Email    string
	Password string
	Name     string
	Role     model.Role
}

// bcryptCost matches the cost used at registration.
const bcryptCost = 12

var defaultUsers = []SeedUser{
	{Email: "admin@example.com", Password: "Admin123!", Name: "Admin", Role: model.RoleAdmin},
	{Email: "user@example.com", Password: "User123!", Name: "Demo User", Role: model.RoleUser},
}

func main() {
	cfg := config.Load()
	logger := logging.New(logging.Config{
		Service: "password-checker-seed",
		Env:     cfg.AppEnv,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})

	gormDB, err := db.Open(cfg.DBDriver, cfg.MySQLDSN, cfg.SQLitePath)
	if err != nil {
		logger.Error("failed to connect to database", "err", err)
		os.Exit(1)
	}

	// Run migrations to ensure schema is up to date
	if err := gormDB.AutoMigrate(&model.User{}); err != nil {
		logger.Error("failed to run migrations", "err", err)
		os.Exit(1)
	}

	repo := repository.NewUserRepository(gormDB)
	created, skipped, err := seedUsers(context.Background(), repo, defaultUsers, bcryptCost)
	if err != nil {
		logger.Error("failed to seed users", "err", err)
		os.Exit(1)
	}

	logger.Info("seed completed", "created", created, "skipped", skipped)
}

// seedUsers creates users whose email is not taken yet. Existing rows are
// left untouched.
func seedUsers(ctx context.Context, repo repository.UserRepository, users []SeedUser, cost int) (created int, skipped int, err error) {
	for _, su := range users {
		_, err := repo.FindByEmail(ctx, su.Email)
		if err == nil {
			skipped++
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return created, skipped, fmt.Errorf("error checking user %s: %w", su.Email, err)
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(su.Password), cost)
		if err != nil {
			return created, skipped, fmt.Errorf("hash password for %s: %w", su.Email, err)
		}

		name := su.Name
		user := &model.User{
			Email:        su.Email,
			PasswordHash: string(hash),
			Name:         &name,
			Role:         su.Role,
		}
		if err := repo.Create(ctx, user); err != nil {
			return created, skipped, fmt.Errorf("error creating user %s: %w", su.Email, err)
		}
		created++
	}

	return created, skipped, nil
}
