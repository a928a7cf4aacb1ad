package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	"go.uber.org/zap"

	"mailwriter/internal/auth"
	"mailwriter/internal/config"
	"mailwriter/internal/db"
	apperrors "mailwriter/internal/errors"
	"mailwriter/internal/logger"
	"mailwriter/internal/model"
	"mailwriter/internal/repository"
)

// SeedUser is one entry of the seed document.
type SeedUser struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

func main() {
	source := flag.String("source", "seed_users.json", "path or http(s) URL of a JSON array of users")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logg, err := logger.New(cfg.AppEnv)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logg.Sync() }()

	ctx := context.Background()

	gormDB, err := db.NewMySQL(cfg.DSN())
	if err != nil {
		logg.Fatalw("connect database", "error", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		logg.Fatalw("database handle", "error", err)
	}
	defer sqlDB.Close()

	if err := db.Migrate(ctx, sqlDB); err != nil {
		logg.Fatalw("migrate", "error", err)
	}

	users, err := loadSeedUsers(ctx, *source)
	if err != nil {
		logg.Fatalw("load seed users", "source", *source, "error", err)
	}
	logg.Infow("seed users loaded", "source", *source, "count", len(users))

	repo := repository.NewUserRepository(gormDB)
	created, updated, err := seedUsers(ctx, repo, auth.NewPasswordHasher(cfg.BcryptCost), users, logg)
	if err != nil {
		logg.Fatalw("seed users", "error", err)
	}
	logg.Infow("seed completed", "created", created, "updated", updated)
}

func loadSeedUsers(ctx context.Context, source string) ([]SeedUser, error) {
	var (
		body []byte
		err  error
	)
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		body, err = fetch(ctx, source)
	} else {
		body, err = os.ReadFile(source)
	}
	if err != nil {
		return nil, err
	}

	var users []SeedUser
	if err := json.Unmarshal(body, &users); err != nil {
		return nil, fmt.Errorf("parse seed json: %w", err)
	}
	return users, nil
}

func fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch seed users: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("seed source returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// seedUsers creates missing users already verified and refreshes the profile
// of existing ones. Passwords of existing users are left alone.
func seedUsers(ctx context.Context, repo repository.UserRepository, hasher auth.PasswordHasher, users []SeedUser, logg *zap.SugaredLogger) (created, updated int, err error) {
	for _, u := range users {
		if u.Email == "" || u.Name == "" || u.Password == "" {
			logg.Warnw("skipping incomplete seed user", "email", u.Email)
			continue
		}

		existing, err := repo.FindByEmail(ctx, u.Email)
		switch {
		case err == nil:
			existing.Name = u.Name
			existing.Phone = u.Phone
			if err := repo.Save(ctx, existing); err != nil {
				return created, updated, fmt.Errorf("update %s: %w", u.Email, err)
			}
			updated++
		case errors.Is(err, apperrors.ErrUserNotFound):
			digest, err := hasher.Hash(u.Password)
			if err != nil {
				return created, updated, err
			}
			user := &model.User{Name: u.Name, Email: u.Email, Phone: u.Phone, PasswordHash: digest}
			if err := repo.Create(ctx, user); err != nil {
				return created, updated, fmt.Errorf("create %s: %w", u.Email, err)
			}
			if err := repo.MarkVerified(ctx, user); err != nil {
				return created, updated, fmt.Errorf("verify %s: %w", u.Email, err)
			}
			created++
		default:
			return created, updated, fmt.Errorf("look up %s: %w", u.Email, err)
		}
	}
	return created, updated, nil
}
