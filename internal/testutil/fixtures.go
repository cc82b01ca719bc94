package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"fixflow.io/fixflow/internal/domain"
	"fixflow.io/fixflow/internal/repository"
)

// SeedUser inserts a user row and returns it.
func SeedUser(t *testing.T, pool *pgxpool.Pool, username string, role domain.Role) *domain.User {
	t.Helper()

	u := &domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: "$2a$12$fixture-hash-not-a-real-one",
		DisplayName:  username,
		Role:         role,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := repository.NewUserRepo(pool).Create(context.Background(), u); err != nil {
		t.Fatalf("seed user %q: %v", username, err)
	}
	return u
}

// SeedBuilding inserts a building config row and returns it.
func SeedBuilding(t *testing.T, pool *pgxpool.Pool, name, code string, allowCustomID bool) *domain.BuildingConfig {
	t.Helper()

	b := &domain.BuildingConfig{
		ID:              uuid.NewString(),
		BuildingName:    name,
		BuildingCode:    code,
		DisplayName:     name,
		AllowCustomID:   allowCustomID,
		CurrentSequence: 0,
		LastResetYear:   time.Now().UTC().Year(),
		IsActive:        true,
		CreatedBy:       "fixture",
		CreatedAt:       time.Now().UTC(),
		UpdatedAt:       time.Now().UTC(),
	}
	if err := repository.NewBuildingRepo(pool).Create(context.Background(), b); err != nil {
		t.Fatalf("seed building %q: %v", name, err)
	}
	return b
}
