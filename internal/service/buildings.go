package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"fixflow.io/fixflow/internal/domain"
	apperrors "fixflow.io/fixflow/internal/pkg/errors"
	"fixflow.io/fixflow/internal/repository"
)

// buildingCodePattern: uppercase alphanumeric, 2-10 characters. The code is
// embedded verbatim in every generated identifier.
var buildingCodePattern = regexp.MustCompile(`^[A-Z0-9]{2,10}$`)

// BuildingRegistry manages per-building identifier configuration.
type BuildingRegistry struct {
	buildings *repository.BuildingRepo
}

// NewBuildingRegistry creates a registry over the building repository.
func NewBuildingRegistry(buildings *repository.BuildingRepo) *BuildingRegistry {
	return &BuildingRegistry{buildings: buildings}
}

// CreateBuildingInput carries the admin-supplied fields for a new building.
type CreateBuildingInput struct {
	BuildingName  string `json:"building_name" binding:"required"`
	BuildingCode  string `json:"building_code" binding:"required"`
	DisplayName   string `json:"display_name"`
	AllowCustomID bool   `json:"allow_custom_id"`
}

// Create registers a building. The sequence counter starts at zero and the
// reset year at the current year, so the first allocation mints sequence 1.
func (s *BuildingRegistry) Create(ctx context.Context, in CreateBuildingInput, creatorID string) (*domain.BuildingConfig, error) {
	name := strings.TrimSpace(in.BuildingName)
	code := strings.ToUpper(strings.TrimSpace(in.BuildingCode))

	if name == "" {
		return nil, apperrors.ErrInvalidField("building_name", "building name is required")
	}
	if !buildingCodePattern.MatchString(code) {
		return nil, apperrors.ErrInvalidField("building_code",
			"building code must be 2-10 uppercase letters or digits")
	}

	now := time.Now().UTC()
	cfg := &domain.BuildingConfig{
		ID:              newID(),
		BuildingName:    name,
		BuildingCode:    code,
		DisplayName:     in.DisplayName,
		CurrentSequence: 0,
		LastResetYear:   now.Year(),
		AllowCustomID:   in.AllowCustomID,
		IsActive:        true,
		CreatedBy:       creatorID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.buildings.Create(ctx, cfg); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, apperrors.Conflict(apperrors.CodeBuildingExists,
				"building name or code already registered")
		}
		return nil, fmt.Errorf("create building %q: %w", name, err)
	}
	return cfg, nil
}

// Get loads an active building by name.
func (s *BuildingRegistry) Get(ctx context.Context, name string) (*domain.BuildingConfig, error) {
	cfg, err := s.buildings.GetByName(ctx, name)
	if err != nil {
		if repository.IsNoRows(err) {
			return nil, apperrors.ErrBuildingNotFound(name)
		}
		return nil, fmt.Errorf("load building %q: %w", name, err)
	}
	return cfg, nil
}

// List returns all registered buildings.
func (s *BuildingRegistry) List(ctx context.Context) ([]*domain.BuildingConfig, error) {
	return s.buildings.List(ctx)
}

// UpdateBuildingInput carries the mutable building fields. Nil means leave
// unchanged. The sequence counter is deliberately not updatable here.
type UpdateBuildingInput struct {
	DisplayName   *string `json:"display_name"`
	AllowCustomID *bool   `json:"allow_custom_id"`
	IsActive      *bool   `json:"is_active"`
}

// Update modifies a building's display and policy fields.
func (s *BuildingRegistry) Update(ctx context.Context, name string, in UpdateBuildingInput) (*domain.BuildingConfig, error) {
	cfg, err := s.buildings.GetByName(ctx, name)
	if err != nil {
		if repository.IsNoRows(err) {
			return nil, apperrors.ErrBuildingNotFound(name)
		}
		return nil, fmt.Errorf("load building %q: %w", name, err)
	}

	if in.DisplayName != nil {
		cfg.DisplayName = *in.DisplayName
	}
	if in.AllowCustomID != nil {
		cfg.AllowCustomID = *in.AllowCustomID
	}
	if in.IsActive != nil {
		cfg.IsActive = *in.IsActive
	}

	if err := s.buildings.Update(ctx, cfg); err != nil {
		return nil, fmt.Errorf("update building %q: %w", name, err)
	}
	return cfg, nil
}
