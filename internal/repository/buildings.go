package repository

import (
	"context"
	"fmt"
	"time"

	"fixflow.io/fixflow/internal/domain"
)

// BuildingRepo persists building configurations. The sequence counter is only
// ever written through the allocator's transactional path.
type BuildingRepo struct {
	db DB
}

// NewBuildingRepo creates a building repository on the given executor.
func NewBuildingRepo(db DB) *BuildingRepo {
	return &BuildingRepo{db: db}
}

// WithTx returns a copy bound to the transaction.
func (r *BuildingRepo) WithTx(tx DB) *BuildingRepo {
	return &BuildingRepo{db: tx}
}

const buildingColumns = `
	id, building_name, building_code, display_name, current_sequence,
	last_reset_year, allow_custom_id, is_active, created_by, created_at, updated_at`

func scanBuilding(row interface{ Scan(dest ...any) error }) (*domain.BuildingConfig, error) {
	var b domain.BuildingConfig
	err := row.Scan(
		&b.ID, &b.BuildingName, &b.BuildingCode, &b.DisplayName, &b.CurrentSequence,
		&b.LastResetYear, &b.AllowCustomID, &b.IsActive, &b.CreatedBy, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Create inserts a new building configuration.
func (r *BuildingRepo) Create(ctx context.Context, b *domain.BuildingConfig) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO building_configs (
			id, building_name, building_code, display_name, current_sequence,
			last_reset_year, allow_custom_id, is_active, created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`,
		b.ID, b.BuildingName, b.BuildingCode, b.DisplayName, b.CurrentSequence,
		b.LastResetYear, b.AllowCustomID, b.IsActive, b.CreatedBy, b.CreatedAt,
	)
	return err
}

// GetByName loads an active building configuration by name.
func (r *BuildingRepo) GetByName(ctx context.Context, name string) (*domain.BuildingConfig, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+buildingColumns+`
		FROM building_configs
		WHERE building_name = $1 AND is_active`, name)
	return scanBuilding(row)
}

// GetByNameForUpdate loads an active building configuration and takes a row
// lock, serialising concurrent allocations for the same building. Must be
// called inside a transaction.
func (r *BuildingRepo) GetByNameForUpdate(ctx context.Context, name string) (*domain.BuildingConfig, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+buildingColumns+`
		FROM building_configs
		WHERE building_name = $1 AND is_active
		FOR UPDATE`, name)
	return scanBuilding(row)
}

// SetSequence writes the counter and reset year after an allocation step.
func (r *BuildingRepo) SetSequence(ctx context.Context, id string, sequence, lastResetYear int) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE building_configs
		SET current_sequence = $2, last_reset_year = $3, updated_at = now()
		WHERE id = $1`,
		id, sequence, lastResetYear,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("building config %s not found", id)
	}
	return nil
}

// List returns all building configurations, active first, by name.
func (r *BuildingRepo) List(ctx context.Context) ([]*domain.BuildingConfig, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+buildingColumns+`
		FROM building_configs
		ORDER BY is_active DESC, building_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.BuildingConfig
	for rows.Next() {
		b, err := scanBuilding(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Update modifies the mutable non-counter fields of a building.
func (r *BuildingRepo) Update(ctx context.Context, b *domain.BuildingConfig) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE building_configs
		SET display_name = $2, allow_custom_id = $3, is_active = $4, updated_at = $5
		WHERE id = $1`,
		b.ID, b.DisplayName, b.AllowCustomID, b.IsActive, time.Now().UTC(),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("building config %s not found", b.ID)
	}
	return nil
}
