package repository

import (
	"context"

	"fixflow.io/fixflow/internal/domain"
)

// IdentifierRepo persists minted request identifiers. Rows are immutable
// after insert except is_active.
type IdentifierRepo struct {
	db DB
}

// NewIdentifierRepo creates an identifier repository on the given executor.
func NewIdentifierRepo(db DB) *IdentifierRepo {
	return &IdentifierRepo{db: db}
}

// WithTx returns a copy bound to the transaction.
func (r *IdentifierRepo) WithTx(tx DB) *IdentifierRepo {
	return &IdentifierRepo{db: tx}
}

const identifierColumns = `
	id, identifier, building, year, sequence, is_active,
	custom_pattern, custom_sequence, created_by, created_at`

// Insert reserves one identifier. A unique violation here means the literal
// identifier string is already taken; callers surface it as a conflict.
func (r *IdentifierRepo) Insert(ctx context.Context, ri *domain.RequestIdentifier) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO request_identifiers (
			id, identifier, building, year, sequence, is_active,
			custom_pattern, custom_sequence, created_by, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		ri.ID, ri.Identifier, ri.Building, ri.Year, ri.Sequence, ri.IsActive,
		ri.CustomPattern, ri.CustomSequence, ri.CreatedBy, ri.CreatedAt,
	)
	return err
}

// GetByIdentifier loads one identifier row by its literal string.
func (r *IdentifierRepo) GetByIdentifier(ctx context.Context, identifier string) (*domain.RequestIdentifier, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+identifierColumns+`
		FROM request_identifiers
		WHERE identifier = $1`, identifier)

	var ri domain.RequestIdentifier
	err := row.Scan(
		&ri.ID, &ri.Identifier, &ri.Building, &ri.Year, &ri.Sequence, &ri.IsActive,
		&ri.CustomPattern, &ri.CustomSequence, &ri.CreatedBy, &ri.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ri, nil
}

// ListByBuilding returns the identifiers minted for a building in a year,
// newest first.
func (r *IdentifierRepo) ListByBuilding(ctx context.Context, building string, year int) ([]*domain.RequestIdentifier, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+identifierColumns+`
		FROM request_identifiers
		WHERE building = $1 AND year = $2
		ORDER BY sequence DESC, created_at DESC`, building, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.RequestIdentifier
	for rows.Next() {
		var ri domain.RequestIdentifier
		if err := rows.Scan(
			&ri.ID, &ri.Identifier, &ri.Building, &ri.Year, &ri.Sequence, &ri.IsActive,
			&ri.CustomPattern, &ri.CustomSequence, &ri.CreatedBy, &ri.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, &ri)
	}
	return out, rows.Err()
}

// Deactivate marks an identifier inactive; the row itself stays for history.
func (r *IdentifierRepo) Deactivate(ctx context.Context, identifier string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE request_identifiers SET is_active = FALSE WHERE identifier = $1`, identifier)
	return err
}
