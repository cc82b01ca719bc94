// Package service implements the lifecycle core: identifier allocation and
// building registry management.
package service

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	"fixflow.io/fixflow/internal/domain"
	apperrors "fixflow.io/fixflow/internal/pkg/errors"
	"fixflow.io/fixflow/internal/repository"
)

// customIdentifierPattern is the accepted shape of admin-supplied identifiers.
var customIdentifierPattern = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

// ValidateCustomIdentifier checks the literal form of an admin-supplied
// identifier: 3-20 characters, letters, digits and dashes.
func ValidateCustomIdentifier(s string) *apperrors.AppError {
	if len(s) < 3 || len(s) > 20 {
		return apperrors.ErrInvalidField("custom_identifier",
			"custom identifier must be 3-20 characters")
	}
	if !customIdentifierPattern.MatchString(s) {
		return apperrors.ErrInvalidField("custom_identifier",
			"custom identifier may contain only letters, digits and dashes")
	}
	return nil
}

// FormatIdentifier renders the generated identifier form {yy}-{CODE}-{seq:03d}.
func FormatIdentifier(year int, buildingCode string, sequence int) string {
	return fmt.Sprintf("%02d-%s-%03d", year%100, buildingCode, sequence)
}

// IdentifierAllocator mints unique, human-readable request identifiers from
// per-building sequence counters.
//
// Allocate and AllocateCustom must run inside the caller's transaction: the
// counter read, increment and identifier insert have to commit or fail as one
// unit, with the unique constraint on request_identifiers.identifier as the
// final arbiter against races.
type IdentifierAllocator struct {
	buildings   *repository.BuildingRepo
	identifiers *repository.IdentifierRepo
}

// NewIdentifierAllocator creates an allocator over the given repositories.
func NewIdentifierAllocator(buildings *repository.BuildingRepo, identifiers *repository.IdentifierRepo) *IdentifierAllocator {
	return &IdentifierAllocator{buildings: buildings, identifiers: identifiers}
}

// WithTx returns a copy whose repositories are bound to the transaction.
func (a *IdentifierAllocator) WithTx(tx repository.DB) *IdentifierAllocator {
	return &IdentifierAllocator{
		buildings:   a.buildings.WithTx(tx),
		identifiers: a.identifiers.WithTx(tx),
	}
}

// Allocate reserves the next sequence number for the building and year and
// inserts the identifier row. The building row is locked for the duration of
// the transaction, so concurrent allocations for the same building serialise
// and can never observe the same pre-increment counter value.
//
// A lastResetYear different from year resets the counter to zero in the same
// atomic step, implementing the year rollover.
func (a *IdentifierAllocator) Allocate(ctx context.Context, building string, year int, creatorID string) (*domain.RequestIdentifier, error) {
	cfg, err := a.buildings.GetByNameForUpdate(ctx, building)
	if err != nil {
		if repository.IsNoRows(err) {
			return nil, apperrors.ErrBuildingNotFound(building)
		}
		return nil, fmt.Errorf("load building config %q: %w", building, err)
	}

	seq := cfg.CurrentSequence
	if cfg.LastResetYear != year {
		seq = 0
	}
	seq++

	// A custom identifier may already occupy the next generated slot. Probe
	// past reservations so the committed counter lands beyond them; otherwise
	// the building would re-collide on every subsequent allocation.
	identifier, seq, err := a.nextFreeSlot(ctx, cfg.BuildingCode, year, seq)
	if err != nil {
		return nil, err
	}
	ri := &domain.RequestIdentifier{
		ID:         newID(),
		Identifier: identifier,
		Building:   building,
		Year:       year,
		Sequence:   seq,
		IsActive:   true,
		CreatedBy:  creatorID,
		CreatedAt:  time.Now().UTC(),
	}

	if err := a.identifiers.Insert(ctx, ri); err != nil {
		if repository.IsUniqueViolation(err) {
			// A custom identifier committed between the probe and this
			// insert. Customs do not take the building lock, so this race
			// stays possible; the caller retries on a fresh transaction and
			// the probe then sees the committed row.
			return nil, apperrors.ErrIdentifierConflict(identifier)
		}
		return nil, fmt.Errorf("insert identifier %q: %w", identifier, err)
	}

	if err := a.buildings.SetSequence(ctx, cfg.ID, seq, year); err != nil {
		return nil, fmt.Errorf("advance sequence for building %q: %w", building, err)
	}

	return ri, nil
}

// nextFreeSlot returns the first unreserved generated identifier at or after
// seq. Deactivated identifiers stay reserved, so they are skipped too.
func (a *IdentifierAllocator) nextFreeSlot(ctx context.Context, buildingCode string, year, seq int) (string, int, error) {
	for {
		identifier := FormatIdentifier(year, buildingCode, seq)
		_, err := a.identifiers.GetByIdentifier(ctx, identifier)
		if repository.IsNoRows(err) {
			return identifier, seq, nil
		}
		if err != nil {
			return "", 0, fmt.Errorf("probe identifier %q: %w", identifier, err)
		}
		seq++
	}
}

// AllocateCustom reserves an admin-supplied identifier, bypassing the
// counter. The building must opt in via allow_custom_id. The identifier row
// is still inserted so the custom string is reserved and visible in history,
// and still subject to the global uniqueness constraint.
func (a *IdentifierAllocator) AllocateCustom(ctx context.Context, building, pattern, creatorID string) (*domain.RequestIdentifier, error) {
	if appErr := ValidateCustomIdentifier(pattern); appErr != nil {
		return nil, appErr
	}

	cfg, err := a.buildings.GetByName(ctx, building)
	if err != nil {
		if repository.IsNoRows(err) {
			return nil, apperrors.ErrBuildingNotFound(building)
		}
		return nil, fmt.Errorf("load building config %q: %w", building, err)
	}
	if !cfg.AllowCustomID {
		return nil, apperrors.Forbidden(apperrors.CodeCustomIDNotAllowed,
			"building does not allow custom identifiers").
			WithParams(map[string]interface{}{"building": building})
	}

	now := time.Now().UTC()
	ri := &domain.RequestIdentifier{
		ID:            newID(),
		Identifier:    pattern,
		Building:      building,
		Year:          now.Year(),
		Sequence:      0, // custom identifiers do not consume the counter
		IsActive:      true,
		CustomPattern: &pattern,
		CreatedBy:     creatorID,
		CreatedAt:     now,
	}

	if err := a.identifiers.Insert(ctx, ri); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, apperrors.ErrIdentifierConflict(pattern)
		}
		return nil, fmt.Errorf("insert custom identifier %q: %w", pattern, err)
	}

	return ri, nil
}

// Deactivate retires an identifier when its request is deleted. The row is
// kept so the string stays reserved.
func (a *IdentifierAllocator) Deactivate(ctx context.Context, identifier string) error {
	return a.identifiers.Deactivate(ctx, identifier)
}

// newID mints a UUIDv7, falling back to v4 if the clock source misbehaves.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
