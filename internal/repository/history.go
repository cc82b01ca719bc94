package repository

import (
	"context"

	"fixflow.io/fixflow/internal/domain"
)

// HistoryRepo persists the append-only status and assignment audit trails.
// There are intentionally no update or delete methods.
type HistoryRepo struct {
	db DB
}

// NewHistoryRepo creates a history repository on the given executor.
func NewHistoryRepo(db DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

// WithTx returns a copy bound to the transaction.
func (r *HistoryRepo) WithTx(tx DB) *HistoryRepo {
	return &HistoryRepo{db: tx}
}

// InsertStatus appends one status-history row.
func (r *HistoryRepo) InsertStatus(ctx context.Context, h *domain.StatusHistory) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO request_status_history (
			id, request_id, from_status, to_status, reason, changed_by_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		h.ID, h.RequestID, h.FromStatus, h.ToStatus, h.Reason, h.ChangedByID, h.CreatedAt,
	)
	return err
}

// InsertAssignment appends one assignment-history row.
func (r *HistoryRepo) InsertAssignment(ctx context.Context, h *domain.AssignmentHistory) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO request_assignment_history (
			id, request_id, from_technician_id, to_technician_id,
			assignment_type, reason, assigned_by_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		h.ID, h.RequestID, h.FromTechnicianID, h.ToTechnicianID,
		h.Type, h.Reason, h.AssignedByID, h.CreatedAt,
	)
	return err
}

// ListStatusByRequest returns the status trail oldest first.
func (r *HistoryRepo) ListStatusByRequest(ctx context.Context, requestID string) ([]*domain.StatusHistory, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, request_id, from_status, to_status, reason, changed_by_id, created_at
		FROM request_status_history
		WHERE request_id = $1
		ORDER BY created_at, id`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.StatusHistory
	for rows.Next() {
		var h domain.StatusHistory
		if err := rows.Scan(&h.ID, &h.RequestID, &h.FromStatus, &h.ToStatus,
			&h.Reason, &h.ChangedByID, &h.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &h)
	}
	return out, rows.Err()
}

// ListAssignmentByRequest returns the assignment trail oldest first.
func (r *HistoryRepo) ListAssignmentByRequest(ctx context.Context, requestID string) ([]*domain.AssignmentHistory, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, request_id, from_technician_id, to_technician_id,
		       assignment_type, reason, assigned_by_id, created_at
		FROM request_assignment_history
		WHERE request_id = $1
		ORDER BY created_at, id`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.AssignmentHistory
	for rows.Next() {
		var h domain.AssignmentHistory
		if err := rows.Scan(&h.ID, &h.RequestID, &h.FromTechnicianID, &h.ToTechnicianID,
			&h.Type, &h.Reason, &h.AssignedByID, &h.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &h)
	}
	return out, rows.Err()
}
