package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fixflow.io/fixflow/internal/domain"
)

// RequestRepo persists maintenance requests.
type RequestRepo struct {
	db DB
}

// NewRequestRepo creates a request repository on the given executor.
func NewRequestRepo(db DB) *RequestRepo {
	return &RequestRepo{db: db}
}

// WithTx returns a copy bound to the transaction.
func (r *RequestRepo) WithTx(tx DB) *RequestRepo {
	return &RequestRepo{db: tx}
}

const requestColumns = `
	id, identifier, title, description, priority, status, category_id,
	location, building, specific_location, requested_by_id, assigned_to_id,
	assigned_by_id, custom_identifier, estimated_cost, actual_cost,
	scheduled_date, completed_date, created_at, updated_at`

func scanRequest(row interface{ Scan(dest ...any) error }) (*domain.MaintenanceRequest, error) {
	var m domain.MaintenanceRequest
	err := row.Scan(
		&m.ID, &m.Identifier, &m.Title, &m.Description, &m.Priority, &m.Status,
		&m.CategoryID, &m.Location, &m.Building, &m.SpecificLocation,
		&m.RequestedByID, &m.AssignedToID, &m.AssignedByID, &m.CustomIdentifier,
		&m.EstimatedCost, &m.ActualCost, &m.ScheduledDate, &m.CompletedDate,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Insert stores a new request.
func (r *RequestRepo) Insert(ctx context.Context, m *domain.MaintenanceRequest) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO maintenance_requests (
			id, identifier, title, description, priority, status, category_id,
			location, building, specific_location, requested_by_id, assigned_to_id,
			assigned_by_id, custom_identifier, estimated_cost, actual_cost,
			scheduled_date, completed_date, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20
		)`,
		m.ID, m.Identifier, m.Title, m.Description, m.Priority, m.Status,
		m.CategoryID, m.Location, m.Building, m.SpecificLocation,
		m.RequestedByID, m.AssignedToID, m.AssignedByID, m.CustomIdentifier,
		m.EstimatedCost, m.ActualCost, m.ScheduledDate, m.CompletedDate,
		m.CreatedAt, m.UpdatedAt,
	)
	return err
}

// GetByID loads one request.
func (r *RequestRepo) GetByID(ctx context.Context, id string) (*domain.MaintenanceRequest, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+requestColumns+`
		FROM maintenance_requests WHERE id = $1`, id)
	return scanRequest(row)
}

// GetByIDForUpdate loads one request and takes a row lock so concurrent
// transition attempts on the same request serialise. Must be called inside a
// transaction.
func (r *RequestRepo) GetByIDForUpdate(ctx context.Context, id string) (*domain.MaintenanceRequest, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+requestColumns+`
		FROM maintenance_requests WHERE id = $1
		FOR UPDATE`, id)
	return scanRequest(row)
}

// UpdateStatus writes the new status and, when non-nil, the completed date.
func (r *RequestRepo) UpdateStatus(ctx context.Context, id string, status domain.Status, completedDate *time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE maintenance_requests
		SET status = $2,
		    completed_date = COALESCE($3, completed_date),
		    updated_at = now()
		WHERE id = $1`,
		id, status, completedDate,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("request %s not found", id)
	}
	return nil
}

// UpdateAssignment writes the assignment pair and status in one statement.
// assignedTo and assignedBy are nil on unassignment.
func (r *RequestRepo) UpdateAssignment(ctx context.Context, id string, assignedTo, assignedBy *string, status domain.Status) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE maintenance_requests
		SET assigned_to_id = $2, assigned_by_id = $3, status = $4, updated_at = now()
		WHERE id = $1`,
		id, assignedTo, assignedBy, status,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("request %s not found", id)
	}
	return nil
}

// ListAutoCloseCandidates returns ids of COMPLETED requests whose completed
// date is older than the cutoff, oldest first. Capped so a single sweep run
// stays bounded.
func (r *RequestRepo) ListAutoCloseCandidates(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id FROM maintenance_requests
		WHERE status = $1 AND completed_date IS NOT NULL AND completed_date < $2
		ORDER BY completed_date
		LIMIT $3`,
		domain.StatusCompleted, cutoff, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Filter carries the ListRequests predicates. Zero values mean "no filter".
type Filter struct {
	Status        domain.Status
	Priority      domain.Priority
	CategoryID    string
	Building      string
	RequestedByID string
	AssignedToID  string
	Search        string
	CreatedFrom   *time.Time
	CreatedTo     *time.Time

	SortBy   string
	SortDesc bool
	Page     int
	PerPage  int
}

// sortColumns whitelists caller-chosen sort fields.
var sortColumns = map[string]string{
	"created_at":     "created_at",
	"updated_at":     "updated_at",
	"priority":       "priority",
	"status":         "status",
	"title":          "title",
	"building":       "building",
	"scheduled_date": "scheduled_date",
	"completed_date": "completed_date",
}

func (f Filter) normalize() Filter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 || f.PerPage > 100 {
		f.PerPage = 20
	}
	if _, ok := sortColumns[f.SortBy]; !ok {
		f.SortBy = "created_at"
		f.SortDesc = true
	}
	return f
}

func (f Filter) where() (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, val any) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.Priority != "" {
		add("priority = $%d", f.Priority)
	}
	if f.CategoryID != "" {
		add("category_id = $%d", f.CategoryID)
	}
	if f.Building != "" {
		add("building = $%d", f.Building)
	}
	if f.RequestedByID != "" {
		add("requested_by_id = $%d", f.RequestedByID)
	}
	if f.AssignedToID != "" {
		add("assigned_to_id = $%d", f.AssignedToID)
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			"(title ILIKE $%d OR description ILIKE $%d OR location ILIKE $%d)", n, n, n))
	}
	if f.CreatedFrom != nil {
		add("created_at >= $%d", *f.CreatedFrom)
	}
	if f.CreatedTo != nil {
		add("created_at <= $%d", *f.CreatedTo)
	}

	if len(conds) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

// Page is one page of list results.
type Page struct {
	Items      []*domain.MaintenanceRequest `json:"items"`
	Total      int                          `json:"total"`
	PageNum    int                          `json:"page"`
	PerPage    int                          `json:"per_page"`
	TotalPages int                          `json:"total_pages"`
}

// List returns requests matching the filter, sorted with a deterministic id
// tie-break so pagination is stable under equal sort keys.
func (r *RequestRepo) List(ctx context.Context, f Filter) (*Page, error) {
	f = f.normalize()
	where, args := f.where()

	var total int
	countQ := "SELECT COUNT(*) FROM maintenance_requests " + where
	if err := r.db.QueryRow(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, err
	}

	dir := "ASC"
	if f.SortDesc {
		dir = "DESC"
	}
	offset := (f.Page - 1) * f.PerPage
	q := fmt.Sprintf(`
		SELECT %s FROM maintenance_requests %s
		ORDER BY %s %s, id %s
		LIMIT %d OFFSET %d`,
		requestColumns, where, sortColumns[f.SortBy], dir, dir, f.PerPage, offset,
	)

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []*domain.MaintenanceRequest{}
	for rows.Next() {
		m, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	totalPages := (total + f.PerPage - 1) / f.PerPage
	return &Page{
		Items:      items,
		Total:      total,
		PageNum:    f.Page,
		PerPage:    f.PerPage,
		TotalPages: totalPages,
	}, nil
}

// Delete removes a request; history rows cascade with it.
func (r *RequestRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM maintenance_requests WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("request %s not found", id)
	}
	return nil
}
