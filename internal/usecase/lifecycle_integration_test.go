package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fixflow.io/fixflow/internal/domain"
	"fixflow.io/fixflow/internal/jobs"
	apperrors "fixflow.io/fixflow/internal/pkg/errors"
	"fixflow.io/fixflow/internal/pkg/logger"
	"fixflow.io/fixflow/internal/repository"
	"fixflow.io/fixflow/internal/service"
	"fixflow.io/fixflow/internal/testutil"
	"fixflow.io/fixflow/internal/usecase"
)

func init() {
	_ = logger.Init("error", "json")
}

type fixture struct {
	pool      *pgxpool.Pool
	lifecycle *usecase.Lifecycle
	requests  *repository.RequestRepo
	history   *repository.HistoryRepo
	events    *repository.EventRepo

	admin    domain.Actor
	tech     domain.Actor
	tech2    domain.Actor
	customer domain.Actor
}

func newFixture(t *testing.T, prefix string) *fixture {
	t.Helper()

	pool := testutil.OpenPGXPool(t, prefix)
	testutil.SeedBuilding(t, pool, "ABRAJ1", "ABRAJ1", true)

	admin := testutil.SeedUser(t, pool, "admin", domain.RoleAdmin)
	tech := testutil.SeedUser(t, pool, "tech1", domain.RoleTechnician)
	tech2 := testutil.SeedUser(t, pool, "tech2", domain.RoleTechnician)
	customer := testutil.SeedUser(t, pool, "cust1", domain.RoleCustomer)

	requests := repository.NewRequestRepo(pool)
	history := repository.NewHistoryRepo(pool)
	events := repository.NewEventRepo(pool)
	allocator := service.NewIdentifierAllocator(
		repository.NewBuildingRepo(pool),
		repository.NewIdentifierRepo(pool),
	)

	// No dispatcher or pools: integration tests assert persisted state, not
	// best-effort fan-out.
	lifecycle := usecase.NewLifecycle(
		pool, allocator, requests, history,
		repository.NewUserRepo(pool), events, nil, nil,
	)

	return &fixture{
		pool:      pool,
		lifecycle: lifecycle,
		requests:  requests,
		history:   history,
		events:    events,
		admin:     domain.Actor{ID: admin.ID, Role: domain.RoleAdmin},
		tech:      domain.Actor{ID: tech.ID, Role: domain.RoleTechnician},
		tech2:     domain.Actor{ID: tech2.ID, Role: domain.RoleTechnician},
		customer:  domain.Actor{ID: customer.ID, Role: domain.RoleCustomer},
	}
}

func (f *fixture) createRequest(t *testing.T, actor domain.Actor) *domain.MaintenanceRequest {
	t.Helper()

	req, err := f.lifecycle.CreateRequest(context.Background(), usecase.CreateRequestInput{
		Title:    "Broken AC",
		Building: "ABRAJ1",
		Priority: domain.PriorityHigh,
	}, actor)
	require.NoError(t, err)
	return req
}

func TestCreateRequest(t *testing.T) {
	f := newFixture(t, "uc-create")
	ctx := context.Background()

	req := f.createRequest(t, f.customer)

	assert.Equal(t, domain.StatusSubmitted, req.Status)
	assert.Equal(t, f.customer.ID, req.RequestedByID)
	year := time.Now().UTC().Year()
	assert.Equal(t, service.FormatIdentifier(year, "ABRAJ1", 1), req.Identifier)

	// Creation writes exactly one history row with nil fromStatus.
	rows, err := f.history.ListStatusByRequest(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].FromStatus)
	assert.Equal(t, domain.StatusSubmitted, rows[0].ToStatus)
	assert.Equal(t, f.customer.ID, rows[0].ChangedByID)

	events, err := f.events.ListByAggregate(ctx, domain.AggregateRequest, req.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventRequestCreated, events[0].EventType)
}

func TestCreateRequest_CustomIdentifier(t *testing.T) {
	f := newFixture(t, "uc-create-custom")
	ctx := context.Background()

	t.Run("admin with opted-in building", func(t *testing.T) {
		req, err := f.lifecycle.CreateRequest(ctx, usecase.CreateRequestInput{
			Title:            "Elevator outage",
			Building:         "ABRAJ1",
			CustomIdentifier: "ELEV-9",
		}, f.admin)
		require.NoError(t, err)
		assert.Equal(t, "ELEV-9", req.Identifier)
		require.NotNil(t, req.CustomIdentifier)
		assert.Equal(t, "ELEV-9", *req.CustomIdentifier)
	})

	t.Run("non-admin rejected", func(t *testing.T) {
		_, err := f.lifecycle.CreateRequest(ctx, usecase.CreateRequestInput{
			Title:            "Door jam",
			Building:         "ABRAJ1",
			CustomIdentifier: "DOOR-1",
		}, f.customer)
		appErr, ok := apperrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.CodeForbidden, appErr.Code)
	})

	t.Run("duplicate custom identifier conflicts without retry", func(t *testing.T) {
		_, err := f.lifecycle.CreateRequest(ctx, usecase.CreateRequestInput{
			Title:            "Another elevator outage",
			Building:         "ABRAJ1",
			CustomIdentifier: "ELEV-9",
		}, f.admin)
		appErr, ok := apperrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.CodeIdentifierConflict, appErr.Code)
	})
}

func TestUpdateStatus_FullLifecycle(t *testing.T) {
	f := newFixture(t, "uc-lifecycle")
	ctx := context.Background()

	req := f.createRequest(t, f.customer)

	// SUBMITTED -> ASSIGNED via assignment, not direct status write.
	_, err := f.lifecycle.UpdateStatus(ctx, req.ID, domain.StatusAssigned, "", f.admin)
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeInvalidTransition, appErr.Code)

	_, err = f.lifecycle.Assign(ctx, req.ID, f.tech.ID, "dispatch", f.admin)
	require.NoError(t, err)

	updated, err := f.lifecycle.UpdateStatus(ctx, req.ID, domain.StatusInProgress, "starting work", f.tech)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, updated.Status)

	updated, err = f.lifecycle.UpdateStatus(ctx, req.ID, domain.StatusCompleted, "fixed", f.tech)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, updated.Status)
	require.NotNil(t, updated.CompletedDate, "completion must stamp the completed date")

	updated, err = f.lifecycle.UpdateStatus(ctx, req.ID, domain.StatusClosed, "works again", f.customer)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusClosed, updated.Status)

	// History: creation + assigned + in_progress + completed + closed.
	rows, err := f.history.ListStatusByRequest(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, domain.StatusClosed, rows[4].ToStatus)
	require.NotNil(t, rows[4].FromStatus)
	assert.Equal(t, domain.StatusCompleted, *rows[4].FromStatus)

	// Terminal: any further transition is rejected as closed.
	_, err = f.lifecycle.UpdateStatus(ctx, req.ID, domain.StatusInProgress, "", f.admin)
	appErr, ok = apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeRequestClosed, appErr.Code)
}

func TestUpdateStatus_ActorGating(t *testing.T) {
	f := newFixture(t, "uc-gating")
	ctx := context.Background()

	req := f.createRequest(t, f.customer)
	_, err := f.lifecycle.Assign(ctx, req.ID, f.tech.ID, "", f.admin)
	require.NoError(t, err)

	// A technician who is not the assignee cannot drive the transition.
	_, err = f.lifecycle.UpdateStatus(ctx, req.ID, domain.StatusInProgress, "", f.tech2)
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeForbidden, appErr.Code)

	// Customer rejection of completed work reopens via admin only.
	_, err = f.lifecycle.UpdateStatus(ctx, req.ID, domain.StatusInProgress, "", f.tech)
	require.NoError(t, err)
	_, err = f.lifecycle.UpdateStatus(ctx, req.ID, domain.StatusCompleted, "", f.tech)
	require.NoError(t, err)
	_, err = f.lifecycle.UpdateStatus(ctx, req.ID, domain.StatusCustomerRejected, "not fixed", f.customer)
	require.NoError(t, err)

	_, err = f.lifecycle.UpdateStatus(ctx, req.ID, domain.StatusInProgress, "", f.tech)
	appErr, ok = apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeForbidden, appErr.Code)

	_, err = f.lifecycle.UpdateStatus(ctx, req.ID, domain.StatusInProgress, "rework", f.admin)
	require.NoError(t, err)
}

func TestAssignment(t *testing.T) {
	f := newFixture(t, "uc-assign")
	ctx := context.Background()

	req := f.createRequest(t, f.customer)

	t.Run("initial assignment drives status", func(t *testing.T) {
		updated, err := f.lifecycle.Assign(ctx, req.ID, f.tech.ID, "dispatch", f.admin)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusAssigned, updated.Status)
		require.NotNil(t, updated.AssignedToID)
		assert.Equal(t, f.tech.ID, *updated.AssignedToID)

		rows, err := f.history.ListAssignmentByRequest(ctx, req.ID)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, domain.AssignmentInitial, rows[0].Type)
		assert.Nil(t, rows[0].FromTechnicianID)
	})

	t.Run("reassignment keeps status", func(t *testing.T) {
		updated, err := f.lifecycle.Assign(ctx, req.ID, f.tech2.ID, "rebalance", f.admin)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusAssigned, updated.Status)
		assert.Equal(t, f.tech2.ID, *updated.AssignedToID)

		rows, err := f.history.ListAssignmentByRequest(ctx, req.ID)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, domain.AssignmentReassign, rows[1].Type)
		require.NotNil(t, rows[1].FromTechnicianID)
		assert.Equal(t, f.tech.ID, *rows[1].FromTechnicianID)

		// Reassignment writes no extra status-history row.
		statusRows, err := f.history.ListStatusByRequest(ctx, req.ID)
		require.NoError(t, err)
		assert.Len(t, statusRows, 2) // creation + initial assignment
	})

	t.Run("assigning the current assignee conflicts", func(t *testing.T) {
		_, err := f.lifecycle.Assign(ctx, req.ID, f.tech2.ID, "", f.admin)
		appErr, ok := apperrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.CodeAlreadyAssigned, appErr.Code)
	})

	t.Run("non-admin cannot assign", func(t *testing.T) {
		_, err := f.lifecycle.Assign(ctx, req.ID, f.tech.ID, "", f.tech)
		appErr, ok := apperrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.CodeForbidden, appErr.Code)
	})

	t.Run("customer is not a valid assignee", func(t *testing.T) {
		_, err := f.lifecycle.Assign(ctx, req.ID, f.customer.ID, "", f.admin)
		appErr, ok := apperrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.CodeInvalidTechnician, appErr.Code)
	})

	t.Run("unassign returns to submitted", func(t *testing.T) {
		updated, err := f.lifecycle.Unassign(ctx, req.ID, "vacation", f.admin)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusSubmitted, updated.Status)
		assert.Nil(t, updated.AssignedToID)

		rows, err := f.history.ListAssignmentByRequest(ctx, req.ID)
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, domain.AssignmentUnassign, rows[2].Type)
		assert.Nil(t, rows[2].ToTechnicianID)
	})
}

func TestSelfAssign(t *testing.T) {
	f := newFixture(t, "uc-selfassign")
	ctx := context.Background()

	req := f.createRequest(t, f.customer)

	updated, err := f.lifecycle.SelfAssign(ctx, req.ID, "taking it", f.tech)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAssigned, updated.Status)
	require.NotNil(t, updated.AssignedToID)
	assert.Equal(t, f.tech.ID, *updated.AssignedToID)
	require.NotNil(t, updated.AssignedByID)
	assert.Equal(t, f.tech.ID, *updated.AssignedByID, "self-assignment records the technician as assigner")

	rows, err := f.history.ListAssignmentByRequest(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, domain.AssignmentSelf, rows[0].Type)

	// A second technician cannot claim an assigned request.
	_, err = f.lifecycle.SelfAssign(ctx, req.ID, "", f.tech2)
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeAlreadyAssigned, appErr.Code)

	// Customers cannot self-assign at all.
	_, err = f.lifecycle.SelfAssign(ctx, req.ID, "", f.customer)
	appErr, ok = apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeForbidden, appErr.Code)
}

func TestListRequests_CustomerScoping(t *testing.T) {
	f := newFixture(t, "uc-listing")
	ctx := context.Background()

	mine := f.createRequest(t, f.customer)
	other := testutil.SeedUser(t, f.pool, "cust2", domain.RoleCustomer)
	otherActor := domain.Actor{ID: other.ID, Role: domain.RoleCustomer}
	theirs := f.createRequest(t, otherActor)

	page, err := f.lifecycle.ListRequests(ctx, repository.Filter{}, f.customer)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, mine.ID, page.Items[0].ID)

	// Customers cannot widen the filter to someone else's requests.
	page, err = f.lifecycle.ListRequests(ctx, repository.Filter{RequestedByID: other.ID}, f.customer)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, mine.ID, page.Items[0].ID)

	// Admins see everything.
	page, err = f.lifecycle.ListRequests(ctx, repository.Filter{}, f.admin)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)

	// Customers cannot read someone else's request directly either.
	_, err = f.lifecycle.GetRequest(ctx, theirs.ID, f.customer)
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeForbidden, appErr.Code)
}

func TestAutoCloseSweep(t *testing.T) {
	f := newFixture(t, "uc-autoclose")
	ctx := context.Background()

	complete := func() *domain.MaintenanceRequest {
		req := f.createRequest(t, f.customer)
		_, err := f.lifecycle.Assign(ctx, req.ID, f.tech.ID, "", f.admin)
		require.NoError(t, err)
		_, err = f.lifecycle.UpdateStatus(ctx, req.ID, domain.StatusInProgress, "", f.tech)
		require.NoError(t, err)
		_, err = f.lifecycle.UpdateStatus(ctx, req.ID, domain.StatusCompleted, "", f.tech)
		require.NoError(t, err)
		return req
	}

	stale := complete()
	fresh := complete()

	// Backdate the stale request beyond the cutoff.
	_, err := f.pool.Exec(ctx,
		`UPDATE maintenance_requests SET completed_date = $1 WHERE id = $2`,
		time.Now().UTC().AddDate(0, 0, -5), stale.ID)
	require.NoError(t, err)

	w := jobs.NewAutoCloseWorker(f.lifecycle, f.requests, 3)
	require.NoError(t, w.Work(ctx, nil))

	got, err := f.lifecycle.GetRequest(ctx, stale.ID, f.admin)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusClosed, got.Status)

	got, err = f.lifecycle.GetRequest(ctx, fresh.ID, f.admin)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status, "recently completed requests stay open")

	// The sweep closes through the normal transition path: the history row
	// must credit the system actor.
	rows, err := f.history.ListStatusByRequest(ctx, stale.ID)
	require.NoError(t, err)
	last := rows[len(rows)-1]
	assert.Equal(t, domain.StatusClosed, last.ToStatus)
	assert.Equal(t, domain.SystemActorID, last.ChangedByID)
}
