package domain

import (
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "fixflow.io/fixflow/internal/pkg/errors"
)

func strptr(s string) *string { return &s }

func newRequest(status Status) *MaintenanceRequest {
	return &MaintenanceRequest{
		ID:            "req-1",
		Status:        status,
		RequestedByID: "cust-1",
	}
}

func newAssignedRequest(status Status) *MaintenanceRequest {
	r := newRequest(status)
	r.AssignedToID = strptr("tech-1")
	return r
}

var (
	admin     = Actor{ID: "admin-1", Role: RoleAdmin}
	tech      = Actor{ID: "tech-1", Role: RoleTechnician}
	otherTech = Actor{ID: "tech-2", Role: RoleTechnician}
	customer  = Actor{ID: "cust-1", Role: RoleCustomer}
	stranger  = Actor{ID: "cust-2", Role: RoleCustomer}
)

func TestCanTransition_LegalEdges(t *testing.T) {
	tests := []struct {
		name  string
		req   *MaintenanceRequest
		to    Status
		actor Actor
	}{
		{"submitted to assigned by admin", newAssignedRequest(StatusSubmitted), StatusAssigned, admin},
		{"submitted to assigned by self-assigner", newAssignedRequest(StatusSubmitted), StatusAssigned, tech},
		{"submitted to rejected by admin", newRequest(StatusSubmitted), StatusRejected, admin},
		{"assigned to in_progress by technician", newAssignedRequest(StatusAssigned), StatusInProgress, tech},
		{"assigned to in_progress by admin", newAssignedRequest(StatusAssigned), StatusInProgress, admin},
		{"assigned back to submitted by admin", newAssignedRequest(StatusAssigned), StatusSubmitted, admin},
		{"in_progress to completed by technician", newAssignedRequest(StatusInProgress), StatusCompleted, tech},
		{"completed to customer_rejected by requester", newAssignedRequest(StatusCompleted), StatusCustomerRejected, customer},
		{"completed to closed by requester", newAssignedRequest(StatusCompleted), StatusClosed, customer},
		{"completed to closed by system", newAssignedRequest(StatusCompleted), StatusClosed, System()},
		{"customer_rejected to in_progress by admin", newAssignedRequest(StatusCustomerRejected), StatusInProgress, admin},
		{"in_progress cancelled by admin", newAssignedRequest(StatusInProgress), StatusRejected, admin},
		{"draft cancelled by admin", newRequest(StatusDraft), StatusRejected, admin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Nil(t, CanTransition(tt.req, tt.to, tt.actor))
		})
	}
}

func TestCanTransition_IllegalEdges(t *testing.T) {
	tests := []struct {
		name     string
		req      *MaintenanceRequest
		to       Status
		actor    Actor
		wantCode string
	}{
		{"no-op transition", newRequest(StatusSubmitted), StatusSubmitted, admin, apperrors.CodeInvalidTransition},
		{"submitted straight to completed", newRequest(StatusSubmitted), StatusCompleted, admin, apperrors.CodeInvalidTransition},
		{"submitted to in_progress", newAssignedRequest(StatusSubmitted), StatusInProgress, tech, apperrors.CodeInvalidTransition},
		{"completed back to in_progress", newAssignedRequest(StatusCompleted), StatusInProgress, admin, apperrors.CodeInvalidTransition},
		{"closed is terminal", newRequest(StatusClosed), StatusSubmitted, admin, apperrors.CodeRequestClosed},
		{"rejected is terminal", newRequest(StatusRejected), StatusSubmitted, admin, apperrors.CodeRequestClosed},
		{"terminal even for cancellation", newRequest(StatusClosed), StatusRejected, admin, apperrors.CodeRequestClosed},
		{"customer cannot cancel", newRequest(StatusSubmitted), StatusRejected, customer, apperrors.CodeForbidden},
		{"other technician cannot start work", newAssignedRequest(StatusAssigned), StatusInProgress, otherTech, apperrors.CodeForbidden},
		{"stranger cannot close", newAssignedRequest(StatusCompleted), StatusClosed, stranger, apperrors.CodeForbidden},
		{"stranger cannot reject completion", newAssignedRequest(StatusCompleted), StatusCustomerRejected, stranger, apperrors.CodeForbidden},
		{"system cannot reopen", newAssignedRequest(StatusCustomerRejected), StatusInProgress, System(), apperrors.CodeForbidden},
		{"technician cannot unassign", newAssignedRequest(StatusAssigned), StatusSubmitted, tech, apperrors.CodeForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanTransition(tt.req, tt.to, tt.actor)
			require.NotNil(t, err)
			require.Equal(t, tt.wantCode, err.Code)
		})
	}
}

// TestCanTransition_Closure sweeps the full (from, to, role) space and checks
// that everything outside the documented table is refused. Actors carry no
// ownership relation to the request here, so only pure role-gated edges and
// the admin cancellation rule may pass.
func TestCanTransition_Closure(t *testing.T) {
	all := []Status{
		StatusDraft, StatusSubmitted, StatusAssigned, StatusInProgress,
		StatusCompleted, StatusCustomerRejected, StatusClosed, StatusRejected,
	}
	adminAllowed := map[[2]Status]bool{
		{StatusSubmitted, StatusAssigned}:          true,
		{StatusAssigned, StatusInProgress}:         true,
		{StatusAssigned, StatusSubmitted}:          true,
		{StatusInProgress, StatusCompleted}:        true,
		{StatusCustomerRejected, StatusInProgress}: true,
	}

	for _, from := range all {
		for _, to := range all {
			for _, role := range []Role{RoleCustomer, RoleTechnician, RoleAdmin} {
				req := newRequest(from)
				err := CanTransition(req, to, Actor{ID: "outsider", Role: role})

				switch {
				case from.Terminal():
					require.NotNil(t, err, "%s -> %s as %s", from, to, role)
					require.Equal(t, apperrors.CodeRequestClosed, err.Code)
				case from == to:
					require.NotNil(t, err, "%s -> %s as %s", from, to, role)
					require.Equal(t, apperrors.CodeInvalidTransition, err.Code)
				case role == RoleAdmin && (to == StatusRejected || adminAllowed[[2]Status{from, to}]):
					require.Nil(t, err, "%s -> %s as %s", from, to, role)
				default:
					require.NotNil(t, err, "%s -> %s as %s", from, to, role)
				}
			}
		}
	}
}

func TestStatusValid(t *testing.T) {
	require.True(t, StatusSubmitted.Valid())
	require.True(t, StatusCustomerRejected.Valid())
	require.False(t, Status("OPEN").Valid())
}

func TestTerminal(t *testing.T) {
	require.True(t, StatusClosed.Terminal())
	require.True(t, StatusRejected.Terminal())
	require.False(t, StatusCompleted.Terminal())
	require.False(t, StatusCustomerRejected.Terminal())
}
