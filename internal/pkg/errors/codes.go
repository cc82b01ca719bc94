package errors

import "net/http"

// Error code constants. Errors carry code + params; message text is advisory
// and never parsed by callers.

// Request lifecycle error codes.
const (
	CodeRequestNotFound   = "REQUEST_NOT_FOUND"
	CodeInvalidTransition = "INVALID_STATUS_TRANSITION"
	CodeRequestClosed     = "REQUEST_CLOSED"
)

// Assignment error codes.
const (
	CodeInvalidTechnician = "INVALID_TECHNICIAN"
	CodeAlreadyAssigned   = "REQUEST_ALREADY_ASSIGNED"
	CodeNotAssigned       = "REQUEST_NOT_ASSIGNED"
)

// Identifier allocation error codes.
const (
	CodeBuildingNotFound   = "BUILDING_NOT_FOUND"
	CodeBuildingExists     = "BUILDING_ALREADY_EXISTS"
	CodeCustomIDNotAllowed = "CUSTOM_ID_NOT_ALLOWED"
	CodeIdentifierConflict = "IDENTIFIER_CONFLICT"
)

// Auth error codes.
const (
	CodeAuthFailed   = "AUTH_FAILED"
	CodeTokenExpired = "TOKEN_EXPIRED"
	CodeTokenInvalid = "TOKEN_INVALID"
	CodeForbidden    = "FORBIDDEN"
	CodeUserNotFound = "USER_NOT_FOUND"
)

// Validation error codes.
const (
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeInvalidField     = "INVALID_REQUEST_FIELD"
)

// Convenience constructors using predefined codes.

// ErrRequestNotFound creates a request not found error.
func ErrRequestNotFound(requestID string) *AppError {
	return NotFound(CodeRequestNotFound, "maintenance request not found").
		WithParams(map[string]interface{}{"request_id": requestID})
}

// ErrBuildingNotFound creates a building not found error.
func ErrBuildingNotFound(building string) *AppError {
	return NotFound(CodeBuildingNotFound, "no active building configuration").
		WithParams(map[string]interface{}{"building": building})
}

// ErrIdentifierConflict creates an identifier collision error.
func ErrIdentifierConflict(identifier string) *AppError {
	return Conflict(CodeIdentifierConflict, "request identifier already exists").
		WithParams(map[string]interface{}{"identifier": identifier})
}

// ErrInvalidTechnician creates an error for assignment targets that are not
// active technicians.
func ErrInvalidTechnician(userID string) *AppError {
	return New(CodeInvalidTechnician,
		"assignee must be an active user with the TECHNICIAN role",
		http.StatusUnprocessableEntity).
		WithParams(map[string]interface{}{"user_id": userID})
}

// ErrInvalidField creates a bad request error for a single malformed field.
func ErrInvalidField(field, message string) *AppError {
	return BadRequest(CodeInvalidField, message).
		WithParams(map[string]interface{}{"field": field})
}
