package response

import (
	"net/http"

	"github.com/examforge/exams-service/internal/apperr"
	"github.com/gin-gonic/gin"
)

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// Authentication
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"
	ErrTokenExpired  ErrCode = "TOKEN_EXPIRED"

	// Authorization
	ErrForbidden ErrCode = "FORBIDDEN"

	// Validation
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// Resources
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// Exam lifecycle
	ErrInvalidState    ErrCode = "INVALID_STATE"
	ErrAttemptLimit    ErrCode = "ATTEMPT_LIMIT_EXCEEDED"
	ErrUpstreamDown    ErrCode = "UPSTREAM_UNAVAILABLE"
	ErrPartialResponse ErrCode = "SERVICE_DEGRADED"

	// Server
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."
	case ErrTokenExpired:
		return "The authentication token has expired."
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "The request payload is invalid."
	case ErrNotFound:
		return "The requested resource was not found."
	case ErrConflict:
		return "The resource already exists or is in use."
	case ErrInvalidState:
		return "The resource is not in a state that allows this action."
	case ErrAttemptLimit:
		return "You have reached the maximum number of attempts."
	case ErrUpstreamDown:
		return "A dependent service is unavailable. Please try again."
	case ErrPartialResponse:
		return "The request partially succeeded. Retry the missing part."
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}

// codeFor maps error kinds to HTTP status and API error code.
func codeFor(kind apperr.Kind) (int, ErrCode) {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound, ErrNotFound
	case apperr.KindInvalidState:
		return http.StatusUnprocessableEntity, ErrInvalidState
	case apperr.KindConflict:
		return http.StatusConflict, ErrConflict
	case apperr.KindLimitExceeded:
		return http.StatusForbidden, ErrAttemptLimit
	case apperr.KindForbidden:
		return http.StatusForbidden, ErrForbidden
	case apperr.KindUpstreamUnavailable:
		return http.StatusServiceUnavailable, ErrUpstreamDown
	case apperr.KindServiceDegraded:
		return http.StatusServiceUnavailable, ErrPartialResponse
	default:
		return http.StatusInternalServerError, ErrInternal
	}
}

// FailError translates a service-layer error into the API envelope. Known
// kinds keep their message; anything unclassified becomes a 500 without
// leaking internals.
func FailError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status, code := codeFor(kind)
	if code == ErrInternal {
		Fail(c, status, code)
		return
	}

	message := ""
	if ae, ok := apperr.As(err); ok {
		message = ae.Message
	}
	FailWithMessage(c, status, code, message)
}
