package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	glerrors "github.com/gatherlens/gatherlens/pkg/errors"
	"github.com/gatherlens/gatherlens/pkg/serializer"
)

// ErrorResponse is the wire shape of every error this server returns.
type ErrorResponse struct {
	Code      string                 `json:"code" yaml:"code"`
	Message   string                 `json:"message" yaml:"message"`
	Details   map[string]interface{} `json:"details,omitempty" yaml:"details,omitempty"`
	RequestID string                 `json:"requestId" yaml:"requestId"`
	Timestamp time.Time              `json:"timestamp" yaml:"timestamp"`
	Retryable bool                   `json:"retryable" yaml:"retryable"`
}

// HTTPStatusFromCode maps structured error codes to HTTP status codes.
func HTTPStatusFromCode(code string) int {
	switch code {
	case glerrors.ErrCodeInvalidRequest, glerrors.ErrCodeUnsafePath:
		return http.StatusBadRequest
	case glerrors.ErrCodeNotFound:
		return http.StatusNotFound
	case glerrors.ErrCodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case glerrors.ErrCodeAnalysisDisabled:
		return http.StatusForbidden
	case glerrors.ErrCodeCaptureTooLarge:
		return http.StatusRequestEntityTooLarge
	case glerrors.ErrCodeParse:
		return http.StatusUnprocessableEntity
	case glerrors.ErrCodeBackpressure:
		return http.StatusTooManyRequests
	case glerrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// retryableFromCode reports whether a client may retry the same request.
func retryableFromCode(code string) bool {
	switch code {
	case glerrors.ErrCodeBackpressure, glerrors.ErrCodeTimeout, glerrors.ErrCodeInternal:
		return true
	default:
		return false
	}
}

// mergeDetails combines two detail maps; the second wins on conflicts.
// Returns nil when both are empty.
func mergeDetails(a, b map[string]interface{}) map[string]interface{} {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	merged := make(map[string]interface{}, len(a)+len(b))
	for k, v := range a {
		merged[k] = v
	}
	for k, v := range b {
		merged[k] = v
	}
	return merged
}

// WriteError writes an error response
func WriteError(w http.ResponseWriter, r *http.Request, statusCode int,
	code, message string, retryable bool, details map[string]interface{}) {

	requestID, _ := r.Context().Value(contextKeyRequestID).(string)
	if requestID == "" {
		requestID = uuid.New().String()
	}

	errResp := ErrorResponse{
		Code:      code,
		Message:   message,
		Details:   details,
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
		Retryable: retryable,
	}

	serializer.RespondJSON(w, statusCode, errResp)
}

// WriteErrorFromErr maps a pipeline error to its HTTP representation.
// Structured errors carry their own code, message and details; anything
// else is reported as a retryable internal error with fallbackMessage.
func WriteErrorFromErr(w http.ResponseWriter, r *http.Request, err error,
	fallbackMessage string, details map[string]interface{}) {

	code := glerrors.ErrCodeInternal
	message := fallbackMessage
	var errDetails map[string]interface{}

	if se := glerrors.AsStructured(err); se != nil {
		code = se.Code
		message = se.Message
		errDetails = se.Details
		if cause := se.Unwrap(); cause != nil {
			errDetails = mergeDetails(errDetails, map[string]interface{}{"error": cause.Error()})
		}
	} else if err != nil {
		errDetails = map[string]interface{}{"error": err.Error()}
	}

	WriteError(w, r, HTTPStatusFromCode(code), code, message,
		retryableFromCode(code), mergeDetails(errDetails, details))
}
