package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ============================================================================
// Error codes
// ============================================================================

type ErrorCode string

const (
	ErrCodeValidation             ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidStateTransition ErrorCode = "INVALID_STATE_TRANSITION"
	ErrCodeNotEligibleForSampling ErrorCode = "NOT_ELIGIBLE_FOR_SAMPLING"
	ErrCodeRecordNotFound         ErrorCode = "RECORD_NOT_FOUND"
	ErrCodeNotAuthorized          ErrorCode = "NOT_AUTHORIZED"
	ErrCodePersistenceFailure     ErrorCode = "PERSISTENCE_FAILURE"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeSearchQueryFailed        ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeNotificationSendFailed   ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeExternalService          ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeTimeout                  ErrorCode = "TIMEOUT_ERROR"
	ErrCodeInternal                 ErrorCode = "INTERNAL_ERROR"
)

var knownCodes = map[ErrorCode]bool{
	ErrCodeValidation: true, ErrCodeInvalidStateTransition: true, ErrCodeNotEligibleForSampling: true,
	ErrCodeRecordNotFound: true, ErrCodeNotAuthorized: true, ErrCodePersistenceFailure: true,
	ErrCodeDatabaseConnectionFailed: true, ErrCodeSearchQueryFailed: true, ErrCodeNotificationSendFailed: true,
	ErrCodeExternalService: true, ErrCodeTimeout: true, ErrCodeInternal: true,
}

func IsKnownCode(code string) bool {
	return knownCodes[ErrorCode(code)]
}

// Metadata keys carried by INVALID_STATE_TRANSITION errors.
const (
	MetaCurrentState   = "currentState"
	MetaAttemptedState = "attemptedState"
)

// Sentinels for errors.Is. Matching is by code only.
var (
	ErrValidation             = &StandardError{Code: ErrCodeValidation}
	ErrInvalidStateTransition = &StandardError{Code: ErrCodeInvalidStateTransition}
	ErrNotEligibleForSampling = &StandardError{Code: ErrCodeNotEligibleForSampling}
	ErrRecordNotFound         = &StandardError{Code: ErrCodeRecordNotFound}
	ErrNotAuthorized          = &StandardError{Code: ErrCodeNotAuthorized}
	ErrPersistenceFailure     = &StandardError{Code: ErrCodePersistenceFailure}
)

type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// ============================================================================
// BPMN error
// ============================================================================

type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ============================================================================
// Workflow errors
// ============================================================================

func NewValidationError(field, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidation,
		Message:   "Input validation failed",
		Details:   details,
		Retryable: false,
		Metadata:  map[string]interface{}{"field": field},
		Timestamp: time.Now().UTC(),
	}
}

func NewInvalidStateTransitionError(current, attempted string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidStateTransition,
		Message:   fmt.Sprintf("Cannot move from %s to %s", current, attempted),
		Retryable: false,
		Metadata: map[string]interface{}{
			MetaCurrentState:   current,
			MetaAttemptedState: attempted,
		},
		Timestamp: time.Now().UTC(),
	}
}

func NewNotEligibleForSamplingError(submissionID, reason string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotEligibleForSampling,
		Message:   "Submission is not eligible for IQA sampling",
		Details:   fmt.Sprintf("submissionId: %s, reason: %s", submissionID, reason),
		Retryable: false,
		Metadata:  map[string]interface{}{"submissionId": submissionID},
		Timestamp: time.Now().UTC(),
	}
}

func NewRecordNotFoundError(kind, id string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRecordNotFound,
		Message:   fmt.Sprintf("%s not found", kind),
		Details:   fmt.Sprintf("id: %s", id),
		Retryable: false,
		Metadata:  map[string]interface{}{"kind": kind, "id": id},
		Timestamp: time.Now().UTC(),
	}
}

func NewNotAuthorizedError(actorID, studentID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotAuthorized,
		Message:   "Caller is not assigned to this student",
		Details:   fmt.Sprintf("actorId: %s, studentId: %s", actorID, studentID),
		Retryable: false,
		Metadata:  map[string]interface{}{"actorId": actorID, "studentId": studentID},
		Timestamp: time.Now().UTC(),
	}
}

func NewPersistenceFailureError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePersistenceFailure,
		Message:   "Transaction did not commit",
		Details:   fmt.Sprintf("operation: %s, error: %v", operation, err),
		Retryable: true,
		Metadata:  map[string]interface{}{"operation": operation},
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// ============================================================================
// Infrastructure errors
// ============================================================================

func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewSearchQueryFailedError(index string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSearchQueryFailed,
		Message:   "Elasticsearch query error",
		Details:   fmt.Sprintf("index: %s, error: %v", index, err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewNotificationSendFailedError(kind string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("kind: %s, error: %v", kind, err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewExternalServiceError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeExternalService,
		Message:   fmt.Sprintf("External service '%s' error", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewTimeoutError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTimeout,
		Message:   fmt.Sprintf("Service '%s' timeout", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// ============================================================================
// Helpers
// ============================================================================

// AsStandard returns the first StandardError in err's chain.
func AsStandard(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

func CodeOf(err error) ErrorCode {
	if stdErr, ok := AsStandard(err); ok {
		return stdErr.Code
	}
	return ErrCodeInternal
}

// TransitionStates extracts the current and attempted states of an
// INVALID_STATE_TRANSITION error.
func TransitionStates(err error) (current, attempted string, ok bool) {
	stdErr, found := AsStandard(err)
	if !found || stdErr.Code != ErrCodeInvalidStateTransition {
		return "", "", false
	}
	current, _ = stdErr.Metadata[MetaCurrentState].(string)
	attempted, _ = stdErr.Metadata[MetaAttemptedState].(string)
	return current, attempted, true
}

// IsBusinessError reports whether err is one of the workflow error kinds a
// service raises on purpose. Transaction runners pass these through unchanged.
func IsBusinessError(err error) bool {
	switch CodeOf(err) {
	case ErrCodeValidation,
		ErrCodeInvalidStateTransition,
		ErrCodeNotEligibleForSampling,
		ErrCodeRecordNotFound,
		ErrCodeNotAuthorized:
		return true
	}
	return false
}

func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodePersistenceFailure,
		ErrCodeDatabaseConnectionFailed,
		ErrCodeSearchQueryFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeExternalService:
		return 3

	case ErrCodeTimeout:
		return 2

	default:
		return 0
	}
}

func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           string(stdErr.Code),
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case code == ErrCodeInvalidStateTransition || code == ErrCodeNotEligibleForSampling:
		return "WORKFLOW"
	case strings.Contains(codeStr, "AUTHORIZED"):
		return "AUTHORIZATION"
	case strings.Contains(codeStr, "PERSISTENCE") || strings.Contains(codeStr, "DATABASE"):
		return "DATABASE"
	case strings.Contains(codeStr, "SEARCH"):
		return "SEARCH"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "NOT_FOUND"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
