// Package errors provides standardized error handling for the eligibility
// service's HTTP, CLI and workflow boundaries.
package errors

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeOptIneligible             ErrorCode = "OPT_INELIGIBLE"
	ErrCodeInvalidApplicationPayload ErrorCode = "INVALID_APPLICATION_PAYLOAD"
	ErrCodeEligibilityCheckFailed    ErrorCode = "ELIGIBILITY_CHECK_FAILED"
	ErrCodeEligibilityCheckTimeout   ErrorCode = "ELIGIBILITY_CHECK_TIMEOUT"
	ErrCodePolicyMisconfigured       ErrorCode = "POLICY_MISCONFIGURED"

	ErrCodeRateLimited                 ErrorCode = "RATE_LIMITED"
	ErrCodeRateLimitBackendUnavailable ErrorCode = "RATE_LIMIT_BACKEND_UNAVAILABLE"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithMetadata returns the error with key set in its metadata.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
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

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
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

// ==========================
// 3. Error Constructors
// ==========================

// NewOptIneligibleError reports a well-formed application that broke one or
// more eligibility rules. The violations travel in metadata.
func NewOptIneligibleError(violationCount int, violations interface{}) *StandardError {
	return &StandardError{
		Code:      ErrCodeOptIneligible,
		Message:   "Application does not meet OPT eligibility rules",
		Details:   fmt.Sprintf("%d violation(s)", violationCount),
		Retryable: false,
		Metadata:  map[string]interface{}{"violations": violations},
		Timestamp: time.Now().UTC(),
	}
}

func NewInvalidApplicationPayloadError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidApplicationPayload,
		Message:   "Application payload is malformed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewEligibilityCheckFailedError wraps infrastructure failures around a check,
// such as a job that could not be completed. These are retried.
func NewEligibilityCheckFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeEligibilityCheckFailed,
		Message:   "Eligibility check could not be completed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewEligibilityCheckTimeoutError(timeout time.Duration) *StandardError {
	return &StandardError{
		Code:      ErrCodeEligibilityCheckTimeout,
		Message:   "Eligibility check timed out",
		Details:   fmt.Sprintf("exceeded %s", timeout),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewPolicyMisconfiguredError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePolicyMisconfigured,
		Message:   "Eligibility rule table is misconfigured",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewRateLimitedError(retryAfter time.Duration) *StandardError {
	return &StandardError{
		Code:      ErrCodeRateLimited,
		Message:   "Too many eligibility checks, slow down",
		Details:   fmt.Sprintf("retry after %s", retryAfter),
		Retryable: true,
		Metadata:  map[string]interface{}{"retryAfterMs": retryAfter.Milliseconds()},
		Timestamp: time.Now().UTC(),
	}
}

func NewRateLimitBackendUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRateLimitBackendUnavailable,
		Message:   "Rate limit backend unavailable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to the error codes modelled on
// boundary events. They are identical today.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeOptIneligible:               "OPT_INELIGIBLE",
	ErrCodeInvalidApplicationPayload:   "INVALID_APPLICATION_PAYLOAD",
	ErrCodeEligibilityCheckFailed:      "ELIGIBILITY_CHECK_FAILED",
	ErrCodeEligibilityCheckTimeout:     "ELIGIBILITY_CHECK_TIMEOUT",
	ErrCodePolicyMisconfigured:         "POLICY_MISCONFIGURED",
	ErrCodeRateLimitBackendUnavailable: "RATE_LIMIT_BACKEND_UNAVAILABLE",
}

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeEligibilityCheckFailed,
		ErrCodeRateLimitBackendUnavailable:
		return 3

	case ErrCodeEligibilityCheckTimeout:
		return 2

	default:
		return 0 // business and input errors are final
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

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
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory groups codes for dashboards and log queries.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "INELIGIBLE"):
		return "ELIGIBILITY"
	case strings.Contains(codeStr, "RATE_LIMIT"):
		return "RATE_LIMIT"
	case strings.Contains(codeStr, "POLICY"):
		return "CONFIGURATION"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "PAYLOAD"):
		return "VALIDATION"
	case strings.Contains(codeStr, "CHECK"):
		return "PROCESSING"
	default:
		return "OTHER"
	}
}

// HTTPStatus maps a code onto the status the HTTP API answers with.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeOptIneligible, ErrCodeInvalidApplicationPayload:
		return http.StatusBadRequest
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeEligibilityCheckTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeRateLimitBackendUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
