// Package errors provides the standardized error taxonomy for the intelligence engine and its job workers.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Upstream collaborators (rating proxy, weather, identity). Absorbed locally.
	ErrCodeUpstreamUnavailable  ErrorCode = "UPSTREAM_UNAVAILABLE"
	ErrCodeUpstreamTimeout      ErrorCode = "UPSTREAM_TIMEOUT"
	ErrCodeUpstreamMalformed    ErrorCode = "UPSTREAM_MALFORMED"
	ErrCodeUpstreamUnauthorized ErrorCode = "UPSTREAM_UNAUTHORIZED"

	// Engine boundary and computation.
	ErrCodeInvalidInput      ErrorCode = "INVALID_INPUT"
	ErrCodeInsufficientData  ErrorCode = "INSUFFICIENT_DATA"
	ErrCodeComputationFault  ErrorCode = "COMPUTATION_FAULT"
	ErrCodeTelemetryWrite    ErrorCode = "TELEMETRY_WRITE_FAILED"
	ErrCodeCacheStoreFailure ErrorCode = "CACHE_STORE_FAILED"

	// Job workers.
	ErrCodeParseError        ErrorCode = "PARSE_ERROR"
	ErrCodeReportQueryFailed ErrorCode = "REPORT_QUERY_FAILED"
	ErrCodeQueryTimeout      ErrorCode = "QUERY_TIMEOUT"
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

// Is matches any *StandardError carrying the same code.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithMetadata returns the same error with one more metadata entry.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// CodeOf extracts the code from any error chain; unknown errors map to COMPUTATION_FAULT.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr.Code
	}
	return ErrCodeComputationFault
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

// NewUpstreamUnavailableError covers network failures and non-2xx answers from a collaborator.
func NewUpstreamUnavailableError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeUpstreamUnavailable,
		Message:   fmt.Sprintf("Upstream '%s' unavailable", service),
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewUpstreamTimeoutError(service string, timeout time.Duration) *StandardError {
	return &StandardError{
		Code:      ErrCodeUpstreamTimeout,
		Message:   fmt.Sprintf("Upstream '%s' timeout", service),
		Details:   fmt.Sprintf("exceeded %s", timeout),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewUpstreamMalformedError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeUpstreamMalformed,
		Message:   fmt.Sprintf("Upstream '%s' returned a malformed response", service),
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewUpstreamUnauthorizedError(service string, status int) *StandardError {
	return &StandardError{
		Code:      ErrCodeUpstreamUnauthorized,
		Message:   fmt.Sprintf("Upstream '%s' rejected credentials", service),
		Details:   fmt.Sprintf("status: %d", status),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewInvalidInputError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidInput,
		Message:   "Invalid intelligence input",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewInsufficientDataError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInsufficientData,
		Message:   "Not enough data",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewComputationFaultError wraps an unexpected failure (including a recovered panic) in a pipeline stage.
func NewComputationFaultError(stage string, cause interface{}) *StandardError {
	return &StandardError{
		Code:      ErrCodeComputationFault,
		Message:   fmt.Sprintf("Computation fault in stage '%s'", stage),
		Details:   fmt.Sprint(cause),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewTelemetryWriteError(sink string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTelemetryWrite,
		Message:   fmt.Sprintf("Telemetry sink '%s' write failed", sink),
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewCacheStoreError(op string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCacheStoreFailure,
		Message:   fmt.Sprintf("Cache store %s failed", op),
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewParseError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeParseError,
		Message:   "Failed to parse job variables",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewReportQueryFailedError creates a retryable visit-report query error.
func NewReportQueryFailedError(venueID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeReportQueryFailed,
		Message:   "Visit report query failed",
		Details:   fmt.Sprintf("venueId: %s, error: %s", venueID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewQueryTimeoutError(venueID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryTimeout,
		Message:   "Visit report query timeout",
		Details:   fmt.Sprintf("venueId: %s", venueID),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. BPMN Mapping & Retries
// ==========================

var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeInvalidInput:      "INTELLIGENCE_INPUT_INVALID",
	ErrCodeParseError:        "INTELLIGENCE_INPUT_INVALID",
	ErrCodeReportQueryFailed: "REPORT_QUERY_FAILED",
	ErrCodeQueryTimeout:      "REPORT_QUERY_TIMEOUT",
	ErrCodeComputationFault:  "INTELLIGENCE_FAILED",
}

func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeReportQueryFailed:
		return 3
	case ErrCodeQueryTimeout:
		return 2
	default:
		// Upstream and computation problems are absorbed by the engine; nothing to retry.
		return 0
	}
}

func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "UPSTREAM"):
		return "UPSTREAM"
	case strings.Contains(codeStr, "QUERY"):
		return "DATABASE"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "PARSE"):
		return "VALIDATION"
	case strings.Contains(codeStr, "TELEMETRY") || strings.Contains(codeStr, "CACHE"):
		return "INFRASTRUCTURE"
	case code == ErrCodeComputationFault || code == ErrCodeInsufficientData:
		return "COMPUTATION"
	default:
		return "OTHER"
	}
}
