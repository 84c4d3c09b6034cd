package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Constructors
// ==========================

func TestConstructors(t *testing.T) {
	cause := fmt.Errorf("boom")

	tests := []struct {
		name      string
		err       *StandardError
		code      ErrorCode
		retryable bool
	}{
		{"upstream unavailable", NewUpstreamUnavailableError("proxy", cause), ErrCodeUpstreamUnavailable, false},
		{"upstream timeout", NewUpstreamTimeoutError("proxy", 3*time.Second), ErrCodeUpstreamTimeout, false},
		{"upstream malformed", NewUpstreamMalformedError("proxy", cause), ErrCodeUpstreamMalformed, false},
		{"upstream unauthorized", NewUpstreamUnauthorizedError("proxy", 401), ErrCodeUpstreamUnauthorized, false},
		{"invalid input", NewInvalidInputError("no venue"), ErrCodeInvalidInput, false},
		{"insufficient data", NewInsufficientDataError("3 reports"), ErrCodeInsufficientData, false},
		{"computation fault", NewComputationFaultError("compose", "nil map"), ErrCodeComputationFault, false},
		{"telemetry write", NewTelemetryWriteError("postgres", cause), ErrCodeTelemetryWrite, false},
		{"cache store", NewCacheStoreError("get", cause), ErrCodeCacheStoreFailure, false},
		{"parse", NewParseError(cause), ErrCodeParseError, false},
		{"report query", NewReportQueryFailedError("v1", cause), ErrCodeReportQueryFailed, true},
		{"query timeout", NewQueryTimeoutError("v1"), ErrCodeQueryTimeout, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.retryable, tt.err.Retryable)
			assert.NotEmpty(t, tt.err.Message)
			assert.False(t, tt.err.Timestamp.IsZero())
			assert.Contains(t, tt.err.Error(), string(tt.code))
		})
	}
}

func TestComputationFault_CarriesPanicValue(t *testing.T) {
	err := NewComputationFaultError("vibe", 42)
	assert.Equal(t, "42", err.Details)
	assert.Contains(t, err.Message, "vibe")
}

func TestWithMetadata(t *testing.T) {
	err := NewQueryTimeoutError("v1").WithMetadata("operation", "recent")
	assert.Equal(t, "recent", err.Metadata["operation"])
}

// ==========================
// Matching
// ==========================

func TestIs_MatchesByCode(t *testing.T) {
	wrapped := fmt.Errorf("fetch: %w", NewUpstreamTimeoutError("weather", time.Second))

	assert.True(t, stderrors.Is(wrapped, &StandardError{Code: ErrCodeUpstreamTimeout}))
	assert.False(t, stderrors.Is(wrapped, &StandardError{Code: ErrCodeUpstreamUnavailable}))
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"nil", nil, ""},
		{"standard", NewParseError(fmt.Errorf("x")), ErrCodeParseError},
		{"wrapped", fmt.Errorf("ctx: %w", NewInvalidInputError("x")), ErrCodeInvalidInput},
		{"plain", fmt.Errorf("x"), ErrCodeComputationFault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeOf(tt.err))
		})
	}
}

func TestNormalize(t *testing.T) {
	std := NewReportQueryFailedError("v1", fmt.Errorf("conn reset"))
	assert.Same(t, std, Normalize(fmt.Errorf("wrap: %w", std)))

	plain := Normalize(fmt.Errorf("unexpected"))
	assert.Equal(t, ErrCodeComputationFault, plain.Code)
	assert.Equal(t, "unexpected", plain.Details)

	assert.Equal(t, ErrCodeComputationFault, Normalize(nil).Code)
}

// ==========================
// BPMN conversion
// ==========================

func TestConvertToBPMNError(t *testing.T) {
	tests := []struct {
		name        string
		err         *StandardError
		wantCode    string
		wantRetries int
	}{
		{"parse error", NewParseError(fmt.Errorf("bad json")), "INTELLIGENCE_INPUT_INVALID", 0},
		{"invalid input", NewInvalidInputError("lat"), "INTELLIGENCE_INPUT_INVALID", 0},
		{"report query", NewReportQueryFailedError("v1", fmt.Errorf("down")), "REPORT_QUERY_FAILED", 3},
		{"query timeout", NewQueryTimeoutError("v1"), "REPORT_QUERY_TIMEOUT", 2},
		{"computation", NewComputationFaultError("x", "y"), "INTELLIGENCE_FAILED", 0},
		{"unmapped code passes through", NewTelemetryWriteError("es", fmt.Errorf("x")), "TELEMETRY_WRITE_FAILED", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := ConvertToBPMNError(tt.err)
			assert.Equal(t, tt.wantCode, b.Code)
			assert.Equal(t, tt.wantRetries, b.Retries)
			assert.Equal(t, string(tt.err.Code), b.ErrorVariables["originalErrorCode"])
		})
	}
}

func TestConvertToBPMNError_NonRetryableOverridesTable(t *testing.T) {
	err := NewReportQueryFailedError("v1", fmt.Errorf("x"))
	err.Retryable = false
	assert.Equal(t, 0, ConvertToBPMNError(err).Retries)
}

func TestBPMNError_ToErrorVariables(t *testing.T) {
	b := ConvertToBPMNError(NewQueryTimeoutError("v1"))
	vars := b.ToErrorVariables()

	require.Contains(t, vars, "errorCode")
	assert.Equal(t, "REPORT_QUERY_TIMEOUT", vars["errorCode"])
	assert.Equal(t, true, vars["retryable"])
	assert.Equal(t, "QUERY_TIMEOUT", vars["originalErrorCode"])
}

func TestIsRetryableErrorCode(t *testing.T) {
	assert.True(t, IsRetryableErrorCode(ErrCodeReportQueryFailed))
	assert.True(t, IsRetryableErrorCode(ErrCodeQueryTimeout))
	assert.False(t, IsRetryableErrorCode(ErrCodeUpstreamTimeout))
	assert.False(t, IsRetryableErrorCode(ErrCodeParseError))
}

func TestGetErrorCategory(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want string
	}{
		{ErrCodeUpstreamMalformed, "UPSTREAM"},
		{ErrCodeReportQueryFailed, "DATABASE"},
		{ErrCodeQueryTimeout, "DATABASE"},
		{ErrCodeInvalidInput, "VALIDATION"},
		{ErrCodeParseError, "VALIDATION"},
		{ErrCodeTelemetryWrite, "INFRASTRUCTURE"},
		{ErrCodeCacheStoreFailure, "INFRASTRUCTURE"},
		{ErrCodeComputationFault, "COMPUTATION"},
		{ErrCodeInsufficientData, "COMPUTATION"},
		{ErrorCode("SOMETHING_ELSE"), "OTHER"},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, GetErrorCategory(tt.code))
		})
	}
}
