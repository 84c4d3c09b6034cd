// internal/workers/intelligence/build-place-intelligence/handler_test.go
package buildplaceintelligence

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"place-intelligence/internal/common/config"
	"place-intelligence/internal/common/errors"
	"place-intelligence/internal/common/logger"
	"place-intelligence/internal/common/validation"
	"place-intelligence/internal/intelligence/engine"
	"place-intelligence/internal/intelligence/telemetry"
	"place-intelligence/internal/models"
	"place-intelligence/pkg/registry"
)

// ==========================
// Mock Report Source
// ==========================

type MockReports struct {
	mock.Mock
}

func (m *MockReports) RecentReports(ctx context.Context, venueID string, limit int) ([]models.VisitReport, error) {
	args := m.Called(ctx, venueID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.VisitReport), args.Error(1)
}

// ==========================
// Test Helper Functions
// ==========================

func createMockJob(key int64, variables map[string]interface{}) entities.Job {
	variablesJSON, _ := json.Marshal(variables)
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:                key,
		Type:               TaskType,
		ProcessInstanceKey: key * 10,
		BpmnProcessId:      "venue-enrichment",
		ElementId:          "Activity_BuildPlaceIntelligence",
		CustomHeaders:      "{}",
		Worker:             "test-worker",
		Retries:            3,
		Variables:          string(variablesJSON),
	}}
}

func createValidator(t *testing.T) *validation.Validator {
	t.Helper()
	reg, err := registry.Default()
	require.NoError(t, err)
	activity, ok := reg.Find(TaskType)
	require.True(t, ok)

	v := validation.NewValidator()
	require.NoError(t, v.Register(TaskType, activity.InputSchema))
	return v
}

func createTestHandler(t *testing.T, reports *MockReports) *Handler {
	t.Helper()
	h, err := NewHandler(HandlerOptions{
		Config:    &Config{Enabled: true, Timeout: 5 * time.Second, MaxReports: 50},
		Engine:    engine.New(engine.Options{}, engine.Deps{Logger: logger.NewTestLogger(t)}),
		Reports:   reports,
		Validator: createValidator(t),
		Logger:    logger.NewTestLogger(t),
	})
	require.NoError(t, err)
	return h
}

func quietCafeReports(n int) []models.VisitReport {
	now := time.Now()
	reports := make([]models.VisitReport, n)
	for i := range reports {
		reports[i] = models.VisitReport{
			ID:             fmt.Sprintf("r%d", i),
			VenueID:        "v1",
			Wifi:           models.Float(4.2),
			Noise:          models.Float(2),
			Busyness:       models.Float(2),
			LaptopFriendly: models.Bool(true),
			CreatedAt:      now.Add(-time.Duration(i) * time.Hour),
		}
	}
	return reports
}

// ==========================
// Execute
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	reports := &MockReports{}
	reports.On("RecentReports", mock.Anything, "v1", 50).Return(quietCafeReports(8), nil)
	h := createTestHandler(t, reports)

	open := true
	out, err := h.Execute(context.Background(), &Input{
		VenueID: "v1", Name: "Blue Bottle Coffee", Lat: 37.7749, Lng: -122.4194, OpenNow: &open,
	})

	require.NoError(t, err)
	require.NotNil(t, out.PlaceIntelligence)
	assert.Equal(t, "v1", out.PlaceIntelligence.VenueID)
	assert.Equal(t, out.PlaceIntelligence.WorkScore, out.WorkScore)
	assert.Equal(t, out.PlaceIntelligence.Confidence, out.Confidence)
	assert.Equal(t, 8, out.ReportCount)
	assert.Greater(t, out.WorkScore, engine.FallbackWorkScore)
	reports.AssertExpectations(t)
}

type snapshotRecorder struct {
	mu    sync.Mutex
	snaps []telemetry.Snapshot
}

func (r *snapshotRecorder) Offer(snap telemetry.Snapshot) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, snap)
	return true
}

func TestHandler_Execute_PassesActingUserToTelemetry(t *testing.T) {
	reports := &MockReports{}
	reports.On("RecentReports", mock.Anything, "v1", 50).Return(quietCafeReports(4), nil)
	sink := &snapshotRecorder{}

	h, err := NewHandler(HandlerOptions{
		Config:  &Config{Enabled: true, Timeout: 5 * time.Second, MaxReports: 50},
		Engine:  engine.New(engine.Options{}, engine.Deps{Telemetry: sink, Logger: logger.NewTestLogger(t)}),
		Reports: reports,
		Logger:  logger.NewTestLogger(t),
	})
	require.NoError(t, err)

	_, err = h.Execute(context.Background(), &Input{VenueID: "v1", Lat: 37.7749, Lng: -122.4194, UserID: "u-42"})
	require.NoError(t, err)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.snaps, 1)
	assert.Equal(t, "u-42", sink.snaps[0].UserID)
	assert.Equal(t, "v1", sink.snaps[0].VenueID)
}

func TestHandler_Execute_NameOnlySkipsReportQuery(t *testing.T) {
	reports := &MockReports{}
	h := createTestHandler(t, reports)

	out, err := h.Execute(context.Background(), &Input{Name: "Corner Cafe", Lat: 1, Lng: 1})

	require.NoError(t, err)
	assert.Zero(t, out.ReportCount)
	assert.Equal(t, models.CrowdUnknown, out.PlaceIntelligence.CrowdLevel)
	reports.AssertNotCalled(t, "RecentReports", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_Execute_ReportQueryErrors(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantCode      errors.ErrorCode
		wantRetryable bool
	}{
		{"query failed", errors.NewReportQueryFailedError("v1", fmt.Errorf("connection reset")), errors.ErrCodeReportQueryFailed, true},
		{"query timeout", errors.NewQueryTimeoutError("v1"), errors.ErrCodeQueryTimeout, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reports := &MockReports{}
			reports.On("RecentReports", mock.Anything, "v1", 50).Return(nil, tt.err)
			h := createTestHandler(t, reports)

			out, err := h.Execute(context.Background(), &Input{VenueID: "v1", Lat: 1, Lng: 1})

			require.Error(t, err)
			assert.Nil(t, out)
			assert.Equal(t, tt.wantCode, errors.CodeOf(err))
			assert.Equal(t, tt.wantRetryable, errors.Normalize(err).Retryable)
			assert.True(t, errors.IsRetryableErrorCode(tt.wantCode))
		})
	}
}

func TestHandler_Execute_NilInput(t *testing.T) {
	h := createTestHandler(t, &MockReports{})

	_, err := h.Execute(context.Background(), nil)
	assert.Equal(t, errors.ErrCodeInvalidInput, errors.CodeOf(err))
}

// ==========================
// Input Parsing
// ==========================

func TestHandler_ParseInput(t *testing.T) {
	h := createTestHandler(t, &MockReports{})

	job := createMockJob(1, map[string]interface{}{
		"venueId":    "v1",
		"name":       "Blue Bottle Coffee",
		"lat":        37.7749,
		"lng":        -122.4194,
		"categories": []string{"cafe"},
		"openNow":    true,
		"inferred":   map[string]interface{}{"noise": "quiet", "noiseConfidence": 0.8},
		"stored":     map[string]interface{}{"rating": 4.5, "isOutdoor": false},
		"userId":     "u-42",
	})

	input, err := h.parseInput(job)
	require.NoError(t, err)
	assert.Equal(t, "v1", input.VenueID)
	assert.Equal(t, "u-42", input.UserID)
	assert.Equal(t, []string{"cafe"}, input.Categories)
	require.NotNil(t, input.OpenNow)
	assert.True(t, *input.OpenNow)
	require.NotNil(t, input.Inferred)
	assert.Equal(t, "quiet", input.Inferred.Noise)
	require.NotNil(t, input.Stored)
	assert.Equal(t, 4.5, *input.Stored.Rating)

	venue := input.Venue()
	assert.Equal(t, 37.7749, venue.Lat)
	assert.Equal(t, "Blue Bottle Coffee", venue.Name)
}

func TestHandler_ParseInput_Errors(t *testing.T) {
	h := createTestHandler(t, &MockReports{})

	tests := []struct {
		name     string
		job      entities.Job
		wantCode errors.ErrorCode
	}{
		{"missing id and name", createMockJob(2, map[string]interface{}{"lat": 1.0, "lng": 1.0}), errors.ErrCodeInvalidInput},
		{"latitude out of range", createMockJob(3, map[string]interface{}{"venueId": "v1", "lat": 120.0, "lng": 1.0}), errors.ErrCodeInvalidInput},
		{"malformed variables", entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 4, Variables: "{"}}, errors.ErrCodeParseError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.parseInput(tt.job)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, errors.CodeOf(err))

			bpmn := errors.ConvertToBPMNError(errors.Normalize(err))
			assert.Equal(t, "INTELLIGENCE_INPUT_INVALID", bpmn.Code)
			assert.Zero(t, bpmn.Retries)
		})
	}
}

// ==========================
// Construction & Output
// ==========================

func TestNewHandler_Validation(t *testing.T) {
	eng := engine.New(engine.Options{}, engine.Deps{})

	_, err := NewHandler(HandlerOptions{Config: &Config{Timeout: 0, MaxReports: 1}, Engine: eng, Reports: &MockReports{}})
	assert.ErrorContains(t, err, "timeout")

	_, err = NewHandler(HandlerOptions{Engine: eng})
	assert.ErrorContains(t, err, "report source")

	_, err = NewHandler(HandlerOptions{Reports: &MockReports{}})
	assert.ErrorContains(t, err, "engine")

	h, err := NewHandler(HandlerOptions{Engine: eng, Reports: &MockReports{}})
	require.NoError(t, err)
	assert.Equal(t, 200, h.config.MaxReports)
}

func TestConfigFromApp(t *testing.T) {
	app := &config.Config{Workers: map[string]config.WorkerConfig{
		TaskType: {Enabled: false, Timeout: 12000},
	}}
	app.Intelligence.MaxReports = 80

	cfg := ConfigFromApp(app)
	assert.False(t, cfg.Enabled)
	assert.Equal(t, 12*time.Second, cfg.Timeout)
	assert.Equal(t, 80, cfg.MaxReports)

	assert.Equal(t, LoadConfig(), ConfigFromApp(nil))
}

func TestOutput_JobVariables(t *testing.T) {
	out := &Output{
		PlaceIntelligence: engine.Fallback("v1", "place-intel-v2", time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)),
		WorkScore:         50,
		Confidence:        0.1,
	}

	data, err := json.Marshal(out)
	require.NoError(t, err)

	var vars map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &vars))
	assert.Contains(t, vars, "placeIntelligence")
	assert.Equal(t, 50.0, vars["workScore"])
	assert.Equal(t, 0.1, vars["confidence"])
	assert.Equal(t, 0.0, vars["reportCount"])
}
