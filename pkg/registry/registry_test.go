package registry

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"place-intelligence/internal/common/validation"
)

func TestDefault_ListsIntelligenceActivities(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)

	for _, taskType := range []string{"build-place-intelligence", "invalidate-place-intelligence"} {
		a, ok := reg.Find(taskType)
		require.True(t, ok, taskType)
		assert.Equal(t, "intelligence", a.Category)
		assert.NotEmpty(t, a.InputSchema)
		assert.NotEmpty(t, a.OutputSchema)
	}

	_, ok := reg.Find("validate-subscription")
	assert.False(t, ok)
}

func TestBuildSchema(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)
	a, _ := reg.Find("build-place-intelligence")

	v := validation.NewValidator()
	require.NoError(t, v.Register(a.TaskType, a.InputSchema))

	tests := []struct {
		name  string
		doc   map[string]interface{}
		valid bool
	}{
		{"id only", map[string]interface{}{"venueId": "v1", "lat": 37.77, "lng": -122.41}, true},
		{"name only", map[string]interface{}{"name": "Blue Bottle", "lat": 0.0, "lng": 0.0}, true},
		{"neither id nor name", map[string]interface{}{"lat": 1.0, "lng": 1.0}, false},
		{"empty id", map[string]interface{}{"venueId": "", "lat": 1.0, "lng": 1.0}, false},
		{"latitude out of range", map[string]interface{}{"venueId": "v1", "lat": 95.0, "lng": 1.0}, false},
		{"missing coordinates", map[string]interface{}{"venueId": "v1"}, false},
		{"wrong type", map[string]interface{}{"venueId": 12, "lat": 1.0, "lng": 1.0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := v.Validate(a.TaskType, tt.doc)
			require.NoError(t, err)
			assert.Equal(t, tt.valid, res.Valid, res.Summary())
		})
	}
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activities.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":"9","activities":[{"id":"x","taskType":"x"}]}`), 0o600))

	reg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9", reg.Version)
	_, ok := reg.Find("x")
	assert.True(t, ok)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`{`), 0o600))
	_, err = LoadRegistry(path)
	assert.Error(t, err)
}

func TestActivity_TimeoutDuration(t *testing.T) {
	assert.Equal(t, 30*time.Second, Activity{Timeout: "30s"}.TimeoutDuration(time.Minute))
	assert.Equal(t, time.Minute, Activity{}.TimeoutDuration(time.Minute))
	assert.Equal(t, time.Minute, Activity{Timeout: "soon"}.TimeoutDuration(time.Minute))
}

func TestCheck(t *testing.T) {
	valid := func() *ActivityRegistry {
		return &ActivityRegistry{Activities: []Activity{
			{ID: "a", DisplayName: "A", TaskType: "a", Timeout: "10s"},
			{ID: "b", DisplayName: "B", TaskType: "b"},
		}}
	}

	tests := []struct {
		name    string
		mutate  func(*ActivityRegistry)
		wantErr string
	}{
		{"valid", func(*ActivityRegistry) {}, ""},
		{"empty", func(r *ActivityRegistry) { r.Activities = nil }, "no activities"},
		{"missing id", func(r *ActivityRegistry) { r.Activities[0].ID = "" }, "id"},
		{"duplicate id", func(r *ActivityRegistry) { r.Activities[1].ID = "a" }, "duplicate activity id"},
		{"missing task type", func(r *ActivityRegistry) { r.Activities[1].TaskType = "" }, "taskType"},
		{"duplicate task type", func(r *ActivityRegistry) { r.Activities[1].TaskType = "a" }, "duplicate task type"},
		{"missing display name", func(r *ActivityRegistry) { r.Activities[0].DisplayName = "" }, "displayName"},
		{"bad timeout", func(r *ActivityRegistry) { r.Activities[0].Timeout = "soon" }, "invalid timeout"},
		{"negative retries", func(r *ActivityRegistry) { r.Activities[0].Retries = -1 }, "negative retries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := valid()
			tt.mutate(reg)
			err := reg.Check()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDefault_PassesCheck(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)
	assert.NoError(t, reg.Check())
}

func TestSave_RoundTripsThroughLoad(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "nested", "activities.json")
	require.NoError(t, reg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, reg.Version, loaded.Version)
	assert.Len(t, loaded.Activities, len(reg.Activities))
}
