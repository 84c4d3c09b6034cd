package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"place-intelligence/internal/common/errors"
)

var reportColumns = []string{
	"id", "venue_id", "user_id",
	"wifi", "noise", "noise_label",
	"busyness", "busyness_label",
	"outlets", "outlet_label",
	"laptop_friendly", "drink_quality", "drink_price",
	"intents", "ambiance", "photo_tags", "created_at",
}

func TestRecentReports(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	created := time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)
	rows := sqlmock.NewRows(reportColumns).
		AddRow("r1", "v1", "u1", 4.5, nil, "quiet", 2.0, "", nil, "plenty", true, 4.0, 3.0,
			"{work,\"deep focus\"}", "cozy", "{latte}", created).
		AddRow("r2", "v1", "", nil, 3.0, "", nil, "packed", nil, "", nil, nil, nil,
			"{}", "", "{}", created.Add(-time.Hour))

	mock.ExpectQuery(`SELECT id, venue_id, .* FROM visit_reports\s+WHERE venue_id = \$1\s+ORDER BY created_at DESC\s+LIMIT \$2`).
		WithArgs("v1", 200).
		WillReturnRows(rows)

	reports, err := NewReports(db, time.Second).RecentReports(context.Background(), "v1", 200)
	require.NoError(t, err)
	require.Len(t, reports, 2)

	first := reports[0]
	assert.Equal(t, "r1", first.ID)
	assert.Equal(t, 4.5, *first.Wifi)
	assert.Nil(t, first.Noise)
	assert.Equal(t, "quiet", first.NoiseLabel)
	assert.Equal(t, 2.0, *first.NoiseValue())
	assert.Nil(t, first.Outlets)
	assert.Equal(t, 5.0, *first.OutletsValue())
	assert.True(t, *first.LaptopFriendly)
	assert.Equal(t, []string{"work", "deep focus"}, first.Intents)
	assert.Equal(t, []string{"latte"}, first.PhotoTags)
	assert.Equal(t, created, first.CreatedAt)

	second := reports[1]
	assert.Nil(t, second.Wifi)
	assert.Nil(t, second.LaptopFriendly)
	assert.Equal(t, 5.0, *second.BusynessValue())
	assert.Empty(t, second.Intents)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecentReports_Errors(t *testing.T) {
	tests := []struct {
		name     string
		queryErr error
		wantCode errors.ErrorCode
	}{
		{"query failure", fmt.Errorf("connection reset"), errors.ErrCodeReportQueryFailed},
		{"deadline", context.DeadlineExceeded, errors.ErrCodeQueryTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			mock.ExpectQuery(`FROM visit_reports`).WillReturnError(tt.queryErr)

			_, err = NewReports(db, time.Second).RecentReports(context.Background(), "v1", 10)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, errors.CodeOf(err))
			assert.True(t, errors.IsRetryableErrorCode(errors.CodeOf(err)))
		})
	}
}

func TestRecentReports_ScanError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id"}).AddRow("r1")
	mock.ExpectQuery(`FROM visit_reports`).WillReturnRows(rows)

	_, err = NewReports(db, time.Second).RecentReports(context.Background(), "v1", 10)
	assert.Equal(t, errors.ErrCodeReportQueryFailed, errors.CodeOf(err))
}
