// Package store reads visit reports from the app backend's Postgres database.
package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/lib/pq"

	"place-intelligence/internal/common/errors"
	"place-intelligence/internal/models"
)

// ReportSource is what the build worker needs from persistence.
type ReportSource interface {
	RecentReports(ctx context.Context, venueID string, limit int) ([]models.VisitReport, error)
}

// Reports is the Postgres-backed ReportSource.
type Reports struct {
	db      *sql.DB
	timeout time.Duration
}

func NewReports(db *sql.DB, timeout time.Duration) *Reports {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Reports{db: db, timeout: timeout}
}

const recentReportsQuery = `
	SELECT id, venue_id, COALESCE(user_id, ''),
		wifi, noise, COALESCE(noise_label, ''),
		busyness, COALESCE(busyness_label, ''),
		outlets, COALESCE(outlet_label, ''),
		laptop_friendly, drink_quality, drink_price,
		intents, COALESCE(ambiance, ''), photo_tags, created_at
	FROM visit_reports
	WHERE venue_id = $1
	ORDER BY created_at DESC
	LIMIT $2`

// RecentReports returns up to limit reports for the venue, newest first.
func (r *Reports) RecentReports(ctx context.Context, venueID string, limit int) ([]models.VisitReport, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, recentReportsQuery, venueID, limit)
	if err != nil {
		return nil, classify(ctx, venueID, err)
	}
	defer rows.Close()

	reports := make([]models.VisitReport, 0, limit)
	for rows.Next() {
		var (
			rep                        models.VisitReport
			wifi, noise, busy, outlets sql.NullFloat64
			quality, price             sql.NullFloat64
			laptop                     sql.NullBool
			intents, photoTags         pq.StringArray
		)
		err := rows.Scan(
			&rep.ID, &rep.VenueID, &rep.UserID,
			&wifi, &noise, &rep.NoiseLabel,
			&busy, &rep.BusynessLabel,
			&outlets, &rep.OutletLabel,
			&laptop, &quality, &price,
			&intents, &rep.Ambiance, &photoTags, &rep.CreatedAt,
		)
		if err != nil {
			return nil, classify(ctx, venueID, err)
		}
		rep.Wifi = nullFloat(wifi)
		rep.Noise = nullFloat(noise)
		rep.Busyness = nullFloat(busy)
		rep.Outlets = nullFloat(outlets)
		rep.DrinkQuality = nullFloat(quality)
		rep.DrinkPrice = nullFloat(price)
		if laptop.Valid {
			rep.LaptopFriendly = models.Bool(laptop.Bool)
		}
		rep.Intents = []string(intents)
		rep.PhotoTags = []string(photoTags)
		reports = append(reports, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(ctx, venueID, err)
	}

	return reports, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return models.Float(v.Float64)
}

func classify(ctx context.Context, venueID string, err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.NewQueryTimeoutError(venueID)
	}
	return errors.NewReportQueryFailedError(venueID, err)
}
