package telemetry

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"place-intelligence/internal/common/errors"
)

// PostgresSink inserts snapshots into place_intelligence_snapshots.
type PostgresSink struct {
	db *sql.DB
}

func NewPostgresSink(db *sql.DB) *PostgresSink {
	return &PostgresSink{db: db}
}

func (p *PostgresSink) Name() string { return "postgres" }

const insertSnapshotQuery = `
	INSERT INTO place_intelligence_snapshots
		(id, venue_id, user_id, model_version, outcome, work_score, confidence, payload, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`

func (p *PostgresSink) Write(ctx context.Context, snap Snapshot) error {
	payload, err := json.Marshal(snap.Result)
	if err != nil {
		return errors.NewTelemetryWriteError(p.Name(), err)
	}
	_, err = p.db.ExecContext(ctx, insertSnapshotQuery,
		snap.ID, snap.VenueID, sql.NullString{String: snap.UserID, Valid: snap.UserID != ""},
		snap.ModelVersion, snap.Outcome,
		snap.WorkScore, snap.Confidence, payload, snap.CreatedAt,
	)
	if err != nil {
		return errors.NewTelemetryWriteError(p.Name(), err)
	}
	return nil
}

// ElasticsearchSink indexes snapshots by id.
type ElasticsearchSink struct {
	client *elasticsearch.Client
	index  string
}

func NewElasticsearchSink(client *elasticsearch.Client, index string) *ElasticsearchSink {
	return &ElasticsearchSink{client: client, index: index}
}

func (e *ElasticsearchSink) Name() string { return "elasticsearch" }

func (e *ElasticsearchSink) Write(ctx context.Context, snap Snapshot) error {
	body, err := json.Marshal(snap)
	if err != nil {
		return errors.NewTelemetryWriteError(e.Name(), err)
	}

	req := esapi.IndexRequest{
		Index:      e.index,
		DocumentID: snap.ID,
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, e.client)
	if err != nil {
		return errors.NewTelemetryWriteError(e.Name(), err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return errors.NewTelemetryWriteError(e.Name(), fmt.Errorf("index failed: %s", res.Status()))
	}
	return nil
}

// MultiSink writes to every sink and joins their errors.
type MultiSink []Sink

func (m MultiSink) Name() string { return "multi" }

func (m MultiSink) Write(ctx context.Context, snap Snapshot) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, snap); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

// DiscardSink is used when no sink is configured.
type DiscardSink struct{}

func (DiscardSink) Name() string                          { return "discard" }
func (DiscardSink) Write(context.Context, Snapshot) error { return nil }
