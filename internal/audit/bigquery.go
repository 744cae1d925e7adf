package audit

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

const (
	runsTable    = "extraction_runs"
	outputsTable = "model_outputs"
)

// BigQuerySink writes audit rows with parameterized DML queries, one query
// job per event. DML keeps rows updatable, which streaming inserts into the
// buffer would not.
type BigQuerySink struct {
	client  *bigquery.Client
	dataset string
}

// NewBigQuerySink opens a BigQuery client for the given project and dataset.
func NewBigQuerySink(ctx context.Context, projectID, dataset string) (*BigQuerySink, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewBigQuerySink: bigquery client: %w", err)
	}
	return &BigQuerySink{client: client, dataset: dataset}, nil
}

// Close releases the underlying client.
func (s *BigQuerySink) Close() error {
	return s.client.Close()
}

var _ Sink = (*BigQuerySink)(nil)

// InsertRun writes a fresh extraction run row.
func (s *BigQuerySink) InsertRun(ctx context.Context, run Run) error {
	q := s.client.Query(fmt.Sprintf(`
		INSERT %s.%s (run_id, preview_id, user_id, kind, model_name, status, started_ts, error_message)
		VALUES (@run_id, @preview_id, @user_id, @kind, @model_name, @status, @started_ts, @error_message)
	`, s.dataset, runsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "run_id", Value: run.RunID},
		{Name: "preview_id", Value: run.PreviewID},
		{Name: "user_id", Value: run.UserID},
		{Name: "kind", Value: run.Kind},
		{Name: "model_name", Value: run.ModelName},
		{Name: "status", Value: run.Status},
		{Name: "started_ts", Value: run.StartedAt},
		{Name: "error_message", Value: run.ErrorMessage},
	}

	return runJob(ctx, q, "InsertRun")
}

// UpdateRun finishes a run: status, finish time, error message, and the
// preview id when one was produced. An empty preview id leaves the stored
// value untouched.
func (s *BigQuerySink) UpdateRun(ctx context.Context, run Run) error {
	q := s.client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = @error_message,
		    preview_id = IF(@preview_id = '', preview_id, @preview_id)
		WHERE run_id = @run_id
	`, s.dataset, runsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: run.Status},
		{Name: "finished_ts", Value: run.FinishedAt},
		{Name: "error_message", Value: run.ErrorMessage},
		{Name: "preview_id", Value: run.PreviewID},
		{Name: "run_id", Value: run.RunID},
	}

	return runJob(ctx, q, "UpdateRun")
}

// InsertOutput writes the raw model response for a run.
func (s *BigQuerySink) InsertOutput(ctx context.Context, out Output) error {
	q := s.client.Query(fmt.Sprintf(`
		INSERT %s.%s (output_id, run_id, raw_json, created_ts)
		VALUES (@output_id, @run_id, @raw_json, @created_ts)
	`, s.dataset, outputsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "output_id", Value: out.OutputID},
		{Name: "run_id", Value: out.RunID},
		{Name: "raw_json", Value: out.RawJSON},
		{Name: "created_ts", Value: out.CreatedAt},
	}

	return runJob(ctx, q, "InsertOutput")
}

// runRow mirrors the extraction_runs schema for reads.
type runRow struct {
	RunID        string                 `bigquery:"run_id"`
	PreviewID    bigquery.NullString    `bigquery:"preview_id"`
	UserID       string                 `bigquery:"user_id"`
	Kind         string                 `bigquery:"kind"`
	ModelName    string                 `bigquery:"model_name"`
	Status       string                 `bigquery:"status"`
	StartedTS    time.Time              `bigquery:"started_ts"`
	FinishedTS   bigquery.NullTimestamp `bigquery:"finished_ts"`
	ErrorMessage bigquery.NullString    `bigquery:"error_message"`
}

// ListRecentRuns returns the newest extraction runs, most recent first.
func (s *BigQuerySink) ListRecentRuns(ctx context.Context, limit int) ([]Run, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT run_id, preview_id, user_id, kind, model_name, status, started_ts, finished_ts, error_message
		FROM %s.%s
		ORDER BY started_ts DESC
		LIMIT @limit
	`, s.dataset, runsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "limit", Value: limit},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListRecentRuns: reading query: %w", err)
	}

	var runs []Run
	for {
		var row runRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListRecentRuns: iterating: %w", err)
		}

		run := Run{
			RunID:     row.RunID,
			UserID:    row.UserID,
			Kind:      row.Kind,
			ModelName: row.ModelName,
			Status:    row.Status,
			StartedAt: row.StartedTS,
		}
		if row.PreviewID.Valid {
			run.PreviewID = row.PreviewID.StringVal
		}
		if row.FinishedTS.Valid {
			run.FinishedAt = row.FinishedTS.Timestamp
		}
		if row.ErrorMessage.Valid {
			run.ErrorMessage = row.ErrorMessage.StringVal
		}
		runs = append(runs, run)
	}

	return runs, nil
}

func runJob(ctx context.Context, q *bigquery.Query, op string) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("%s: running query: %w", op, err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("%s: waiting for job: %w", op, err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("%s: job error: %w", op, err)
	}

	return nil
}
