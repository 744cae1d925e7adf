// Package audit records extraction runs and raw model outputs to BigQuery
// for offline inspection. Writes are queued and handled by a background
// worker, so analytics latency or outages never touch the request path.
package audit

import (
	"time"
)

// Run statuses.
const (
	StatusRunning = "RUNNING"
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

// Run is one extraction attempt as stored in the extraction_runs table. A
// run starts RUNNING before the model call and is finished with SUCCESS
// (carrying the preview id it produced) or FAILED (carrying the error).
type Run struct {
	RunID        string
	PreviewID    string
	UserID       string
	Kind         string
	ModelName    string
	Status       string
	StartedAt    time.Time
	FinishedAt   time.Time
	ErrorMessage string
}

// Output is the raw JSON a model returned for a run, stored verbatim in the
// model_outputs table.
type Output struct {
	OutputID  string
	RunID     string
	RawJSON   string
	CreatedAt time.Time
}
