package audit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// writeTimeout bounds one sink write so a stuck BigQuery call cannot wedge
// the worker.
const writeTimeout = 30 * time.Second

// maxErrorLen truncates stored error messages.
const maxErrorLen = 2000

// Sink is the destination for audit writes. Split out so tests can record
// without BigQuery.
type Sink interface {
	InsertRun(ctx context.Context, run Run) error
	UpdateRun(ctx context.Context, run Run) error
	InsertOutput(ctx context.Context, out Output) error
}

type eventKind int

const (
	eventInsertRun eventKind = iota
	eventUpdateRun
	eventInsertOutput
)

type event struct {
	kind   eventKind
	run    Run
	output Output
}

// Recorder queues audit events onto a buffered channel consumed by one
// background worker. Every method is safe on a nil receiver and becomes a
// no-op, which is how the rest of the system runs with auditing disabled.
// When the buffer is full, events are dropped and counted rather than
// blocking the caller.
type Recorder struct {
	sink    Sink
	events  chan event
	log     zerolog.Logger
	dropped atomic.Int64

	closeChan chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewRecorder creates a recorder writing to sink. bufferSize bounds how many
// events may be pending before drops begin.
func NewRecorder(sink Sink, bufferSize int, log zerolog.Logger) *Recorder {
	return &Recorder{
		sink:      sink,
		events:    make(chan event, bufferSize),
		log:       log,
		closeChan: make(chan struct{}),
	}
}

// Start launches the background worker.
func (r *Recorder) Start() {
	if r == nil {
		return
	}
	r.wg.Add(1)
	go r.worker()
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case <-r.closeChan:
			return
		case ev := <-r.events:
			r.process(ev)
		}
	}
}

func (r *Recorder) process(ev event) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	var err error
	switch ev.kind {
	case eventInsertRun:
		err = r.sink.InsertRun(ctx, ev.run)
	case eventUpdateRun:
		err = r.sink.UpdateRun(ctx, ev.run)
	case eventInsertOutput:
		err = r.sink.InsertOutput(ctx, ev.output)
	}
	if err != nil {
		r.log.Error().Err(err).Str("run_id", ev.run.RunID).Msg("audit write failed")
	}
}

func (r *Recorder) enqueue(ev event) {
	select {
	case r.events <- ev:
	default:
		r.dropped.Add(1)
		r.log.Warn().Str("run_id", ev.run.RunID).Msg("audit buffer full, event dropped")
	}
}

// StartRun records a new RUNNING extraction run and returns its id. The id
// is generated synchronously so callers can tag later events; the write
// itself is asynchronous.
func (r *Recorder) StartRun(userID, kind, modelName string) string {
	if r == nil {
		return ""
	}
	runID := uuid.NewString()
	r.enqueue(event{kind: eventInsertRun, run: Run{
		RunID:     runID,
		UserID:    userID,
		Kind:      kind,
		ModelName: modelName,
		Status:    StatusRunning,
		StartedAt: time.Now(),
	}})
	return runID
}

// FinishSuccess marks the run SUCCESS and attaches the preview it produced.
func (r *Recorder) FinishSuccess(runID, previewID string) {
	if r == nil || runID == "" {
		return
	}
	r.enqueue(event{kind: eventUpdateRun, run: Run{
		RunID:      runID,
		PreviewID:  previewID,
		Status:     StatusSuccess,
		FinishedAt: time.Now(),
	}})
}

// FinishFailed marks the run FAILED with the cause.
func (r *Recorder) FinishFailed(runID string, cause error) {
	if r == nil || runID == "" {
		return
	}
	msg := ""
	if cause != nil {
		msg = cause.Error()
		if len(msg) > maxErrorLen {
			msg = msg[:maxErrorLen]
		}
	}
	r.enqueue(event{kind: eventUpdateRun, run: Run{
		RunID:        runID,
		Status:       StatusFailed,
		FinishedAt:   time.Now(),
		ErrorMessage: msg,
	}})
}

// RecordOutput stores the raw model response for a run.
func (r *Recorder) RecordOutput(runID string, raw []byte) {
	if r == nil || runID == "" {
		return
	}
	r.enqueue(event{kind: eventInsertOutput, output: Output{
		OutputID:  uuid.NewString(),
		RunID:     runID,
		RawJSON:   string(raw),
		CreatedAt: time.Now(),
	}})
}

// Dropped reports how many events were discarded because the buffer was
// full.
func (r *Recorder) Dropped() int64 {
	if r == nil {
		return 0
	}
	return r.dropped.Load()
}

// Stop halts the worker and waits for it to exit, honoring ctx. Events still
// buffered at that point are dropped.
func (r *Recorder) Stop(ctx context.Context) error {
	if r == nil {
		return nil
	}
	r.closeOnce.Do(func() {
		close(r.closeChan)
	})

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("Stop: waiting for audit worker: %w", ctx.Err())
	}
}
