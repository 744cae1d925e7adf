package audit

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSink struct {
	mu      sync.Mutex
	inserts []Run
	updates []Run
	outputs []Output
}

var _ Sink = (*fakeSink)(nil)

func (f *fakeSink) InsertRun(ctx context.Context, run Run) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserts = append(f.inserts, run)
	return nil
}

func (f *fakeSink) UpdateRun(ctx context.Context, run Run) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, run)
	return nil
}

func (f *fakeSink) InsertOutput(ctx context.Context, out Output) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outputs = append(f.outputs, out)
	return nil
}

func (f *fakeSink) counts() (int, int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inserts), len(f.updates), len(f.outputs)
}

func TestRecorder_RecordsRunLifecycle(t *testing.T) {
	sink := &fakeSink{}
	r := NewRecorder(sink, 16, zerolog.Nop())
	r.Start()
	defer r.Stop(context.Background())

	runID := r.StartRun("user-1", "receipt", "gemini-2.5-flash")
	require.NotEmpty(t, runID)
	r.RecordOutput(runID, []byte(`{"merchant":"Cafe Coffee Day"}`))
	r.FinishSuccess(runID, "preview-abc")

	require.Eventually(t, func() bool {
		ins, ups, outs := sink.counts()
		return ins == 1 && ups == 1 && outs == 1
	}, 2*time.Second, 10*time.Millisecond, "worker should drain all three events")

	sink.mu.Lock()
	defer sink.mu.Unlock()

	assert.Equal(t, runID, sink.inserts[0].RunID)
	assert.Equal(t, StatusRunning, sink.inserts[0].Status)
	assert.Equal(t, "receipt", sink.inserts[0].Kind)

	assert.Equal(t, StatusSuccess, sink.updates[0].Status)
	assert.Equal(t, "preview-abc", sink.updates[0].PreviewID)

	assert.Equal(t, runID, sink.outputs[0].RunID)
	assert.Contains(t, sink.outputs[0].RawJSON, "Cafe Coffee Day")
}

func TestRecorder_FailedRunCarriesTruncatedError(t *testing.T) {
	sink := &fakeSink{}
	r := NewRecorder(sink, 16, zerolog.Nop())
	r.Start()
	defer r.Stop(context.Background())

	runID := r.StartRun("user-1", "statement", "gemini-2.5-flash")
	r.FinishFailed(runID, errors.New(strings.Repeat("x", 5000)))

	require.Eventually(t, func() bool {
		_, ups, _ := sink.counts()
		return ups == 1
	}, 2*time.Second, 10*time.Millisecond)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, StatusFailed, sink.updates[0].Status)
	assert.Len(t, sink.updates[0].ErrorMessage, maxErrorLen)
}

func TestRecorder_NilRecorderIsNoOp(t *testing.T) {
	var r *Recorder

	r.Start()
	runID := r.StartRun("user-1", "receipt", "gemini-2.5-flash")
	assert.Empty(t, runID)
	r.RecordOutput("run", []byte("{}"))
	r.FinishSuccess("run", "preview")
	r.FinishFailed("run", errors.New("boom"))
	assert.Zero(t, r.Dropped())
	assert.NoError(t, r.Stop(context.Background()))
}

func TestRecorder_DropsWhenBufferFull(t *testing.T) {
	sink := &fakeSink{}
	// Worker never started, so the buffer fills and stays full.
	r := NewRecorder(sink, 1, zerolog.Nop())

	r.StartRun("user-1", "receipt", "gemini-2.5-flash")
	r.StartRun("user-1", "receipt", "gemini-2.5-flash")
	r.StartRun("user-1", "receipt", "gemini-2.5-flash")

	assert.EqualValues(t, 2, r.Dropped(), "overflow must drop, not block")
}

func TestRecorder_StopHonorsContext(t *testing.T) {
	sink := &fakeSink{}
	r := NewRecorder(sink, 4, zerolog.Nop())
	r.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, r.Stop(ctx))

	// Stop is idempotent.
	require.NoError(t, r.Stop(context.Background()))
}
