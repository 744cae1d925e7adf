package preview

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShauryaManiTripathi/finance-tracker-typeface-project-sub001/internal/extract"
)

func newTestStore(ttl time.Duration) *Store {
	return NewStore(ttl, zerolog.Nop())
}

func testPreview(userID string) Preview {
	return Preview{
		UserID:        userID,
		Kind:          extract.KindReceipt,
		ModelName:     "gemini-2.5-flash",
		ExtractedData: json.RawMessage(`{"merchant":"Cafe Coffee Day","amount":125.50}`),
	}
}

func TestStore_CreateStampsPreview(t *testing.T) {
	s := newTestStore(15 * time.Minute)
	now := time.Date(2025, 10, 6, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	created, err := s.Create(context.Background(), testPreview("user-1"))
	require.NoError(t, err)

	assert.Len(t, created.ID, 64, "token should be 32 bytes hex-encoded")
	assert.Equal(t, now, created.CreatedAt)
	assert.Equal(t, now.Add(15*time.Minute), created.ExpiresAt)

	got, err := s.Get(context.Background(), created.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, extract.KindReceipt, got.Kind)
}

func TestStore_TokensAreUnique(t *testing.T) {
	s := newTestStore(time.Minute)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		created, err := s.Create(context.Background(), testPreview("user-1"))
		require.NoError(t, err)
		require.False(t, seen[created.ID], "duplicate token issued")
		seen[created.ID] = true
	}
}

func TestStore_GetUnknownID(t *testing.T) {
	s := newTestStore(time.Minute)

	_, err := s.Get(context.Background(), "no-such-preview", "user-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_GetForeignUserReportsNotFound(t *testing.T) {
	s := newTestStore(time.Minute)

	created, err := s.Create(context.Background(), testPreview("user-1"))
	require.NoError(t, err)

	_, err = s.Get(context.Background(), created.ID, "user-2")
	assert.ErrorIs(t, err, ErrNotFound, "foreign ids must be indistinguishable from unknown ones")

	_, err = s.Acquire(context.Background(), created.ID, "user-2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Expiry(t *testing.T) {
	s := newTestStore(15 * time.Minute)
	now := time.Date(2025, 10, 6, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	created, err := s.Create(context.Background(), testPreview("user-1"))
	require.NoError(t, err)

	// One nanosecond before the deadline the preview is still live.
	now = created.ExpiresAt.Add(-time.Nanosecond)
	_, err = s.Get(context.Background(), created.ID, "user-1")
	require.NoError(t, err)

	now = created.ExpiresAt.Add(time.Nanosecond)
	_, err = s.Get(context.Background(), created.ID, "user-1")
	assert.ErrorIs(t, err, ErrExpired)

	_, err = s.Acquire(context.Background(), created.ID, "user-1")
	assert.ErrorIs(t, err, ErrExpired)

	err = s.Consume(context.Background(), created.ID)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestStore_ConsumeIsSingleUse(t *testing.T) {
	s := newTestStore(time.Minute)

	created, err := s.Create(context.Background(), testPreview("user-1"))
	require.NoError(t, err)

	require.NoError(t, s.Consume(context.Background(), created.ID))

	err = s.Consume(context.Background(), created.ID)
	assert.ErrorIs(t, err, ErrAlreadyConsumed)

	_, err = s.Get(context.Background(), created.ID, "user-1")
	assert.ErrorIs(t, err, ErrAlreadyConsumed)

	_, err = s.Acquire(context.Background(), created.ID, "user-1")
	assert.ErrorIs(t, err, ErrAlreadyConsumed)
}

func TestStore_AcquireIsExclusive(t *testing.T) {
	s := newTestStore(time.Minute)

	created, err := s.Create(context.Background(), testPreview("user-1"))
	require.NoError(t, err)

	_, err = s.Acquire(context.Background(), created.ID, "user-1")
	require.NoError(t, err)

	_, err = s.Acquire(context.Background(), created.ID, "user-1")
	assert.ErrorIs(t, err, ErrAlreadyConsumed, "second acquire while held")

	// Inspection is read-only and keeps working while the commit runs.
	got, err := s.Get(context.Background(), created.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}

func TestStore_ReleaseMakesPreviewAvailableAgain(t *testing.T) {
	s := newTestStore(time.Minute)

	created, err := s.Create(context.Background(), testPreview("user-1"))
	require.NoError(t, err)

	_, err = s.Acquire(context.Background(), created.ID, "user-1")
	require.NoError(t, err)

	s.Release(context.Background(), created.ID)

	_, err = s.Acquire(context.Background(), created.ID, "user-1")
	require.NoError(t, err, "released preview should be acquirable again")

	require.NoError(t, s.Consume(context.Background(), created.ID))

	// Releasing a consumed preview must not resurrect it.
	s.Release(context.Background(), created.ID)
	_, err = s.Acquire(context.Background(), created.ID, "user-1")
	assert.ErrorIs(t, err, ErrAlreadyConsumed)
}

func TestStore_ConcurrentAcquireHasOneWinner(t *testing.T) {
	s := newTestStore(time.Minute)

	created, err := s.Create(context.Background(), testPreview("user-1"))
	require.NoError(t, err)

	const callers = 16
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		won      int
		rejected int
	)

	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := s.Acquire(context.Background(), created.ID, "user-1")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				won++
			default:
				rejected++
				assert.ErrorIs(t, err, ErrAlreadyConsumed)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, won, "exactly one caller may hold the preview")
	assert.Equal(t, callers-1, rejected)
}

func TestStore_ConsumeHeldPreviewPastExpiry(t *testing.T) {
	s := newTestStore(15 * time.Minute)
	now := time.Date(2025, 10, 6, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	created, err := s.Create(context.Background(), testPreview("user-1"))
	require.NoError(t, err)

	_, err = s.Acquire(context.Background(), created.ID, "user-1")
	require.NoError(t, err)

	// The commit straddles the TTL deadline. Finalizing must still succeed
	// so finished work is never replayable.
	now = created.ExpiresAt.Add(time.Hour)
	require.NoError(t, s.Consume(context.Background(), created.ID))

	_, err = s.Acquire(context.Background(), created.ID, "user-1")
	assert.ErrorIs(t, err, ErrAlreadyConsumed)
}

func TestStore_ExtractedDataBytesAreStable(t *testing.T) {
	s := newTestStore(time.Minute)

	payload := json.RawMessage(`{"merchant":"Chai Point","amount":40,"items":[{"name":"Masala Chai","price":40}]}`)
	p := testPreview("user-1")
	p.ExtractedData = payload

	created, err := s.Create(context.Background(), p)
	require.NoError(t, err)

	first, err := s.Get(context.Background(), created.ID, "user-1")
	require.NoError(t, err)
	second, err := s.Get(context.Background(), created.ID, "user-1")
	require.NoError(t, err)

	assert.True(t, bytes.Equal(payload, first.ExtractedData))
	assert.True(t, bytes.Equal(first.ExtractedData, second.ExtractedData), "reads must return identical bytes")
}

func TestStore_SweepEvictsExpired(t *testing.T) {
	s := newTestStore(15 * time.Minute)
	now := time.Date(2025, 10, 6, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	expired, err := s.Create(context.Background(), testPreview("user-1"))
	require.NoError(t, err)

	held, err := s.Create(context.Background(), testPreview("user-1"))
	require.NoError(t, err)
	_, err = s.Acquire(context.Background(), held.ID, "user-1")
	require.NoError(t, err)

	consumed, err := s.Create(context.Background(), testPreview("user-1"))
	require.NoError(t, err)
	require.NoError(t, s.Consume(context.Background(), consumed.ID))

	require.Equal(t, 3, s.Len())

	now = now.Add(16 * time.Minute)
	assert.Equal(t, 2, s.sweep(), "expired and consumed records go, held ones stay")
	assert.Equal(t, 1, s.Len())

	// The held record survives sweeping until its commit lets go.
	_, err = s.Get(context.Background(), held.ID, "user-1")
	assert.ErrorIs(t, err, ErrExpired)
	_, err = s.Get(context.Background(), expired.ID, "user-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_SweeperLifecycle(t *testing.T) {
	s := newTestStore(time.Minute)
	s.StartSweeper(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}
