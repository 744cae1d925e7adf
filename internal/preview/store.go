package preview

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// state tracks where a preview sits in its lifecycle. A preview starts
// available, moves to committing while exactly one commit holds it, and
// ends consumed. Release moves committing back to available when a commit
// aborts without persisting anything.
type state int

const (
	stateAvailable state = iota
	stateCommitting
	stateConsumed
)

type record struct {
	preview Preview
	state   state
}

// Store keeps previews in process memory, keyed by token. All mutation goes
// through the mutex; reads hand out copies so callers never share the
// internal record. Expired entries fail lazily on access and are physically
// removed by the background sweeper.
type Store struct {
	mu       sync.RWMutex
	previews map[string]*record

	ttl time.Duration
	now func() time.Time
	log zerolog.Logger

	closeChan chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewStore creates an empty store whose previews live for ttl after creation.
func NewStore(ttl time.Duration, log zerolog.Logger) *Store {
	return &Store{
		previews:  make(map[string]*record),
		ttl:       ttl,
		now:       time.Now,
		log:       log,
		closeChan: make(chan struct{}),
	}
}

// Create stamps the preview with a fresh token and its TTL window and stores
// it. The stored copy is returned so callers see the stamped fields.
func (s *Store) Create(ctx context.Context, p Preview) (*Preview, error) {
	token, err := NewToken()
	if err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}

	now := s.now()
	p.ID = token
	p.CreatedAt = now
	p.ExpiresAt = now.Add(s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.previews[token] = &record{preview: p, state: stateAvailable}

	s.log.Debug().
		Str("preview_id", token).
		Str("kind", string(p.Kind)).
		Time("expires_at", p.ExpiresAt).
		Msg("preview created")

	return &p, nil
}

// Get returns a read-only copy of the preview. It succeeds while a commit is
// in flight; inspection does not disturb the lifecycle. Ids belonging to a
// different user report ErrNotFound.
func (s *Store) Get(ctx context.Context, id, userID string) (*Preview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.previews[id]
	if !ok || rec.preview.UserID != userID {
		return nil, ErrNotFound
	}
	if rec.state == stateConsumed {
		return nil, ErrAlreadyConsumed
	}
	if s.now().After(rec.preview.ExpiresAt) {
		return nil, ErrExpired
	}

	previewCopy := rec.preview
	return &previewCopy, nil
}

// Acquire atomically claims the preview for a commit. Exactly one caller can
// hold a preview at a time: while it is held, and after it is consumed,
// further Acquire calls fail with ErrAlreadyConsumed.
func (s *Store) Acquire(ctx context.Context, id, userID string) (*Preview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.previews[id]
	if !ok || rec.preview.UserID != userID {
		return nil, ErrNotFound
	}
	if rec.state != stateAvailable {
		return nil, ErrAlreadyConsumed
	}
	if s.now().After(rec.preview.ExpiresAt) {
		return nil, ErrExpired
	}

	rec.state = stateCommitting

	previewCopy := rec.preview
	return &previewCopy, nil
}

// Release returns a held preview to the available state. Used when a commit
// aborts before persisting anything, so the caller may retry with the same
// token. Releasing an id that is not held is a no-op.
func (s *Store) Release(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.previews[id]
	if !ok || rec.state != stateCommitting {
		return
	}
	rec.state = stateAvailable
}

// Consume marks the preview consumed. Consuming from the committing state
// always succeeds, even past the TTL: validity was checked when the commit
// acquired the preview, and a finished commit must never be replayable.
// Consuming an already-consumed preview fails with ErrAlreadyConsumed.
func (s *Store) Consume(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.previews[id]
	if !ok {
		return ErrNotFound
	}
	switch rec.state {
	case stateConsumed:
		return ErrAlreadyConsumed
	case stateAvailable:
		if s.now().After(rec.preview.ExpiresAt) {
			return ErrExpired
		}
	}

	rec.state = stateConsumed
	return nil
}

// Len reports how many previews are currently resident, including consumed
// ones not yet swept.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.previews)
}

// StartSweeper launches the background goroutine that evicts previews whose
// TTL has passed. Call Stop to shut it down.
func (s *Store) StartSweeper(interval time.Duration) {
	s.wg.Add(1)
	go s.sweepLoop(interval)
}

func (s *Store) sweepLoop(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.closeChan:
			return
		case <-ticker.C:
			if n := s.sweep(); n > 0 {
				s.log.Debug().Int("evicted", n).Msg("preview sweep")
			}
		}
	}
}

// sweep removes every record past its TTL except those held by an in-flight
// commit. Consumed records are kept until expiry so that replayed commits
// keep observing ErrAlreadyConsumed rather than ErrNotFound.
func (s *Store) sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, rec := range s.previews {
		if rec.state == stateCommitting {
			continue
		}
		if now.After(rec.preview.ExpiresAt) {
			delete(s.previews, id)
			removed++
		}
	}
	return removed
}

// Stop halts the sweeper and waits for it to exit, honoring ctx.
func (s *Store) Stop(ctx context.Context) error {
	s.closeOnce.Do(func() {
		close(s.closeChan)
	})

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("Stop: waiting for sweeper: %w", ctx.Err())
	}
}
