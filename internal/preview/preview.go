package preview

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ShauryaManiTripathi/finance-tracker-typeface-project-sub001/internal/domain"
	"github.com/ShauryaManiTripathi/finance-tracker-typeface-project-sub001/internal/extract"
)

var (
	// ErrNotFound means the preview id is unknown (or not visible to the
	// requesting user; unknown and foreign ids are indistinguishable so
	// tokens cannot be probed).
	ErrNotFound = errors.New("preview not found")

	// ErrExpired means the preview's TTL has passed.
	ErrExpired = errors.New("preview expired")

	// ErrAlreadyConsumed means the preview was already committed, or a
	// commit for it is currently in flight.
	ErrAlreadyConsumed = errors.New("preview already consumed")
)

// Preview is one ephemeral, single-use staging record produced by document
// extraction. ExtractedData holds the exact payload bytes served at creation;
// it is never mutated, so repeated reads return identical bytes.
type Preview struct {
	ID            string                        `json:"previewId"`
	UserID        string                        `json:"-"`
	Kind          extract.Kind                  `json:"kind"`
	ModelName     string                        `json:"-"`
	ExtractedData json.RawMessage               `json:"extractedData"`
	Suggested     []domain.CandidateTransaction `json:"suggestedTransactions"`
	CreatedAt     time.Time                     `json:"createdAt"`
	ExpiresAt     time.Time                     `json:"expiresAt"`
}

// tokenBytes sizes preview tokens. 32 bytes gives 256 unguessable bits;
// a v4 uuid would only carry 122, short of the 128-bit floor ids need.
const tokenBytes = 32

// NewToken returns a fresh opaque preview token, hex-encoded.
func NewToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("NewToken: reading random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
