package extract

import (
	"context"
	"errors"
)

// ErrUnsupportedType is returned when the declared media type is not
// accepted for the requested document kind.
var ErrUnsupportedType = errors.New("unsupported document type")

// Extractor turns raw document bytes into a structured extraction.
// The concrete implementation calls an external vision model; any other
// failure mode it returns should be treated as a retryable upstream error.
// This interface enables mocking and testing of extraction-dependent code.
type Extractor interface {
	Extract(ctx context.Context, kind Kind, mimeType string, data []byte) (*Extraction, error)
}
