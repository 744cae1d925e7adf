package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/ShauryaManiTripathi/finance-tracker-typeface-project-sub001/internal/api/middleware"
	"github.com/ShauryaManiTripathi/finance-tracker-typeface-project-sub001/internal/extract"
	"github.com/ShauryaManiTripathi/finance-tracker-typeface-project-sub001/internal/importer"
	"github.com/ShauryaManiTripathi/finance-tracker-typeface-project-sub001/internal/preview"
)

// writeDomainError maps domain errors onto HTTP statuses. Anything it does
// not recognize is logged and reported as a 500.
func writeDomainError(w http.ResponseWriter, log zerolog.Logger, err error) {
	var vErr *importer.ValidationError
	switch {
	case errors.Is(err, preview.ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, "preview not found")
	case errors.Is(err, preview.ErrExpired):
		middleware.WriteError(w, http.StatusGone, "preview expired")
	case errors.Is(err, preview.ErrAlreadyConsumed):
		middleware.WriteError(w, http.StatusConflict, "preview already consumed")
	case errors.As(err, &vErr):
		body := map[string]interface{}{"error": vErr.Msg}
		if body["error"] == "" {
			body["error"] = "validation failed"
		}
		if len(vErr.Rows) > 0 {
			body["rows"] = vErr.Rows
		}
		middleware.WriteJSON(w, http.StatusUnprocessableEntity, body)
	case errors.Is(err, extract.ErrUnsupportedType):
		middleware.WriteError(w, http.StatusUnsupportedMediaType, "unsupported media type")
	case errors.Is(err, context.DeadlineExceeded):
		middleware.WriteError(w, http.StatusGatewayTimeout, "operation timed out")
	default:
		log.Error().Err(err).Msg("request failed")
		middleware.WriteError(w, http.StatusInternalServerError, "internal server error")
	}
}
