// Package api assembles the HTTP surface: routes, identity, metrics and the
// outer middleware chain.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ShauryaManiTripathi/finance-tracker-typeface-project-sub001/internal/api/handlers"
	"github.com/ShauryaManiTripathi/finance-tracker-typeface-project-sub001/internal/api/middleware"
)

// NewRouter wires the handlers into the full middleware stack. Everything
// under /api/v1 requires the X-User-ID header; /healthz and /metrics are open.
func NewRouter(ph *handlers.PreviewsHandler, ch *handlers.CommitsHandler, hh *handlers.HealthHandler, log zerolog.Logger) http.Handler {
	r := mux.NewRouter()

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", hh.Health).Methods(http.MethodGet)

	apiV1 := r.PathPrefix("/api/v1").Subrouter()
	apiV1.Use(middleware.Identity)

	apiV1.HandleFunc("/previews/receipt", ph.CreateReceiptPreview).Methods(http.MethodPost)
	apiV1.HandleFunc("/previews/statement", ph.CreateStatementPreview).Methods(http.MethodPost)
	apiV1.HandleFunc("/previews/{previewId}", ph.GetPreview).Methods(http.MethodGet)
	apiV1.HandleFunc("/commits/receipt", ch.CommitReceipt).Methods(http.MethodPost)
	apiV1.HandleFunc("/commits/statement", ch.CommitStatement).Methods(http.MethodPost)

	// Mux-level middleware so the request duration labels carry the matched
	// route template rather than raw paths.
	r.Use(middleware.Metrics)

	// RequestID runs before Logger so the request-scoped logger carries the
	// request id.
	handler := middleware.CORS(r)
	handler = middleware.Logger(log)(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Recovery(log)(handler)

	return handler
}
