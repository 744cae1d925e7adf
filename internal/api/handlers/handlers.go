package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/ShauryaManiTripathi/finance-tracker-typeface-project-sub001/internal/api/middleware"
	"github.com/ShauryaManiTripathi/finance-tracker-typeface-project-sub001/internal/audit"
	"github.com/ShauryaManiTripathi/finance-tracker-typeface-project-sub001/internal/domain"
	"github.com/ShauryaManiTripathi/finance-tracker-typeface-project-sub001/internal/extract"
	"github.com/ShauryaManiTripathi/finance-tracker-typeface-project-sub001/internal/importer"
	"github.com/ShauryaManiTripathi/finance-tracker-typeface-project-sub001/internal/preview"
)

// PreviewStore is the slice of the preview store the handlers need.
type PreviewStore interface {
	Create(ctx context.Context, p preview.Preview) (*preview.Preview, error)
	Get(ctx context.Context, id, userID string) (*preview.Preview, error)
}

// Committer runs commit requests. Implemented by importer.Coordinator.
type Committer interface {
	CommitReceipt(ctx context.Context, userID, previewID string, row importer.CommitRow) (*domain.Transaction, error)
	CommitStatement(ctx context.Context, userID, previewID string, rows []importer.CommitRow, skipDuplicates bool) (*importer.Result, error)
}

// Pinger reports whether the persistence layer is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PreviewsHandler handles preview creation and inspection.
type PreviewsHandler struct {
	extractor         extract.Extractor
	previews          PreviewStore
	recorder          *audit.Recorder
	maxReceiptBytes   int64
	maxStatementBytes int64
	modelName         string
	log               zerolog.Logger
}

// NewPreviewsHandler creates a new previews handler. recorder may be nil to
// disable extraction auditing.
func NewPreviewsHandler(extractor extract.Extractor, previews PreviewStore, recorder *audit.Recorder, maxReceiptBytes, maxStatementBytes int64, modelName string, log zerolog.Logger) *PreviewsHandler {
	return &PreviewsHandler{
		extractor:         extractor,
		previews:          previews,
		recorder:          recorder,
		maxReceiptBytes:   maxReceiptBytes,
		maxStatementBytes: maxStatementBytes,
		modelName:         modelName,
		log:               log,
	}
}

// receiptPreviewResponse is the wire shape of a receipt preview: the single
// draft travels under the singular suggestedTransaction key.
type receiptPreviewResponse struct {
	ID            string                       `json:"previewId"`
	Kind          extract.Kind                 `json:"kind"`
	ExtractedData json.RawMessage              `json:"extractedData"`
	Suggested     *domain.CandidateTransaction `json:"suggestedTransaction"`
	CreatedAt     time.Time                    `json:"createdAt"`
	ExpiresAt     time.Time                    `json:"expiresAt"`
}

// statementPreviewResponse is the wire shape of a statement preview: an
// ordered list of drafts under suggestedTransactions.
type statementPreviewResponse struct {
	ID            string                        `json:"previewId"`
	Kind          extract.Kind                  `json:"kind"`
	ExtractedData json.RawMessage               `json:"extractedData"`
	Suggested     []domain.CandidateTransaction `json:"suggestedTransactions"`
	CreatedAt     time.Time                     `json:"createdAt"`
	ExpiresAt     time.Time                     `json:"expiresAt"`
}

// previewResponse shapes a preview for the wire by kind. Inspection reads
// serve the same shape as creation.
func previewResponse(p *preview.Preview) interface{} {
	if p.Kind == extract.KindReceipt {
		resp := receiptPreviewResponse{
			ID:            p.ID,
			Kind:          p.Kind,
			ExtractedData: p.ExtractedData,
			CreatedAt:     p.CreatedAt,
			ExpiresAt:     p.ExpiresAt,
		}
		if len(p.Suggested) > 0 {
			resp.Suggested = &p.Suggested[0]
		}
		return resp
	}

	suggested := p.Suggested
	if suggested == nil {
		suggested = []domain.CandidateTransaction{}
	}
	return statementPreviewResponse{
		ID:            p.ID,
		Kind:          p.Kind,
		ExtractedData: p.ExtractedData,
		Suggested:     suggested,
		CreatedAt:     p.CreatedAt,
		ExpiresAt:     p.ExpiresAt,
	}
}

// CreateReceiptPreview handles POST /api/v1/previews/receipt
func (h *PreviewsHandler) CreateReceiptPreview(w http.ResponseWriter, r *http.Request) {
	h.createPreview(w, r, extract.KindReceipt, h.maxReceiptBytes)
}

// CreateStatementPreview handles POST /api/v1/previews/statement
func (h *PreviewsHandler) CreateStatementPreview(w http.ResponseWriter, r *http.Request) {
	h.createPreview(w, r, extract.KindStatement, h.maxStatementBytes)
}

func (h *PreviewsHandler) createPreview(w http.ResponseWriter, r *http.Request, kind extract.Kind, maxBytes int64) {
	ctx := r.Context()
	userID := middleware.UserID(ctx)

	// Slack on top of the document limit covers multipart framing; the
	// document itself is re-checked below.
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1<<20)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			middleware.WriteError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("file exceeds the %d byte limit", maxBytes))
			return
		}
		middleware.WriteError(w, http.StatusBadRequest, `multipart field "file" is required`)
		return
	}
	defer file.Close()

	mimeType := header.Header.Get("Content-Type")
	if mt, _, err := mime.ParseMediaType(mimeType); err == nil {
		mimeType = mt
	}
	if !extract.AllowedMIMEType(kind, mimeType) {
		middleware.WriteError(w, http.StatusUnsupportedMediaType,
			fmt.Sprintf("unsupported media type %q for a %s upload", mimeType, kind))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			middleware.WriteError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("file exceeds the %d byte limit", maxBytes))
			return
		}
		h.log.Error().Err(err).Msg("reading upload failed")
		middleware.WriteError(w, http.StatusBadRequest, "could not read uploaded file")
		return
	}
	if int64(len(data)) > maxBytes {
		middleware.WriteError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("file exceeds the %d byte limit", maxBytes))
		return
	}

	runID := h.recorder.StartRun(userID, string(kind), h.modelName)

	ext, err := h.extractor.Extract(ctx, kind, mimeType, data)
	if err != nil {
		h.recorder.FinishFailed(runID, err)
		extractionFailures.WithLabelValues(string(kind)).Inc()
		if errors.Is(err, extract.ErrUnsupportedType) {
			middleware.WriteError(w, http.StatusUnsupportedMediaType,
				fmt.Sprintf("unsupported media type %q for a %s upload", mimeType, kind))
			return
		}
		h.log.Error().Err(err).Str("kind", string(kind)).Msg("document extraction failed")
		middleware.WriteJSON(w, http.StatusBadGateway, map[string]interface{}{
			"error":     "document extraction failed",
			"retryable": true,
		})
		return
	}

	// One marshal at creation time; every later read serves these bytes.
	var doc interface{}
	switch kind {
	case extract.KindReceipt:
		doc = ext.Receipt
	case extract.KindStatement:
		doc = ext.Statement
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		h.recorder.FinishFailed(runID, err)
		h.log.Error().Err(err).Msg("encoding extraction failed")
		middleware.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	created, err := h.previews.Create(ctx, preview.Preview{
		UserID:        userID,
		Kind:          kind,
		ModelName:     ext.ModelName,
		ExtractedData: raw,
		Suggested:     ext.Candidates,
	})
	if err != nil {
		h.recorder.FinishFailed(runID, err)
		h.log.Error().Err(err).Msg("staging preview failed")
		middleware.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.recorder.RecordOutput(runID, raw)
	h.recorder.FinishSuccess(runID, created.ID)
	previewsCreated.WithLabelValues(string(kind)).Inc()

	h.log.Info().
		Str("preview_id", created.ID).
		Str("kind", string(kind)).
		Int("suggested", len(created.Suggested)).
		Int("bytes", len(data)).
		Msg("preview created")

	middleware.WriteJSON(w, http.StatusCreated, previewResponse(created))
}

// GetPreview handles GET /api/v1/previews/{previewId}. Read-only: repeated
// calls return the same bytes and never consume the preview.
func (h *PreviewsHandler) GetPreview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["previewId"]

	p, err := h.previews.Get(ctx, id, middleware.UserID(ctx))
	if err != nil {
		writeDomainError(w, h.log, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, previewResponse(p))
}

// CommitsHandler turns reviewed previews into persisted transactions.
type CommitsHandler struct {
	coordinator Committer
	log         zerolog.Logger
}

// NewCommitsHandler creates a new commits handler.
func NewCommitsHandler(coordinator Committer, log zerolog.Logger) *CommitsHandler {
	return &CommitsHandler{coordinator: coordinator, log: log}
}

type commitReceiptRequest struct {
	PreviewID   string             `json:"previewId"`
	Transaction importer.CommitRow `json:"transaction"`
}

type commitStatementRequest struct {
	PreviewID    string               `json:"previewId"`
	Transactions []importer.CommitRow `json:"transactions"`
	Options      struct {
		SkipDuplicates bool `json:"skipDuplicates"`
	} `json:"options"`
}

// CommitReceipt handles POST /api/v1/commits/receipt
func (h *CommitsHandler) CommitReceipt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req commitReceiptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.PreviewID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "previewId is required")
		return
	}

	tx, err := h.coordinator.CommitReceipt(ctx, middleware.UserID(ctx), req.PreviewID, req.Transaction)
	if err != nil {
		commitsTotal.WithLabelValues("receipt", "error").Inc()
		writeDomainError(w, h.log, err)
		return
	}

	commitsTotal.WithLabelValues("receipt", "success").Inc()
	commitRows.WithLabelValues("created").Inc()

	h.log.Info().
		Str("preview_id", req.PreviewID).
		Str("transaction_id", tx.ID).
		Msg("receipt committed")

	middleware.WriteJSON(w, http.StatusCreated, tx)
}

// CommitStatement handles POST /api/v1/commits/statement. Row-level
// persistence failures are not HTTP errors: the summary enumerates them and
// the request still returns 200.
func (h *CommitsHandler) CommitStatement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req commitStatementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.PreviewID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "previewId is required")
		return
	}

	res, err := h.coordinator.CommitStatement(ctx, middleware.UserID(ctx), req.PreviewID, req.Transactions, req.Options.SkipDuplicates)
	if err != nil {
		commitsTotal.WithLabelValues("statement", "error").Inc()
		writeDomainError(w, h.log, err)
		return
	}

	commitsTotal.WithLabelValues("statement", "success").Inc()
	commitRows.WithLabelValues("created").Add(float64(res.Summary.Created))
	commitRows.WithLabelValues("skipped").Add(float64(res.Summary.Skipped))
	commitRows.WithLabelValues("failed").Add(float64(len(res.Summary.Failed)))

	h.log.Info().
		Str("preview_id", req.PreviewID).
		Int("created", res.Summary.Created).
		Int("skipped", res.Summary.Skipped).
		Int("failed", len(res.Summary.Failed)).
		Msg("statement committed")

	middleware.WriteJSON(w, http.StatusOK, res.Summary)
}

// HealthHandler reports liveness and storage reachability.
type HealthHandler struct {
	db  Pinger
	log zerolog.Logger
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(db Pinger, log zerolog.Logger) *HealthHandler {
	return &HealthHandler{db: db, log: log}
}

// Health handles GET /healthz
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		h.log.Error().Err(err).Msg("health check: database unreachable")
		middleware.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "degraded",
			"database": "unreachable",
		})
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}
