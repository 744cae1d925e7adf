// Package importer turns reviewed preview candidates into durable ledger
// transactions: validation, category resolution, duplicate suppression, and
// the created/skipped/failed accounting for each commit.
package importer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/ShauryaManiTripathi/finance-tracker-typeface-project-sub001/internal/domain"
	"github.com/ShauryaManiTripathi/finance-tracker-typeface-project-sub001/internal/extract"
	"github.com/ShauryaManiTripathi/finance-tracker-typeface-project-sub001/internal/logger"
	"github.com/ShauryaManiTripathi/finance-tracker-typeface-project-sub001/internal/preview"
)

// PreviewStore is the slice of the preview store the coordinator needs.
// It is a minimal interface so tests can run against the real in-memory
// store or a stand-in.
type PreviewStore interface {
	Acquire(ctx context.Context, id, userID string) (*preview.Preview, error)
	Release(ctx context.Context, id string)
	Consume(ctx context.Context, id string) error
}

// Ledger is the slice of the persistence layer the coordinator needs.
type Ledger interface {
	ResolveCategory(ctx context.Context, userID, name string, typ domain.TransactionType) (*domain.Category, error)
	InsertTransaction(ctx context.Context, t domain.Transaction) (*domain.Transaction, error)
	ListOnDates(ctx context.Context, userID string, dates []civil.Date) ([]domain.Transaction, error)
}

// Summary is the accounting a statement commit returns. Every row lands in
// exactly one bucket: Created + Skipped + len(Failed) == Total always holds.
type Summary struct {
	Created int        `json:"created"`
	Skipped int        `json:"skipped"`
	Failed  []RowError `json:"failed"`
	Total   int        `json:"total"`
}

// Result is a finished statement commit: the summary plus the persisted
// transactions in creation order.
type Result struct {
	Summary Summary
	Created []domain.Transaction
}

// Coordinator runs the commit flow for one request: acquire the preview,
// validate all rows, process rows best-effort, consume the preview, report.
type Coordinator struct {
	previews        PreviewStore
	ledger          Ledger
	match           MatchPolicy
	defaultCurrency string
	timeout         time.Duration
}

// NewCoordinator wires a coordinator. A nil match falls back to
// DefaultMatchPolicy; a zero timeout means commits run unbounded.
func NewCoordinator(previews PreviewStore, ledger Ledger, match MatchPolicy, defaultCurrency string, timeout time.Duration) *Coordinator {
	if match == nil {
		match = DefaultMatchPolicy
	}
	return &Coordinator{
		previews:        previews,
		ledger:          ledger,
		match:           match,
		defaultCurrency: strings.ToUpper(strings.TrimSpace(defaultCurrency)),
		timeout:         timeout,
	}
}

// CommitStatement persists the reviewed rows of a statement preview.
//
// Acquisition failures (unknown, expired, consumed, another commit in
// flight) abort with no side effects. Validation failures abort before any
// persistence and release the preview so the client can fix its input and
// retry. After validation, rows are processed sequentially and
// independently: a failing row is recorded and does not stop the rest. The
// preview is consumed once row processing ran, however many rows succeeded,
// so the same previewId can never produce a second batch.
func (c *Coordinator) CommitStatement(ctx context.Context, userID, previewID string, rows []CommitRow, skipDuplicates bool) (*Result, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	log := logger.FromContext(ctx)

	p, err := c.previews.Acquire(ctx, previewID, userID)
	if err != nil {
		return nil, fmt.Errorf("CommitStatement: %w", err)
	}
	if p.Kind != extract.KindStatement {
		c.previews.Release(ctx, previewID)
		return nil, &ValidationError{Msg: fmt.Sprintf("preview %s is a %s, not a statement", previewID, p.Kind)}
	}
	if len(rows) == 0 {
		c.previews.Release(ctx, previewID)
		return nil, &ValidationError{Msg: "transactions are required"}
	}

	cands, err := ValidateRows(rows, c.defaultCurrency)
	if err != nil {
		c.previews.Release(ctx, previewID)
		return nil, fmt.Errorf("CommitStatement: %w", err)
	}

	// The comparison set for duplicate suppression: everything the user
	// already has on the batch's dates, extended with rows created below so
	// identical co-batch rows collapse to one.
	var persisted []domain.Transaction
	if skipDuplicates {
		persisted, err = c.ledger.ListOnDates(ctx, userID, batchDates(cands))
		if err != nil {
			c.previews.Release(ctx, previewID)
			return nil, fmt.Errorf("CommitStatement: prefetching duplicate candidates: %w", err)
		}
	}

	res := &Result{Summary: Summary{Failed: make([]RowError, 0), Total: len(cands)}}

	for i, cand := range cands {
		if err := ctx.Err(); err != nil {
			if res.Summary.Created == 0 {
				// Nothing landed; hand the preview back for a retry.
				c.previews.Release(ctx, previewID)
				return nil, fmt.Errorf("CommitStatement: %w", err)
			}
			// Rows already landed. Account for the remainder and finish, so
			// the summary stays complete and the preview still gets consumed.
			for j := i; j < len(cands); j++ {
				res.Summary.Failed = append(res.Summary.Failed, RowError{Index: j, Reason: "commit cancelled: " + err.Error()})
			}
			break
		}

		tx, rowErr := c.commitRow(ctx, userID, cand, skipDuplicates, persisted)
		switch {
		case rowErr != nil:
			log.Warn().Err(rowErr).Int("row", i).Str("preview_id", previewID).Msg("commit row failed")
			res.Summary.Failed = append(res.Summary.Failed, RowError{Index: i, Reason: rowErr.Error()})
		case tx == nil:
			res.Summary.Skipped++
		default:
			res.Summary.Created++
			res.Created = append(res.Created, *tx)
			persisted = append(persisted, *tx)
		}
	}

	if err := c.previews.Consume(ctx, previewID); err != nil {
		// The rows are in; a consumption hiccup must not hide the result.
		log.Error().Err(err).Str("preview_id", previewID).Msg("consuming preview after commit failed")
	}

	return res, nil
}

// CommitReceipt persists the single reviewed transaction of a receipt
// preview. It is the one-row form of the statement flow with duplicate
// suppression off, and it returns the transaction itself: with nothing
// persisted yet, a row failure surfaces as an error and releases the preview
// instead of producing a summary.
func (c *Coordinator) CommitReceipt(ctx context.Context, userID, previewID string, row CommitRow) (*domain.Transaction, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	log := logger.FromContext(ctx)

	p, err := c.previews.Acquire(ctx, previewID, userID)
	if err != nil {
		return nil, fmt.Errorf("CommitReceipt: %w", err)
	}
	if p.Kind != extract.KindReceipt {
		c.previews.Release(ctx, previewID)
		return nil, &ValidationError{Msg: fmt.Sprintf("preview %s is a %s, not a receipt", previewID, p.Kind)}
	}

	cands, err := ValidateRows([]CommitRow{row}, c.defaultCurrency)
	if err != nil {
		c.previews.Release(ctx, previewID)
		return nil, fmt.Errorf("CommitReceipt: %w", err)
	}

	tx, rowErr := c.commitRow(ctx, userID, cands[0], false, nil)
	if rowErr != nil {
		c.previews.Release(ctx, previewID)
		return nil, fmt.Errorf("CommitReceipt: %w", rowErr)
	}

	if err := c.previews.Consume(ctx, previewID); err != nil {
		log.Error().Err(err).Str("preview_id", previewID).Msg("consuming preview after commit failed")
	}

	return tx, nil
}

// commitRow resolves the row's category, applies duplicate suppression, and
// persists. Returns (nil, nil) for a suppressed row. Resolution runs before
// the duplicate check, so even a skipped row leaves its category behind.
func (c *Coordinator) commitRow(ctx context.Context, userID string, cand domain.CandidateTransaction, skipDuplicates bool, persisted []domain.Transaction) (*domain.Transaction, error) {
	cat, err := c.ledger.ResolveCategory(ctx, userID, cand.CategoryName, cand.Type)
	if err != nil {
		return nil, fmt.Errorf("resolving category %q: %w", cand.CategoryName, err)
	}

	if skipDuplicates {
		for _, t := range persisted {
			if c.match(cand, t) {
				return nil, nil
			}
		}
	}

	tx, err := c.ledger.InsertTransaction(ctx, domain.Transaction{
		UserID:      userID,
		Type:        cand.Type,
		Amount:      cand.Amount,
		Currency:    cand.Currency,
		OccurredAt:  cand.OccurredAt,
		Description: cand.Description,
		Merchant:    cand.Merchant,
		CategoryID:  cat.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("persisting transaction: %w", err)
	}
	return tx, nil
}

// batchDates returns the distinct dates of the batch, in first-seen order.
func batchDates(cands []domain.CandidateTransaction) []civil.Date {
	seen := make(map[civil.Date]bool, len(cands))
	dates := make([]civil.Date, 0, len(cands))
	for _, c := range cands {
		if !seen[c.OccurredAt] {
			seen[c.OccurredAt] = true
			dates = append(dates, c.OccurredAt)
		}
	}
	return dates
}
