package ledger

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ShauryaManiTripathi/finance-tracker-typeface-project-sub001/internal/domain"
)

// InsertTransaction persists t and returns the stored row. The id is
// generated app-side when unset; created_at comes back from the database.
// Amounts travel as their text form so NUMERIC keeps exact decimal values.
func (s *Store) InsertTransaction(ctx context.Context, t domain.Transaction) (*domain.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	var merchant, categoryID any
	if t.Merchant != "" {
		merchant = t.Merchant
	}
	if t.CategoryID != "" {
		categoryID = t.CategoryID
	}

	err := s.db.QueryRow(ctx,
		`INSERT INTO transactions
		        (id, user_id, type, amount, currency, occurred_on, description, merchant, category_id)
		 VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, $9)
		 RETURNING created_at`,
		t.ID, t.UserID, string(t.Type), t.Amount.String(), t.Currency,
		t.OccurredAt.In(time.UTC), t.Description, merchant, categoryID,
	).Scan(&t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("InsertTransaction: %w", err)
	}

	return &t, nil
}

// ListOnDates returns the user's transactions whose occurred_on falls on any
// of the given dates, oldest first. One call prefetches the whole comparison
// set duplicate detection needs for a commit batch.
func (s *Store) ListOnDates(ctx context.Context, userID string, dates []civil.Date) ([]domain.Transaction, error) {
	if len(dates) == 0 {
		return nil, nil
	}

	days := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		days = append(days, d.In(time.UTC))
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, user_id, type, amount::text, currency, occurred_on, description,
		        COALESCE(merchant, ''), COALESCE(category_id::text, ''), created_at
		   FROM transactions
		  WHERE user_id = $1 AND occurred_on = ANY($2)
		  ORDER BY occurred_on, created_at`,
		userID, days,
	)
	if err != nil {
		return nil, fmt.Errorf("ListOnDates: %w", err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		var (
			t          domain.Transaction
			typStr     string
			amountStr  string
			occurredOn time.Time
		)
		if err := rows.Scan(
			&t.ID, &t.UserID, &typStr, &amountStr, &t.Currency,
			&occurredOn, &t.Description, &t.Merchant, &t.CategoryID, &t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("ListOnDates: scanning row: %w", err)
		}
		t.Type = domain.TransactionType(typStr)
		t.OccurredAt = civil.DateOf(occurredOn)
		t.Amount, err = decimal.NewFromString(amountStr)
		if err != nil {
			return nil, fmt.Errorf("ListOnDates: parsing amount %q: %w", amountStr, err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListOnDates: %w", err)
	}

	return out, nil
}
