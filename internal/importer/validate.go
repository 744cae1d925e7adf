package importer

import (
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/ShauryaManiTripathi/finance-tracker-typeface-project-sub001/internal/domain"
)

// CommitRow is one reviewed candidate as submitted in a commit request. Type,
// amount and date all decode leniently so a defective row is reported with
// its index instead of failing the whole body decode.
type CommitRow struct {
	Type         string    `json:"type"`
	Amount       RowAmount `json:"amount"`
	Currency     string    `json:"currency,omitempty"`
	Date         string    `json:"date"`
	Description  string    `json:"description"`
	Merchant     string    `json:"merchant,omitempty"`
	CategoryName string    `json:"categoryName"`
}

// RowAmount carries a row's submitted amount. It accepts JSON numbers and
// quoted strings, and never fails the decode: a malformed value is held and
// rejected during validation with its row index.
type RowAmount struct {
	dec decimal.Decimal
	bad string
	set bool
}

// AmountOf wraps a decimal for rows built in code.
func AmountOf(d decimal.Decimal) RowAmount {
	return RowAmount{dec: d, set: true}
}

func (a *RowAmount) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = strings.TrimSpace(s[1 : len(s)-1])
		if s == "" {
			return nil
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		a.bad = s
		return nil
	}
	a.dec = d
	a.set = true
	return nil
}

func (a RowAmount) MarshalJSON() ([]byte, error) {
	return a.dec.MarshalJSON()
}

// Decimal returns the parsed amount; zero when absent or malformed.
func (a RowAmount) Decimal() decimal.Decimal { return a.dec }

// RowError identifies one rejected or failed row and why.
type RowError struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// ValidationError rejects a commit before anything is persisted. Msg carries
// a batch-level defect; Rows carries per-row defects, every offending row
// included.
type ValidationError struct {
	Msg  string
	Rows []RowError
}

func (e *ValidationError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return fmt.Sprintf("%d invalid row(s)", len(e.Rows))
}

// ValidateRows checks every row and converts the batch into candidate
// transactions. All rows pass or none do: any defect returns a
// *ValidationError listing every bad row, and the batch must not proceed.
// Rows without a currency get defaultCurrency.
func ValidateRows(rows []CommitRow, defaultCurrency string) ([]domain.CandidateTransaction, error) {
	var rowErrs []RowError
	out := make([]domain.CandidateTransaction, 0, len(rows))

	for i, row := range rows {
		cand, err := validateRow(row, defaultCurrency)
		if err != nil {
			rowErrs = append(rowErrs, RowError{Index: i, Reason: err.Error()})
			continue
		}
		out = append(out, cand)
	}

	if len(rowErrs) > 0 {
		return nil, &ValidationError{Rows: rowErrs}
	}
	return out, nil
}

func validateRow(row CommitRow, defaultCurrency string) (domain.CandidateTransaction, error) {
	var cand domain.CandidateTransaction

	typ, err := domain.ParseTransactionType(row.Type)
	if err != nil {
		return cand, err
	}

	if row.Amount.bad != "" {
		return cand, fmt.Errorf("invalid amount %q", row.Amount.bad)
	}
	if !row.Amount.set || !row.Amount.dec.IsPositive() {
		return cand, errors.New("amount must be positive")
	}

	rawDate := strings.TrimSpace(row.Date)
	if rawDate == "" {
		return cand, errors.New("date is required")
	}
	date, err := civil.ParseDate(rawDate)
	if err != nil {
		return cand, fmt.Errorf("invalid date %q, want YYYY-MM-DD", row.Date)
	}

	categoryName := strings.TrimSpace(row.CategoryName)
	if categoryName == "" {
		return cand, errors.New("categoryName is required")
	}

	currency := strings.ToUpper(strings.TrimSpace(row.Currency))
	if currency == "" {
		currency = defaultCurrency
	}

	cand = domain.CandidateTransaction{
		Type:         typ,
		Amount:       row.Amount.dec,
		Currency:     currency,
		OccurredAt:   date,
		Description:  strings.TrimSpace(row.Description),
		Merchant:     strings.TrimSpace(row.Merchant),
		CategoryName: categoryName,
	}
	return cand, nil
}
