package importer

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/ShauryaManiTripathi/finance-tracker-typeface-project-sub001/internal/domain"
)

func TestValidateRows_AllValid(t *testing.T) {
	rows := []CommitRow{
		{
			Type:         "EXPENSE",
			Amount:       AmountOf(decimal.RequireFromString("125.50")),
			Date:         "2025-10-06",
			Description:  "Lunch",
			Merchant:     "  Cafe Coffee Day  ",
			CategoryName: "Food & Dining",
		},
		{
			Type:         "income",
			Amount:       AmountOf(decimal.RequireFromString("85000")),
			Currency:     "usd",
			Date:         "2025-10-01",
			Description:  "Salary",
			CategoryName: "Salary",
		},
	}

	cands, err := ValidateRows(rows, "INR")
	if err != nil {
		t.Fatalf("ValidateRows() error = %v", err)
	}
	if len(cands) != 2 {
		t.Fatalf("len(cands) = %d, want 2", len(cands))
	}

	if cands[0].Currency != "INR" {
		t.Errorf("row 0 currency = %q, want default INR", cands[0].Currency)
	}
	if cands[0].Merchant != "Cafe Coffee Day" {
		t.Errorf("row 0 merchant = %q, want trimmed", cands[0].Merchant)
	}
	if want := (civil.Date{Year: 2025, Month: 10, Day: 6}); cands[0].OccurredAt != want {
		t.Errorf("row 0 date = %v, want %v", cands[0].OccurredAt, want)
	}

	if cands[1].Type != domain.TypeIncome {
		t.Errorf("row 1 type = %q, want INCOME from lowercase input", cands[1].Type)
	}
	if cands[1].Currency != "USD" {
		t.Errorf("row 1 currency = %q, want USD", cands[1].Currency)
	}
}

func TestValidateRows_ReportsEveryBadRow(t *testing.T) {
	one := AmountOf(decimal.NewFromInt(1))
	rows := []CommitRow{
		{Type: "EXPENSE", Amount: one, Date: "2025-10-06", CategoryName: "Food"},
		{Type: "EXPENSE", Amount: AmountOf(decimal.NewFromInt(-5)), Date: "2025-10-06", CategoryName: "Food"},
		{Type: "TRANSFER", Amount: one, Date: "2025-10-06", CategoryName: "Food"},
		{Type: "EXPENSE", Amount: one, Date: "06/10/2025", CategoryName: "Food"},
		{Type: "EXPENSE", Amount: one, Date: "2025-10-06", CategoryName: "   "},
		{Type: "EXPENSE", Amount: AmountOf(decimal.Zero), Date: "", CategoryName: "Food"},
	}

	_, err := ValidateRows(rows, "INR")

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("ValidateRows() error = %v, want *ValidationError", err)
	}

	wantIndexes := []int{1, 2, 3, 4, 5}
	if len(vErr.Rows) != len(wantIndexes) {
		t.Fatalf("got %d row errors, want %d: %+v", len(vErr.Rows), len(wantIndexes), vErr.Rows)
	}
	for i, re := range vErr.Rows {
		if re.Index != wantIndexes[i] {
			t.Errorf("row error %d has index %d, want %d", i, re.Index, wantIndexes[i])
		}
		if re.Reason == "" {
			t.Errorf("row error %d has empty reason", i)
		}
	}

	cases := map[int]string{
		1: "amount must be positive",
		2: "invalid transaction type",
		3: "invalid date",
		4: "categoryName is required",
		5: "amount must be positive",
	}
	for _, re := range vErr.Rows {
		if want := cases[re.Index]; !strings.Contains(re.Reason, want) {
			t.Errorf("row %d reason = %q, want it to mention %q", re.Index, re.Reason, want)
		}
	}
}

func TestValidateRows_MalformedAmountReportedPerRow(t *testing.T) {
	// A garbage amount must not fail the body decode; it surfaces as a row
	// error with the offending index.
	body := `[
		{"type": "EXPENSE", "amount": 125.50, "date": "2025-10-06", "categoryName": "Food"},
		{"type": "EXPENSE", "amount": "abc", "date": "2025-10-06", "categoryName": "Food"},
		{"type": "EXPENSE", "amount": "85.25", "date": "2025-10-06", "categoryName": "Food"}
	]`

	var rows []CommitRow
	if err := json.Unmarshal([]byte(body), &rows); err != nil {
		t.Fatalf("decode failed on a malformed amount: %v", err)
	}

	_, err := ValidateRows(rows, "INR")

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("ValidateRows() error = %v, want *ValidationError", err)
	}
	if len(vErr.Rows) != 1 || vErr.Rows[0].Index != 1 {
		t.Fatalf("row errors = %+v, want single error on row 1", vErr.Rows)
	}
	if !strings.Contains(vErr.Rows[0].Reason, "invalid amount") {
		t.Errorf("reason = %q, want invalid amount", vErr.Rows[0].Reason)
	}

	if !rows[0].Amount.Decimal().Equal(decimal.RequireFromString("125.50")) {
		t.Errorf("row 0 amount = %v, want 125.50", rows[0].Amount.Decimal())
	}
	if !rows[2].Amount.Decimal().Equal(decimal.RequireFromString("85.25")) {
		t.Errorf("row 2 amount = %v, want 85.25 from quoted string", rows[2].Amount.Decimal())
	}
}

func TestValidateRows_MissingAmountRejected(t *testing.T) {
	var rows []CommitRow
	body := `[{"type": "EXPENSE", "date": "2025-10-06", "categoryName": "Food"}]`
	if err := json.Unmarshal([]byte(body), &rows); err != nil {
		t.Fatalf("decode: %v", err)
	}

	_, err := ValidateRows(rows, "INR")

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("ValidateRows() error = %v, want *ValidationError", err)
	}
	if len(vErr.Rows) != 1 || !strings.Contains(vErr.Rows[0].Reason, "amount must be positive") {
		t.Fatalf("row errors = %+v, want amount must be positive on row 0", vErr.Rows)
	}
}

func TestValidateRows_MissingDate(t *testing.T) {
	rows := []CommitRow{
		{Type: "EXPENSE", Amount: AmountOf(decimal.NewFromInt(10)), CategoryName: "Food"},
	}

	_, err := ValidateRows(rows, "INR")

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("ValidateRows() error = %v, want *ValidationError", err)
	}
	if len(vErr.Rows) != 1 || vErr.Rows[0].Index != 0 {
		t.Fatalf("row errors = %+v, want single error on row 0", vErr.Rows)
	}
	if !strings.Contains(vErr.Rows[0].Reason, "date is required") {
		t.Errorf("reason = %q, want date is required", vErr.Rows[0].Reason)
	}
}

func TestValidationError_Error(t *testing.T) {
	batchLevel := &ValidationError{Msg: "transactions are required"}
	if batchLevel.Error() != "transactions are required" {
		t.Errorf("Error() = %q", batchLevel.Error())
	}

	rowLevel := &ValidationError{Rows: []RowError{{Index: 0, Reason: "x"}, {Index: 2, Reason: "y"}}}
	if !strings.Contains(rowLevel.Error(), "2 invalid row") {
		t.Errorf("Error() = %q, want row count", rowLevel.Error())
	}
}
