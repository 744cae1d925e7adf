package domain

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// TransactionType classifies a transaction as money in or money out.
type TransactionType string

const (
	// TypeIncome is money coming into the ledger.
	TypeIncome TransactionType = "INCOME"
	// TypeExpense is money leaving the ledger.
	TypeExpense TransactionType = "EXPENSE"
)

// ParseTransactionType validates a free-form type string.
// Comparison is case-insensitive and trims whitespace.
func ParseTransactionType(s string) (TransactionType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(TypeIncome):
		return TypeIncome, nil
	case string(TypeExpense):
		return TypeExpense, nil
	default:
		return "", fmt.Errorf("invalid transaction type %q, want INCOME or EXPENSE", s)
	}
}

// Transaction is a durable ledger entry. The import path only ever creates
// transactions; it never updates or deletes existing ones.
type Transaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	Type        TransactionType `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	OccurredAt  civil.Date      `json:"date"`
	Description string          `json:"description"`
	Merchant    string          `json:"merchant,omitempty"`
	CategoryID  string          `json:"categoryId,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// CandidateTransaction is one AI-extracted (and possibly client-edited)
// draft awaiting commit. It is not persisted directly; committing turns it
// into a Transaction after category resolution.
type CandidateTransaction struct {
	Type         TransactionType `json:"type"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency,omitempty"`
	OccurredAt   civil.Date      `json:"date"`
	Description  string          `json:"description"`
	Merchant     string          `json:"merchant,omitempty"`
	CategoryName string          `json:"categoryName"`
}
