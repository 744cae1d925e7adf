package extract

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/ShauryaManiTripathi/finance-tracker-typeface-project-sub001/internal/domain"
)

// Kind identifies the document class an upload was declared as. The two
// kinds run different prompts and produce different extraction shapes.
type Kind string

const (
	// KindReceipt is a single purchase receipt photo.
	KindReceipt Kind = "receipt"
	// KindStatement is a bank statement (PDF or image).
	KindStatement Kind = "statement"
)

// Extraction is the structured result of one extraction call. Exactly one of
// Receipt/Statement is set, matching Kind. Candidates are the transaction
// drafts derived from the extracted data, in document order.
type Extraction struct {
	Kind       Kind
	ModelName  string
	Receipt    *ReceiptData
	Statement  *StatementData
	Candidates []domain.CandidateTransaction
}

// ReceiptData is what the model reads off a purchase receipt.
type ReceiptData struct {
	Merchant      string          `json:"merchant"`
	Date          civil.Date      `json:"date"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	TaxAmount     decimal.Decimal `json:"taxAmount"`
	TipAmount     decimal.Decimal `json:"tipAmount"`
	PaymentMethod string          `json:"paymentMethod,omitempty"`
	CardLast4     string          `json:"cardLast4,omitempty"`
	Category      string          `json:"suggestedCategory,omitempty"`
	Items         []ReceiptItem   `json:"items,omitempty"`
	Confidence    float64         `json:"confidence,omitempty"`
}

// ReceiptItem is one line item on a receipt. Quantity defaults to 1 when
// the model cannot read it.
type ReceiptItem struct {
	Name     string          `json:"name"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// StatementData is what the model reads off a bank statement, plus a summary
// computed locally from the extracted rows (never trusted from the model).
type StatementData struct {
	AccountInfo  AccountInfo      `json:"accountInfo"`
	Transactions []StatementEntry `json:"transactions"`
	Summary      StatementSummary `json:"summary"`
}

// AccountInfo is the statement header. All fields are best-effort.
type AccountInfo struct {
	BankName            string `json:"bankName,omitempty"`
	AccountNumberMasked string `json:"accountNumberMasked,omitempty"`
	StatementPeriod     string `json:"statementPeriod,omitempty"`
}

// StatementEntry is one normalized statement row. Amount is always positive;
// direction lives in Type.
type StatementEntry struct {
	Date        civil.Date             `json:"date"`
	Description string                 `json:"description"`
	Merchant    string                 `json:"merchant,omitempty"`
	Amount      decimal.Decimal        `json:"amount"`
	Currency    string                 `json:"currency,omitempty"`
	Type        domain.TransactionType `json:"type"`
	Category    string                 `json:"suggestedCategory,omitempty"`
}

// StatementSummary aggregates the extracted rows.
type StatementSummary struct {
	TotalIncome      decimal.Decimal `json:"totalIncome"`
	TotalExpense     decimal.Decimal `json:"totalExpense"`
	TransactionCount int             `json:"transactionCount"`
}
