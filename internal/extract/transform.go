package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/ShauryaManiTripathi/finance-tracker-typeface-project-sub001/internal/domain"
)

// decodeExtraction parses cleaned model output for the given kind and
// derives the candidate drafts.
func decodeExtraction(kind Kind, clean string) (*Extraction, error) {
	obj, err := decodeRaw(clean)
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindReceipt:
		receipt, err := receiptFromRaw(obj)
		if err != nil {
			return nil, err
		}
		return &Extraction{
			Kind:       KindReceipt,
			Receipt:    receipt,
			Candidates: receiptCandidates(receipt),
		}, nil
	case KindStatement:
		statement, err := statementFromRaw(obj)
		if err != nil {
			return nil, err
		}
		return &Extraction{
			Kind:       KindStatement,
			Statement:  statement,
			Candidates: statementCandidates(statement),
		}, nil
	default:
		return nil, fmt.Errorf("decodeExtraction: unknown kind %q", kind)
	}
}

// decodeRaw parses model output into a generic map. Numbers are kept as
// json.Number so amounts survive with their exact decimal representation.
func decodeRaw(clean string) (map[string]interface{}, error) {
	dec := json.NewDecoder(strings.NewReader(clean))
	dec.UseNumber()

	var parsed interface{}
	if err := dec.Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decodeRaw: unmarshal JSON: %w", err)
	}

	obj, ok := parsed.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("decodeRaw: top-level value is %T, want object", parsed)
	}
	return obj, nil
}

// receiptFromRaw converts raw model output into a ReceiptData.
func receiptFromRaw(obj map[string]interface{}) (*ReceiptData, error) {
	merchant, err := getStringField(obj, "merchant", false)
	if err != nil {
		return nil, fmt.Errorf("receiptFromRaw: %w", err)
	}
	date, err := getDateField(obj, "date", true)
	if err != nil {
		return nil, fmt.Errorf("receiptFromRaw: %w", err)
	}
	amount, err := getDecimalField(obj, "amount", true)
	if err != nil {
		return nil, fmt.Errorf("receiptFromRaw: %w", err)
	}
	currency, err := getStringField(obj, "currency", false)
	if err != nil {
		return nil, fmt.Errorf("receiptFromRaw: %w", err)
	}
	taxAmount, err := getDecimalField(obj, "tax_amount", false)
	if err != nil {
		return nil, fmt.Errorf("receiptFromRaw: %w", err)
	}
	tipAmount, err := getDecimalField(obj, "tip_amount", false)
	if err != nil {
		return nil, fmt.Errorf("receiptFromRaw: %w", err)
	}
	paymentMethod, err := getStringField(obj, "payment_method", false)
	if err != nil {
		return nil, fmt.Errorf("receiptFromRaw: %w", err)
	}
	cardLast4, err := getStringField(obj, "card_last4", false)
	if err != nil {
		return nil, fmt.Errorf("receiptFromRaw: %w", err)
	}
	category, err := getStringField(obj, "category", false)
	if err != nil {
		return nil, fmt.Errorf("receiptFromRaw: %w", err)
	}
	confidence, err := getFloat64Field(obj, "confidence", false)
	if err != nil {
		return nil, fmt.Errorf("receiptFromRaw: %w", err)
	}

	items, err := receiptItemsFromRaw(obj)
	if err != nil {
		return nil, fmt.Errorf("receiptFromRaw: %w", err)
	}

	return &ReceiptData{
		Merchant:      strings.TrimSpace(merchant),
		Date:          date,
		Amount:        amount,
		Currency:      strings.ToUpper(strings.TrimSpace(currency)),
		TaxAmount:     taxAmount,
		TipAmount:     tipAmount,
		PaymentMethod: strings.ToUpper(strings.TrimSpace(paymentMethod)),
		CardLast4:     strings.TrimSpace(cardLast4),
		Category:      strings.TrimSpace(category),
		Items:         items,
		Confidence:    confidence,
	}, nil
}

func receiptItemsFromRaw(obj map[string]interface{}) ([]ReceiptItem, error) {
	itemsAny, ok := obj["items"]
	if !ok || itemsAny == nil {
		return nil, nil
	}

	itemsSlice, ok := itemsAny.([]interface{})
	if !ok {
		return nil, fmt.Errorf("'items' is %T, want array", itemsAny)
	}

	items := make([]ReceiptItem, 0, len(itemsSlice))
	for i, raw := range itemsSlice {
		itemObj, ok := raw.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("item %d is %T, want object", i, raw)
		}

		name, err := getStringField(itemObj, "name", true)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		quantity, err := getDecimalField(itemObj, "quantity", false)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		if quantity.IsZero() {
			quantity = decimal.NewFromInt(1)
		}
		price, err := getDecimalField(itemObj, "price", false)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}

		items = append(items, ReceiptItem{
			Name:     strings.TrimSpace(name),
			Quantity: quantity,
			Price:    price,
		})
	}

	return items, nil
}

// statementFromRaw converts raw model output into a StatementData. The
// signed amounts in the raw rows become positive amounts plus a direction,
// and the summary is recomputed from the rows.
func statementFromRaw(obj map[string]interface{}) (*StatementData, error) {
	info, err := accountInfoFromRaw(obj)
	if err != nil {
		return nil, fmt.Errorf("statementFromRaw: %w", err)
	}

	txAny, ok := obj["transactions"]
	if !ok {
		return nil, fmt.Errorf("statementFromRaw: missing 'transactions' key in model output")
	}
	txSlice, ok := txAny.([]interface{})
	if !ok {
		return nil, fmt.Errorf("statementFromRaw: 'transactions' is %T, want array", txAny)
	}

	entries := make([]StatementEntry, 0, len(txSlice))
	for i, item := range txSlice {
		entryObj, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("statementFromRaw: transaction %d is %T, want object", i, item)
		}

		entry, err := statementEntryFromRaw(entryObj)
		if err != nil {
			return nil, fmt.Errorf("statementFromRaw: transaction %d: %w", i, err)
		}
		entries = append(entries, entry)
	}

	return &StatementData{
		AccountInfo:  info,
		Transactions: entries,
		Summary:      computeSummary(entries),
	}, nil
}

func accountInfoFromRaw(obj map[string]interface{}) (AccountInfo, error) {
	infoAny, ok := obj["account_info"]
	if !ok || infoAny == nil {
		return AccountInfo{}, nil
	}
	infoObj, ok := infoAny.(map[string]interface{})
	if !ok {
		return AccountInfo{}, fmt.Errorf("'account_info' is %T, want object", infoAny)
	}

	bankName, err := getStringField(infoObj, "bank_name", false)
	if err != nil {
		return AccountInfo{}, err
	}
	masked, err := getStringField(infoObj, "account_number_masked", false)
	if err != nil {
		return AccountInfo{}, err
	}
	period, err := getStringField(infoObj, "statement_period", false)
	if err != nil {
		return AccountInfo{}, err
	}

	return AccountInfo{
		BankName:            strings.TrimSpace(bankName),
		AccountNumberMasked: strings.TrimSpace(masked),
		StatementPeriod:     strings.TrimSpace(period),
	}, nil
}

func statementEntryFromRaw(obj map[string]interface{}) (StatementEntry, error) {
	date, err := getDateField(obj, "date", true)
	if err != nil {
		return StatementEntry{}, err
	}
	desc, err := getStringField(obj, "description", true)
	if err != nil {
		return StatementEntry{}, err
	}
	merchant, err := getStringField(obj, "merchant", false)
	if err != nil {
		return StatementEntry{}, err
	}
	signed, err := getDecimalField(obj, "amount", true)
	if err != nil {
		return StatementEntry{}, err
	}
	currency, err := getStringField(obj, "currency", false)
	if err != nil {
		return StatementEntry{}, err
	}
	category, err := getStringField(obj, "category", false)
	if err != nil {
		return StatementEntry{}, err
	}

	// Positive raw amount is money in; negative is money out.
	txType := domain.TypeIncome
	if signed.Sign() < 0 {
		txType = domain.TypeExpense
	}

	return StatementEntry{
		Date:        date,
		Description: strings.TrimSpace(desc),
		Merchant:    strings.TrimSpace(merchant),
		Amount:      signed.Abs(),
		Currency:    strings.ToUpper(strings.TrimSpace(currency)),
		Type:        txType,
		Category:    strings.TrimSpace(category),
	}, nil
}

// computeSummary aggregates the extracted rows locally. The model is never
// asked to do arithmetic.
func computeSummary(entries []StatementEntry) StatementSummary {
	summary := StatementSummary{TransactionCount: len(entries)}
	for _, e := range entries {
		switch e.Type {
		case domain.TypeIncome:
			summary.TotalIncome = summary.TotalIncome.Add(e.Amount)
		case domain.TypeExpense:
			summary.TotalExpense = summary.TotalExpense.Add(e.Amount)
		}
	}
	return summary
}

// receiptCandidates derives the single draft transaction for a receipt.
// Receipts are always expenses.
func receiptCandidates(r *ReceiptData) []domain.CandidateTransaction {
	description := r.Merchant
	if description == "" {
		description = "Receipt purchase"
	}

	return []domain.CandidateTransaction{
		{
			Type:         domain.TypeExpense,
			Amount:       r.Amount,
			Currency:     r.Currency,
			OccurredAt:   r.Date,
			Description:  description,
			Merchant:     r.Merchant,
			CategoryName: r.Category,
		},
	}
}

// statementCandidates derives one draft per statement row, in row order.
func statementCandidates(s *StatementData) []domain.CandidateTransaction {
	candidates := make([]domain.CandidateTransaction, 0, len(s.Transactions))
	for _, e := range s.Transactions {
		candidates = append(candidates, domain.CandidateTransaction{
			Type:         e.Type,
			Amount:       e.Amount,
			Currency:     e.Currency,
			OccurredAt:   e.Date,
			Description:  e.Description,
			Merchant:     e.Merchant,
			CategoryName: e.Category,
		})
	}
	return candidates
}

func getStringField(m map[string]interface{}, key string, required bool) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		if required {
			return "", fmt.Errorf("missing required field %q", key)
		}
		return "", nil
	}
	switch val := v.(type) {
	case string:
		if required && strings.TrimSpace(val) == "" {
			return "", fmt.Errorf("required field %q is empty", key)
		}
		return val, nil
	default:
		return "", fmt.Errorf("field %q has type %T, want string", key, v)
	}
}

func getDecimalField(m map[string]interface{}, key string, required bool) (decimal.Decimal, error) {
	v, ok := m[key]
	if !ok || v == nil {
		if required {
			return decimal.Decimal{}, fmt.Errorf("missing required field %q", key)
		}
		return decimal.Decimal{}, nil
	}
	switch val := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(val.String())
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("field %q: invalid number %q: %w", key, val.String(), err)
		}
		return d, nil
	case string:
		// Some models quote numbers; tolerate it.
		d, err := decimal.NewFromString(strings.TrimSpace(val))
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("field %q: invalid number %q: %w", key, val, err)
		}
		return d, nil
	default:
		return decimal.Decimal{}, fmt.Errorf("field %q has type %T, want number", key, v)
	}
}

func getDateField(m map[string]interface{}, key string, required bool) (civil.Date, error) {
	s, err := getStringField(m, key, required)
	if err != nil {
		return civil.Date{}, err
	}
	if s == "" {
		return civil.Date{}, nil
	}
	date, err := civil.ParseDate(strings.TrimSpace(s))
	if err != nil {
		return civil.Date{}, fmt.Errorf("field %q: invalid date %q: %w", key, s, err)
	}
	return date, nil
}

func getFloat64Field(m map[string]interface{}, key string, required bool) (float64, error) {
	v, ok := m[key]
	if !ok || v == nil {
		if required {
			return 0, fmt.Errorf("missing required field %q", key)
		}
		return 0, nil
	}
	switch val := v.(type) {
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return 0, fmt.Errorf("field %q: invalid number %q: %w", key, val.String(), err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("field %q has type %T, want number", key, v)
	}
}
