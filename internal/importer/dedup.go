package importer

import (
	"strings"

	"github.com/ShauryaManiTripathi/finance-tracker-typeface-project-sub001/internal/domain"
)

// MatchPolicy decides whether a candidate duplicates an existing transaction.
// It is a plain function value so the heuristic can be swapped without
// touching the coordinator.
type MatchPolicy func(cand domain.CandidateTransaction, existing domain.Transaction) bool

// DefaultMatchPolicy flags a candidate as a duplicate of a transaction on the
// same calendar date with the exact same amount, when additionally the
// normalized merchants match or the normalized descriptions match.
// Normalization is trim plus case-fold; two empty fields never match each
// other. Amount comparison is decimal equality, so 125.5 and 125.50 are the
// same amount and no float tolerance is involved.
func DefaultMatchPolicy(cand domain.CandidateTransaction, existing domain.Transaction) bool {
	if cand.OccurredAt != existing.OccurredAt {
		return false
	}
	if !cand.Amount.Equal(existing.Amount) {
		return false
	}
	if m := normalizeField(cand.Merchant); m != "" && m == normalizeField(existing.Merchant) {
		return true
	}
	if d := normalizeField(cand.Description); d != "" && d == normalizeField(existing.Description) {
		return true
	}
	return false
}

func normalizeField(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
