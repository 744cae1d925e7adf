package domain

import "time"

// Category is a user-scoped transaction category. The tuple
// (userId, lower(trim(name)), type) is unique; the storage layer enforces it.
type Category struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Name      string          `json:"name"`
	Type      TransactionType `json:"type"`
	CreatedAt time.Time       `json:"createdAt"`
}
