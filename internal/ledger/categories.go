package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ShauryaManiTripathi/finance-tracker-typeface-project-sub001/internal/domain"
)

// ResolveCategory returns the user's category with the given name and type,
// creating it when absent. Matching ignores case and surrounding whitespace;
// the stored name keeps the caller's trimmed casing. Two concurrent calls for
// the same new triple race through the unique index on
// (user_id, lower(btrim(name)), type): the loser's insert fails and the
// winner's row is re-read, so every caller gets the same id.
func (s *Store) ResolveCategory(ctx context.Context, userID, name string, typ domain.TransactionType) (*domain.Category, error) {
	name = strings.TrimSpace(name)

	cat, err := s.findCategory(ctx, userID, name, typ)
	if err == nil {
		return cat, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("ResolveCategory: %w", err)
	}

	cat, err = s.createCategory(ctx, userID, name, typ)
	if err == nil {
		return cat, nil
	}
	if !errors.Is(err, ErrUniqueViolation) {
		return nil, fmt.Errorf("ResolveCategory: %w", err)
	}

	// Lost the creation race; the winner's row exists now.
	cat, err = s.findCategory(ctx, userID, name, typ)
	if err != nil {
		return nil, fmt.Errorf("ResolveCategory: re-reading after conflict: %w", err)
	}
	return cat, nil
}

func (s *Store) findCategory(ctx context.Context, userID, name string, typ domain.TransactionType) (*domain.Category, error) {
	var cat domain.Category
	var typStr string
	err := s.db.QueryRow(ctx,
		`SELECT id, user_id, name, type, created_at
		   FROM categories
		  WHERE user_id = $1
		    AND lower(btrim(name)) = lower(btrim($2))
		    AND type = $3`,
		userID, name, string(typ),
	).Scan(&cat.ID, &cat.UserID, &cat.Name, &typStr, &cat.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("findCategory: %w", err)
	}
	cat.Type = domain.TransactionType(typStr)
	return &cat, nil
}

func (s *Store) createCategory(ctx context.Context, userID, name string, typ domain.TransactionType) (*domain.Category, error) {
	cat := domain.Category{
		ID:     uuid.NewString(),
		UserID: userID,
		Name:   name,
		Type:   typ,
	}
	err := s.db.QueryRow(ctx,
		`INSERT INTO categories (id, user_id, name, type)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at`,
		cat.ID, cat.UserID, cat.Name, string(cat.Type),
	).Scan(&cat.CreatedAt)
	if isUniqueViolation(err) {
		return nil, ErrUniqueViolation
	}
	if err != nil {
		return nil, fmt.Errorf("createCategory: %w", err)
	}
	return &cat, nil
}
