package categorization

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrRuleNotFound = errors.New("merchant rule not found")

// Repository loads and stores merchant rules in Postgres.
type Repository struct {
	pgpool *pgxpool.Pool
}

func NewRepository(pgpool *pgxpool.Pool) *Repository {
	return &Repository{pgpool: pgpool}
}

// GetRules returns the system rules plus the user's own rules, highest
// priority first.
func (r *Repository) GetRules(ctx context.Context, userID uuid.UUID) ([]MerchantRule, error) {
	query := `
		SELECT id, user_id, pattern, clean_name, category, is_system, priority
		FROM merchant_rules
		WHERE is_system = TRUE OR user_id = $1
		ORDER BY priority DESC, pattern`

	rows, err := r.pgpool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query merchant rules: %w", err)
	}
	defer rows.Close()

	return scanRules(rows)
}

// CreateRule inserts a user-defined rule and returns it with its ID set.
func (r *Repository) CreateRule(ctx context.Context, rule MerchantRule) (MerchantRule, error) {
	query := `
		INSERT INTO merchant_rules (user_id, pattern, clean_name, category, is_system, priority)
		VALUES ($1, $2, $3, $4, FALSE, $5)
		RETURNING id`

	err := r.pgpool.QueryRow(ctx, query,
		rule.UserID, rule.Pattern, rule.CleanName, rule.Category, rule.Priority,
	).Scan(&rule.ID)
	if err != nil {
		return MerchantRule{}, fmt.Errorf("insert merchant rule: %w", err)
	}

	rule.IsSystem = false
	return rule, nil
}

// DeleteRule removes a user's own rule. System rules cannot be deleted.
func (r *Repository) DeleteRule(ctx context.Context, userID, ruleID uuid.UUID) error {
	query := `
		DELETE FROM merchant_rules
		WHERE id = $1 AND user_id = $2 AND is_system = FALSE`

	tag, err := r.pgpool.Exec(ctx, query, ruleID, userID)
	if err != nil {
		return fmt.Errorf("delete merchant rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRuleNotFound
	}
	return nil
}

func scanRules(rows pgx.Rows) ([]MerchantRule, error) {
	var rules []MerchantRule
	for rows.Next() {
		var rule MerchantRule
		if err := rows.Scan(
			&rule.ID, &rule.UserID, &rule.Pattern, &rule.CleanName,
			&rule.Category, &rule.IsSystem, &rule.Priority,
		); err != nil {
			return nil, fmt.Errorf("scan merchant rule: %w", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate merchant rules: %w", err)
	}
	return rules, nil
}
