package insights

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spendwise/spendwise-api/internal/domain/categorization"
)

// Repository reads expense history aggregates. Insights never write:
// anomaly flags are persisted by the expense service, forecasts not at all.
type Repository struct {
	pgpool *pgxpool.Pool
}

func NewRepository(pgpool *pgxpool.Pool) *Repository {
	return &Repository{pgpool: pgpool}
}

// CategoryAmounts returns the user's expense amounts in a category since
// the given time, newest first, in currency units.
func (r *Repository) CategoryAmounts(ctx context.Context, userID uuid.UUID, category categorization.Category, since time.Time) ([]float64, error) {
	query := `
		SELECT amount_cents
		FROM expenses
		WHERE user_id = $1 AND category = $2 AND expense_date >= $3
		ORDER BY expense_date DESC`

	return r.queryAmounts(ctx, query, userID, category, since)
}

// CategoryAmountsExcluding is CategoryAmounts minus one expense. When an
// already-persisted expense is re-scored it must not sit inside its own
// baseline, where a large outlier drags the mean and stddev toward itself.
func (r *Repository) CategoryAmountsExcluding(ctx context.Context, userID uuid.UUID, category categorization.Category, since time.Time, excludeID uuid.UUID) ([]float64, error) {
	query := `
		SELECT amount_cents
		FROM expenses
		WHERE user_id = $1 AND category = $2 AND expense_date >= $3 AND id <> $4
		ORDER BY expense_date DESC`

	return r.queryAmounts(ctx, query, userID, category, since, excludeID)
}

func (r *Repository) queryAmounts(ctx context.Context, query string, args ...any) ([]float64, error) {
	rows, err := r.pgpool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query category amounts: %w", err)
	}
	defer rows.Close()

	var amounts []float64
	for rows.Next() {
		var cents int64
		if err := rows.Scan(&cents); err != nil {
			return nil, fmt.Errorf("scan amount: %w", err)
		}
		amounts = append(amounts, float64(cents)/100)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate amounts: %w", err)
	}
	return amounts, nil
}

// MonthlyTotals returns the user's per-month category spend since the given
// time, oldest month first, in currency units. Months with no spend are
// absent.
func (r *Repository) MonthlyTotals(ctx context.Context, userID uuid.UUID, category categorization.Category, since time.Time) ([]MonthlyTotal, error) {
	query := `
		SELECT date_trunc('month', expense_date)::date AS month, SUM(amount_cents) AS total_cents
		FROM expenses
		WHERE user_id = $1 AND category = $2 AND expense_date >= $3
		GROUP BY month
		ORDER BY month`

	rows, err := r.pgpool.Query(ctx, query, userID, category, since)
	if err != nil {
		return nil, fmt.Errorf("query monthly totals: %w", err)
	}
	defer rows.Close()

	var totals []MonthlyTotal
	for rows.Next() {
		var (
			month time.Time
			cents int64
		)
		if err := rows.Scan(&month, &cents); err != nil {
			return nil, fmt.Errorf("scan monthly total: %w", err)
		}
		totals = append(totals, MonthlyTotal{Month: month, Total: float64(cents) / 100})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate monthly totals: %w", err)
	}
	return totals, nil
}
