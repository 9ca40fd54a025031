package expense

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spendwise/spendwise-api/pkg/money"
)

var ErrExpenseNotFound = errors.New("expense not found")

// Querier is the subset of pgxpool.Pool the repository uses, satisfied by
// pgxmock in tests.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository persists expenses in Postgres.
type Repository struct {
	db Querier
}

func NewRepository(db Querier) *Repository {
	return &Repository{db: db}
}

const expenseColumns = `id, user_id, name, notes, amount_cents, currency, category,
	expense_date, is_anomaly, anomaly_reason, receipt_id, created_at, updated_at`

func (r *Repository) Create(ctx context.Context, e *Expense) error {
	query := `
		INSERT INTO expenses (user_id, name, notes, amount_cents, currency, category,
			expense_date, is_anomaly, anomaly_reason, receipt_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		e.UserID, e.Name, e.Notes, e.Amount.Amount(), e.Amount.Currency(),
		e.Category, e.ExpenseDate, e.IsAnomaly, e.AnomalyReason, e.ReceiptID,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, userID, expenseID uuid.UUID) (*Expense, error) {
	query := `SELECT ` + expenseColumns + `
		FROM expenses
		WHERE id = $1 AND user_id = $2`

	e, err := scanExpense(r.db.QueryRow(ctx, query, expenseID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExpenseNotFound
		}
		return nil, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

// List returns the user's expenses newest first, honoring the filter.
func (r *Repository) List(ctx context.Context, userID uuid.UUID, filter ListFilter) ([]*Expense, error) {
	query := `SELECT ` + expenseColumns + `
		FROM expenses
		WHERE user_id = $1`
	args := []any{userID}

	if filter.Category != "" {
		args = append(args, filter.Category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		query += fmt.Sprintf(" AND expense_date >= $%d", len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		query += fmt.Sprintf(" AND expense_date <= $%d", len(args))
	}

	query += " ORDER BY expense_date DESC, created_at DESC"

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return expenses, nil
}

func (r *Repository) Update(ctx context.Context, e *Expense) error {
	query := `
		UPDATE expenses
		SET name = $1, notes = $2, amount_cents = $3, currency = $4, category = $5,
			expense_date = $6, is_anomaly = $7, anomaly_reason = $8, updated_at = now()
		WHERE id = $9 AND user_id = $10
		RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		e.Name, e.Notes, e.Amount.Amount(), e.Amount.Currency(), e.Category,
		e.ExpenseDate, e.IsAnomaly, e.AnomalyReason, e.ID, e.UserID,
	).Scan(&e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrExpenseNotFound
		}
		return fmt.Errorf("update expense: %w", err)
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, userID, expenseID uuid.UUID) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM expenses WHERE id = $1 AND user_id = $2`, expenseID, userID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrExpenseNotFound
	}
	return nil
}

// ListByDateRange returns every expense, across all users, whose expense
// date falls in [from, to). Used by the daily anomaly sweep.
func (r *Repository) ListByDateRange(ctx context.Context, from, to time.Time) ([]*Expense, error) {
	query := `SELECT ` + expenseColumns + `
		FROM expenses
		WHERE expense_date >= $1 AND expense_date < $2
		ORDER BY user_id, expense_date`

	rows, err := r.db.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("list expenses by date range: %w", err)
	}
	defer rows.Close()

	var expenses []*Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// SetAnomalyFlag overwrites an expense's anomaly verdict without touching
// anything else.
func (r *Repository) SetAnomalyFlag(ctx context.Context, expenseID uuid.UUID, isAnomaly bool, reason string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE expenses SET is_anomaly = $2, anomaly_reason = $3, updated_at = now() WHERE id = $1`,
		expenseID, isAnomaly, reason)
	if err != nil {
		return fmt.Errorf("set anomaly flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrExpenseNotFound
	}
	return nil
}

func scanExpense(row pgx.Row) (*Expense, error) {
	var (
		e        Expense
		cents    int64
		currency string
	)
	err := row.Scan(
		&e.ID, &e.UserID, &e.Name, &e.Notes, &cents, &currency, &e.Category,
		&e.ExpenseDate, &e.IsAnomaly, &e.AnomalyReason, &e.ReceiptID,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Amount = money.New(cents, currency)
	return &e, nil
}
