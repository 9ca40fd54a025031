// Package assistant answers questions about a user's spending with an LLM,
// grounding each prompt in their recent expense history.
package assistant

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Message roles as stored in chat_messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a user's conversation.
type Message struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"-"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// CategoryTotal is an aggregate used to ground the prompt.
type CategoryTotal struct {
	Category string
	Total    float64
}

// RecentExpense is a compact view of an expense for prompt context.
type RecentExpense struct {
	Name     string
	Amount   float64
	Category string
	Date     time.Time
}

// Repository persists chat turns and reads spending context from Postgres.
type Repository struct {
	pgpool *pgxpool.Pool
}

func NewRepository(pgpool *pgxpool.Pool) *Repository {
	return &Repository{pgpool: pgpool}
}

func (r *Repository) SaveMessage(ctx context.Context, userID uuid.UUID, role, content string) (*Message, error) {
	query := `
		INSERT INTO chat_messages (user_id, role, content)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	m := Message{UserID: userID, Role: role, Content: content}
	if err := r.pgpool.QueryRow(ctx, query, userID, role, content).Scan(&m.ID, &m.CreatedAt); err != nil {
		return nil, fmt.Errorf("saving chat message: %w", err)
	}
	return &m, nil
}

// History returns the most recent turns, oldest first.
func (r *Repository) History(ctx context.Context, userID uuid.UUID, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, user_id, role, content, created_at
		FROM (
			SELECT id, user_id, role, content, created_at
			FROM chat_messages
			WHERE user_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC`

	rows, err := r.pgpool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing chat history: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.UserID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning chat message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// RecentExpenses returns the user's latest expenses for prompt grounding.
func (r *Repository) RecentExpenses(ctx context.Context, userID uuid.UUID, limit int) ([]RecentExpense, error) {
	query := `
		SELECT name, amount_cents, category, expense_date
		FROM expenses
		WHERE user_id = $1
		ORDER BY expense_date DESC, created_at DESC
		LIMIT $2`

	rows, err := r.pgpool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("reading recent expenses: %w", err)
	}
	defer rows.Close()

	var expenses []RecentExpense
	for rows.Next() {
		var e RecentExpense
		var cents int64
		if err := rows.Scan(&e.Name, &cents, &e.Category, &e.Date); err != nil {
			return nil, fmt.Errorf("scanning recent expense: %w", err)
		}
		e.Amount = float64(cents) / 100
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// CategoryTotals aggregates spend per category since the given time.
func (r *Repository) CategoryTotals(ctx context.Context, userID uuid.UUID, since time.Time) ([]CategoryTotal, error) {
	query := `
		SELECT category, SUM(amount_cents)
		FROM expenses
		WHERE user_id = $1 AND expense_date >= $2
		GROUP BY category
		ORDER BY SUM(amount_cents) DESC`

	rows, err := r.pgpool.Query(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("reading category totals: %w", err)
	}
	defer rows.Close()

	var totals []CategoryTotal
	for rows.Next() {
		var t CategoryTotal
		var cents int64
		if err := rows.Scan(&t.Category, &cents); err != nil {
			return nil, fmt.Errorf("scanning category total: %w", err)
		}
		t.Total = float64(cents) / 100
		totals = append(totals, t)
	}
	return totals, rows.Err()
}
