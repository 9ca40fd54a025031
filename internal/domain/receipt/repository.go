package receipt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spendwise/spendwise-api/pkg/money"
)

var ErrReceiptNotFound = errors.New("receipt not found")

// Receipt is a stored upload together with its extraction results.
type Receipt struct {
	ID          uuid.UUID    `json:"id"`
	UserID      uuid.UUID    `json:"user_id"`
	FilePath    string       `json:"-"`
	ContentType string       `json:"content_type"`
	RawText     string       `json:"raw_text"`
	Merchant    string       `json:"merchant"`
	Amount      *money.Money `json:"amount"`
	ReceiptDate *time.Time   `json:"receipt_date,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// Repository persists receipts in Postgres.
type Repository struct {
	pgpool *pgxpool.Pool
}

func NewRepository(pgpool *pgxpool.Pool) *Repository {
	return &Repository{pgpool: pgpool}
}

func (r *Repository) Create(ctx context.Context, rec *Receipt) error {
	query := `
		INSERT INTO receipts (user_id, file_path, content_type, raw_text, merchant, amount_cents, receipt_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	var cents int64
	if rec.Amount != nil {
		cents = rec.Amount.Amount()
	}

	err := r.pgpool.QueryRow(ctx, query,
		rec.UserID, rec.FilePath, rec.ContentType, rec.RawText,
		rec.Merchant, cents, rec.ReceiptDate,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert receipt: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, userID, receiptID uuid.UUID) (*Receipt, error) {
	query := `
		SELECT id, user_id, file_path, content_type, raw_text, merchant, amount_cents, receipt_date, created_at
		FROM receipts
		WHERE id = $1 AND user_id = $2`

	rec, err := scanReceipt(r.pgpool.QueryRow(ctx, query, receiptID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReceiptNotFound
		}
		return nil, fmt.Errorf("get receipt: %w", err)
	}
	return rec, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*Receipt, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	query := `
		SELECT id, user_id, file_path, content_type, raw_text, merchant, amount_cents, receipt_date, created_at
		FROM receipts
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.pgpool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}
	defer rows.Close()

	var receipts []*Receipt
	for rows.Next() {
		rec, err := scanReceipt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan receipt: %w", err)
		}
		receipts = append(receipts, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate receipts: %w", err)
	}
	return receipts, nil
}

func (r *Repository) Delete(ctx context.Context, userID, receiptID uuid.UUID) error {
	tag, err := r.pgpool.Exec(ctx,
		`DELETE FROM receipts WHERE id = $1 AND user_id = $2`, receiptID, userID)
	if err != nil {
		return fmt.Errorf("delete receipt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrReceiptNotFound
	}
	return nil
}

func scanReceipt(row pgx.Row) (*Receipt, error) {
	var (
		rec   Receipt
		cents int64
	)
	err := row.Scan(
		&rec.ID, &rec.UserID, &rec.FilePath, &rec.ContentType,
		&rec.RawText, &rec.Merchant, &cents, &rec.ReceiptDate, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Amount = money.New(cents, money.USD)
	return &rec, nil
}
