// Package expense owns the persisted expense record and its lifecycle:
// creation (manual or from a scanned receipt), categorization and anomaly
// flagging, search, and CSV export.
package expense

import (
	"time"

	"github.com/google/uuid"

	"github.com/spendwise/spendwise-api/internal/domain/categorization"
	"github.com/spendwise/spendwise-api/pkg/money"
)

// Expense is the persisted expense record. Amounts are stored as cents.
type Expense struct {
	ID            uuid.UUID               `json:"id"`
	UserID        uuid.UUID               `json:"user_id"`
	Name          string                  `json:"name"`
	Notes         string                  `json:"notes,omitempty"`
	Amount        *money.Money            `json:"amount"`
	Category      categorization.Category `json:"category"`
	ExpenseDate   time.Time               `json:"expense_date"`
	IsAnomaly     bool                    `json:"is_anomaly"`
	AnomalyReason string                  `json:"anomaly_reason,omitempty"`
	ReceiptID     *uuid.UUID              `json:"receipt_id,omitempty"`
	CreatedAt     time.Time               `json:"created_at"`
	UpdatedAt     time.Time               `json:"updated_at"`
}

// CreateRequest carries the fields for a new expense. Category is optional:
// when absent or invalid the categorizer decides.
type CreateRequest struct {
	Name        string                  `json:"name"`
	Notes       string                  `json:"notes"`
	Amount      string                  `json:"amount"`
	Currency    string                  `json:"currency"`
	Category    categorization.Category `json:"category"`
	ExpenseDate string                  `json:"expense_date"`
	ReceiptID   *uuid.UUID              `json:"receipt_id"`
}

// UpdateRequest carries the mutable fields of an expense. Nil pointers are
// left unchanged.
type UpdateRequest struct {
	Name        *string                  `json:"name"`
	Notes       *string                  `json:"notes"`
	Amount      *string                  `json:"amount"`
	Category    *categorization.Category `json:"category"`
	ExpenseDate *string                  `json:"expense_date"`
}

// ListFilter narrows List queries. Zero values mean no constraint.
type ListFilter struct {
	Category categorization.Category
	From     time.Time
	To       time.Time
	Limit    int
	Offset   int
}
