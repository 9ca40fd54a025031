package expense

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spendwise/spendwise-api/internal/domain/categorization"
	"github.com/spendwise/spendwise-api/pkg/money"
)

func newMockRepo(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewRepository(mock), mock
}

func TestRepository_Create(t *testing.T) {
	repo, mock := newMockRepo(t)

	userID := uuid.New()
	expenseID := uuid.New()
	now := time.Now()

	mock.ExpectQuery("INSERT INTO expenses").
		WithArgs(userID, "Lunch", "", int64(1450), "USD",
			categorization.CategoryFood, pgxmock.AnyArg(), false, "", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(expenseID, now, now))

	e := &Expense{
		UserID:      userID,
		Name:        "Lunch",
		Amount:      money.New(1450, money.USD),
		Category:    categorization.CategoryFood,
		ExpenseDate: now,
	}

	require.NoError(t, repo.Create(context.Background(), e))
	assert.Equal(t, expenseID, e.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetByID(t *testing.T) {
	repo, mock := newMockRepo(t)

	userID := uuid.New()
	expenseID := uuid.New()
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM expenses").
		WithArgs(expenseID, userID).
		WillReturnRows(expenseRows().AddRow(
			expenseID, userID, "Lunch", "", int64(1450), "USD", categorization.CategoryFood,
			now, false, "", nil, now, now))

	e, err := repo.GetByID(context.Background(), userID, expenseID)
	require.NoError(t, err)

	assert.Equal(t, "Lunch", e.Name)
	assert.Equal(t, int64(1450), e.Amount.Amount())
	assert.Equal(t, categorization.CategoryFood, e.Category)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	userID := uuid.New()
	expenseID := uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM expenses").
		WithArgs(expenseID, userID).
		WillReturnRows(expenseRows())

	_, err := repo.GetByID(context.Background(), userID, expenseID)
	assert.ErrorIs(t, err, ErrExpenseNotFound)
}

func TestRepository_ListWithCategoryFilter(t *testing.T) {
	repo, mock := newMockRepo(t)

	userID := uuid.New()
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM expenses").
		WithArgs(userID, categorization.CategoryFood, 100).
		WillReturnRows(expenseRows().AddRow(
			uuid.New(), userID, "Lunch", "", int64(1450), "USD", categorization.CategoryFood,
			now, false, "", nil, now, now))

	expenses, err := repo.List(context.Background(), userID, ListFilter{
		Category: categorization.CategoryFood,
	})
	require.NoError(t, err)

	require.Len(t, expenses, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Delete(t *testing.T) {
	repo, mock := newMockRepo(t)

	userID := uuid.New()
	expenseID := uuid.New()

	mock.ExpectExec("DELETE FROM expenses").
		WithArgs(expenseID, userID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, repo.Delete(context.Background(), userID, expenseID))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_DeleteNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	userID := uuid.New()
	expenseID := uuid.New()

	mock.ExpectExec("DELETE FROM expenses").
		WithArgs(expenseID, userID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), userID, expenseID), ErrExpenseNotFound)
}

func expenseRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "user_id", "name", "notes", "amount_cents", "currency", "category",
		"expense_date", "is_anomaly", "anomaly_reason", "receipt_id",
		"created_at", "updated_at",
	})
}
