package expense

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spendwise/spendwise-api/internal/domain/categorization"
	"github.com/spendwise/spendwise-api/pkg/money"
)

func testExpense(userID uuid.UUID, name string) *Expense {
	return &Expense{
		ID:          uuid.New(),
		UserID:      userID,
		Name:        name,
		Amount:      money.New(1000, money.USD),
		Category:    categorization.CategoryFood,
		ExpenseDate: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}
}

func newTestIndex(t *testing.T) *SearchIndex {
	t.Helper()
	si, err := NewSearchIndex()
	require.NoError(t, err)
	t.Cleanup(func() { _ = si.Close() })
	return si
}

func TestSearchIndex_ToleratesTypos(t *testing.T) {
	si := newTestIndex(t)
	userID := uuid.New()

	e := testExpense(userID, "Morning coffee run")
	require.NoError(t, si.Index(e))

	hits, err := si.Search(userID, "cofee", 10)
	require.NoError(t, err)

	require.Len(t, hits, 1)
	assert.Equal(t, e.ID, hits[0].ExpenseID)
}

func TestSearchIndex_SearchesNotes(t *testing.T) {
	si := newTestIndex(t)
	userID := uuid.New()

	e := testExpense(userID, "Card payment")
	e.Notes = "conference registration fee"
	require.NoError(t, si.Index(e))

	hits, err := si.Search(userID, "conference", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
}

func TestSearchIndex_IndexAll(t *testing.T) {
	si := newTestIndex(t)
	userID := uuid.New()

	expenses := []*Expense{
		testExpense(userID, "Grocery run"),
		testExpense(userID, "Taxi to airport"),
		testExpense(uuid.New(), "Grocery run"), // other user
	}
	require.NoError(t, si.IndexAll(expenses))

	hits, err := si.Search(userID, "grocery", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
}

func TestSearchIndex_ReindexReplaces(t *testing.T) {
	si := newTestIndex(t)
	userID := uuid.New()

	e := testExpense(userID, "Taxi downtown")
	require.NoError(t, si.Index(e))

	e.Name = "Dinner downtown"
	require.NoError(t, si.Index(e))

	hits, err := si.Search(userID, "taxi", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = si.Search(userID, "dinner", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}
