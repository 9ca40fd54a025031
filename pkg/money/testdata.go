package money

import (
	"time"

	"github.com/brianvoe/gofakeit/v6"
)

// TestDataGenerator produces realistic expense test data using gofakeit.
type TestDataGenerator struct {
	faker *gofakeit.Faker
}

// NewTestDataGenerator creates a generator with a fixed seed for reproducibility.
func NewTestDataGenerator(seed int64) *TestDataGenerator {
	return &TestDataGenerator{faker: gofakeit.New(seed)}
}

// TestExpense is a generated expense record for seeding tests.
type TestExpense struct {
	Name     string
	Amount   *Money
	Category string
	Date     time.Time
	Notes    string
}

var testCategories = []string{
	"food", "transport", "utilities", "entertainment",
	"shopping", "healthcare", "education", "other",
}

var testExpenseNames = []string{
	"Coffee and pastry",
	"Weekly groceries",
	"Gas station fill-up",
	"Streaming subscription",
	"Restaurant dinner",
	"Electric bill",
	"Pharmacy pickup",
	"Bus pass",
	"Movie tickets",
	"Textbook order",
}

// Amount generates a random Money value within a dollar range.
func (g *TestDataGenerator) Amount(currency string, minDollars, maxDollars float64) *Money {
	return NewFromFloat(g.faker.Float64Range(minDollars, maxDollars), currency)
}

// Expense generates a single random expense dated within the last 90 days.
func (g *TestDataGenerator) Expense(currency string) TestExpense {
	return TestExpense{
		Name:     testExpenseNames[g.faker.Number(0, len(testExpenseNames)-1)],
		Amount:   g.Amount(currency, 1, 500),
		Category: testCategories[g.faker.Number(0, len(testCategories)-1)],
		Date:     g.faker.DateRange(time.Now().AddDate(0, 0, -90), time.Now()),
		Notes:    "",
	}
}

// CategoryHistory generates n expenses in one category with amounts drawn
// from a narrow band, suitable for anomaly-baseline tests.
func (g *TestDataGenerator) CategoryHistory(currency, category string, n int, baseDollars, spreadDollars float64) []TestExpense {
	out := make([]TestExpense, n)
	for i := range out {
		out[i] = TestExpense{
			Name:     testExpenseNames[g.faker.Number(0, len(testExpenseNames)-1)],
			Amount:   g.Amount(currency, baseDollars-spreadDollars, baseDollars+spreadDollars),
			Category: category,
			Date:     g.faker.DateRange(time.Now().AddDate(0, 0, -89), time.Now()),
		}
	}
	return out
}
