package categorization

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifier_KeywordMatch(t *testing.T) {
	c := NewClassifier(DefaultKeywords())

	score := c.Classify("Uber ride home", 22.50, "")

	assert.Equal(t, CategoryTransport, score.Category)
	assert.Greater(t, score.Confidence, 0.0)
	assert.False(t, score.FromAmountRule)
}

func TestClassifier_FoodKeywords(t *testing.T) {
	c := NewClassifier(DefaultKeywords())

	tests := []struct {
		name   string
		amount float64
	}{
		{"Whole Foods grocery run", 84.20},
		{"Dinner at the restaurant", 56.00},
		{"Coffee at the cafe", 4.75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := c.Classify(tt.name, tt.amount, "")
			assert.Equal(t, CategoryFood, score.Category)
			assert.Greater(t, score.Confidence, 0.0)
		})
	}
}

func TestClassifier_AmountFallback(t *testing.T) {
	c := NewClassifier(DefaultKeywords())

	tests := []struct {
		name     string
		amount   float64
		expected Category
	}{
		{"xyz123", 15.00, CategoryFood},
		{"xyz123", 65.00, CategoryShopping},
		{"xyz123", 250.00, CategoryUtilities},
		{"xyz123", 900.00, CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := c.Classify(tt.name, tt.amount, "")
			assert.Equal(t, tt.expected, score.Category)
			assert.True(t, score.FromAmountRule)
		})
	}
}

func TestClassifier_NotesContribute(t *testing.T) {
	c := NewClassifier(DefaultKeywords())

	withNotes := c.Classify("Monthly payment", 12.99, "netflix subscription renewal")

	assert.Equal(t, CategoryEntertainment, withNotes.Category)
	assert.False(t, withNotes.FromAmountRule)
}

func TestClassifier_ConfidenceClamped(t *testing.T) {
	c := NewClassifier(DefaultKeywords())

	score := c.Classify("grocery restaurant cafe coffee pizza lunch dinner breakfast", 30.00, "")

	assert.Equal(t, CategoryFood, score.Category)
	assert.LessOrEqual(t, score.Confidence, 1.0)
}

func TestClassifier_ShortWordsIgnored(t *testing.T) {
	c := NewClassifier(DefaultKeywords())

	// "a", "to", "of" are under three characters and must not score
	score := c.Classify("a to of", 15.00, "")

	assert.Equal(t, CategoryFood, score.Category)
	assert.True(t, score.FromAmountRule)
}

func TestCategory_Valid(t *testing.T) {
	for _, cat := range Categories {
		assert.True(t, cat.Valid(), "category %s should be valid", cat)
	}
	assert.False(t, Category("groceries").Valid())
	assert.False(t, Category("").Valid())
}
