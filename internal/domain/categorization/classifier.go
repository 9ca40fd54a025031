package categorization

import (
	"strings"
)

// CategoryScore is the result of classifying an expense.
type CategoryScore struct {
	Category   Category `json:"category"`
	Confidence float64  `json:"confidence"`

	// FromAmountRule marks results produced by the amount-band fallback
	// rather than keyword overlap.
	FromAmountRule bool `json:"-"`
}

// Classifier assigns a category from an expense name, amount and notes using
// keyword-overlap scoring against an injected keyword table. It is pure and
// total: every input produces a result.
type Classifier struct {
	table    KeywordTable
	keywords []map[string]struct{} // one set per table entry, same order
}

// NewClassifier builds a classifier over the given keyword configuration.
func NewClassifier(table KeywordTable) *Classifier {
	sets := make([]map[string]struct{}, len(table))
	for i, entry := range table {
		set := make(map[string]struct{}, len(entry.Keywords))
		for _, kw := range entry.Keywords {
			set[strings.ToLower(kw)] = struct{}{}
		}
		sets[i] = set
	}
	return &Classifier{table: table, keywords: sets}
}

// minKeywordScore is the threshold below which the keyword result is
// discarded in favor of the amount-band fallback.
const minKeywordScore = 0.1

// Classify scores every category and returns the winner.
//
// The score for a category is the fraction of significant words (length > 2)
// in name+notes that appear in its keyword list, plus small amount-based
// bonuses. Ties go to the first category in table order. When the best
// keyword overlap alone is below 0.1 the text carries no usable signal and
// the result falls back to a pure amount-band rule. Confidence is
// min(2*best, 1) in either case.
func (c *Classifier) Classify(name string, amount float64, notes string) CategoryScore {
	words := significantWords(name + " " + notes)

	bestIdx := -1
	bestScore := 0.0
	bestOverlap := 0.0

	for i, entry := range c.table {
		overlap := 0.0
		if len(words) > 0 {
			matched := 0
			for _, w := range words {
				if _, ok := c.keywords[i][w]; ok {
					matched++
				}
			}
			overlap = float64(matched) / float64(len(words))
		}

		score := overlap + amountBonus(entry.Category, amount)

		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
		if overlap > bestOverlap {
			bestOverlap = overlap
		}
	}

	if bestIdx < 0 || bestOverlap < minKeywordScore {
		return CategoryScore{
			Category:       amountBandCategory(amount),
			Confidence:     clampConfidence(bestScore),
			FromAmountRule: true,
		}
	}

	return CategoryScore{
		Category:   c.table[bestIdx].Category,
		Confidence: clampConfidence(bestScore),
	}
}

// significantWords lowercases the text and keeps words longer than 2 runes.
func significantWords(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	words := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, ".,;:!?()[]\"'")
		if len([]rune(f)) > 2 {
			words = append(words, f)
		}
	}
	return words
}

// amountBonus returns the fixed per-category bonus for the given amount.
func amountBonus(cat Category, amount float64) float64 {
	switch cat {
	case CategoryFood:
		if amount < 100 {
			return 0.1
		}
	case CategoryTransport:
		if amount < 50 {
			return 0.1
		}
	case CategoryUtilities:
		if amount > 50 {
			return 0.1
		}
	}
	return 0
}

// amountBandCategory implements the weak-signal fallback bands.
func amountBandCategory(amount float64) Category {
	switch {
	case amount < 20:
		return CategoryFood
	case amount < 100:
		return CategoryShopping
	case amount < 500:
		return CategoryUtilities
	default:
		return CategoryOther
	}
}

func clampConfidence(score float64) float64 {
	conf := score * 2
	if conf > 1 {
		return 1
	}
	if conf < 0 {
		return 0
	}
	return conf
}
