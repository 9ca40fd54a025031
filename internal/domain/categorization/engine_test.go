package categorization

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRules(userID *uuid.UUID) []MerchantRule {
	return []MerchantRule{
		{ID: uuid.New(), Pattern: "NETFLIX", CleanName: "Netflix", Category: CategoryEntertainment, IsSystem: true, Priority: 10},
		{ID: uuid.New(), Pattern: "UBER", CleanName: "Uber", Category: CategoryTransport, IsSystem: true, Priority: 10},
		{ID: uuid.New(), Pattern: "STARBUCKS", CleanName: "Starbucks", Category: CategoryFood, IsSystem: true, Priority: 10},
		{ID: uuid.New(), UserID: userID, Pattern: "NETFLIX", CleanName: "Shared Netflix", Category: CategoryOther, Priority: 10},
	}
}

func TestEngine_Match(t *testing.T) {
	userID := uuid.New()
	e := NewEngine(testRules(&userID))

	match := e.Match("UBER *TRIP 4X2 SAN FRANCISCO")
	require.NotNil(t, match)
	assert.Equal(t, CategoryTransport, match.Category)
	assert.Equal(t, "Uber", match.CleanName)
	assert.False(t, match.Fuzzy)
}

func TestEngine_MatchIsCaseInsensitive(t *testing.T) {
	e := NewEngine(testRules(nil))

	match := e.Match("starbucks coffee #1234")
	require.NotNil(t, match)
	assert.Equal(t, CategoryFood, match.Category)
}

func TestEngine_UserRuleBeatsSystemRule(t *testing.T) {
	userID := uuid.New()
	e := NewEngine(testRules(&userID))

	match := e.Match("NETFLIX.COM MONTHLY")
	require.NotNil(t, match)
	assert.Equal(t, CategoryOther, match.Category)
	assert.Equal(t, "Shared Netflix", match.CleanName)
}

func TestEngine_NoMatch(t *testing.T) {
	e := NewEngine(testRules(nil))

	assert.Nil(t, e.Match("LOCAL HARDWARE STORE"))
}

func TestEngine_FuzzyMatch(t *testing.T) {
	e := NewEngine(testRules(nil))

	// one typo away from STARBUCKS, within distance len/4 = 2
	match := e.FuzzyMatch("STARBUCK morning run")
	require.NotNil(t, match)
	assert.Equal(t, CategoryFood, match.Category)
	assert.True(t, match.Fuzzy)
}

func TestEngine_FuzzyMatchTieBreakPrefersUserRule(t *testing.T) {
	userID := uuid.New()
	// Both patterns are distance 1 from the queried word. The user rule's
	// lower raw priority still wins the tie because user rules outrank
	// system rules in the fuzzy pass exactly as in the exact pass.
	e := NewEngine([]MerchantRule{
		{ID: uuid.New(), Pattern: "NETFLIX", CleanName: "Netflix", Category: CategoryEntertainment, IsSystem: true, Priority: 50},
		{ID: uuid.New(), UserID: &userID, Pattern: "NETFLIN", CleanName: "Net Flin Cafe", Category: CategoryFood, Priority: 10},
	})

	match := e.FuzzyMatch("NETFLIE CHARGE")
	require.NotNil(t, match)
	assert.True(t, match.Fuzzy)
	assert.Equal(t, "Net Flin Cafe", match.CleanName)
	assert.Equal(t, CategoryFood, match.Category)
}

func TestEngine_FuzzyMatchRejectsDistantWords(t *testing.T) {
	e := NewEngine(testRules(nil))

	assert.Nil(t, e.FuzzyMatch("SAFEWAY GROCERIES"))
}

func TestEngine_ShortPatternsNeverFuzzyMatch(t *testing.T) {
	e := NewEngine([]MerchantRule{
		{ID: uuid.New(), Pattern: "CVS", CleanName: "CVS", Category: CategoryHealthcare, IsSystem: true, Priority: 10},
	})

	// CVS has max fuzzy distance 0, so only an exact hit counts
	assert.Nil(t, e.FuzzyMatch("CVX PHARMACY"))
	require.NotNil(t, e.Match("CVS PHARMACY #221"))
}

func TestEngine_EmptyRuleSet(t *testing.T) {
	e := NewEngine(nil)

	assert.Nil(t, e.Match("ANYTHING"))
	assert.Nil(t, e.FuzzyMatch("ANYTHING"))
	assert.Equal(t, 0, e.RuleCount())
}

func TestEngine_Rebuild(t *testing.T) {
	e := NewEngine(nil)
	e.Build(testRules(nil))

	// four rules, but the duplicate NETFLIX pattern collapses to one entry
	assert.Equal(t, 3, e.RuleCount())
	assert.NotNil(t, e.Match("UBER EATS"))
}
