package categorization

import (
	"strings"
	"sync"

	"github.com/cloudflare/ahocorasick"
	"github.com/google/uuid"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// MerchantRule maps a merchant text pattern to a category. User rules take
// precedence over system rules.
type MerchantRule struct {
	ID        uuid.UUID
	UserID    *uuid.UUID // nil = system/global
	Pattern   string
	CleanName string
	Category  Category
	IsSystem  bool
	Priority  int
}

// RuleMatch is the outcome of matching an expense name against the rules.
type RuleMatch struct {
	Pattern   string
	CleanName string
	Category  Category
	RuleID    uuid.UUID
	Priority  int
	Fuzzy     bool // true when found via the fuzzy pass, not an exact hit
}

// Engine matches expense names against merchant rules using the Aho-Corasick
// algorithm: one pass through the text regardless of rule count. A fuzzy
// second pass catches merchant variations the exact matcher misses.
type Engine struct {
	matcher  *ahocorasick.Matcher
	patterns []string
	rules    []MerchantRule // aligned with patterns
	mu       sync.RWMutex
}

// NewEngine builds a matching engine from merchant rules.
func NewEngine(rules []MerchantRule) *Engine {
	e := &Engine{}
	e.Build(rules)
	return e
}

// Build rebuilds the matcher; callable when the rule set changes.
func (e *Engine) Build(rules []MerchantRule) {
	e.mu.Lock()
	defer e.mu.Unlock()

	// Deduplicate patterns up front: the matcher reports one hit per
	// dictionary entry, so each pattern keeps only its strongest rule.
	patterns := make([]string, 0, len(rules))
	kept := make([]MerchantRule, 0, len(rules))
	seen := make(map[string]int, len(rules))

	for _, rule := range rules {
		clean := strings.ToUpper(strings.TrimSpace(rule.Pattern))
		if clean == "" {
			continue
		}
		if i, dup := seen[clean]; dup {
			if effectivePriority(rule) > effectivePriority(kept[i]) {
				kept[i] = rule
			}
			continue
		}
		seen[clean] = len(kept)
		patterns = append(patterns, clean)
		kept = append(kept, rule)
	}

	e.patterns = patterns
	e.rules = kept

	if len(patterns) == 0 {
		e.matcher = nil
		return
	}

	bytePatterns := make([][]byte, len(patterns))
	for i, p := range patterns {
		bytePatterns[i] = []byte(p)
	}
	e.matcher = ahocorasick.NewMatcher(bytePatterns)
}

// Match returns the highest-priority exact rule hit, or nil.
func (e *Engine) Match(name string) *RuleMatch {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.matcher == nil {
		return nil
	}

	hits := e.matcher.Match([]byte(strings.ToUpper(name)))
	if len(hits) == 0 {
		return nil
	}

	var best *RuleMatch
	for _, idx := range hits {
		if idx < 0 || idx >= len(e.rules) {
			continue
		}
		candidate := e.ruleMatchAt(idx, false)
		if best == nil || candidate.Priority > best.Priority {
			best = &candidate
		}
	}
	return best
}

// fuzzyMatchThreshold is the maximum Levenshtein distance accepted for a
// fuzzy rule hit, relative to pattern length (distance <= len/4).
const fuzzyMatchDivisor = 4

// FuzzyMatch compares each word of the name against rule patterns and
// returns the closest acceptable rule, or nil. Used only when Match misses.
func (e *Engine) FuzzyMatch(name string) *RuleMatch {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if len(e.patterns) == 0 {
		return nil
	}

	words := strings.Fields(strings.ToUpper(name))
	if len(words) == 0 {
		return nil
	}

	var best *RuleMatch
	bestDistance := -1

	for i, pattern := range e.patterns {
		maxDistance := len(pattern) / fuzzyMatchDivisor
		if maxDistance == 0 {
			continue // short patterns must match exactly
		}

		for _, word := range words {
			if word[0] != pattern[0] {
				continue // cheap first-letter prefilter
			}
			distance := fuzzy.LevenshteinDistance(word, pattern)
			if distance > maxDistance {
				continue
			}
			if bestDistance == -1 || distance < bestDistance ||
				(distance == bestDistance && effectivePriority(e.rules[i]) > best.Priority) {
				candidate := e.ruleMatchAt(i, true)
				best = &candidate
				bestDistance = distance
			}
		}
	}

	return best
}

// RuleCount returns the number of loaded rules.
func (e *Engine) RuleCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.rules)
}

// effectivePriority ranks rules: user rules beat system rules of any priority.
func effectivePriority(rule MerchantRule) int {
	if rule.UserID != nil {
		return rule.Priority + 100
	}
	return rule.Priority
}

func (e *Engine) ruleMatchAt(idx int, isFuzzy bool) RuleMatch {
	rule := e.rules[idx]
	return RuleMatch{
		Pattern:   e.patterns[idx],
		CleanName: rule.CleanName,
		Category:  rule.Category,
		RuleID:    rule.ID,
		Priority:  effectivePriority(rule),
		Fuzzy:     isFuzzy,
	}
}
