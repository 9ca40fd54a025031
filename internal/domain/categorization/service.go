package categorization

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spendwise/spendwise-api/pkg/metrics"
)

const (
	// An exact merchant rule is authoritative; fuzzy hits carry the typo
	// risk as a discount.
	ruleMatchConfidence  = 1.0
	fuzzyMatchConfidence = 0.85
	ruleCacheTTL         = 5 * time.Minute
)

// RuleStore is the persistence surface the service needs.
type RuleStore interface {
	GetRules(ctx context.Context, userID uuid.UUID) ([]MerchantRule, error)
	CreateRule(ctx context.Context, rule MerchantRule) (MerchantRule, error)
	DeleteRule(ctx context.Context, userID, ruleID uuid.UUID) error
}

// Result is a categorization decision for one expense.
type Result struct {
	Category   Category `json:"category"`
	Confidence float64  `json:"confidence"`
	CleanName  string   `json:"clean_name,omitempty"`
	Source     string   `json:"source"` // "rule", "fuzzy" or "keywords"
}

type cachedEngine struct {
	engine   *Engine
	loadedAt time.Time
}

// Service categorizes expenses. Merchant rules win over keyword scoring;
// any rule loading failure degrades to the keyword classifier alone.
type Service struct {
	store      RuleStore
	classifier *Classifier
	logger     *slog.Logger
	metrics    *metrics.Metrics

	mu      sync.RWMutex
	engines map[uuid.UUID]cachedEngine
}

func NewService(store RuleStore, classifier *Classifier, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		store:      store,
		classifier: classifier,
		logger:     logger,
		metrics:    m,
		engines:    make(map[uuid.UUID]cachedEngine),
	}
}

// Categorize decides the category for an expense name and amount. It never
// returns an error: persistence failures fall back to keyword scoring.
func (s *Service) Categorize(ctx context.Context, userID uuid.UUID, name string, amount float64, notes string) Result {
	if engine := s.engineFor(ctx, userID); engine != nil {
		if match := engine.Match(name); match != nil {
			return Result{
				Category:   match.Category,
				Confidence: ruleMatchConfidence,
				CleanName:  match.CleanName,
				Source:     "rule",
			}
		}
		if match := engine.FuzzyMatch(name); match != nil {
			return Result{
				Category:   match.Category,
				Confidence: fuzzyMatchConfidence,
				CleanName:  match.CleanName,
				Source:     "fuzzy",
			}
		}
	}

	score := s.classifier.Classify(name, amount, notes)
	if score.FromAmountRule && s.metrics != nil {
		s.metrics.CategorizerFallbacks.Inc()
	}
	return Result{
		Category:   score.Category,
		Confidence: score.Confidence,
		Source:     "keywords",
	}
}

// AddRule creates a user rule and invalidates that user's cached engine.
func (s *Service) AddRule(ctx context.Context, userID uuid.UUID, pattern, cleanName string, category Category) (MerchantRule, error) {
	rule, err := s.store.CreateRule(ctx, MerchantRule{
		UserID:    &userID,
		Pattern:   pattern,
		CleanName: cleanName,
		Category:  category,
		Priority:  10,
	})
	if err != nil {
		return MerchantRule{}, err
	}
	s.invalidate(userID)
	return rule, nil
}

// RemoveRule deletes a user rule and invalidates that user's cached engine.
func (s *Service) RemoveRule(ctx context.Context, userID, ruleID uuid.UUID) error {
	if err := s.store.DeleteRule(ctx, userID, ruleID); err != nil {
		return err
	}
	s.invalidate(userID)
	return nil
}

// Rules lists the rules visible to a user.
func (s *Service) Rules(ctx context.Context, userID uuid.UUID) ([]MerchantRule, error) {
	return s.store.GetRules(ctx, userID)
}

func (s *Service) engineFor(ctx context.Context, userID uuid.UUID) *Engine {
	s.mu.RLock()
	cached, ok := s.engines[userID]
	s.mu.RUnlock()

	if ok && time.Since(cached.loadedAt) < ruleCacheTTL {
		return cached.engine
	}

	rules, err := s.store.GetRules(ctx, userID)
	if err != nil {
		s.logger.Warn("loading merchant rules failed, using keyword classifier only",
			slog.String("user_id", userID.String()),
			slog.Any("error", err))
		if ok {
			return cached.engine // stale beats nothing
		}
		return nil
	}

	engine := NewEngine(rules)

	s.mu.Lock()
	s.engines[userID] = cachedEngine{engine: engine, loadedAt: time.Now()}
	s.mu.Unlock()

	return engine
}

func (s *Service) invalidate(userID uuid.UUID) {
	s.mu.Lock()
	delete(s.engines, userID)
	s.mu.Unlock()
}
