package expense

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/spendwise/spendwise-api/internal/domain/categorization"
	"github.com/spendwise/spendwise-api/internal/domain/insights"
	"github.com/spendwise/spendwise-api/pkg/money"
)

// anomalyTimeout bounds the anomaly check during expense creation. The
// check reads history from the database and must not block the write path.
const anomalyTimeout = 3 * time.Second

var (
	ErrNameRequired    = errors.New("expense name is required")
	ErrInvalidAmount   = errors.New("expense amount is invalid")
	ErrNegativeAmount  = errors.New("expense amount cannot be negative")
	ErrInvalidDate     = errors.New("expense date is invalid")
	ErrInvalidCategory = errors.New("unknown expense category")
)

// ExpenseStore is the persistence surface the service needs.
type ExpenseStore interface {
	Create(ctx context.Context, e *Expense) error
	GetByID(ctx context.Context, userID, expenseID uuid.UUID) (*Expense, error)
	List(ctx context.Context, userID uuid.UUID, filter ListFilter) ([]*Expense, error)
	Update(ctx context.Context, e *Expense) error
	Delete(ctx context.Context, userID, expenseID uuid.UUID) error
}

// Categorizer assigns a category when the caller does not provide one.
type Categorizer interface {
	Categorize(ctx context.Context, userID uuid.UUID, name string, amount float64, notes string) categorization.Result
}

// AnomalyChecker scores an amount against category history. CheckAnomaly
// is for expenses not yet written; RecheckAnomaly excludes the named row
// so a persisted expense is not compared against itself.
type AnomalyChecker interface {
	CheckAnomaly(ctx context.Context, userID uuid.UUID, category categorization.Category, amount float64) insights.AnomalyResult
	RecheckAnomaly(ctx context.Context, userID uuid.UUID, category categorization.Category, amount float64, expenseID uuid.UUID) insights.AnomalyResult
}

// Service owns the expense lifecycle. Categorization and anomaly scoring
// are heuristic helpers: neither may block or fail expense creation.
type Service struct {
	store       ExpenseStore
	categorizer Categorizer
	anomalies   AnomalyChecker
	search      *SearchIndex
	logger      *slog.Logger
	tracer      trace.Tracer
	now         func() time.Time

	warmMu sync.Mutex
	warmed map[uuid.UUID]bool
}

func NewService(
	store ExpenseStore,
	categorizer Categorizer,
	anomalies AnomalyChecker,
	search *SearchIndex,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:       store,
		categorizer: categorizer,
		anomalies:   anomalies,
		search:      search,
		logger:      logger,
		tracer:      otel.Tracer("expense"),
		now:         time.Now,
		warmed:      make(map[uuid.UUID]bool),
	}
}

// Create validates and persists a new expense. The category comes from the
// request when valid, otherwise from the categorizer; the anomaly check
// runs under a timeout and degrades to "not an anomaly" on any failure.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, req CreateRequest) (*Expense, error) {
	ctx, span := s.tracer.Start(ctx, "expense.create")
	defer span.End()

	if req.Name == "" {
		return nil, ErrNameRequired
	}

	currency := req.Currency
	if currency == "" {
		currency = money.USD
	}
	amount, err := money.NewFromString(req.Amount, currency)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	if amount.IsNegative() {
		return nil, ErrNegativeAmount
	}

	expenseDate := s.now()
	if req.ExpenseDate != "" {
		expenseDate, err = time.Parse("2006-01-02", req.ExpenseDate)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDate, err)
		}
	}

	category := req.Category
	if !category.Valid() {
		result := s.categorizer.Categorize(ctx, userID, req.Name, amount.ToFloat64(), req.Notes)
		category = result.Category
		span.SetAttributes(
			attribute.String("expense.category_source", result.Source),
			attribute.Float64("expense.category_confidence", result.Confidence))
	}

	anomaly := s.checkAnomaly(ctx, userID, category, amount.ToFloat64())

	e := &Expense{
		UserID:        userID,
		Name:          req.Name,
		Notes:         req.Notes,
		Amount:        amount,
		Category:      category,
		ExpenseDate:   expenseDate,
		IsAnomaly:     anomaly.IsAnomaly,
		AnomalyReason: anomaly.Reason,
		ReceiptID:     req.ReceiptID,
	}

	if err := s.store.Create(ctx, e); err != nil {
		return nil, err
	}

	s.indexExpense(e)

	s.logger.Info("expense created",
		slog.String("expense_id", e.ID.String()),
		slog.String("category", string(e.Category)),
		slog.Bool("is_anomaly", e.IsAnomaly))

	return e, nil
}

// checkAnomaly runs the anomaly scorer under its own deadline. The scorer
// already degrades internally; the timeout guards against a slow database.
func (s *Service) checkAnomaly(ctx context.Context, userID uuid.UUID, category categorization.Category, amount float64) insights.AnomalyResult {
	ctx, cancel := context.WithTimeout(ctx, anomalyTimeout)
	defer cancel()
	return s.anomalies.CheckAnomaly(ctx, userID, category, amount)
}

func (s *Service) recheckAnomaly(ctx context.Context, userID uuid.UUID, category categorization.Category, amount float64, expenseID uuid.UUID) insights.AnomalyResult {
	ctx, cancel := context.WithTimeout(ctx, anomalyTimeout)
	defer cancel()
	return s.anomalies.RecheckAnomaly(ctx, userID, category, amount, expenseID)
}

func (s *Service) Get(ctx context.Context, userID, expenseID uuid.UUID) (*Expense, error) {
	return s.store.GetByID(ctx, userID, expenseID)
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, filter ListFilter) ([]*Expense, error) {
	return s.store.List(ctx, userID, filter)
}

// Update applies the provided fields. A changed amount or category re-runs
// the anomaly check against current history; an explicit category always
// wins.
func (s *Service) Update(ctx context.Context, userID, expenseID uuid.UUID, req UpdateRequest) (*Expense, error) {
	e, err := s.store.GetByID(ctx, userID, expenseID)
	if err != nil {
		return nil, err
	}

	recheck := false

	if req.Name != nil {
		if *req.Name == "" {
			return nil, ErrNameRequired
		}
		e.Name = *req.Name
	}
	if req.Notes != nil {
		e.Notes = *req.Notes
	}
	if req.Category != nil {
		if !req.Category.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, *req.Category)
		}
		if *req.Category != e.Category {
			recheck = true
		}
		e.Category = *req.Category
	}
	if req.ExpenseDate != nil {
		d, err := time.Parse("2006-01-02", *req.ExpenseDate)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDate, err)
		}
		e.ExpenseDate = d
	}
	if req.Amount != nil {
		amount, err := money.NewFromString(*req.Amount, e.Amount.Currency())
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
		}
		if amount.IsNegative() {
			return nil, ErrNegativeAmount
		}
		e.Amount = amount
		recheck = true
	}

	if recheck {
		// The row is already in the baseline; score it against the rest
		// of the category.
		anomaly := s.recheckAnomaly(ctx, userID, e.Category, e.Amount.ToFloat64(), e.ID)
		e.IsAnomaly = anomaly.IsAnomaly
		e.AnomalyReason = anomaly.Reason
	}

	if err := s.store.Update(ctx, e); err != nil {
		return nil, err
	}

	s.indexExpense(e)
	return e, nil
}

func (s *Service) Delete(ctx context.Context, userID, expenseID uuid.UUID) error {
	if err := s.store.Delete(ctx, userID, expenseID); err != nil {
		return err
	}
	if s.search != nil {
		if err := s.search.Remove(expenseID); err != nil {
			s.logger.Warn("removing expense from search index failed",
				slog.String("expense_id", expenseID.String()),
				slog.Any("error", err))
		}
	}
	return nil
}

// Search returns the user's expenses matching the free-text query, best
// matches first. Hits whose rows have since been deleted are skipped. The
// index is memory-only, so the user's rows are loaded into it on their
// first search after process start.
func (s *Service) Search(ctx context.Context, userID uuid.UUID, text string, limit int) ([]*Expense, error) {
	if s.search == nil {
		return nil, errors.New("search is not enabled")
	}

	if err := s.warmOnce(ctx, userID); err != nil {
		return nil, err
	}

	hits, err := s.search.Search(userID, text, limit)
	if err != nil {
		return nil, err
	}

	expenses := make([]*Expense, 0, len(hits))
	for _, hit := range hits {
		e, err := s.store.GetByID(ctx, userID, hit.ExpenseID)
		if err != nil {
			if errors.Is(err, ErrExpenseNotFound) {
				continue
			}
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, nil
}

// warmOnce rebuilds the user's slice of the index the first time they
// search in this process.
func (s *Service) warmOnce(ctx context.Context, userID uuid.UUID) error {
	s.warmMu.Lock()
	done := s.warmed[userID]
	s.warmMu.Unlock()
	if done {
		return nil
	}

	if err := s.WarmSearchIndex(ctx, userID); err != nil {
		return err
	}

	s.warmMu.Lock()
	s.warmed[userID] = true
	s.warmMu.Unlock()
	return nil
}

// WarmSearchIndex loads the user's recent expenses into the search index.
func (s *Service) WarmSearchIndex(ctx context.Context, userID uuid.UUID) error {
	if s.search == nil {
		return nil
	}
	expenses, err := s.store.List(ctx, userID, ListFilter{Limit: 500})
	if err != nil {
		return err
	}
	return s.search.IndexAll(expenses)
}

// ExportCSV streams the user's filtered expenses as CSV.
func (s *Service) ExportCSV(ctx context.Context, userID uuid.UUID, filter ListFilter, w io.Writer) error {
	expenses, err := s.store.List(ctx, userID, filter)
	if err != nil {
		return err
	}
	return WriteCSV(w, expenses)
}

func (s *Service) indexExpense(e *Expense) {
	if s.search == nil {
		return
	}
	if err := s.search.Index(e); err != nil {
		s.logger.Warn("indexing expense failed",
			slog.String("expense_id", e.ID.String()),
			slog.Any("error", err))
	}
}
