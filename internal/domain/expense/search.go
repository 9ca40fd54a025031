package expense

import (
	"fmt"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/google/uuid"
)

// searchDocument is the indexed projection of an expense.
type searchDocument struct {
	ID       string  `json:"id"`
	UserID   string  `json:"user_id"`
	Name     string  `json:"name"`
	Notes    string  `json:"notes"`
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
	Date     string  `json:"date"`
}

// SearchHit is one search result with its relevance score.
type SearchHit struct {
	ExpenseID uuid.UUID `json:"expense_id"`
	Score     float64   `json:"score"`
}

// SearchIndex provides full-text search over expense names and notes with
// typo tolerance. The index is in-memory and rebuilt from Postgres rows at
// startup; Postgres stays the source of truth.
type SearchIndex struct {
	index bleve.Index
	mu    sync.RWMutex
}

func NewSearchIndex() (*SearchIndex, error) {
	index, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("creating search index: %w", err)
	}
	return &SearchIndex{index: index}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = simple.Name

	keywordFieldMapping := bleve.NewTextFieldMapping()
	keywordFieldMapping.Analyzer = keyword.Name

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("user_id", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("name", textFieldMapping)
	docMapping.AddFieldMappingsAt("notes", textFieldMapping)
	docMapping.AddFieldMappingsAt("category", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("date", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("amount", bleve.NewNumericFieldMapping())

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = simple.Name
	return indexMapping
}

// Index adds or replaces one expense in the index.
func (si *SearchIndex) Index(e *Expense) error {
	si.mu.Lock()
	defer si.mu.Unlock()

	doc := toSearchDocument(e)
	if err := si.index.Index(doc.ID, doc); err != nil {
		return fmt.Errorf("indexing expense %s: %w", e.ID, err)
	}
	return nil
}

// IndexAll batch-indexes expenses, used to warm the index at startup.
func (si *SearchIndex) IndexAll(expenses []*Expense) error {
	si.mu.Lock()
	defer si.mu.Unlock()

	batch := si.index.NewBatch()
	for _, e := range expenses {
		doc := toSearchDocument(e)
		if err := batch.Index(doc.ID, doc); err != nil {
			return fmt.Errorf("batch indexing expense %s: %w", e.ID, err)
		}
	}
	if err := si.index.Batch(batch); err != nil {
		return fmt.Errorf("executing index batch: %w", err)
	}
	return nil
}

// Remove deletes an expense from the index.
func (si *SearchIndex) Remove(expenseID uuid.UUID) error {
	si.mu.Lock()
	defer si.mu.Unlock()
	return si.index.Delete(expenseID.String())
}

// Search runs a fuzzy match over the user's expenses, best matches first.
func (si *SearchIndex) Search(userID uuid.UUID, text string, limit int) ([]SearchHit, error) {
	si.mu.RLock()
	defer si.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	matchQuery := bleve.NewMatchQuery(text)
	matchQuery.SetFuzziness(1)

	userQuery := bleve.NewTermQuery(userID.String())
	userQuery.SetField("user_id")

	conjunction := bleve.NewConjunctionQuery(matchQuery, userQuery)

	request := bleve.NewSearchRequest(conjunction)
	request.Size = limit

	results, err := si.index.Search(request)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	hits := make([]SearchHit, 0, len(results.Hits))
	for _, hit := range results.Hits {
		id, err := uuid.Parse(hit.ID)
		if err != nil {
			continue
		}
		hits = append(hits, SearchHit{ExpenseID: id, Score: hit.Score})
	}
	return hits, nil
}

// Close releases index resources.
func (si *SearchIndex) Close() error {
	si.mu.Lock()
	defer si.mu.Unlock()
	return si.index.Close()
}

func toSearchDocument(e *Expense) searchDocument {
	var amount float64
	if e.Amount != nil {
		amount = e.Amount.ToFloat64()
	}
	return searchDocument{
		ID:       e.ID.String(),
		UserID:   e.UserID.String(),
		Name:     e.Name,
		Notes:    e.Notes,
		Category: string(e.Category),
		Amount:   amount,
		Date:     e.ExpenseDate.Format("2006-01-02"),
	}
}
