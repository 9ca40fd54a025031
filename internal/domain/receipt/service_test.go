package receipt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spendwise/spendwise-api/internal/domain/categorization"
)

type mockReceiptStore struct {
	created   []*Receipt
	createErr error
	receipts  map[uuid.UUID]*Receipt
	deleted   []uuid.UUID
}

func newMockReceiptStore() *mockReceiptStore {
	return &mockReceiptStore{receipts: make(map[uuid.UUID]*Receipt)}
}

func (m *mockReceiptStore) Create(_ context.Context, rec *Receipt) error {
	if m.createErr != nil {
		return m.createErr
	}
	rec.ID = uuid.New()
	rec.CreatedAt = time.Now()
	m.created = append(m.created, rec)
	m.receipts[rec.ID] = rec
	return nil
}

func (m *mockReceiptStore) GetByID(_ context.Context, userID, receiptID uuid.UUID) (*Receipt, error) {
	rec, ok := m.receipts[receiptID]
	if !ok || rec.UserID != userID {
		return nil, ErrReceiptNotFound
	}
	return rec, nil
}

func (m *mockReceiptStore) ListByUser(_ context.Context, userID uuid.UUID, _ int) ([]*Receipt, error) {
	var out []*Receipt
	for _, rec := range m.receipts {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *mockReceiptStore) Delete(_ context.Context, userID, receiptID uuid.UUID) error {
	rec, ok := m.receipts[receiptID]
	if !ok || rec.UserID != userID {
		return ErrReceiptNotFound
	}
	delete(m.receipts, receiptID)
	m.deleted = append(m.deleted, receiptID)
	return nil
}

type mockStorage struct {
	saveErr error
	deleted []string
}

func (m *mockStorage) Save(_ context.Context, userID, fileID uuid.UUID, filename string, r io.Reader) (string, error) {
	if m.saveErr != nil {
		return "", m.saveErr
	}
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s_%s", userID, fileID, filename), nil
}

func (m *mockStorage) Open(_ context.Context, _ uuid.UUID, _ string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}

func (m *mockStorage) Delete(_ context.Context, _ uuid.UUID, path string) error {
	m.deleted = append(m.deleted, path)
	return nil
}

type mockExtractor struct {
	text string
	err  error
}

func (m *mockExtractor) Extract(_ context.Context, _ []byte, _ string) (string, error) {
	return m.text, m.err
}

type mockCategorizer struct {
	result categorization.Result
}

func (m *mockCategorizer) Categorize(_ context.Context, _ uuid.UUID, _ string, _ float64, _ string) categorization.Result {
	return m.result
}

func newScanService(store ReceiptStore, files *mockStorage, extractor TextExtractor) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cat := &mockCategorizer{result: categorization.Result{
		Category:   categorization.CategoryFood,
		Confidence: 0.8,
		Source:     "keywords",
	}}
	svc := NewService(store, files, extractor, cat, logger, nil)
	svc.now = func() time.Time { return extractionTime }
	return svc
}

func TestService_Scan(t *testing.T) {
	store := newMockReceiptStore()
	extractor := &mockExtractor{text: "Corner Street Cafe\nTotal $17.99"}
	svc := newScanService(store, &mockStorage{}, extractor)
	userID := uuid.New()

	result, err := svc.Scan(context.Background(), userID,
		"receipt.jpg", "image/jpeg", strings.NewReader("fake image bytes"))
	require.NoError(t, err)

	assert.Equal(t, "Corner Street Cafe", result.Parsed.Merchant)
	assert.True(t, result.Parsed.Amount.Equal(decimal.RequireFromString("17.99")))
	assert.Equal(t, categorization.CategoryFood, result.Suggestion.Category)

	require.Len(t, store.created, 1)
	assert.Equal(t, userID, store.created[0].UserID)
	assert.Equal(t, int64(1799), store.created[0].Amount.Amount())
	assert.NotEmpty(t, store.created[0].FilePath)
}

func TestService_ScanExtractionFailure(t *testing.T) {
	store := newMockReceiptStore()
	extractor := &mockExtractor{err: fmt.Errorf("%w: ocr unavailable", ErrExtraction)}
	files := &mockStorage{}
	svc := newScanService(store, files, extractor)

	_, err := svc.Scan(context.Background(), uuid.New(),
		"receipt.jpg", "image/jpeg", strings.NewReader("bytes"))

	assert.ErrorIs(t, err, ErrExtraction)
	assert.Empty(t, store.created)
	// The upload was already stored when extraction failed; no receipt row
	// points at it, so it must be cleaned up.
	assert.Len(t, files.deleted, 1)
}

func TestService_ScanCreateFailureRemovesUpload(t *testing.T) {
	store := newMockReceiptStore()
	store.createErr = errors.New("insert failed")
	files := &mockStorage{}
	svc := newScanService(store, files, &mockExtractor{text: "Total $5.00"})

	_, err := svc.Scan(context.Background(), uuid.New(),
		"receipt.jpg", "image/jpeg", strings.NewReader("bytes"))

	require.Error(t, err)
	assert.Len(t, files.deleted, 1)
}

func TestService_ScanEmptyTextStillSucceeds(t *testing.T) {
	store := newMockReceiptStore()
	svc := newScanService(store, &mockStorage{}, &mockExtractor{text: ""})

	result, err := svc.Scan(context.Background(), uuid.New(),
		"receipt.jpg", "image/jpeg", strings.NewReader("bytes"))
	require.NoError(t, err)

	assert.Equal(t, UnknownMerchant, result.Parsed.Merchant)
	assert.True(t, result.Parsed.Amount.IsZero())
	assert.Equal(t, extractionTime, result.Parsed.Date)
}

func TestService_ScanStorageFailure(t *testing.T) {
	store := newMockReceiptStore()
	files := &mockStorage{saveErr: errors.New("disk full")}
	svc := newScanService(store, files, &mockExtractor{text: "text"})

	_, err := svc.Scan(context.Background(), uuid.New(),
		"receipt.jpg", "image/jpeg", strings.NewReader("bytes"))

	require.Error(t, err)
	assert.Empty(t, store.created)
}

func TestService_ScanRejectsOversizedUpload(t *testing.T) {
	store := newMockReceiptStore()
	svc := newScanService(store, &mockStorage{}, &mockExtractor{text: "text"})

	big := strings.NewReader(strings.Repeat("x", maxUploadBytes+1))
	_, err := svc.Scan(context.Background(), uuid.New(), "huge.jpg", "image/jpeg", big)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "limit")
}

func TestService_DeleteRemovesFile(t *testing.T) {
	store := newMockReceiptStore()
	files := &mockStorage{}
	svc := newScanService(store, files, &mockExtractor{text: "Total $5.00"})
	userID := uuid.New()

	result, err := svc.Scan(context.Background(), userID,
		"receipt.jpg", "image/jpeg", strings.NewReader("bytes"))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), userID, result.Receipt.ID))

	assert.Len(t, files.deleted, 1)
	_, err = svc.Get(context.Background(), userID, result.Receipt.ID)
	assert.ErrorIs(t, err, ErrReceiptNotFound)
}

func TestService_GetScopedToUser(t *testing.T) {
	store := newMockReceiptStore()
	svc := newScanService(store, &mockStorage{}, &mockExtractor{text: "Total $5.00"})
	owner := uuid.New()

	result, err := svc.Scan(context.Background(), owner,
		"receipt.jpg", "image/jpeg", strings.NewReader("bytes"))
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), uuid.New(), result.Receipt.ID)
	assert.ErrorIs(t, err, ErrReceiptNotFound)
}

type fixedExtractor struct {
	text string
	err  error
}

func (f *fixedExtractor) Extract(_ context.Context, _ []byte, _ string) (string, error) {
	return f.text, f.err
}

func TestCompositeExtractor_PDFTextLayerPreferred(t *testing.T) {
	c := NewCompositeExtractor(
		&fixedExtractor{text: "embedded text"},
		&fixedExtractor{text: "ocr text"},
	)

	text, err := c.Extract(context.Background(), []byte("pdf"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "embedded text", text)
}

func TestCompositeExtractor_EmptyPDFTextFallsBackToOCR(t *testing.T) {
	c := NewCompositeExtractor(
		&fixedExtractor{text: ""},
		&fixedExtractor{text: "ocr text"},
	)

	text, err := c.Extract(context.Background(), []byte("pdf"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "ocr text", text)
}

func TestCompositeExtractor_ImagesGoStraightToOCR(t *testing.T) {
	pdf := &fixedExtractor{err: errors.New("should not be called")}
	c := NewCompositeExtractor(pdf, &fixedExtractor{text: "ocr text"})

	text, err := c.Extract(context.Background(), []byte("jpeg"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "ocr text", text)
}
