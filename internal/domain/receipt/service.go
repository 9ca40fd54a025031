package receipt

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/spendwise/spendwise-api/internal/domain/categorization"
	"github.com/spendwise/spendwise-api/pkg/metrics"
	"github.com/spendwise/spendwise-api/pkg/money"
	"github.com/spendwise/spendwise-api/pkg/storage"
)

// extractTimeout bounds the OCR call. OCR is long-latency external I/O and
// must not hold the request open indefinitely.
const extractTimeout = 30 * time.Second

// maxUploadBytes caps receipt uploads at 10 MiB.
const maxUploadBytes = 10 << 20

// ReceiptStore is the persistence surface the service needs.
type ReceiptStore interface {
	Create(ctx context.Context, rec *Receipt) error
	GetByID(ctx context.Context, userID, receiptID uuid.UUID) (*Receipt, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*Receipt, error)
	Delete(ctx context.Context, userID, receiptID uuid.UUID) error
}

// Categorizer suggests a category for the parsed merchant and amount.
type Categorizer interface {
	Categorize(ctx context.Context, userID uuid.UUID, name string, amount float64, notes string) categorization.Result
}

// ScanResult is the draft expense produced from one uploaded receipt. The
// caller reviews it before an expense is created.
type ScanResult struct {
	Receipt    *Receipt              `json:"receipt"`
	Parsed     ParsedReceipt         `json:"parsed"`
	Suggestion categorization.Result `json:"suggestion"`
}

// Service runs the receipt pipeline: store the upload, extract text, parse
// it and suggest a category.
type Service struct {
	store       ReceiptStore
	files       storage.Storage
	extractor   TextExtractor
	parser      *Parser
	categorizer Categorizer
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer
	now         func() time.Time
}

func NewService(
	store ReceiptStore,
	files storage.Storage,
	extractor TextExtractor,
	categorizer Categorizer,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		store:       store,
		files:       files,
		extractor:   extractor,
		parser:      NewParser(),
		categorizer: categorizer,
		logger:      logger,
		metrics:     m,
		tracer:      otel.Tracer("receipt"),
		now:         time.Now,
	}
}

// Scan ingests an uploaded receipt document and returns a draft expense.
// Extraction failure aborts the scan; parsing and categorization cannot
// fail.
func (s *Service) Scan(ctx context.Context, userID uuid.UUID, filename, contentType string, r io.Reader) (*ScanResult, error) {
	ctx, span := s.tracer.Start(ctx, "receipt.scan",
		trace.WithAttributes(attribute.String("receipt.content_type", contentType)))
	defer span.End()

	data, err := io.ReadAll(io.LimitReader(r, maxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	if len(data) > maxUploadBytes {
		return nil, fmt.Errorf("upload exceeds %d byte limit", maxUploadBytes)
	}

	fileID := uuid.New()
	filePath, err := s.files.Save(ctx, userID, fileID, filename, bytes.NewReader(data))
	if err != nil {
		s.countScan("store_failed")
		return nil, fmt.Errorf("storing upload: %w", err)
	}

	rawText, err := s.extractText(ctx, data, contentType)
	if err != nil {
		s.countScan("extraction_failed")
		span.RecordError(err)
		s.removeFile(ctx, userID, filePath)
		return nil, err
	}

	parsed := s.parseText(ctx, rawText)

	suggestion := s.categorizer.Categorize(ctx, userID,
		parsed.Merchant, parsed.Amount.InexactFloat64(), "")

	rec := &Receipt{
		UserID:      userID,
		FilePath:    filePath,
		ContentType: contentType,
		RawText:     rawText,
		Merchant:    parsed.Merchant,
		Amount:      money.NewFromDecimal(parsed.Amount, money.USD),
	}
	if !parsed.Date.IsZero() {
		d := parsed.Date
		rec.ReceiptDate = &d
	}

	if err := s.store.Create(ctx, rec); err != nil {
		s.countScan("store_failed")
		s.removeFile(ctx, userID, filePath)
		return nil, err
	}

	s.countScan("ok")
	s.logger.Info("receipt scanned",
		slog.String("receipt_id", rec.ID.String()),
		slog.String("merchant", parsed.Merchant),
		slog.String("category", string(suggestion.Category)))

	return &ScanResult{Receipt: rec, Parsed: parsed, Suggestion: suggestion}, nil
}

func (s *Service) extractText(ctx context.Context, data []byte, contentType string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, extractTimeout)
	defer cancel()

	ctx, span := s.tracer.Start(ctx, "receipt.extract")
	defer span.End()

	return s.extractor.Extract(ctx, data, contentType)
}

func (s *Service) parseText(ctx context.Context, rawText string) ParsedReceipt {
	_, span := s.tracer.Start(ctx, "receipt.parse")
	defer span.End()

	parsed := s.parser.Parse(rawText, s.now())
	span.SetAttributes(
		attribute.String("receipt.merchant", parsed.Merchant),
		attribute.Int("receipt.items", len(parsed.Items)),
	)
	return parsed
}

// Get returns a stored receipt.
func (s *Service) Get(ctx context.Context, userID, receiptID uuid.UUID) (*Receipt, error) {
	return s.store.GetByID(ctx, userID, receiptID)
}

// List returns the user's most recent receipts.
func (s *Service) List(ctx context.Context, userID uuid.UUID, limit int) ([]*Receipt, error) {
	return s.store.ListByUser(ctx, userID, limit)
}

// Delete removes a receipt row and its stored file. A missing file is
// logged, not surfaced: the row is the source of truth.
func (s *Service) Delete(ctx context.Context, userID, receiptID uuid.UUID) error {
	rec, err := s.store.GetByID(ctx, userID, receiptID)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, userID, receiptID); err != nil {
		return err
	}
	if err := s.files.Delete(ctx, userID, rec.FilePath); err != nil {
		s.logger.Warn("deleting receipt file failed",
			slog.String("path", rec.FilePath),
			slog.Any("error", err))
	}
	return nil
}

// removeFile drops a stored upload whose scan did not produce a receipt
// row. Without this a failed scan leaves an orphaned file on disk.
func (s *Service) removeFile(ctx context.Context, userID uuid.UUID, path string) {
	if err := s.files.Delete(ctx, userID, path); err != nil {
		s.logger.Warn("removing orphaned upload failed",
			slog.String("path", path),
			slog.Any("error", err))
	}
}

func (s *Service) countScan(outcome string) {
	if s.metrics != nil {
		s.metrics.ReceiptScansTotal.WithLabelValues(outcome).Inc()
	}
}
