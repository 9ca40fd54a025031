package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/spendwise/spendwise-api/internal/domain/assistant"
	"github.com/spendwise/spendwise-api/internal/domain/auth"
	"github.com/spendwise/spendwise-api/internal/domain/categorization"
	"github.com/spendwise/spendwise-api/internal/domain/expense"
	"github.com/spendwise/spendwise-api/internal/domain/insights"
	"github.com/spendwise/spendwise-api/internal/domain/receipt"
	"github.com/spendwise/spendwise-api/pkg/config"
	"github.com/spendwise/spendwise-api/pkg/cron"
	"github.com/spendwise/spendwise-api/pkg/db"
	"github.com/spendwise/spendwise-api/pkg/metrics"
	"github.com/spendwise/spendwise-api/pkg/storage"
)

const (
	accessTokenTTL  = 1 * time.Hour
	refreshTokenTTL = 30 * 24 * time.Hour
)

// Dependencies holds all application dependencies.
type Dependencies struct {
	Config   *config.Config
	DB       *db.DB
	Logger   *slog.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	// Repositories
	AuthRepo           *auth.Repository
	CategorizationRepo *categorization.Repository
	ReceiptRepo        *receipt.Repository
	ExpenseRepo        *expense.Repository
	InsightsRepo       *insights.Repository
	AssistantRepo      *assistant.Repository

	// Services
	TokenManager          *auth.TokenManager
	AuthService           *auth.Service
	CategorizationService *categorization.Service
	ReceiptService        *receipt.Service
	ExpenseService        *expense.Service
	InsightsService       *insights.Service
	AssistantService      *assistant.Service
	FileStorage           storage.Storage
	SearchIndex           *expense.SearchIndex
	Scheduler             *cron.Scheduler

	// Handlers
	AuthHandler           *auth.Handler
	CategorizationHandler *categorization.Handler
	ReceiptHandler        *receipt.Handler
	ExpenseHandler        *expense.Handler
	InsightsHandler       *insights.Handler
	AssistantHandler      *assistant.Handler

	ocrExtractor *receipt.GeminiExtractor
	llmGenerator *assistant.GeminiGenerator
}

// InitDependencies wires the full application graph.
func InitDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:   cfg,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
	}
	deps.Metrics = metrics.New(deps.Registry)

	if err := deps.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	deps.initRepositories()

	if err := deps.initServices(ctx); err != nil {
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	deps.initHandlers()

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase opens the pool and runs migrations.
func (d *Dependencies) initDatabase() error {
	database, err := db.New(db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}
	d.DB = database

	if err := d.DB.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

func (d *Dependencies) initRepositories() {
	d.AuthRepo = auth.NewRepository(d.DB.Pool)
	d.CategorizationRepo = categorization.NewRepository(d.DB.Pool)
	d.ReceiptRepo = receipt.NewRepository(d.DB.Pool)
	d.ExpenseRepo = expense.NewRepository(d.DB.Pool)
	d.InsightsRepo = insights.NewRepository(d.DB.Pool)
	d.AssistantRepo = assistant.NewRepository(d.DB.Pool)

	d.Logger.Info("repositories initialized")
}

func (d *Dependencies) initServices(ctx context.Context) error {
	tm, err := auth.NewTokenManager(d.Config.Auth.JWTSecret, accessTokenTTL, refreshTokenTTL)
	if err != nil {
		return err
	}
	d.TokenManager = tm
	d.AuthService = auth.NewService(d.AuthRepo, d.TokenManager, d.Logger, refreshTokenTTL)

	d.CategorizationService = categorization.NewService(
		d.CategorizationRepo,
		categorization.NewClassifier(categorization.DefaultKeywords()),
		d.Logger,
		d.Metrics,
	)

	fileStorage, err := storage.NewLocalStorage(d.Config.Uploads.LocalPath)
	if err != nil {
		return fmt.Errorf("failed to init file storage: %w", err)
	}
	d.FileStorage = fileStorage

	// PDFs with an embedded text layer skip OCR entirely.
	ocr, err := receipt.NewGeminiExtractor(ctx, d.Config.Gemini.APIKey, d.Config.Gemini.OCRModel)
	if err != nil {
		return fmt.Errorf("failed to init ocr extractor: %w", err)
	}
	d.ocrExtractor = ocr
	extractor := receipt.NewCompositeExtractor(receipt.NewPDFTextExtractor(), ocr)

	d.ReceiptService = receipt.NewService(
		d.ReceiptRepo,
		d.FileStorage,
		extractor,
		d.CategorizationService,
		d.Logger,
		d.Metrics,
	)

	d.InsightsService = insights.NewService(d.InsightsRepo, d.Logger, d.Metrics)

	searchIndex, err := expense.NewSearchIndex()
	if err != nil {
		return fmt.Errorf("failed to init search index: %w", err)
	}
	d.SearchIndex = searchIndex

	d.ExpenseService = expense.NewService(
		d.ExpenseRepo,
		d.CategorizationService,
		d.InsightsService,
		d.SearchIndex,
		d.Logger,
	)

	llm, err := assistant.NewGeminiGenerator(ctx, d.Config.Gemini.APIKey, d.Config.Gemini.AssistantModel)
	if err != nil {
		return fmt.Errorf("failed to init assistant model: %w", err)
	}
	d.llmGenerator = llm
	d.AssistantService = assistant.NewService(
		d.AssistantRepo,
		llm,
		d.Logger,
		d.Metrics,
		d.Config.Gemini.RequestsPerMinute,
	)

	d.Scheduler = cron.NewScheduler(d.ExpenseRepo, d.InsightsService, d.Logger)

	d.Logger.Info("services initialized")
	return nil
}

func (d *Dependencies) initHandlers() {
	d.AuthHandler = auth.NewHandler(d.AuthService, d.Logger)
	d.CategorizationHandler = categorization.NewHandler(d.CategorizationService, d.Logger)
	d.ReceiptHandler = receipt.NewHandler(d.ReceiptService, d.Logger)
	d.ExpenseHandler = expense.NewHandler(d.ExpenseService, d.Logger)
	d.InsightsHandler = insights.NewHandler(d.InsightsService, d.Logger)
	d.AssistantHandler = assistant.NewHandler(d.AssistantService, d.Logger)

	d.Logger.Info("handlers initialized")
}

// Cleanup closes all resources.
func (d *Dependencies) Cleanup() {
	if d.Scheduler != nil {
		<-d.Scheduler.Stop().Done()
	}
	if d.SearchIndex != nil {
		if err := d.SearchIndex.Close(); err != nil {
			d.Logger.Warn("closing search index failed", slog.Any("error", err))
		}
	}
	if d.ocrExtractor != nil {
		if err := d.ocrExtractor.Close(); err != nil {
			d.Logger.Warn("closing ocr client failed", slog.Any("error", err))
		}
	}
	if d.llmGenerator != nil {
		if err := d.llmGenerator.Close(); err != nil {
			d.Logger.Warn("closing assistant client failed", slog.Any("error", err))
		}
	}
	if d.DB != nil {
		d.DB.Close()
	}
	d.Logger.Info("cleanup completed")
}
