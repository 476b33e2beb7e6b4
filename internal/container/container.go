// Package container provides dependency injection for the tracker. It
// centralizes the creation and wiring of all application dependencies,
// making them explicit and testable.
package container

import (
	"context"
	"fmt"
	"time"

	"github.com/Shafi-prog/money-tracker-sub001/internal/accounts"
	"github.com/Shafi-prog/money-tracker-sub001/internal/ai"
	"github.com/Shafi-prog/money-tracker-sub001/internal/classifier"
	"github.com/Shafi-prog/money-tracker-sub001/internal/config"
	"github.com/Shafi-prog/money-tracker-sub001/internal/dedup"
	"github.com/Shafi-prog/money-tracker-sub001/internal/ledger"
	"github.com/Shafi-prog/money-tracker-sub001/internal/lock"
	"github.com/Shafi-prog/money-tracker-sub001/internal/logging"
	"github.com/Shafi-prog/money-tracker-sub001/internal/pipeline"
	"github.com/Shafi-prog/money-tracker-sub001/internal/report"
	"github.com/Shafi-prog/money-tracker-sub001/internal/server"
	"github.com/Shafi-prog/money-tracker-sub001/internal/storage"
	"github.com/Shafi-prog/money-tracker-sub001/internal/templates"
	"github.com/Shafi-prog/money-tracker-sub001/internal/worker"
)

// Container holds all application dependencies. It is immutable after
// creation; components are reached through getters only.
type Container struct {
	logger   logging.Logger
	config   *config.Config
	store    *storage.Store
	pipeline *pipeline.Pipeline
	worker   *worker.Worker
	server   *server.Server
	updater  *ledger.Updater
	notifier report.Notifier
}

// NewContainer creates and wires all application dependencies.
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}

	// Logger first; everything else reports through it.
	logger := config.ConfigureLogging(cfg)

	store, err := storage.Open(ctx, cfg.Database.Path, logger)
	if err != nil {
		return nil, err
	}

	ruleTTL := time.Duration(cfg.Rules.CacheTTLSeconds) * time.Second
	templateStore := templates.NewStore(cfg.Rules.TemplatesFile, ruleTTL, logger)
	ruleStore := classifier.NewYAMLRuleStore(cfg.Rules.ClassifierFile, ruleTTL, logger)

	// Cross-process locks live beside the database file so `serve` and a
	// cron-driven `batch` exclude each other. A dedup scan holds its lock
	// briefly; a batch can run for minutes when providers are slow.
	dedupLock := lock.NewFileLock(cfg.Database.Path+".dedup.lock", time.Minute)
	batchLock := lock.NewFileLock(cfg.Database.Path+".batch.lock", 10*time.Minute)

	gate := dedup.NewGate(store.DedupLog(), dedupLock, dedup.Options{
		CacheTTL:       time.Duration(cfg.Dedup.CacheTTLMinutes) * time.Minute,
		LookbackWindow: cfg.Dedup.LookbackWindow,
		RecordTTL:      time.Duration(cfg.Dedup.RecordTTLHours) * time.Hour,
		LockWait:       time.Duration(cfg.Dedup.LockWaitSeconds) * time.Second,
		PruneChance:    cfg.Dedup.PruneProbability,
	}, logger)

	cls := classifier.New(ruleStore, store.MerchantMemory(), logger)
	resolver := accounts.NewResolver(store.Accounts(), store.Accounts(), logger)
	updater := ledger.NewUpdater(store.Balances(), store.Budgets(), store.Debts(), cfg.Budget.SalaryDay, logger)

	var enricher pipeline.Enricher
	if providers := buildProviders(cfg, logger); len(providers) > 0 {
		enricher = ai.NewAdapter(providers, logger)
	}

	var notifier report.Notifier
	if cfg.Report.Telegram.Enabled {
		notifier = report.NewTelegramNotifier(cfg.Report.Telegram.BotToken, cfg.Report.Telegram.ChatID, logger)
	} else {
		notifier = report.NewLogNotifier(logger)
	}

	pipe := pipeline.New(gate, templateStore, enricher, cls, resolver, updater,
		store.Processed(), notifier, pipeline.Options{AutoLearn: cfg.AI.AutoLearn}, logger)

	w := worker.New(store.Queue(), pipe, batchLock, worker.Options{
		BatchSize: cfg.Worker.BatchSize,
		LockWait:  time.Duration(cfg.Worker.LockWaitSeconds) * time.Second,
		Interval:  time.Duration(cfg.Worker.IntervalSeconds) * time.Second,
	}, logger)

	srv := server.New(store.Queue(), logger)

	return &Container{
		logger:   logger,
		config:   cfg,
		store:    store,
		pipeline: pipe,
		worker:   w,
		server:   srv,
		updater:  updater,
		notifier: notifier,
	}, nil
}

// buildProviders assembles the enabled AI providers in fallback order.
func buildProviders(cfg *config.Config, logger logging.Logger) []ai.Provider {
	if !cfg.AI.Enabled {
		return nil
	}
	timeout := time.Duration(cfg.AI.TimeoutSeconds) * time.Second

	var providers []ai.Provider
	if cfg.AI.Gemini.Enabled && cfg.AI.Gemini.APIKey != "" {
		providers = append(providers,
			ai.NewGeminiProvider(cfg.AI.Gemini.APIKey, cfg.AI.Gemini.Model, timeout, logger))
	}
	if cfg.AI.OpenAI.Enabled && cfg.AI.OpenAI.APIKey != "" {
		providers = append(providers,
			ai.NewHTTPProvider("openai", cfg.AI.OpenAI.BaseURL, cfg.AI.OpenAI.APIKey, cfg.AI.OpenAI.Model, timeout, logger))
	}
	return providers
}

// Close releases held resources.
func (c *Container) Close() error {
	return c.store.Close()
}

// GetLogger returns the application logger.
func (c *Container) GetLogger() logging.Logger { return c.logger }

// GetConfig returns the loaded configuration.
func (c *Container) GetConfig() *config.Config { return c.config }

// GetStore returns the storage layer.
func (c *Container) GetStore() *storage.Store { return c.store }

// GetPipeline returns the message pipeline.
func (c *Container) GetPipeline() *pipeline.Pipeline { return c.pipeline }

// GetWorker returns the batch worker.
func (c *Container) GetWorker() *worker.Worker { return c.worker }

// GetServer returns the ingestion HTTP server.
func (c *Container) GetServer() *server.Server { return c.server }

// GetUpdater returns the ledger updater.
func (c *Container) GetUpdater() *ledger.Updater { return c.updater }
