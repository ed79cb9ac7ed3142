package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"StudyPlanner/internal/classify"
	"StudyPlanner/internal/config"
	"StudyPlanner/internal/infrastructure/ics"
	"StudyPlanner/internal/infrastructure/oracle"
	"StudyPlanner/internal/infrastructure/scheduler"
	"StudyPlanner/internal/infrastructure/storage"
	"StudyPlanner/internal/infrastructure/telegram"
	"StudyPlanner/internal/logging"
	"StudyPlanner/internal/ports"
	"StudyPlanner/internal/priority"
	"StudyPlanner/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	pipeline *usecase.Pipeline
	db       *sql.DB
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	feeds := make([]ics.Feed, 0, len(cfg.Feeds))
	for _, f := range cfg.Feeds {
		feeds = append(feeds, ics.Feed{ID: f.ID, URL: f.URL})
	}

	source := ics.NewSource(ics.NewFetcher(nil), ics.SourceConfig{
		Feeds:       feeds,
		Horizon:     cfg.Planner.Horizon(),
		DefaultZone: cfg.Planner.DefaultZone(),
	}, baseLogger.With("component", "normalizer"))

	oracleClient := oracle.NewClient(cfg.Oracle.Endpoint, cfg.Oracle.Model, nil)
	enricher, err := usecase.NewEffortEnricher(oracleClient, usecase.EffortConfig{
		CallTimeout: time.Duration(cfg.Oracle.TimeoutSeconds) * time.Second,
		RunDeadline: time.Duration(cfg.Oracle.RunDeadlineSeconds) * time.Second,
		Workers:     cfg.Oracle.Concurrency,
		CacheSize:   cfg.Oracle.CacheSize,
	}, baseLogger.With("component", "effort"))
	if err != nil {
		return nil, fmt.Errorf("build enricher: %w", err)
	}

	var db *sql.DB
	var repository ports.SnapshotRepository
	if cfg.Database.DSN != "" {
		db, err = sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		pg := storage.NewPostgresRepository(db)
		if err := pg.EnsureSchema(context.Background()); err != nil {
			return nil, err
		}
		repository = pg
	} else {
		repository = storage.NewMemoryRepository()
	}

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.BotToken != "" {
		notifier = telegram.NewNotifier(
			cfg.Notifications.Telegram.BotToken,
			cfg.Notifications.Telegram.ChatID,
		)
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:     source,
		Classifier: classify.NewClassifier(nil),
		Enricher:   enricher,
		Repository: repository,
		Notifier:   notifier,
		Priority: priority.Config{
			DeadlineWindow:          cfg.Planner.DeadlineWindow(),
			EffortNormalizerMinutes: cfg.Planner.EffortNormalizerMinutes,
			UrgencyWeight:           cfg.Planner.UrgencyWeight,
			EffortWeight:            cfg.Planner.EffortWeight,
		},
		Logger: baseLogger.With("component", "pipeline"),
	})

	return &Application{cfg: cfg, logger: baseLogger, pipeline: pipeline, db: db}, nil
}

// Run executes a single pipeline run, or keeps running on the configured cron
// schedule until the context is cancelled.
func (a *Application) Run(ctx context.Context) error {
	defer a.close()

	if a.cfg.Scheduler.CronExpression == "" {
		_, err := a.pipeline.Run(ctx, time.Now())
		return err
	}

	driver := scheduler.NewCronScheduler(a.cfg.Scheduler.CronExpression, a.cfg.Scheduler.Location())
	runner := usecase.NewScheduler(driver, a.pipeline, a.logger.With("component", "scheduler"))
	if err := runner.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return runner.Stop(stopCtx)
}

func (a *Application) close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("cannot close database", "error", err)
		}
	}
}
