package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"K10PlusExport/internal/config"
	"K10PlusExport/internal/domain"
	"K10PlusExport/internal/infrastructure/archive"
	"K10PlusExport/internal/infrastructure/scheduler"
	"K10PlusExport/internal/infrastructure/storage"
	"K10PlusExport/internal/infrastructure/telegram"
	"K10PlusExport/internal/infrastructure/transport"
	"K10PlusExport/internal/logging"
	"K10PlusExport/internal/ports"
	"K10PlusExport/internal/status"
	"K10PlusExport/internal/transform"
	"K10PlusExport/internal/usecase"
)

// ErrNoDatabase is returned by New when no DSN is configured.
var ErrNoDatabase = errors.New("database dsn not configured")

// Repository is the storage surface the application needs.
type Repository interface {
	ports.ArticleRepository
	ports.SettingsStore
	ports.StatusRepository
}

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	pool      *pgxpool.Pool
	repo      Repository
	pipeline  *usecase.Pipeline
	scheduler *usecase.Scheduler
}

// New builds the application on the configured Postgres database.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if cfg.Database.DSN == "" {
		return nil, ErrNoDatabase
	}
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	pool, err := pgxpool.New(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	a, err := assemble(cfg, baseLogger, storage.NewPostgresRepository(pool, cfg.Database.QueryTimeout))
	if err != nil {
		pool.Close()
		return nil, err
	}
	a.pool = pool
	return a, nil
}

func assemble(cfg config.Config, baseLogger *slog.Logger, repo Repository) (*Application, error) {
	a := &Application{cfg: cfg, logger: baseLogger, repo: repo}

	transporter, err := transport.NewSFTPTransporter(transport.Options{
		InsecureIgnoreHostKey: cfg.Deposit.IgnoreHostKey(),
		KnownHostsFile:        cfg.Deposit.KnownHostsFile,
		Timeout:               cfg.Deposit.Timeout,
	}, baseLogger.With("component", "transport.sftp"))
	if err != nil {
		return nil, fmt.Errorf("configure transport: %w", err)
	}

	var packager interface {
		ports.Packager
		ports.ArchiveCapability
	}
	switch cfg.Export.Packager {
	case "", "native":
		packager = archive.NewNative()
	case "tar":
		packager = archive.NewCommand("")
	default:
		return nil, fmt.Errorf("unknown packager %q", cfg.Export.Packager)
	}

	var notifier ports.Notifier
	if tg := cfg.Notifications.Telegram; tg.BotToken != "" && tg.ChatID != "" {
		notifier = telegram.NewNotifier(tg.BotToken, tg.ChatID)
	}

	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Articles: a.repo,
		Settings: a.repo,
		Status:   status.NewStore(a.repo, baseLogger.With("component", "status")),
		Transformer: transform.NewTransformer(transform.Options{
			Institution: cfg.Export.Institution,
			Location:    cfg.Export.Location(),
		}),
		Packager:    packager,
		Archive:     packager,
		Transporter: transporter,
		Notifier:    notifier,
		Logger:      baseLogger.With("component", "pipeline"),
		WorkDir:     cfg.Export.WorkDir,
		Workers:     cfg.Deposit.Workers,
		Location:    cfg.Export.Location(),
	})

	cron := scheduler.NewCronScheduler(
		cfg.Scheduler.CronExpression,
		cfg.Scheduler.Location(),
		baseLogger.With("component", "scheduler.cron"),
	)
	a.scheduler = usecase.NewScheduler(cron, a.pipeline, baseLogger.With("component", "scheduler"))

	return a, nil
}

// Pipeline exposes the batch use cases to the CLI.
func (a *Application) Pipeline() *usecase.Pipeline {
	return a.pipeline
}

// Journal resolves a journal by its URL path.
func (a *Application) Journal(ctx context.Context, path string) (domain.Journal, error) {
	journals, err := a.repo.Journals(ctx)
	if err != nil {
		return domain.Journal{}, fmt.Errorf("list journals: %w", err)
	}
	for _, journal := range journals {
		if journal.Path == path {
			return journal, nil
		}
	}
	return domain.Journal{}, fmt.Errorf("journal %q: %w", path, storage.ErrNotFound)
}

// RunOnce performs one scheduled registration run.
func (a *Application) RunOnce(ctx context.Context) {
	a.scheduler.RunOnce(ctx, time.Now().In(a.cfg.Scheduler.Location()))
}

// Serve runs the cron scheduler until ctx is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := a.scheduler.Stop(stopCtx); err != nil {
		return fmt.Errorf("stop scheduler: %w", err)
	}
	return nil
}

// Migrate runs a goose command against the configured database.
func (a *Application) Migrate(ctx context.Context, command string) error {
	if a.pool == nil {
		return ErrNoDatabase
	}
	return storage.Migrate(ctx, a.pool, command)
}

// Close releases the database pool.
func (a *Application) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}
