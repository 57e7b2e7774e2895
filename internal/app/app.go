package app

import (
	"context"
	"fmt"

	"github.com/semmidev/dbackup/internal/adapter/compressor"
	"github.com/semmidev/dbackup/internal/adapter/database"
	"github.com/semmidev/dbackup/internal/adapter/filesystem"
	"github.com/semmidev/dbackup/internal/adapter/notifier"
	"github.com/semmidev/dbackup/internal/adapter/storage"
	"github.com/semmidev/dbackup/internal/config"
	"github.com/semmidev/dbackup/internal/domain"
	"github.com/semmidev/dbackup/internal/infrastructure/logger"
	"github.com/semmidev/dbackup/internal/infrastructure/scheduler"
	"github.com/semmidev/dbackup/internal/usecase"
)

type App struct {
	config    *config.Config
	logger    *logger.Logger
	backupUC  *usecase.Backup
	cleanupUC *usecase.Cleanup
	notifier  domain.Notifier
}

func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	log.Infof("Starting %s", cfg.App.Name)
	log.Infof("Found %d project(s) configured", len(cfg.Projects()))

	comp, err := compressor.NewGzipLevel(cfg.Backup.CompressionLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize compressor: %w", err)
	}

	stor, err := storage.New(ctx, &cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s storage: %w", cfg.Storage.Type, err)
	}
	log.Infof("✓ %s storage enabled", cfg.Storage.Type)

	var notify domain.Notifier
	if cfg.TelegramEnabled() {
		tg, err := notifier.NewTelegram(&cfg.Notify.Telegram)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize telegram: %w", err)
		}
		notify = tg
		log.Infof("✓ Telegram notifications enabled")
	}

	backupUC := usecase.NewBackup(
		database.NewDefaultRouter(comp, log),
		stor,
		filesystem.NewRemover(),
		log,
		usecase.WithConcurrency(cfg.Backup.Concurrency),
		usecase.WithTempDir(cfg.Backup.TempDir),
	)

	return &App{
		config:    cfg,
		logger:    log,
		backupUC:  backupUC,
		cleanupUC: usecase.NewCleanup(stor, log, cfg.Backup.RetentionDays),
		notifier:  notify,
	}, nil
}

// Run performs a single backup when no schedule is configured and returns
// its error. Otherwise it backs up on the schedule until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a.config.Backup.Schedule == "" {
		return a.runOnce(ctx)
	}

	sched := scheduler.New(ctx, a.logger)
	if err := sched.AddJob("backup", a.config.Backup.Schedule, a.runOnce); err != nil {
		return fmt.Errorf("failed to schedule backup: %w", err)
	}

	if a.config.Backup.RunOnStartup {
		if err := a.runOnce(ctx); err != nil {
			a.logger.Errorf("Startup backup failed: %v", err)
		}
	}

	sched.Start()
	a.logger.Infof("Scheduler started: %s", a.config.Backup.Schedule)

	<-ctx.Done()
	a.logger.Infof("Stopping scheduler, waiting for running backups...")
	sched.Stop()
	return nil
}

func (a *App) runOnce(ctx context.Context) error {
	result, err := a.backupUC.Run(ctx, a.config.Projects(), a.config.DatabaseURLs())

	if a.notifier != nil {
		if nerr := a.notifier.Notify(ctx, result); nerr != nil {
			a.logger.Warnf("Failed to send notification: %v", nerr)
		}
	}

	if _, cerr := a.cleanupUC.Execute(ctx); cerr != nil {
		a.logger.Errorf("Cleanup failed: %v", cerr)
	}

	if err != nil {
		return fmt.Errorf("backup run %s failed: %w", result.Timestamp, err)
	}
	return nil
}

func (a *App) Shutdown() {
	a.logger.Infof("Shutting down application...")
	a.logger.Close()
}
