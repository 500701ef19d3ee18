package app

import (
	"context"
	"fmt"
	"time"

	"github.com/juju/clock"
	"golang.org/x/oauth2"

	"github.com/semmidev/omran/internal/adapter/database"
	"github.com/semmidev/omran/internal/adapter/repository"
	"github.com/semmidev/omran/internal/adapter/sealer"
	"github.com/semmidev/omran/internal/adapter/storage"
	"github.com/semmidev/omran/internal/config"
	"github.com/semmidev/omran/internal/domain"
	"github.com/semmidev/omran/internal/infrastructure/browser"
	"github.com/semmidev/omran/internal/infrastructure/logger"
	"github.com/semmidev/omran/internal/infrastructure/metrics"
	"github.com/semmidev/omran/internal/infrastructure/notifier"
	"github.com/semmidev/omran/internal/infrastructure/scheduler"
	"github.com/semmidev/omran/internal/usecase"
)

type App struct {
	config    *config.Config
	logger    *logger.Logger
	store     domain.Store
	hub       *notifier.Hub
	metrics   *metrics.Recorder
	scheduler *scheduler.Scheduler
	oauth     *GoogleOAuthService
	opener    *browser.Opener
	sinks     []domain.Sink

	backupUC   *usecase.Backup
	restoreUC  *usecase.Restore
	cleanupUC  *usecase.Cleanup
	scheduleUC *usecase.Schedule
	exportUC   *usecase.Export
	importUC   *usecase.Import
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	log, err := logger.New(cfg.App)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	log.Infof("Starting %s", cfg.App.Name)

	store, err := database.Open(ctx, &cfg.Store)
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Store.Driver, err)
	}
	log.Infof("✓ Connected to %s store", store.GetType())

	a, err := NewWithStore(ctx, cfg, store, clock.WallClock, log)
	if err != nil {
		store.Close()
		log.Close()
		return nil, err
	}
	return a, nil
}

// NewWithStore wires the service around an already opened store and clock.
func NewWithStore(ctx context.Context, cfg *config.Config, store domain.Store, clk clock.Clock, log *logger.Logger) (*App, error) {
	hub := notifier.New()
	rec := metrics.New()
	repo := repository.NewBackups(store)

	localStorage, err := storage.NewLocal(cfg.Backup.ExportDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize local storage: %w", err)
	}

	var oauth *GoogleOAuthService
	if cfg.GDriveOAuth.ClientSecretFile != "" {
		if oauth, err = NewGoogleOAuthService(log.Named("oauth"), cfg.GDriveOAuth.ClientSecretFile, store); err != nil {
			return nil, fmt.Errorf("failed to initialize Google OAuth: %w", err)
		}
	}

	sinks := initializeSinks(ctx, cfg, oauth, log)
	opener := browser.New(cfg.Backup.OpenBrowser, log.Named("browser"))
	seal := sealer.New()
	ucLog := log.Named("backup")

	backupUC := usecase.NewBackup(usecase.NewCollector(store), repo, hub, clk, ucLog, rec, cfg.Backup.MaxSizeBytes())
	exportUC := usecase.NewExport(repo, localStorage, sinks, seal, opener, clk, ucLog, rec)
	if len(cfg.Backup.MirrorChannels) > 0 {
		backupUC.SetMirror(exportUC, cfg.Backup.MirrorChannels)
		log.Infof("Mirroring new backups to: %v", cfg.Backup.MirrorChannels)
	}
	cleanupUC := usecase.NewCleanup(repo, store, hub, ucLog, rec)

	return &App{
		config:     cfg,
		logger:     log,
		store:      store,
		hub:        hub,
		metrics:    rec,
		scheduler:  scheduler.New(log.Named("maintenance")),
		oauth:      oauth,
		opener:     opener,
		sinks:      sinks,
		backupUC:   backupUC,
		restoreUC:  usecase.NewRestore(repo, store, backupUC, hub, ucLog, rec, cfg.Backup.StrictChecksum),
		cleanupUC:  cleanupUC,
		scheduleUC: usecase.NewSchedule(store, backupUC, cleanupUC, clk, log.Named("schedule"), cfg.Schedule.RunMissed),
		exportUC:   exportUC,
		importUC:   usecase.NewImport(repo, seal, hub, clk, ucLog, rec, cfg.Backup.MaxSizeBytes()),
	}, nil
}

func initializeSinks(ctx context.Context, cfg *config.Config, oauth *GoogleOAuthService, log *logger.Logger) []domain.Sink {
	var sinks []domain.Sink

	for _, ch := range cfg.GetEnabledChannels() {
		var (
			sink domain.Sink
			err  error
		)

		switch ch.Type {
		case "gdrive":
			var ts oauth2.TokenSource
			if oauth != nil && ch.CredentialsFile == "" {
				if ts, err = oauth.TokenSource(ctx); err != nil {
					log.Errorf("Failed to initialize Google Drive: %v", err)
					continue
				}
			}
			sink, err = storage.NewGDrive(ctx, &ch, ts)
			if err != nil {
				log.Errorf("Failed to initialize Google Drive: %v", err)
				continue
			}
			log.Infof("✓ Google Drive sharing enabled")

		case "s3":
			sink, err = storage.NewS3(ctx, &ch)
			if err != nil {
				log.Errorf("Failed to initialize S3: %v", err)
				continue
			}
			log.Infof("✓ AWS S3 upload enabled (bucket: %s)", ch.Bucket)

		case "gcs":
			sink, err = storage.NewGCS(ctx, &ch)
			if err != nil {
				log.Errorf("Failed to initialize Google Cloud Storage: %v", err)
				continue
			}
			log.Infof("✓ Google Cloud Storage upload enabled (bucket: %s)", ch.Bucket)

		case "azure":
			sink, err = storage.NewAzure(&ch)
			if err != nil {
				log.Errorf("Failed to initialize Azure Blob Storage: %v", err)
				continue
			}
			log.Infof("✓ Azure Blob Storage upload enabled (container: %s)", ch.Container)

		case "telegram":
			sink, err = storage.NewTelegram(&ch)
			if err != nil {
				log.Errorf("Failed to initialize Telegram: %v", err)
				continue
			}
			log.Infof("✓ Telegram sharing enabled")

		case "file":
			// The export directory is always available
			continue

		default:
			log.Warnf("Unknown channel type: %s", ch.Type)
			continue
		}

		sinks = append(sinks, storage.WithBreaker(sink, ch.Breaker, log.Named(ch.Type)))
	}

	return sinks
}

// Run starts the automatic backup timer and the retention cron, then blocks
// until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if err := a.scheduleUC.Start(ctx); err != nil {
		a.logger.Errorf("Automatic backups not started: %v", err)
	}

	spec := a.config.Schedule.MaintenanceCron
	a.logger.Infof("Scheduling retention: %s", spec)
	if err := a.scheduler.AddJob("retention", spec, a.cleanupUC.Execute); err != nil {
		return fmt.Errorf("failed to schedule retention: %w", err)
	}

	a.scheduler.Start()
	a.logger.Infof("Backup service started, export channels: file + %d remote", len(a.sinks))

	<-ctx.Done()
	return nil
}

func (a *App) Shutdown() {
	a.logger.Infof("Shutting down application...")
	a.scheduleUC.Stop()
	a.scheduler.Stop()
	if a.oauth != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.oauth.Shutdown(ctx)
	}
	if err := a.store.Close(); err != nil {
		a.logger.Errorf("Failed to close store: %v", err)
	}
	a.logger.Close()
}

func (a *App) Logger() *logger.Logger {
	return a.logger
}

func (a *App) Metrics() *metrics.Recorder {
	return a.metrics
}

func (a *App) Config() *config.Config {
	return a.config
}

// Subscribe registers fn for a notification topic such as
// domain.TopicDataRestored and returns the unsubscribe function.
func (a *App) Subscribe(topic string, fn func(topic string)) func() {
	return a.hub.Subscribe(topic, fn)
}

func (a *App) Ping(ctx context.Context) error {
	return a.store.Ping(ctx)
}
