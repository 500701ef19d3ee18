package usecase

import (
	"context"
	"sort"

	"github.com/semmidev/omran/internal/domain"
)

// Cleanup enforces count-based retention over the Backup Store.
type Cleanup struct {
	repo      BackupRepository
	store     domain.Store
	publisher Publisher
	logger    Logger
	metrics   Metrics
}

func NewCleanup(
	repo BackupRepository,
	store domain.Store,
	publisher Publisher,
	logger Logger,
	metrics Metrics,
) *Cleanup {
	return &Cleanup{
		repo:      repo,
		store:     store,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
	}
}

// Execute applies retention using the persisted schedule configuration.
func (uc *Cleanup) Execute(ctx context.Context) error {
	cfg, err := domain.GetValue(ctx, uc.store, domain.ScheduleKey, domain.DefaultSchedule())
	if err != nil {
		return domain.NewStorageError("failed to read schedule configuration", err)
	}
	_, err = uc.Apply(ctx, cfg)
	return err
}

// Apply keeps the newest cfg.MaxBackups backups and deletes the rest when
// auto cleanup is enabled. It returns the number of deleted backups.
func (uc *Cleanup) Apply(ctx context.Context, cfg domain.ScheduleConfig) (int, error) {
	if !cfg.AutoCleanup {
		return 0, nil
	}
	if cfg.MaxBackups <= 0 {
		uc.logger.Warnf("Skipping cleanup, max backups is %d", cfg.MaxBackups)
		return 0, nil
	}

	list, err := uc.repo.List(ctx)
	if err != nil {
		uc.metrics.OperationFailed("cleanup")
		return 0, err
	}
	if len(list) <= cfg.MaxBackups {
		return 0, nil
	}

	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})

	stale := list[cfg.MaxBackups:]
	ids := make([]string, 0, len(stale))
	for _, m := range stale {
		uc.logger.Infof("Deleting old backup %s (%s, created %s)", m.ID, m.Name, m.CreatedAt.Format("2006-01-02 15:04"))
		ids = append(ids, m.ID)
	}

	deleted, err := uc.repo.DeleteMany(ctx, ids)
	if err != nil {
		uc.metrics.OperationFailed("cleanup")
		return 0, err
	}

	uc.metrics.RetentionDeleted(deleted)
	if deleted > 0 {
		uc.publisher.Publish(domain.TopicBackupDeleted)
	}
	uc.logger.Infof("Cleanup completed, deleted %d old backup(s), keeping %d", deleted, cfg.MaxBackups)
	return deleted, nil
}
