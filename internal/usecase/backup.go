package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock"

	"github.com/semmidev/omran/internal/domain"
)

type CreateRequest struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Options     domain.BackupOptions `json:"options"`
	Automatic   bool                 `json:"-"`
}

// Backup implements the create path: collect, size-check, checksum, store,
// then mirror to the configured export channels.
type Backup struct {
	collector      *Collector
	repo           BackupRepository
	publisher      Publisher
	clock          clock.Clock
	logger         Logger
	metrics        Metrics
	maxSize        int64
	mirror         Mirror
	mirrorChannels []string
}

func NewBackup(
	collector *Collector,
	repo BackupRepository,
	publisher Publisher,
	clk clock.Clock,
	logger Logger,
	metrics Metrics,
	maxSize int64,
) *Backup {
	if maxSize <= 0 {
		maxSize = domain.MaxBackupSize
	}
	return &Backup{
		collector: collector,
		repo:      repo,
		publisher: publisher,
		clock:     clk,
		logger:    logger,
		metrics:   metrics,
		maxSize:   maxSize,
	}
}

// SetMirror enables copying every new backup to channels.
func (uc *Backup) SetMirror(mirror Mirror, channels []string) {
	uc.mirror = mirror
	uc.mirrorChannels = channels
}

func (uc *Backup) Create(ctx context.Context, req CreateRequest) (*domain.BackupMetadata, error) {
	record, err := uc.create(ctx, req)
	if err != nil {
		uc.metrics.OperationFailed("create")
		uc.logger.Errorf("Backup %q failed: %v", req.Name, err)
		return nil, err
	}
	return &record.Metadata, nil
}

func (uc *Backup) create(ctx context.Context, req CreateRequest) (*domain.BackupRecord, error) {
	start := uc.clock.Now()

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.NewValidationError("backup name is required", nil)
	}
	if err := req.Options.SealOptions.Validate(); err != nil {
		return nil, err
	}

	uc.logger.Infof("[%s] Collecting data...", name)
	snap, err := uc.collector.Collect(ctx, req.Options)
	if err != nil {
		return nil, err
	}
	if len(snap.DataTypes) == 0 {
		return nil, domain.NewValidationError("select at least one data type to back up", nil)
	}

	size, err := payloadSize(snap.Data, snap.Settings)
	if err != nil {
		return nil, domain.NewValidationError("backup data cannot be serialized", err)
	}
	if size > uc.maxSize {
		return nil, domain.NewValidationError(
			fmt.Sprintf("backup size %s exceeds the %s limit", formatSize(size), formatSize(uc.maxSize)), nil)
	}

	checksum, err := Digest(snap.Data)
	if err != nil {
		return nil, domain.NewValidationError("backup data cannot be serialized", err)
	}

	record := &domain.BackupRecord{
		Metadata: domain.BackupMetadata{
			ID:          uuid.NewString(),
			Name:        name,
			Description: strings.TrimSpace(req.Description),
			CreatedAt:   uc.clock.Now().UTC(),
			Size:        size,
			Version:     domain.SchemaVersion,
			DataTypes:   snap.DataTypes,
			IsAutomatic: req.Automatic,
			Checksum:    checksum,
		},
		Data:     snap.Data,
		Settings: snap.Settings,
	}

	if err := uc.repo.Save(ctx, record); err != nil {
		return nil, err
	}

	uc.metrics.BackupCreated(req.Automatic, size)
	uc.publisher.Publish(domain.TopicBackupCreated)
	uc.logger.Infof("[%s] Backup %s created in %s, size: %s, contents: %s",
		name, record.Metadata.ID, uc.clock.Now().Sub(start).Round(time.Millisecond),
		formatSize(size), strings.Join(snap.DataTypes, ", "))

	if uc.mirror != nil && len(uc.mirrorChannels) > 0 {
		uc.mirrorToChannels(ctx, record, req.Options.SealOptions)
	}

	return record, nil
}

func (uc *Backup) mirrorToChannels(ctx context.Context, record *domain.BackupRecord, seal domain.SealOptions) {
	var wg sync.WaitGroup
	name := record.Metadata.Name

	for _, channel := range uc.mirrorChannels {
		wg.Add(1)
		go func(ch string) {
			defer wg.Done()

			uc.logger.Infof("[%s] Mirroring to %s...", name, ch)
			if err := uc.mirror.Mirror(ctx, record, ch, seal); err != nil {
				uc.metrics.OperationFailed("mirror")
				uc.logger.Errorf("[%s] Failed to mirror to %s: %v", name, ch, err)
			} else {
				uc.logger.Infof("[%s] Successfully mirrored to %s", name, ch)
			}
		}(channel)
	}

	wg.Wait()
}

func (uc *Backup) List(ctx context.Context) ([]domain.BackupMetadata, error) {
	return uc.repo.List(ctx)
}

func (uc *Backup) Get(ctx context.Context, id string) (*domain.BackupRecord, error) {
	return uc.repo.Load(ctx, id)
}

// Delete removes a backup; unknown ids succeed.
func (uc *Backup) Delete(ctx context.Context, id string) error {
	if err := uc.repo.Delete(ctx, id); err != nil {
		uc.metrics.OperationFailed("delete")
		return err
	}
	uc.publisher.Publish(domain.TopicBackupDeleted)
	uc.logger.Infof("Backup %s deleted", id)
	return nil
}
