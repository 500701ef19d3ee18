package usecase

import (
	"context"

	"github.com/semmidev/omran/internal/domain"
)

type Logger interface {
	Infof(template string, args ...interface{})
	Errorf(template string, args ...interface{})
	Warnf(template string, args ...interface{})
}

type BackupRepository interface {
	Save(ctx context.Context, record *domain.BackupRecord) error
	List(ctx context.Context) ([]domain.BackupMetadata, error)
	Load(ctx context.Context, id string) (*domain.BackupRecord, error)
	Delete(ctx context.Context, id string) error
	DeleteMany(ctx context.Context, ids []string) (int, error)
}

type Publisher interface {
	Publish(topic string)
}

type Metrics interface {
	BackupCreated(automatic bool, size int64)
	OperationFailed(operation string)
	Restored(keys int)
	ChecksumMismatch()
	RetentionDeleted(n int)
	Exported(channel string, fallback bool)
	Imported(adapter string)
}

type Sealer interface {
	Seal(payload []byte, opts domain.SealOptions) ([]byte, error)
	Open(data []byte, key string) ([]byte, error)
	IsSealed(data []byte) bool
}

// URLOpener shows an external page to the user, typically in a browser.
type URLOpener interface {
	Open(rawURL string) error
}

// Creator runs the create path. Restore and the schedule depend on it for
// safety snapshots and automatic backups.
type Creator interface {
	Create(ctx context.Context, req CreateRequest) (*domain.BackupMetadata, error)
}

// Mirror copies a freshly created backup to an export channel.
type Mirror interface {
	Mirror(ctx context.Context, record *domain.BackupRecord, channel string, seal domain.SealOptions) error
}
