package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/semmidev/omran/internal/domain"
)

const safetyBackupName = "Pre-restore safety backup"

// Restore writes a stored backup back into the Store Client. Every write is
// staged first and committed with a single SetMany, so a failure while
// reading or merging leaves the store untouched.
type Restore struct {
	repo      BackupRepository
	store     domain.Store
	creator   Creator
	publisher Publisher
	logger    Logger
	metrics   Metrics
	strict    bool
}

func NewRestore(
	repo BackupRepository,
	store domain.Store,
	creator Creator,
	publisher Publisher,
	logger Logger,
	metrics Metrics,
	strictChecksum bool,
) *Restore {
	return &Restore{
		repo:      repo,
		store:     store,
		creator:   creator,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
		strict:    strictChecksum,
	}
}

type stagedWrite struct {
	key   string
	value []byte
	label string
}

func (uc *Restore) Execute(ctx context.Context, id string, opts domain.RestoreOptions) (*domain.RestoreResult, error) {
	result, err := uc.execute(ctx, id, opts)
	if err != nil {
		uc.metrics.OperationFailed("restore")
		uc.logger.Errorf("Restore of %s failed: %v", id, err)
		return nil, err
	}
	return result, nil
}

func (uc *Restore) execute(ctx context.Context, id string, opts domain.RestoreOptions) (*domain.RestoreResult, error) {
	record, err := uc.repo.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}

	result := &domain.RestoreResult{
		BackupID:     id,
		RestoredKeys: []string{},
	}

	if opts.CreateBackupBeforeRestore {
		uc.logger.Infof("Creating safety backup before restoring %s", id)
		safety, err := uc.creator.Create(ctx, CreateRequest{
			Name:        safetyBackupName,
			Description: fmt.Sprintf("Automatic snapshot taken before restoring %q", record.Metadata.Name),
			Options:     domain.AllData(),
			Automatic:   true,
		})
		if err != nil {
			return nil, fmt.Errorf("safety backup failed, restore aborted: %w", err)
		}
		result.SafetyBackupID = safety.ID
	}

	valid, actual, err := VerifyChecksum(record)
	if err != nil {
		return nil, domain.NewValidationError("backup data cannot be canonicalized", err)
	}
	result.ChecksumValid = valid
	if !valid {
		uc.metrics.ChecksumMismatch()
		msg := fmt.Sprintf("checksum mismatch: recorded %s, computed %s", record.Metadata.Checksum, actual)
		if uc.strict {
			return nil, domain.NewChecksumMismatchError(msg)
		}
		uc.logger.Warnf("Restoring %s despite %s", id, msg)
		result.Warnings = append(result.Warnings, msg)
	}

	writes, skipped, warnings, err := uc.stage(ctx, record, opts)
	if err != nil {
		return nil, err
	}
	result.SkippedKeys = skipped
	for _, w := range warnings {
		uc.logger.Warnf("Restoring %s: %s", id, w)
	}
	result.Warnings = append(result.Warnings, warnings...)

	if len(writes) > 0 {
		batch := make(map[string][]byte, len(writes))
		for _, w := range writes {
			batch[w.key] = w.value
		}
		if err := uc.store.SetMany(ctx, batch); err != nil {
			if errors.Is(err, domain.ErrPartialWrite) {
				return nil, domain.NewPartialRestoreError(
					"restore was interrupted and some collections may have been changed", err)
			}
			return nil, domain.NewStorageError("restore failed, no changes were applied", err)
		}
	}

	for _, w := range writes {
		if w.label != "" {
			result.RestoredKeys = append(result.RestoredKeys, w.label)
		} else {
			result.SettingsRestored = true
		}
	}

	uc.metrics.Restored(len(writes))
	uc.publisher.Publish(domain.TopicDataRestored)
	uc.logger.Infof("Restored backup %s (%s): %d key(s) written, %d skipped",
		id, record.Metadata.Name, len(writes), len(skipped))

	return result, nil
}

// stage decides, per key, whether to overwrite, merge or skip, and encodes
// the values to write. Settings writes carry no label. Reserved keys are
// never written.
func (uc *Restore) stage(ctx context.Context, record *domain.BackupRecord, opts domain.RestoreOptions) ([]stagedWrite, []string, []string, error) {
	var (
		writes   []stagedWrite
		skipped  []string
		warnings []string
	)

	for _, key := range sortedKeys(record.Data) {
		value := record.Data[key]

		if domain.IsReservedKey(key) {
			skipped = append(skipped, key)
			warnings = append(warnings, fmt.Sprintf("%s is reserved for backup state and was not restored", key))
			continue
		}

		current, exists, err := uc.store.Get(ctx, key)
		if err != nil {
			return nil, nil, nil, domain.NewStorageError(fmt.Sprintf("failed to read %s", key), err)
		}
		exists = exists && !domain.IsNull(current)

		switch {
		case opts.OverwriteExisting || !exists:
			encoded, err := json.Marshal(value)
			if err != nil {
				return nil, nil, nil, domain.NewValidationError(fmt.Sprintf("backup value for %s cannot be encoded", key), err)
			}
			writes = append(writes, stagedWrite{key: key, value: encoded, label: key})

		case opts.MergeData:
			merged, ok, err := mergeSequences(current, value)
			if err != nil {
				return nil, nil, nil, domain.NewStorageError(fmt.Sprintf("failed to merge %s", key), err)
			}
			if !ok {
				skipped = append(skipped, key)
				continue
			}
			writes = append(writes, stagedWrite{key: key, value: merged, label: key + " (merged)"})

		default:
			skipped = append(skipped, key)
		}
	}

	if opts.RestoreSettings {
		for _, group := range sortedKeys(record.Settings) {
			key := domain.SettingsKey(group)
			if domain.IsReservedKey(key) {
				warnings = append(warnings, fmt.Sprintf("settings group %s maps to reserved key %s and was not restored", group, key))
				continue
			}
			encoded, err := json.Marshal(record.Settings[group])
			if err != nil {
				return nil, nil, nil, domain.NewValidationError(fmt.Sprintf("settings group %s cannot be encoded", group), err)
			}
			writes = append(writes, stagedWrite{key: key, value: encoded})
		}
	}

	return writes, skipped, warnings, nil
}

// mergeSequences concatenates existing ++ backup when both are JSON arrays.
// No de-duplication is performed.
func mergeSequences(current []byte, value any) ([]byte, bool, error) {
	backup, ok := value.([]any)
	if !ok {
		return nil, false, nil
	}

	var existing any
	if err := domain.DecodeJSON(current, &existing); err != nil {
		return nil, false, err
	}
	existingSeq, ok := existing.([]any)
	if !ok {
		return nil, false, nil
	}

	merged := make([]any, 0, len(existingSeq)+len(backup))
	merged = append(merged, existingSeq...)
	merged = append(merged, backup...)

	encoded, err := json.Marshal(merged)
	if err != nil {
		return nil, false, err
	}
	return encoded, true, nil
}
