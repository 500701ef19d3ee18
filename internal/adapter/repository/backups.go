package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/goccy/go-json"

	"github.com/semmidev/omran/internal/domain"
)

// BackupsKey is the single store key holding every backup record.
const BackupsKey = domain.BackupsKey

// Backups persists whole backup records as one JSON array. Every mutation is
// an atomic read-modify-write of that array.
type Backups struct {
	store domain.Store
}

func NewBackups(store domain.Store) *Backups {
	return &Backups{store: store}
}

type recordHeader struct {
	Metadata domain.BackupMetadata `json:"metadata"`
}

func decodeRaw(raw []byte, exists bool) ([]json.RawMessage, error) {
	if !exists || domain.IsNull(raw) {
		return nil, nil
	}
	var records []json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode backups: %w", err)
	}
	return records, nil
}

func (r *Backups) Save(ctx context.Context, record *domain.BackupRecord) error {
	encoded, err := json.Marshal(record)
	if err != nil {
		return domain.NewStorageError("failed to encode backup", err)
	}

	err = r.store.Update(ctx, BackupsKey, func(cur []byte, exists bool) ([]byte, error) {
		records, err := decodeRaw(cur, exists)
		if err != nil {
			return nil, err
		}
		return json.Marshal(append(records, encoded))
	})
	if err != nil {
		return domain.NewStorageError("failed to save backup", err)
	}
	return nil
}

// List returns the metadata of every stored backup, newest first.
func (r *Backups) List(ctx context.Context) ([]domain.BackupMetadata, error) {
	raw, ok, err := r.store.Get(ctx, BackupsKey)
	if err != nil {
		return nil, domain.NewStorageError("failed to read backups", err)
	}

	var headers []recordHeader
	if ok && !domain.IsNull(raw) {
		if err := json.Unmarshal(raw, &headers); err != nil {
			return nil, domain.NewStorageError("failed to decode backups", err)
		}
	}

	list := make([]domain.BackupMetadata, 0, len(headers))
	for _, h := range headers {
		list = append(list, h.Metadata)
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}

func (r *Backups) Load(ctx context.Context, id string) (*domain.BackupRecord, error) {
	raw, ok, err := r.store.Get(ctx, BackupsKey)
	if err != nil {
		return nil, domain.NewStorageError("failed to read backups", err)
	}
	records, err := decodeRaw(raw, ok)
	if err != nil {
		return nil, domain.NewStorageError("failed to decode backups", err)
	}

	for _, rec := range records {
		var h recordHeader
		if err := json.Unmarshal(rec, &h); err != nil {
			continue
		}
		if h.Metadata.ID != id {
			continue
		}

		var record domain.BackupRecord
		if err := domain.DecodeJSON(rec, &record); err != nil {
			return nil, domain.NewStorageError(fmt.Sprintf("backup %s is corrupted", id), err)
		}
		return &record, nil
	}
	return nil, domain.NewNotFoundError(fmt.Sprintf("backup %s not found", id))
}

// Delete removes a backup. Deleting an unknown id succeeds.
func (r *Backups) Delete(ctx context.Context, id string) error {
	_, err := r.DeleteMany(ctx, []string{id})
	return err
}

func (r *Backups) DeleteMany(ctx context.Context, ids []string) (int, error) {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	removed := 0
	err := r.store.Update(ctx, BackupsKey, func(cur []byte, exists bool) ([]byte, error) {
		removed = 0
		records, err := decodeRaw(cur, exists)
		if err != nil {
			return nil, err
		}

		kept := make([]json.RawMessage, 0, len(records))
		for _, rec := range records {
			var h recordHeader
			if err := json.Unmarshal(rec, &h); err == nil && drop[h.Metadata.ID] {
				removed++
				continue
			}
			kept = append(kept, rec)
		}
		return json.Marshal(kept)
	})
	if err != nil {
		return 0, domain.NewStorageError("failed to delete backups", err)
	}
	return removed, nil
}
