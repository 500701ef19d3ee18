package usecase

import (
	"context"
	"fmt"

	"github.com/semmidev/omran/internal/domain"
)

type Snapshot struct {
	Data      map[string]any
	Settings  map[string]any
	DataTypes []string
}

// Collector reads the selected collections and settings groups from the
// Store Client. It never writes.
type Collector struct {
	store domain.Store
}

func NewCollector(store domain.Store) *Collector {
	return &Collector{store: store}
}

func (c *Collector) Collect(ctx context.Context, opts domain.BackupOptions) (*Snapshot, error) {
	snap := &Snapshot{
		Data:      make(map[string]any),
		Settings:  make(map[string]any),
		DataTypes: make([]string, 0, len(domain.DataGroups)+1),
	}

	for _, group := range domain.DataGroups {
		if !group.Selected(opts) {
			continue
		}
		for _, key := range group.Collections {
			v, err := domain.GetValue[any](ctx, c.store, key, []any{})
			if err != nil {
				return nil, domain.NewStorageError(fmt.Sprintf("failed to read %s", key), err)
			}
			snap.Data[key] = v
		}
		snap.DataTypes = append(snap.DataTypes, group.Label)
	}

	if opts.IncludeSettings {
		for _, group := range domain.SettingsGroups {
			v, err := domain.GetValue[any](ctx, c.store, group.Key, map[string]any{})
			if err != nil {
				return nil, domain.NewStorageError(fmt.Sprintf("failed to read %s", group.Key), err)
			}
			snap.Settings[group.Name] = v
		}
		snap.DataTypes = append(snap.DataTypes, domain.SettingsLabel)
	}

	return snap, nil
}
