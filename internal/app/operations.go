package app

import (
	"context"
	"time"

	"github.com/semmidev/omran/internal/domain"
	"github.com/semmidev/omran/internal/usecase"
)

type ScheduleView struct {
	Config    domain.ScheduleConfig `json:"config"`
	NextRunAt *time.Time            `json:"nextRunAt,omitempty"`
	LastRunAt *time.Time            `json:"lastRunAt,omitempty"`
	LastError string                `json:"lastError,omitempty"`
}

func (a *App) CreateBackup(ctx context.Context, req usecase.CreateRequest) Result[*domain.BackupMetadata] {
	return run(a, "create", func() (*domain.BackupMetadata, error) {
		return a.backupUC.Create(ctx, req)
	})
}

func (a *App) ListBackups(ctx context.Context) Result[[]domain.BackupMetadata] {
	return run(a, "list", func() ([]domain.BackupMetadata, error) {
		return a.backupUC.List(ctx)
	})
}

func (a *App) GetBackup(ctx context.Context, id string) Result[*domain.BackupRecord] {
	return run(a, "get", func() (*domain.BackupRecord, error) {
		return a.backupUC.Get(ctx, id)
	})
}

func (a *App) DeleteBackup(ctx context.Context, id string) Result[string] {
	return run(a, "delete", func() (string, error) {
		return id, a.backupUC.Delete(ctx, id)
	})
}

func (a *App) RestoreBackup(ctx context.Context, id string, opts domain.RestoreOptions) Result[*domain.RestoreResult] {
	return run(a, "restore", func() (*domain.RestoreResult, error) {
		return a.restoreUC.Execute(ctx, id, opts)
	})
}

func (a *App) ExportBackup(ctx context.Context, id, channel string, opts usecase.FormatOptions) Result[*usecase.ExportResult] {
	return run(a, "export", func() (*usecase.ExportResult, error) {
		return a.exportUC.Execute(ctx, id, channel, opts)
	})
}

// RenderBackup returns the export file without delivering it anywhere.
func (a *App) RenderBackup(ctx context.Context, id string, opts usecase.FormatOptions) Result[*usecase.Rendered] {
	return run(a, "render", func() (*usecase.Rendered, error) {
		return a.exportUC.Render(ctx, id, opts)
	})
}

func (a *App) ExportChannels() []string {
	return a.exportUC.Channels()
}

func (a *App) ImportBackup(ctx context.Context, filename string, content []byte, opts usecase.ImportOptions) Result[*usecase.ImportResult] {
	return run(a, "import", func() (*usecase.ImportResult, error) {
		return a.importUC.Execute(ctx, filename, content, opts)
	})
}

func (a *App) GetSchedule(ctx context.Context) Result[*ScheduleView] {
	return run(a, "schedule", func() (*ScheduleView, error) {
		return a.scheduleView(ctx)
	})
}

// ApplySchedule persists cfg and re-arms the automatic backup timer.
func (a *App) ApplySchedule(ctx context.Context, cfg domain.ScheduleConfig) Result[*ScheduleView] {
	return run(a, "schedule", func() (*ScheduleView, error) {
		if err := a.scheduleUC.Apply(ctx, cfg); err != nil {
			return nil, err
		}
		return a.scheduleView(ctx)
	})
}

type CleanupResult struct {
	Deleted int `json:"deleted"`
}

// RunCleanup applies retention now and reports how many backups went.
func (a *App) RunCleanup(ctx context.Context) Result[*CleanupResult] {
	return run(a, "cleanup", func() (*CleanupResult, error) {
		cfg, err := a.scheduleUC.Get(ctx)
		if err != nil {
			return nil, err
		}
		deleted, err := a.cleanupUC.Apply(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return &CleanupResult{Deleted: deleted}, nil
	})
}

func (a *App) scheduleView(ctx context.Context) (*ScheduleView, error) {
	cfg, err := a.scheduleUC.Get(ctx)
	if err != nil {
		return nil, err
	}
	state, err := a.scheduleUC.State(ctx)
	if err != nil {
		return nil, err
	}

	view := &ScheduleView{
		Config:    cfg,
		NextRunAt: state.NextRunAt,
		LastRunAt: state.LastRunAt,
		LastError: state.LastError,
	}
	if next, armed := a.scheduleUC.NextRun(); armed {
		view.NextRunAt = &next
	} else if !cfg.Enabled {
		view.NextRunAt = nil
	}
	return view, nil
}
