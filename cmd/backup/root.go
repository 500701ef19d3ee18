package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/semmidev/omran/internal/app"
	"github.com/semmidev/omran/internal/config"
)

type options struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "backup",
		Short: "Back up, restore and share omran business data",
		Long: `Create, list, restore and share backups of the omran data store.

Backups are snapshots of the selected collections and settings. They can be
exported as .omran files, shared to a configured channel and imported back.

Examples:
  # Back up everything
  backup create "Before year-end close"

  # Restore without touching existing records
  backup restore <backup-id> --merge

  # Run the automatic schedule and the HTTP API
  backup serve --api`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "configs/config.yaml", "path to config file")

	root.AddCommand(
		newCreateCmd(opts),
		newListCmd(opts),
		newDeleteCmd(opts),
		newRestoreCmd(opts),
		newExportCmd(opts),
		newImportCmd(opts),
		newCleanupCmd(opts),
		newScheduleCmd(opts),
		newServeCmd(opts),
		newAuthCmd(opts),
	)

	return root
}

// loadConfig reads the config file. A missing default file falls back to
// the built-in defaults; an explicitly given one must exist.
func loadConfig(cmd *cobra.Command, path string) (*config.Config, error) {
	explicit := cmd.Flag("config") != nil && cmd.Flag("config").Changed
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) && !explicit {
		return config.Default(), nil
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// withApp builds the application for one command and shuts it down after.
func withApp(cmd *cobra.Command, opts *options, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := loadConfig(cmd, opts.configPath)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	application, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize app: %w", err)
	}
	defer application.Shutdown()

	return fn(ctx, application)
}

func check[T any](res app.Result[T]) (T, error) {
	if !res.Success {
		var zero T
		return zero, fmt.Errorf("%s: %s", res.Kind, res.Error)
	}
	return res.Data, nil
}
