package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/semmidev/omran/internal/api"
	"github.com/semmidev/omran/internal/app"
	"github.com/semmidev/omran/internal/domain"
	"github.com/semmidev/omran/internal/usecase"
)

func newCreateCmd(opts *options) *cobra.Command {
	var (
		description string
		backupOpts  domain.BackupOptions
		compress    string
		encryptKey  string
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a backup",
		Long: `Create a backup of the selected data types. Without any selection flag
every data type and the settings are included.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !anySelected(backupOpts) {
				backupOpts = domain.AllData()
			}
			if compress != "" {
				backupOpts.Compress = true
				backupOpts.Algorithm = compress
			}
			if encryptKey != "" {
				backupOpts.Encrypt = true
				backupOpts.EncryptionKey = encryptKey
			}

			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				meta, err := check(a.CreateBackup(ctx, usecase.CreateRequest{
					Name:        args[0],
					Description: description,
					Options:     backupOpts,
				}))
				if err != nil {
					return err
				}
				printMetadata(meta)
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&description, "description", "", "backup description")
	f.BoolVar(&backupOpts.IncludeSalesData, "sales", false, "include sales data")
	f.BoolVar(&backupOpts.IncludePurchaseData, "purchases", false, "include purchase data")
	f.BoolVar(&backupOpts.IncludeInventoryData, "inventory", false, "include inventory data")
	f.BoolVar(&backupOpts.IncludeEmployeeData, "employees", false, "include employee data")
	f.BoolVar(&backupOpts.IncludeFinancialData, "financial", false, "include financial data")
	f.BoolVar(&backupOpts.IncludeInvestorData, "investors", false, "include investor data")
	f.BoolVar(&backupOpts.IncludeSettings, "settings", false, "include settings")
	f.StringVar(&compress, "compress", "", "compress mirrored copies (gzip, zstd, lz4)")
	f.StringVar(&encryptKey, "encrypt-key", "", "encrypt mirrored copies with this passphrase")

	return cmd
}

func anySelected(o domain.BackupOptions) bool {
	return o.IncludeSalesData || o.IncludePurchaseData || o.IncludeInventoryData ||
		o.IncludeEmployeeData || o.IncludeFinancialData || o.IncludeInvestorData || o.IncludeSettings
}

func newListCmd(opts *options) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List backups, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				list, err := check(a.ListBackups(ctx))
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(list)
				}
				printBackupTable(list)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newDeleteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <backup-id>",
		Short: "Delete a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				if _, err := check(a.DeleteBackup(ctx, args[0])); err != nil {
					return err
				}
				color.Green("✓ Backup %s deleted", args[0])
				return nil
			})
		},
	}
}

func newRestoreCmd(opts *options) *cobra.Command {
	restoreOpts := domain.RestoreOptions{CreateBackupBeforeRestore: true}

	cmd := &cobra.Command{
		Use:   "restore <backup-id>",
		Short: "Restore a backup into the store",
		Long: `Restore a backup. Existing keys are kept unless --overwrite is given;
with --merge, sequences are appended to the existing ones.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				res, err := check(a.RestoreBackup(ctx, args[0], restoreOpts))
				if err != nil {
					return err
				}
				printRestoreResult(res)
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.BoolVar(&restoreOpts.OverwriteExisting, "overwrite", false, "replace existing collections")
	f.BoolVar(&restoreOpts.MergeData, "merge", false, "append to existing collections")
	f.BoolVar(&restoreOpts.RestoreSettings, "settings", false, "restore settings groups")
	f.BoolVar(&restoreOpts.CreateBackupBeforeRestore, "safety-backup", true, "back up the current data first")

	return cmd
}

func newExportCmd(opts *options) *cobra.Command {
	var (
		channel    string
		formatOpts usecase.FormatOptions
	)

	cmd := &cobra.Command{
		Use:   "export <backup-id>",
		Short: "Export a backup to a file or share channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatOpts.Compress = formatOpts.Algorithm != ""
			formatOpts.Encrypt = formatOpts.EncryptionKey != ""

			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				res, err := check(a.ExportBackup(ctx, args[0], channel, formatOpts))
				if err != nil {
					return err
				}
				printExportResult(res)
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&channel, "channel", usecase.ChannelFile, "file, telegram, whatsapp, gdrive, s3, gcs or azure")
	f.BoolVar(&formatOpts.Pretty, "pretty", false, "indent the JSON")
	f.StringVar(&formatOpts.Algorithm, "compress", "", "compress with gzip, zstd or lz4")
	f.IntVar(&formatOpts.CompressionLevel, "level", 0, "compression level 1-9 (0 = algorithm default)")
	f.StringVar(&formatOpts.EncryptionKey, "encrypt-key", "", "encrypt with this passphrase")

	return cmd
}

func newImportCmd(opts *options) *cobra.Command {
	var importOpts usecase.ImportOptions

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a backup file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				res, err := check(a.ImportBackup(ctx, filepath.Base(args[0]), content, importOpts))
				if err != nil {
					return err
				}
				color.Green("✓ Imported as %s (%s)", res.Name, res.BackupID)
				if res.Adapter == "raw" {
					color.Yellow("⚠ The file had no backup metadata; contents were imported on a best-effort basis")
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&importOpts.EncryptionKey, "key", "", "passphrase of an encrypted file")
	return cmd
}

func newCleanupCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Apply the retention policy now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				res, err := check(a.RunCleanup(ctx))
				if err != nil {
					return err
				}
				color.Green("✓ Deleted %d old backup(s)", res.Deleted)
				return nil
			})
		},
	}
}

func newScheduleCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Show or change the automatic backup schedule",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Show the schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				view, err := check(a.GetSchedule(ctx))
				if err != nil {
					return err
				}
				printSchedule(view)
				return nil
			})
		},
	})

	var cfg domain.ScheduleConfig
	set := &cobra.Command{
		Use:   "set",
		Short: "Change the schedule; unspecified fields keep their value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				current, err := check(a.GetSchedule(ctx))
				if err != nil {
					return err
				}

				next := current.Config
				f := cmd.Flags()
				if f.Changed("enabled") {
					next.Enabled = cfg.Enabled
				}
				if f.Changed("frequency") {
					next.Frequency = cfg.Frequency
				}
				if f.Changed("time") {
					next.Time = cfg.Time
				}
				if f.Changed("max-backups") {
					next.MaxBackups = cfg.MaxBackups
				}
				if f.Changed("auto-cleanup") {
					next.AutoCleanup = cfg.AutoCleanup
				}

				view, err := check(a.ApplySchedule(ctx, next))
				if err != nil {
					return err
				}
				printSchedule(view)
				return nil
			})
		},
	}
	f := set.Flags()
	f.BoolVar(&cfg.Enabled, "enabled", false, "enable automatic backups")
	f.StringVar(&cfg.Frequency, "frequency", "", "daily, weekly or monthly")
	f.StringVar(&cfg.Time, "time", "", "time of day, HH:MM")
	f.IntVar(&cfg.MaxBackups, "max-backups", 0, "backups kept by retention")
	f.BoolVar(&cfg.AutoCleanup, "auto-cleanup", false, "delete backups beyond max-backups")
	cmd.AddCommand(set)

	return cmd
}

func newServeCmd(opts *options) *cobra.Command {
	var withAPI bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the automatic schedule, retention and optionally the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				g, ctx := errgroup.WithContext(ctx)
				g.Go(func() error { return a.Run(ctx) })

				if withAPI || a.Config().API.Enabled {
					server := api.New(a, a.Config().API.Addr, a.Logger().Named("api"))
					g.Go(func() error { return server.Run(ctx) })
				}
				return g.Wait()
			})
		},
	}

	cmd.Flags().BoolVar(&withAPI, "api", false, "serve the HTTP API (overrides api.enabled)")
	return cmd
}

func newAuthCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize share channels",
	}

	var timeout time.Duration
	gdrive := &cobra.Command{
		Use:   "gdrive",
		Short: "Connect a Google Drive account for the gdrive channel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				ctx, cancel := context.WithTimeout(ctx, timeout)
				defer cancel()
				if err := a.AuthorizeGDrive(ctx); err != nil {
					return err
				}
				color.Green("✓ Google Drive connected")
				return nil
			})
		},
	}
	gdrive.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "how long to wait for the consent")
	cmd.AddCommand(gdrive)

	return cmd
}
