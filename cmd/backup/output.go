package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/goccy/go-json"

	"github.com/semmidev/omran/internal/app"
	"github.com/semmidev/omran/internal/domain"
	"github.com/semmidev/omran/internal/usecase"
)

var (
	faint = color.New(color.Faint).SprintFunc()
	auto  = color.New(color.FgMagenta).SprintFunc()
)

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatSize(n int64) string {
	return fmt.Sprintf("%.2f MB", float64(n)/(1024*1024))
}

func printBackupTable(list []domain.BackupMetadata) {
	if len(list) == 0 {
		fmt.Println(faint("No backups yet"))
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCREATED\tSIZE\tCONTENTS\tTRIGGER")
	for _, m := range list {
		trigger := "manual"
		if m.IsAutomatic {
			trigger = auto("automatic")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			m.ID, m.Name, m.CreatedAt.Local().Format("2006-01-02 15:04"),
			formatSize(m.Size), strings.Join(m.DataTypes, ", "), trigger)
	}
	w.Flush()
}

func printMetadata(m *domain.BackupMetadata) {
	color.Green("✓ Backup created")
	fmt.Printf("  ID:       %s\n", m.ID)
	fmt.Printf("  Name:     %s\n", m.Name)
	fmt.Printf("  Size:     %s\n", formatSize(m.Size))
	fmt.Printf("  Contents: %s\n", strings.Join(m.DataTypes, ", "))
	fmt.Printf("  Checksum: %s\n", faint(m.Checksum))
}

func printRestoreResult(r *domain.RestoreResult) {
	color.Green("✓ Restored backup %s", r.BackupID)
	if r.SafetyBackupID != "" {
		fmt.Printf("  Safety backup: %s\n", r.SafetyBackupID)
	}
	fmt.Printf("  Restored: %s\n", strings.Join(r.RestoredKeys, ", "))
	if len(r.SkippedKeys) > 0 {
		fmt.Printf("  Skipped:  %s\n", faint(strings.Join(r.SkippedKeys, ", ")))
	}
	if r.SettingsRestored {
		fmt.Println("  Settings restored")
	}
	for _, w := range r.Warnings {
		color.Yellow("⚠ %s", w)
	}
}

func printExportResult(r *usecase.ExportResult) {
	if r.FallbackUsed {
		color.Yellow("⚠ %s", r.Warning)
		fmt.Printf("  Saved to %s\n", r.Location)
		if r.OpenURL != "" {
			fmt.Printf("  Attach it manually at %s\n", r.OpenURL)
		}
		return
	}
	color.Green("✓ Exported via %s", r.Channel)
	fmt.Printf("  %s (%s)\n", r.Location, formatSize(int64(r.Size)))
}

func printSchedule(v *app.ScheduleView) {
	status := color.RedString("disabled")
	if v.Config.Enabled {
		status = color.GreenString("enabled")
	}
	fmt.Printf("Automatic backups: %s\n", status)
	fmt.Printf("  Frequency:    %s at %s\n", v.Config.Frequency, v.Config.Time)
	fmt.Printf("  Keep:         %d (auto cleanup: %t)\n", v.Config.MaxBackups, v.Config.AutoCleanup)
	if v.NextRunAt != nil {
		fmt.Printf("  Next run:     %s\n", v.NextRunAt.Local().Format(time.RFC1123))
	}
	if v.LastRunAt != nil {
		fmt.Printf("  Last run:     %s\n", v.LastRunAt.Local().Format(time.RFC1123))
	}
	if v.LastError != "" {
		color.Red("  Last error:   %s", v.LastError)
	}
}
