package main

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/semmidev/omran/internal/domain"
)

func TestLoadConfig(t *testing.T) {
	Convey("Given the root command", t, func() {
		cmd := newRootCmd()

		Convey("A missing default config falls back to the defaults", func() {
			cfg, err := loadConfig(cmd, filepath.Join(t.TempDir(), "config.yaml"))
			So(err, ShouldBeNil)
			So(cfg.Backup.MaxSizeMB, ShouldEqual, 50)
			So(cfg.Store.Driver, ShouldEqual, "badger")
		})

		Convey("A missing config given explicitly is an error", func() {
			path := filepath.Join(t.TempDir(), "missing.yaml")
			So(cmd.PersistentFlags().Set("config", path), ShouldBeNil)

			_, err := loadConfig(cmd, path)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "load config")
		})

		Convey("An existing file is read", func() {
			path := filepath.Join(t.TempDir(), "config.yaml")
			yaml := "store:\n  driver: memory\nbackup:\n  max_size_mb: 10\n  export_dir: ./out\n"
			So(os.WriteFile(path, []byte(yaml), 0o644), ShouldBeNil)
			So(cmd.PersistentFlags().Set("config", path), ShouldBeNil)

			cfg, err := loadConfig(cmd, path)
			So(err, ShouldBeNil)
			So(cfg.Store.Driver, ShouldEqual, "memory")
			So(cfg.Backup.MaxSizeMB, ShouldEqual, 10)
		})

		Convey("It registers every subcommand", func() {
			names := map[string]bool{}
			for _, c := range cmd.Commands() {
				names[c.Name()] = true
			}
			for _, want := range []string{"create", "list", "delete", "restore", "export", "import", "cleanup", "schedule", "serve", "auth"} {
				So(names[want], ShouldBeTrue)
			}
		})
	})
}

func TestAnySelected(t *testing.T) {
	Convey("anySelected", t, func() {
		So(anySelected(domain.BackupOptions{}), ShouldBeFalse)
		So(anySelected(domain.BackupOptions{IncludeSettings: true}), ShouldBeTrue)
		So(anySelected(domain.AllData()), ShouldBeTrue)
	})
}
