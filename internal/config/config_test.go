package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	Convey("Given a configuration file", t, func() {
		Convey("When only the store is configured", func() {
			path := writeConfig(t, `
store:
  driver: memory
`)
			cfg, err := Load(path)

			Convey("It should fill in the defaults", func() {
				So(err, ShouldBeNil)
				So(cfg.App.Name, ShouldEqual, "omran-backup")
				So(cfg.Backup.MaxSizeMB, ShouldEqual, 50)
				So(cfg.Backup.MaxSizeBytes(), ShouldEqual, int64(50*1024*1024))
				So(cfg.Backup.StrictChecksum, ShouldBeFalse)
				So(cfg.Schedule.MaintenanceCron, ShouldEqual, "0 0 3 * * *")
				So(cfg.Schedule.RunMissed, ShouldBeTrue)
			})
		})

		Convey("When channels and mirrors are configured", func() {
			path := writeConfig(t, `
store:
  driver: badger
  path: /tmp/omran
backup:
  mirror_channels: [s3]
channels:
  - type: s3
    enabled: true
    bucket: backups
    region: eu-west-1
    breaker:
      max_failures: 3
      open_timeout: 30s
  - type: telegram
    enabled: false
`)
			cfg, err := Load(path)

			Convey("It should decode every channel", func() {
				So(err, ShouldBeNil)
				So(cfg.Channels, ShouldHaveLength, 2)
				So(cfg.GetEnabledChannels(), ShouldHaveLength, 1)
				So(cfg.Channels[0].Breaker.MaxFailures, ShouldEqual, 3)
				So(cfg.Channels[0].Breaker.OpenTimeout, ShouldEqual, 30*time.Second)
			})
		})

		Convey("When a mirror channel is not enabled", func() {
			path := writeConfig(t, `
store:
  driver: memory
backup:
  mirror_channels: [gdrive]
`)
			_, err := Load(path)

			Convey("It should be rejected", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "mirror_channels")
			})
		})

		Convey("When the file does not exist", func() {
			_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))

			Convey("It should return an error", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "failed to read config")
			})
		})
	})
}

func TestValidate(t *testing.T) {
	Convey("Given the default configuration", t, func() {
		cfg := Default()

		Convey("It should be valid", func() {
			So(cfg.Validate(), ShouldBeNil)
		})

		Convey("An unknown store driver should be rejected", func() {
			cfg.Store.Driver = "redis"
			So(cfg.Validate(), ShouldNotBeNil)
		})

		Convey("A mysql store without a DSN should be rejected", func() {
			cfg.Store.Driver = "mysql"
			So(cfg.Validate().Error(), ShouldContainSubstring, "store.dsn")
		})

		Convey("A telegram channel without credentials should be rejected", func() {
			cfg.Channels = []Channel{{Type: "telegram", Enabled: true}}
			So(cfg.Validate().Error(), ShouldContainSubstring, "bot_token")
		})

		Convey("A non positive size cap should be rejected", func() {
			cfg.Backup.MaxSizeMB = 0
			So(cfg.Validate(), ShouldNotBeNil)
		})
	})
}
