package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/semmidev/omran/internal/domain"

	. "github.com/smartystreets/goconvey/convey"
)

func TestBackupCreate(t *testing.T) {
	Convey("Given a store with customers and company settings", t, func() {
		f := newFixture()
		f.put("customers", []any{map[string]any{"id": "c1", "name": "Acme"}})
		f.put("company_settings", map[string]any{"name": "Omran Trading"})

		Convey("Creating a sales and settings backup", func() {
			meta, err := f.backup.Create(f.ctx, CreateRequest{
				Name:    "  Monthly close ",
				Options: salesAndSettings(),
			})
			So(err, ShouldBeNil)

			Convey("It stamps the metadata", func() {
				So(meta.ID, ShouldNotBeEmpty)
				So(meta.Name, ShouldEqual, "Monthly close")
				So(meta.Version, ShouldEqual, domain.SchemaVersion)
				So(meta.DataTypes, ShouldResemble, []string{"Sales", "Settings"})
				So(meta.CreatedAt, ShouldEqual, epoch)
				So(meta.IsAutomatic, ShouldBeFalse)
				So(meta.Size, ShouldBeGreaterThan, 0)
			})

			Convey("It stores exactly the selected keys, defaulting missing ones", func() {
				rec, err := f.backup.Get(f.ctx, meta.ID)
				So(err, ShouldBeNil)
				So(sortedKeys(rec.Data), ShouldResemble, []string{"customers", "sales_invoices", "sales_returns"})
				So(rec.Data["sales_invoices"], ShouldResemble, []any{})
				So(rec.Settings["company"], ShouldResemble, map[string]any{"name": "Omran Trading"})
				So(rec.Settings["security"], ShouldResemble, map[string]any{})
			})

			Convey("Its checksum is the digest of the data", func() {
				rec, _ := f.backup.Get(f.ctx, meta.ID)
				sum, err := Digest(rec.Data)
				So(err, ShouldBeNil)
				So(meta.Checksum, ShouldEqual, sum)
			})

			Convey("Its size is the serialized payload length", func() {
				rec, _ := f.backup.Get(f.ctx, meta.ID)
				size, err := payloadSize(rec.Data, rec.Settings)
				So(err, ShouldBeNil)
				So(meta.Size, ShouldEqual, size)
			})

			Convey("It does not write to the collections", func() {
				So(f.value("sales_invoices"), ShouldBeNil)
			})

			Convey("It appears in the list", func() {
				list, err := f.backup.List(f.ctx)
				So(err, ShouldBeNil)
				So(list, ShouldHaveLength, 1)
				So(list[0].ID, ShouldEqual, meta.ID)
			})
		})

		Convey("A blank name is rejected", func() {
			_, err := f.backup.Create(f.ctx, CreateRequest{Name: "   ", Options: salesAndSettings()})
			So(domain.KindOf(err), ShouldEqual, domain.KindValidation)
			So(f.count(), ShouldEqual, 0)
		})

		Convey("A backup with no data types is rejected", func() {
			_, err := f.backup.Create(f.ctx, CreateRequest{Name: "empty"})
			So(domain.KindOf(err), ShouldEqual, domain.KindValidation)
			So(domain.Message(err), ShouldContainSubstring, "at least one data type")
			So(f.count(), ShouldEqual, 0)
		})

		Convey("Encryption without a key is rejected", func() {
			opts := salesAndSettings()
			opts.Encrypt = true
			_, err := f.backup.Create(f.ctx, CreateRequest{Name: "secret", Options: opts})
			So(domain.KindOf(err), ShouldEqual, domain.KindValidation)
		})

		Convey("Creation publishes backup-created", func() {
			got := make(chan string, 1)
			unsubscribe := f.hub.Subscribe(domain.TopicBackupCreated, func(topic string) { got <- topic })
			defer unsubscribe()

			_, err := f.backup.Create(f.ctx, CreateRequest{Name: "notify", Options: salesAndSettings()})
			So(err, ShouldBeNil)

			select {
			case topic := <-got:
				So(topic, ShouldEqual, domain.TopicBackupCreated)
			case <-time.After(time.Second):
				So("no notification", ShouldBeEmpty)
			}
		})
	})
}

func TestBackupSizeGuard(t *testing.T) {
	Convey("Given a backup use case with a 1 KiB cap", t, func() {
		f := newFixture()
		f.backup.maxSize = 1024
		f.put("customers", []any{strings.Repeat("x", 2048)})

		Convey("An oversized backup fails with VALIDATION_ERROR and nothing is stored", func() {
			_, err := f.backup.Create(f.ctx, CreateRequest{Name: "big", Options: salesAndSettings()})
			So(domain.KindOf(err), ShouldEqual, domain.KindValidation)
			So(domain.Message(err), ShouldContainSubstring, "exceeds")
			So(f.count(), ShouldEqual, 0)
		})

		Convey("A backup under the cap succeeds", func() {
			f.put("customers", []any{"small"})
			_, err := f.backup.Create(f.ctx, CreateRequest{Name: "small", Options: salesAndSettings()})
			So(err, ShouldBeNil)
			So(f.count(), ShouldEqual, 1)
		})
	})
}

func TestBackupConcurrentCreate(t *testing.T) {
	Convey("Concurrent creations are all kept", t, func() {
		f := newFixture()
		f.put("customers", []any{"c1"})

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				_, _ = f.backup.Create(context.Background(), CreateRequest{
					Name:    fmt.Sprintf("parallel %d", n),
					Options: salesAndSettings(),
				})
			}(i)
		}
		wg.Wait()

		So(f.count(), ShouldEqual, 10)
	})
}

func TestBackupMirror(t *testing.T) {
	Convey("Given mirroring to a working and a failing channel", t, func() {
		good := &fakeSink{name: "s3"}
		bad := &fakeSink{name: "gcs", err: errUnavailable}
		f := newFixture(good, bad)
		f.backup.SetMirror(f.export, []string{"s3", "gcs"})
		f.put("customers", []any{"c1"})

		Convey("Creation succeeds and the working channel receives the file", func() {
			meta, err := f.backup.Create(f.ctx, CreateRequest{Name: "mirrored", Options: salesAndSettings()})
			So(err, ShouldBeNil)
			So(meta, ShouldNotBeNil)

			got := good.deliveries()
			So(got, ShouldHaveLength, 1)
			So(got[0].Filename, ShouldEqual, "mirrored_2026-01-05.omran")
			So(got[0].ContentType, ShouldEqual, "application/json")
		})

		Convey("Compression flags seal the mirrored payload", func() {
			opts := salesAndSettings()
			opts.Compress = true
			opts.Algorithm = "zstd"
			_, err := f.backup.Create(f.ctx, CreateRequest{Name: "packed", Options: opts})
			So(err, ShouldBeNil)

			got := good.deliveries()
			So(got, ShouldHaveLength, 1)
			So(f.export.sealer.IsSealed(got[0].Payload), ShouldBeTrue)
		})
	})
}

func TestDeleteThenList(t *testing.T) {
	Convey("Given two stored backups", t, func() {
		f := newFixture()
		f.put("customers", []any{"c1"})

		first, err := f.backup.Create(f.ctx, CreateRequest{Name: "first", Options: salesAndSettings()})
		So(err, ShouldBeNil)
		f.clock.Advance(time.Minute)
		second, err := f.backup.Create(f.ctx, CreateRequest{Name: "second", Options: salesAndSettings()})
		So(err, ShouldBeNil)

		Convey("Deleting one leaves only the other", func() {
			So(f.backup.Delete(f.ctx, first.ID), ShouldBeNil)

			list, err := f.backup.List(f.ctx)
			So(err, ShouldBeNil)
			So(list, ShouldHaveLength, 1)
			So(list[0].ID, ShouldEqual, second.ID)

			_, err = f.backup.Get(f.ctx, first.ID)
			So(domain.KindOf(err), ShouldEqual, domain.KindNotFound)
		})

		Convey("Deleting an unknown id is not an error", func() {
			So(f.backup.Delete(f.ctx, "missing"), ShouldBeNil)
			So(f.count(), ShouldEqual, 2)
		})
	})
}
