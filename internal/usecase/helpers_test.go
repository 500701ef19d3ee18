package usecase

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestBackupFilename(t *testing.T) {
	at := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)

	Convey("Backup file names", t, func() {
		Convey("keep latin names and drop punctuation", func() {
			So(BackupFilename("Year-end: 2025!", at), ShouldEqual, "Yearend 2025_2026-01-05.omran")
		})

		Convey("keep Arabic letters", func() {
			So(BackupFilename("نسخة احتياطية", at), ShouldEqual, "نسخة احتياطية_2026-01-05.omran")
		})

		Convey("keep combining marks", func() {
			So(BackupFilename("हिन्दी", at), ShouldEqual, "हिन्दी_2026-01-05.omran")
		})

		Convey("are NFC-normalized", func() {
			So(BackupFilename("Cafe\u0301", at), ShouldEqual, "Caf\u00e9_2026-01-05.omran")
		})

		Convey("fall back when nothing survives", func() {
			So(BackupFilename("?!/", at), ShouldEqual, "backup_2026-01-05.omran")
		})
	})
}

func TestDigest(t *testing.T) {
	Convey("Digest is independent of key insertion order", t, func() {
		a := map[string]any{}
		a["customers"] = []any{map[string]any{"id": "c1", "name": "Acme"}}
		a["products"] = map[string]any{"b": 2.0, "a": 1.0}

		b := map[string]any{}
		b["products"] = map[string]any{"a": 1.0, "b": 2.0}
		b["customers"] = []any{map[string]any{"name": "Acme", "id": "c1"}}

		da, err := Digest(a)
		So(err, ShouldBeNil)
		db, err := Digest(b)
		So(err, ShouldBeNil)
		So(da, ShouldEqual, db)
		So(da, ShouldHaveLength, 64)

		Convey("and changes with the data", func() {
			b["customers"] = []any{map[string]any{"name": "Acme", "id": "c2"}}
			dc, _ := Digest(b)
			So(dc, ShouldNotEqual, da)
		})
	})
}
