package database

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"

	. "github.com/smartystreets/goconvey/convey"
)

func TestMySQLStore(t *testing.T) {
	Convey("Given a MySQL store over a mocked connection", t, func() {
		db, mock, err := sqlmock.New()
		So(err, ShouldBeNil)
		defer db.Close()

		store, err := NewMySQLFromDB(db, "omran_store")
		So(err, ShouldBeNil)
		ctx := context.Background()

		Convey("Get on a missing key reports absence", func() {
			mock.ExpectQuery(regexp.QuoteMeta("SELECT v FROM omran_store WHERE k = ?")).
				WithArgs("customers").
				WillReturnRows(sqlmock.NewRows([]string{"v"}))

			_, ok, err := store.Get(ctx, "customers")
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
			So(mock.ExpectationsWereMet(), ShouldBeNil)
		})

		Convey("SetMany runs inside one transaction", func() {
			mock.ExpectBegin()
			mock.ExpectExec(regexp.QuoteMeta("INSERT INTO omran_store")).
				WithArgs("a", []byte("1")).
				WillReturnResult(sqlmock.NewResult(1, 1))
			mock.ExpectExec(regexp.QuoteMeta("INSERT INTO omran_store")).
				WithArgs("b", []byte("2")).
				WillReturnResult(sqlmock.NewResult(1, 1))
			mock.ExpectCommit()

			err := store.SetMany(ctx, map[string][]byte{"b": []byte("2"), "a": []byte("1")})
			So(err, ShouldBeNil)
			So(mock.ExpectationsWereMet(), ShouldBeNil)
		})

		Convey("SetMany rolls back when a write fails", func() {
			mock.ExpectBegin()
			mock.ExpectExec(regexp.QuoteMeta("INSERT INTO omran_store")).
				WithArgs("a", []byte("1")).
				WillReturnError(&mysql.MySQLError{Number: 1205, Message: "lock wait timeout"})
			mock.ExpectRollback()

			err := store.SetMany(ctx, map[string][]byte{"a": []byte("1")})
			So(err, ShouldNotBeNil)
			So(mock.ExpectationsWereMet(), ShouldBeNil)
		})

		Convey("Update retries after losing the version race", func() {
			selectQuery := regexp.QuoteMeta("SELECT v, version FROM omran_store WHERE k = ?")
			updateQuery := regexp.QuoteMeta("UPDATE omran_store SET v = ?, version = version + 1 WHERE k = ? AND version = ?")

			mock.ExpectQuery(selectQuery).WithArgs("backups").
				WillReturnRows(sqlmock.NewRows([]string{"v", "version"}).AddRow([]byte("[]"), 3))
			mock.ExpectExec(updateQuery).WithArgs([]byte("[1]"), "backups", 3).
				WillReturnResult(sqlmock.NewResult(0, 0))
			mock.ExpectQuery(selectQuery).WithArgs("backups").
				WillReturnRows(sqlmock.NewRows([]string{"v", "version"}).AddRow([]byte("[0]"), 4))
			mock.ExpectExec(updateQuery).WithArgs([]byte("[0,1]"), "backups", 4).
				WillReturnResult(sqlmock.NewResult(0, 1))

			calls := 0
			err := store.Update(ctx, "backups", func(cur []byte, exists bool) ([]byte, error) {
				calls++
				if string(cur) == "[]" {
					return []byte("[1]"), nil
				}
				return []byte("[0,1]"), nil
			})
			So(err, ShouldBeNil)
			So(calls, ShouldEqual, 2)
			So(mock.ExpectationsWereMet(), ShouldBeNil)
		})

		Convey("Update inserts a missing key and retries on a duplicate", func() {
			selectQuery := regexp.QuoteMeta("SELECT v, version FROM omran_store WHERE k = ?")

			mock.ExpectQuery(selectQuery).WithArgs("backups").
				WillReturnRows(sqlmock.NewRows([]string{"v", "version"}))
			mock.ExpectExec(regexp.QuoteMeta("INSERT INTO omran_store (k, v, version) VALUES (?, ?, 1)")).
				WithArgs("backups", []byte("[1]")).
				WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
			mock.ExpectQuery(selectQuery).WithArgs("backups").
				WillReturnRows(sqlmock.NewRows([]string{"v", "version"}).AddRow([]byte("[0]"), 1))
			mock.ExpectExec(regexp.QuoteMeta("UPDATE omran_store")).
				WithArgs([]byte("[0,1]"), "backups", 1).
				WillReturnResult(sqlmock.NewResult(0, 1))

			err := store.Update(ctx, "backups", func(cur []byte, exists bool) ([]byte, error) {
				if !exists {
					return []byte("[1]"), nil
				}
				return []byte("[0,1]"), nil
			})
			So(err, ShouldBeNil)
			So(mock.ExpectationsWereMet(), ShouldBeNil)
		})

		Convey("An unsafe table name is rejected", func() {
			_, err := NewMySQLFromDB(db, "store; DROP TABLE x")
			So(err, ShouldNotBeNil)
		})
	})
}
