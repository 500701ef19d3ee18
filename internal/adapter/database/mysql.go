package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"sort"

	"github.com/go-sql-driver/mysql"

	"github.com/semmidev/omran/internal/config"
	"github.com/semmidev/omran/internal/domain"
)

const mysqlDuplicateEntry = 1062

var tableNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// MySQLStore keeps every key as one row. The version column backs the
// compare-and-swap used by Update.
type MySQLStore struct {
	db    *sql.DB
	table string
}

func NewMySQL(ctx context.Context, cfg *config.StoreConfig) (*MySQLStore, error) {
	dsn, err := mysql.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	dsn.ParseTime = true

	db, err := sql.Open("mysql", dsn.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}

	store, err := NewMySQLFromDB(db, cfg.Table)
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func NewMySQLFromDB(db *sql.DB, table string) (*MySQLStore, error) {
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid mysql table name %q", table)
	}
	return &MySQLStore{db: db, table: table}, nil
}

func (m *MySQLStore) Migrate(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	k VARCHAR(191) NOT NULL PRIMARY KEY,
	v LONGBLOB NOT NULL,
	version BIGINT NOT NULL DEFAULT 1
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`, m.table)

	if _, err := m.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create table %s: %w", m.table, err)
	}
	return nil
}

func (m *MySQLStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := m.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT v FROM %s WHERE k = ?", m.table), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("mysql get %s: %w", key, err)
	}
	return value, true, nil
}

func (m *MySQLStore) upsertQuery() string {
	return fmt.Sprintf(
		"INSERT INTO %s (k, v, version) VALUES (?, ?, 1) ON DUPLICATE KEY UPDATE v = VALUES(v), version = version + 1",
		m.table)
}

func (m *MySQLStore) Set(ctx context.Context, key string, value []byte) error {
	if _, err := m.db.ExecContext(ctx, m.upsertQuery(), key, value); err != nil {
		return fmt.Errorf("mysql set %s: %w", key, err)
	}
	return nil
}

func (m *MySQLStore) SetMany(ctx context.Context, values map[string][]byte) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("mysql begin: %w", err)
	}

	query := m.upsertQuery()
	for _, k := range keys {
		if _, err := tx.ExecContext(ctx, query, k, values[k]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("mysql set %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("mysql commit: %w", err)
	}
	return nil
}

var errVersionConflict = errors.New("version conflict")

func (m *MySQLStore) Update(ctx context.Context, key string, fn domain.UpdateFunc) error {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err := m.tryUpdate(ctx, key, fn)
		if errors.Is(err, errVersionConflict) {
			continue
		}
		return err
	}
	return fmt.Errorf("mysql update %s: too many conflicting writers", key)
}

func (m *MySQLStore) tryUpdate(ctx context.Context, key string, fn domain.UpdateFunc) error {
	var (
		current []byte
		version int64
	)
	exists := true

	err := m.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT v, version FROM %s WHERE k = ?", m.table), key).Scan(&current, &version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		exists = false
	case err != nil:
		return fmt.Errorf("mysql get %s: %w", key, err)
	}

	next, err := fn(current, exists)
	if err != nil {
		return err
	}

	if !exists {
		_, err := m.db.ExecContext(ctx,
			fmt.Sprintf("INSERT INTO %s (k, v, version) VALUES (?, ?, 1)", m.table), key, next)
		var myErr *mysql.MySQLError
		if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
			return errVersionConflict
		}
		if err != nil {
			return fmt.Errorf("mysql insert %s: %w", key, err)
		}
		return nil
	}

	res, err := m.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET v = ?, version = version + 1 WHERE k = ? AND version = ?", m.table),
		next, key, version)
	if err != nil {
		return fmt.Errorf("mysql update %s: %w", key, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mysql update %s: %w", key, err)
	}
	if affected == 0 {
		return errVersionConflict
	}
	return nil
}

func (m *MySQLStore) Ping(ctx context.Context) error {
	if err := m.db.PingContext(ctx); err != nil {
		return fmt.Errorf("mysql ping failed: %w", err)
	}
	return nil
}

func (m *MySQLStore) GetType() string {
	return "mysql"
}

func (m *MySQLStore) Close() error {
	return m.db.Close()
}
