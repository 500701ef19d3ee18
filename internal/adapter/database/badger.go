package database

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"github.com/semmidev/omran/internal/config"
	"github.com/semmidev/omran/internal/domain"
)

const maxUpdateAttempts = 100

// BadgerStore is the embedded, durable Store Client.
type BadgerStore struct {
	db *badger.DB
}

func NewBadger(cfg *config.StoreConfig) (*BadgerStore, error) {
	opts := badger.DefaultOptions(cfg.Path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", cfg.Path, err)
	}
	return &BadgerStore{db: db}, nil
}

// NewBadgerInMemory opens a store that lives only as long as the process.
func NewBadgerInMemory() (*BadgerStore, error) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("open in-memory badger: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (b *BadgerStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("badger get %s: %w", key, err)
	}
	return value, true, nil
}

func (b *BadgerStore) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("badger set %s: %w", key, err)
	}
	return nil
}

// SetMany commits all values in one transaction. Batches too large for a
// single transaction are written in chunks; the previous values are
// journaled first so a failed chunk can be undone.
func (b *BadgerStore) SetMany(ctx context.Context, values map[string][]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	err := b.db.Update(func(txn *badger.Txn) error {
		for _, k := range keys {
			if err := txn.Set([]byte(k), values[k]); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, badger.ErrTxnTooBig) {
		return b.setChunked(keys, values)
	}
	if err != nil {
		return fmt.Errorf("badger set many: %w", err)
	}
	return nil
}

type journalEntry struct {
	key    string
	value  []byte
	exists bool
}

func (b *BadgerStore) setChunked(keys []string, values map[string][]byte) error {
	journal := make([]journalEntry, 0, len(keys))
	err := b.db.View(func(txn *badger.Txn) error {
		for _, k := range keys {
			entry := journalEntry{key: k}
			item, err := txn.Get([]byte(k))
			switch {
			case errors.Is(err, badger.ErrKeyNotFound):
			case err != nil:
				return err
			default:
				entry.exists = true
				if entry.value, err = item.ValueCopy(nil); err != nil {
					return err
				}
			}
			journal = append(journal, entry)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("badger journal: %w", err)
	}

	wb := b.db.NewWriteBatch()
	for _, k := range keys {
		if err := wb.Set([]byte(k), values[k]); err != nil {
			wb.Cancel()
			return b.rollback(journal, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return b.rollback(journal, err)
	}
	return nil
}

func (b *BadgerStore) rollback(journal []journalEntry, cause error) error {
	wb := b.db.NewWriteBatch()
	for _, e := range journal {
		var err error
		if e.exists {
			err = wb.Set([]byte(e.key), e.value)
		} else {
			err = wb.Delete([]byte(e.key))
		}
		if err != nil {
			wb.Cancel()
			return fmt.Errorf("%w: %v (rollback: %v)", domain.ErrPartialWrite, cause, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("%w: %v (rollback: %v)", domain.ErrPartialWrite, cause, err)
	}
	return fmt.Errorf("badger set many: %w", cause)
}

// Update retries the read-modify-write when another writer commits the
// same key first.
func (b *BadgerStore) Update(ctx context.Context, key string, fn domain.UpdateFunc) error {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := b.db.Update(func(txn *badger.Txn) error {
			var current []byte
			exists := true

			item, err := txn.Get([]byte(key))
			switch {
			case errors.Is(err, badger.ErrKeyNotFound):
				exists = false
			case err != nil:
				return err
			default:
				if current, err = item.ValueCopy(nil); err != nil {
					return err
				}
			}

			next, err := fn(current, exists)
			if err != nil {
				return err
			}
			return txn.Set([]byte(key), next)
		})
		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		return err
	}
	return fmt.Errorf("badger update %s: too many conflicting writers", key)
}

func (b *BadgerStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.db.IsClosed() {
		return fmt.Errorf("badger store is closed")
	}
	return nil
}

func (b *BadgerStore) GetType() string {
	return "badger"
}

func (b *BadgerStore) Close() error {
	return b.db.Close()
}
