package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// BadgerProvider persists client namespaces in an embedded Badger database.
type BadgerProvider struct {
	db *badger.DB
}

// OpenBadgerProvider opens (or creates) the database at path. An empty path
// keeps everything in memory.
func OpenBadgerProvider(path string) (*BadgerProvider, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger session store: %w", err)
	}
	return &BadgerProvider{db: db}, nil
}

func (p *BadgerProvider) Storage(clientID string) Storage {
	return &badgerStorage{db: p.db, prefix: "session/" + clientID + "/"}
}

func (p *BadgerProvider) Close() error {
	return p.db.Close()
}

type badgerStorage struct {
	db     *badger.DB
	prefix string
}

func (s *badgerStorage) GetItem(_ context.Context, key string) (string, bool, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(s.prefix + key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if errors.Is(err, badger.ErrDBClosed) {
		return "", false, ErrStorageClosed
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read session item %s: %w", key, err)
	}
	return string(value), true, nil
}

func (s *badgerStorage) SetItem(_ context.Context, key, value string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(s.prefix+key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("failed to write session item %s: %w", key, err)
	}
	return nil
}

func (s *badgerStorage) RemoveItem(_ context.Context, key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(s.prefix + key))
	})
	if err != nil {
		return fmt.Errorf("failed to remove session item %s: %w", key, err)
	}
	return nil
}
