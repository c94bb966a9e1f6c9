package securestore

import (
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// BadgerStore implements Store on a Badger database.
type BadgerStore struct {
	db *badger.DB
}

// NewBadger opens (or creates) a Badger-backed store at the given path.
func NewBadger(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Disable badger's built-in logging.

	db, err := badger.Open(opts)
	if err != nil {
		if strings.Contains(err.Error(), "Cannot acquire directory lock") ||
			strings.Contains(err.Error(), "resource temporarily unavailable") {
			return nil, fmt.Errorf("store at %s is locked by another process: %w", path, err)
		}
		return nil, fmt.Errorf("open store at %s: %w", path, err)
	}
	return &BadgerStore{db: db}, nil
}

// Save stores a key-value pair.
func (s *BadgerStore) Save(key, value string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("store save: %w", err)
	}
	return nil
}

// Read returns the value for a key and whether it exists.
func (s *BadgerStore) Read(key string) (string, bool, error) {
	var val []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("store read: %w", err)
	}
	return string(val), true, nil
}

// Delete removes a key.
func (s *BadgerStore) Delete(key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("store delete: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
