package checkpoint

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	componentBucketName = "components"
	metaBucketName      = "metadata"
)

// ErrNotFound is returned when a component or metadata key has never been saved.
var ErrNotFound = errors.New("checkpoint entry not found")

// Store keeps the latest record of every training component, keyed by
// component name. Record bytes are opaque to the store.
type Store struct {
	db   *bolt.DB
	path string
}

// Open opens (or creates) a checkpoint database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(componentBucketName)); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(metaBucketName)); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Put saves the record of a single component.
func (s *Store) Put(component string, record []byte) error {
	return s.SaveAll(map[string][]byte{component: record})
}

// SaveAll writes every component in one transaction, so a crash never leaves
// a checkpoint with records from two different steps.
func (s *Store) SaveAll(records map[string][]byte) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(componentBucketName))
		for component, record := range records {
			if component == "" {
				return fmt.Errorf("empty component name")
			}
			if err := bucket.Put([]byte(component), record); err != nil {
				return fmt.Errorf("put %s: %w", component, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// Get returns a copy of the record saved for component.
func (s *Store) Get(component string) ([]byte, error) {
	var record []byte

	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(componentBucketName)).Get([]byte(component))
		if data == nil {
			return fmt.Errorf("%w: component %s", ErrNotFound, component)
		}
		// bolt memory is only valid inside the transaction
		record = append([]byte(nil), data...)
		return nil
	})

	return record, err
}

// Components lists saved component names in sorted order.
func (s *Store) Components() ([]string, error) {
	var names []string

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(componentBucketName)).ForEach(func(k, _ []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list components: %w", err)
	}

	sort.Strings(names)
	return names, nil
}

// Clear removes every saved component. Metadata is kept.
func (s *Store) Clear() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(componentBucketName)); err != nil {
			return err
		}
		_, err := tx.CreateBucket([]byte(componentBucketName))
		return err
	})
}

// GetMetadata retrieves a metadata value.
func (s *Store) GetMetadata(key string) (string, error) {
	var value string

	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(metaBucketName)).Get([]byte(key))
		if data == nil {
			return fmt.Errorf("%w: metadata %s", ErrNotFound, key)
		}
		value = string(data)
		return nil
	})

	return value, err
}

// SetMetadata stores a metadata value.
func (s *Store) SetMetadata(key, value string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(metaBucketName)).Put([]byte(key), []byte(value))
	})
}

// Backup copies a consistent snapshot of the database to backupPath.
func (s *Store) Backup(backupPath string) error {
	return s.db.View(func(tx *bolt.Tx) error {
		return tx.CopyFile(backupPath, 0600)
	})
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
