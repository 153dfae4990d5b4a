// Package storage persists reading positions between sessions. Values
// follow the JSON contract consumed by the display layer; positions are
// keyed by book key in a single bucket.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/velikanov/bookshelf/pkg/framemsg"
)

var ErrNotFound = errors.New("not found")

var bktPositions = []byte("reading_positions")

// Storage is a wrapper around bolt.DB
type Storage struct {
	db        *bolt.DB
	closeFunc func() error
}

// NewStorage creates a new storage
func NewStorage(path string) (*Storage, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}
	return &Storage{
		db:        db,
		closeFunc: db.Close,
	}, nil
}

// NewTempStorage creates a storage backed by a throwaway file, removed on
// Close. Used in debug runs and tests.
func NewTempStorage() (*Storage, error) {
	path := filepath.Join(os.TempDir(), fmt.Sprintf("bookshelf-%s.db", uuid.New().String()))
	storage, err := NewStorage(path)
	if err != nil {
		return nil, err
	}
	originalCloseFunc := storage.closeFunc
	storage.closeFunc = func() error {
		if err := originalCloseFunc(); err != nil {
			return err
		}
		return os.Remove(path)
	}
	return storage, nil
}

// Close closes the storage
func (s *Storage) Close() error {
	return s.closeFunc()
}

// SavePosition stores pos under its book key, replacing any previous
// position for the same book.
func (s *Storage) SavePosition(pos framemsg.ReadingPosition) error {
	if pos.BookKey == "" {
		return errors.New("position has no book key")
	}
	data, err := json.Marshal(pos)
	if err != nil {
		return errors.Wrap(err, "failed to marshal position")
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bktPositions)
		if err != nil {
			return err
		}
		return b.Put([]byte(pos.BookKey), data)
	})
}

// Position returns the stored position for bookKey, or ErrNotFound when
// the book was never opened.
func (s *Storage) Position(bookKey string) (framemsg.ReadingPosition, error) {
	var pos framemsg.ReadingPosition
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bktPositions)
		if b == nil {
			return errors.Wrap(ErrNotFound, bookKey)
		}
		data := b.Get([]byte(bookKey))
		if data == nil {
			return errors.Wrap(ErrNotFound, bookKey)
		}
		return errors.Wrap(json.Unmarshal(data, &pos), "failed to unmarshal position")
	})
	return pos, err
}

// DeletePosition removes the stored position for bookKey. Missing entries
// are not an error.
func (s *Storage) DeletePosition(bookKey string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bktPositions)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(bookKey))
	})
}
