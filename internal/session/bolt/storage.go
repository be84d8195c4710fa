// Package bolt provides a single-file durable backend for the session
// records, so the gateway runs without any external services.
package bolt

import (
	"context"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/frahmantamala/academy-portal/internal/session"
)

var bucketName = []byte("portal")

type Storage struct {
	db *bbolt.DB
}

var _ session.Storage = (*Storage)(nil)

// Open opens (or creates) the database file and ensures the records
// bucket exists.
func Open(path string) (*Storage, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating records bucket: %w", err)
	}

	return &Storage{db: db}, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketName).Get([]byte(key))
		if data == nil {
			return session.ErrNotFound
		}
		value = make([]byte, len(data))
		copy(value, data)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *Storage) Put(ctx context.Context, key string, value []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(key), value)
	})
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Delete([]byte(key))
	})
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketName) == nil {
			return fmt.Errorf("records bucket missing")
		}
		return nil
	})
}
