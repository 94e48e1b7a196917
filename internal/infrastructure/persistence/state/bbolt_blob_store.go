package state

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketWorkflowStates = []byte("workflow_states")

// BoltBlobStore keeps blobs in a single bbolt bucket
type BoltBlobStore struct {
	db *bolt.DB
}

// OpenBoltBlobStore opens (or creates) the database at path
func OpenBoltBlobStore(path string) (*BoltBlobStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("state db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketWorkflowStates)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltBlobStore{db: db}, nil
}

func (b *BoltBlobStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var out []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketWorkflowStates)
		if bucket == nil {
			return errors.New("workflow_states bucket missing")
		}
		if v := bucket.Get([]byte(key)); v != nil {
			// bbolt values are only valid inside the transaction
			out = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, out != nil, nil
}

func (b *BoltBlobStore) Put(ctx context.Context, key string, data []byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketWorkflowStates)
		if bucket == nil {
			return errors.New("workflow_states bucket missing")
		}
		return bucket.Put([]byte(key), data)
	})
}

func (b *BoltBlobStore) Delete(ctx context.Context, key string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketWorkflowStates)
		if bucket == nil {
			return nil
		}
		return bucket.Delete([]byte(key))
	})
}

// Close releases the database file lock
func (b *BoltBlobStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}
