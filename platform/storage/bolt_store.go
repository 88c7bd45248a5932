package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	bolt "go.etcd.io/bbolt"

	"medpipe_backend/models"
	"medpipe_backend/pkg/logging"
)

// BoltStore is a single-node BlobStore with one bbolt bucket per container.
type BoltStore struct {
	db *bolt.DB
}

func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("open bbolt store %q: %w", path, err)
	}
	logging.Logger.Info("Storage service initialized", "type", "bolt", "path", path)
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Download(ctx context.Context, container, key string) (string, error) {
	var content []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(container))
		if b == nil {
			return models.ErrNotFound
		}
		v := b.Get([]byte(key))
		if v == nil {
			return models.ErrNotFound
		}
		content = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%s/%s: %w", container, key, err)
	}
	return string(content), nil
}

func (s *BoltStore) Upload(ctx context.Context, container, key, content string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(container))
		if err != nil {
			return err
		}
		return b.Put([]byte(key), []byte(content))
	})
}

func (s *BoltStore) Exists(ctx context.Context, container, key string) (bool, error) {
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		if b := tx.Bucket([]byte(container)); b != nil {
			found = b.Get([]byte(key)) != nil
		}
		return nil
	})
	return found, err
}

func (s *BoltStore) List(ctx context.Context, container, prefix string) ([]string, error) {
	var keys []string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(container))
		if b == nil {
			return nil
		}
		keys = scanPrefix(b, prefix)
		return nil
	})
	return keys, err
}

func (s *BoltStore) DeleteFolder(ctx context.Context, container, prefix string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(container))
		if b == nil {
			return nil
		}
		for _, k := range scanPrefix(b, prefix) {
			if err := b.Delete([]byte(k)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func scanPrefix(b *bolt.Bucket, prefix string) []string {
	var keys []string
	p := []byte(strings.TrimPrefix(prefix, "/"))
	c := b.Cursor()
	for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
		keys = append(keys, string(k))
	}
	return keys
}
