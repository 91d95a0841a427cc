package tokenstore

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	tokenBucket      = "tokens"
	expiryValueBytes = 8
)

// boltStore implements a Store backed by BoltDB. Values are an 8-byte
// BigEndian expiry followed by the token bytes.
type boltStore struct {
	db              *bolt.DB
	cleanupMu       sync.Mutex
	lastCleanup     atomic.Int64
	tokenTTL        time.Duration
	cleanupInterval time.Duration
}

// openBolt initializes a BoltDB-backed Store.
func openBolt(path string, opts Options) (Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create token store directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(tokenBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	store := &boltStore{
		db:              db,
		tokenTTL:        opts.TokenTTL,
		cleanupInterval: opts.CleanupInterval,
	}
	store.lastCleanup.Store(time.Now().Unix())
	return store, nil
}

// Close closes the BoltDB store.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// Token returns the stored token for the service, if present and unexpired.
func (b *boltStore) Token(serviceID string) (string, bool, error) {
	if b == nil || b.db == nil {
		return "", false, nil
	}

	if err := b.maybeCleanupExpired(time.Now()); err != nil {
		return "", false, err
	}

	var token string
	var found bool
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(tokenBucket))
		if bucket == nil {
			return fmt.Errorf("token bucket missing")
		}

		key := []byte(serviceID)
		value := bucket.Get(key)
		if value == nil {
			return nil
		}

		expiry, tok, ok := decodeValue(value)
		if !ok || !expiry.After(time.Now()) {
			return bucket.Delete(key)
		}

		token = tok
		found = true
		return nil
	})
	return token, found, err
}

// SaveToken stores the token for the service with the configured TTL.
func (b *boltStore) SaveToken(serviceID, token string) error {
	if b == nil || b.db == nil {
		return nil
	}

	now := time.Now()
	if err := b.maybeCleanupExpired(now); err != nil {
		return err
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(tokenBucket))
		if bucket == nil {
			return fmt.Errorf("token bucket missing")
		}
		return bucket.Put([]byte(serviceID), encodeValue(now.Add(b.tokenTTL), token))
	})
}

// DeleteToken removes any stored token for the service.
func (b *boltStore) DeleteToken(serviceID string) error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(tokenBucket))
		if bucket == nil {
			return fmt.Errorf("token bucket missing")
		}
		return bucket.Delete([]byte(serviceID))
	})
}

// maybeCleanupExpired removes expired tokens on a fixed cadence to avoid
// unbounded growth.
func (b *boltStore) maybeCleanupExpired(now time.Time) error {
	if b == nil || b.db == nil {
		return nil
	}

	last := time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	b.cleanupMu.Lock()
	defer b.cleanupMu.Unlock()

	last = time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(tokenBucket))
		if bucket == nil {
			return fmt.Errorf("token bucket missing")
		}

		cursor := bucket.Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			expiry, _, ok := decodeValue(v)
			if ok && expiry.After(now) {
				continue
			}
			if err := bucket.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("cleanup expired tokens: %w", err)
	}

	b.lastCleanup.Store(now.Unix())
	return nil
}

func encodeValue(expiry time.Time, token string) []byte {
	buf := make([]byte, expiryValueBytes+len(token))
	binary.BigEndian.PutUint64(buf, uint64(expiry.Unix()))
	copy(buf[expiryValueBytes:], token)
	return buf
}

func decodeValue(value []byte) (time.Time, string, bool) {
	if len(value) < expiryValueBytes {
		return time.Time{}, "", false
	}
	expiry := time.Unix(int64(binary.BigEndian.Uint64(value[:expiryValueBytes])), 0)
	return expiry, string(value[expiryValueBytes:]), true
}
