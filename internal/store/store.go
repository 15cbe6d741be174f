// Package store is the device-local persisted state: a pebble-backed
// key-value store with string keys and JSON-serialized values. Each
// context owns its store exclusively; nothing here is shared across
// contexts except by event replication over the transport.
package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"github.com/calcvault/core/pkg/logger"
)

// Persisted key layout. These names are stable: wiping and restoring a
// device round-trips through them.
const (
	KeyUsername     = "calcvault_username"
	KeyAvatar       = "calcvault_avatar"
	KeySecurePIN    = "calcvault_secure_pin"
	KeySecretCode   = "calcvault_secret_code"
	KeyIsSetup      = "calcvault_is_setup"
	KeyBlocked      = "calcvault_blocked_users"
	KeyContacts     = "calcvault_contacts"
	KeyGlobalUsers  = "calcvault_global_users"
	KeySubscription = "calcvault_subscription"
)

type Store struct {
	db *pebble.DB
}

// Open opens (or creates) the store at path.
func Open(path string) (*Store, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("opening store at %s: %w", path, err)
	}
	logger.Debug().Str("path", path).Msg("store opened")
	return &Store{db: db}, nil
}

// OpenMem opens an in-memory store. Used by tests and throwaway
// contexts that must not leave traces on disk.
func OpenMem() (*Store, error) {
	db, err := pebble.Open("", &pebble.Options{FS: vfs.NewMem()})
	if err != nil {
		return nil, fmt.Errorf("opening in-memory store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the raw value for key, reporting presence explicitly.
func (s *Store) Get(key string) ([]byte, bool, error) {
	val, closer, err := s.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	out := make([]byte, len(val))
	copy(out, val)
	if err := closer.Close(); err != nil {
		return nil, false, err
	}
	return out, true, nil
}

func (s *Store) Put(key string, value []byte) error {
	return s.db.Set([]byte(key), value, pebble.Sync)
}

func (s *Store) Delete(key string) error {
	return s.db.Delete([]byte(key), pebble.Sync)
}

// GetJSON unmarshals the value at key into v. A missing key leaves v
// untouched and reports false.
func (s *Store) GetJSON(key string, v any) (bool, error) {
	data, ok, err := s.Get(key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decoding %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) PutJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	return s.Put(key, data)
}

// Wipe deletes every key. This is the destructive half of a full
// reset; in-memory engine state is cleared separately.
func (s *Store) Wipe() error {
	iter, err := s.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return err
	}
	var keys [][]byte
	for iter.First(); iter.Valid(); iter.Next() {
		k := make([]byte, len(iter.Key()))
		copy(k, iter.Key())
		keys = append(keys, k)
	}
	if err := iter.Close(); err != nil {
		return err
	}

	batch := s.db.NewBatch()
	for _, k := range keys {
		if err := batch.Delete(k, nil); err != nil {
			return err
		}
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return err
	}
	logger.Info().Int("keys", len(keys)).Msg("store wiped")
	return nil
}
