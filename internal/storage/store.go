package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/fjod/autoparts-storefront/internal/metrics"
)

// Store reads and writes JSON values on top of a KV. Undecodable entries are
// dropped and reported as absent; only backend failures reach the caller.
type Store struct {
	kv      KV
	log     *slog.Logger
	metrics *metrics.Metrics
}

func NewStore(kv KV, log *slog.Logger, m *metrics.Metrics) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{kv: kv, log: log, metrics: m}
}

// Read decodes the value under key into dst. It reports false when the key is
// absent or its content is not valid JSON; in the latter case the key is removed.
func (s *Store) Read(ctx context.Context, key string, dst any) (bool, error) {
	data, err := s.kv.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		s.metrics.StorageError("get")
		return false, fmt.Errorf("read %s: %w", key, err)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		s.log.WarnContext(ctx, "dropping corrupted entry", "key", key, "error", err)
		s.metrics.StorageCorruption()
		if errDel := s.kv.Delete(ctx, key); errDel != nil {
			s.log.WarnContext(ctx, "failed to drop corrupted entry", "key", key, "error", errDel)
		}
		return false, nil
	}
	return true, nil
}

// Write stores value as JSON. Empty collections remove the key instead, so an
// empty value and a missing key are indistinguishable to readers.
func (s *Store) Write(ctx context.Context, key string, value any) error {
	if isEmpty(value) {
		return s.Remove(ctx, key)
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := s.kv.Set(ctx, key, data); err != nil {
		s.metrics.StorageError("set")
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.kv.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
		s.metrics.StorageError("delete")
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

func isEmpty(value any) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Slice, reflect.Map:
		return v.IsNil() || v.Len() == 0
	case reflect.Array:
		return v.Len() == 0
	case reflect.Pointer:
		return v.IsNil()
	}
	return false
}
