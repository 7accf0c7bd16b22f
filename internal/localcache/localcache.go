// Package localcache stores evaluator-side UI state, such as which
// submissions a startup has hidden from its review list, behind a small
// key/value port with memory, SQLite and MongoDB backends.
package localcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrMiss is returned by Get when the key is absent.
var ErrMiss = errors.New("cache miss")

// Storage is a byte-oriented key/value store.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// MemoryStorage keeps values in process memory.
type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string][]byte
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: map[string][]byte{}}
}

func (m *MemoryStorage) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return nil, ErrMiss
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryStorage) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// HiddenSet tracks the submissions an evaluator has hidden per challenge.
type HiddenSet struct {
	storage Storage
}

func NewHiddenSet(s Storage) *HiddenSet {
	return &HiddenSet{storage: s}
}

func hiddenKey(userID, challengeID string) string {
	return "hidden:" + userID + ":" + challengeID
}

// Get returns the hidden submission ids in sorted order. A missing entry is
// an empty set.
func (h *HiddenSet) Get(ctx context.Context, userID, challengeID string) ([]string, error) {
	raw, err := h.storage.Get(ctx, hiddenKey(userID, challengeID))
	if errors.Is(err, ErrMiss) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, fmt.Errorf("decode hidden set: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// Set replaces the hidden set. Duplicates and empty ids are dropped; an
// empty set deletes the entry.
func (h *HiddenSet) Set(ctx context.Context, userID, challengeID string, ids []string) ([]string, error) {
	seen := make(map[string]bool, len(ids))
	clean := []string{}
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		clean = append(clean, id)
	}
	sort.Strings(clean)

	key := hiddenKey(userID, challengeID)
	if len(clean) == 0 {
		return clean, h.storage.Delete(ctx, key)
	}
	raw, err := json.Marshal(clean)
	if err != nil {
		return nil, fmt.Errorf("encode hidden set: %w", err)
	}
	return clean, h.storage.Put(ctx, key, raw)
}

// Lookup returns the hidden set as a map for filtering.
func (h *HiddenSet) Lookup(ctx context.Context, userID, challengeID string) (map[string]bool, error) {
	ids, err := h.Get(ctx, userID, challengeID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}
