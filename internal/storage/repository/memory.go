package repository

import (
	"context"
	"strings"
	"sync"

	"github.com/smallbiznis/snapcount/internal/storage/domain"
)

type memoryRecords struct {
	mu      sync.RWMutex
	records map[string][]byte
}

func NewMemory() domain.Records {
	return &memoryRecords{records: make(map[string][]byte)}
}

func (r *memoryRecords) Load(_ context.Context, key string) ([]byte, bool, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, false, domain.ErrInvalidKey
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	value, ok := r.records[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

func (r *memoryRecords) Save(_ context.Context, key string, value []byte) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return domain.ErrInvalidKey
	}
	r.mu.Lock()
	r.records[key] = append([]byte(nil), value...)
	r.mu.Unlock()
	return nil
}

func (r *memoryRecords) Delete(_ context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return domain.ErrInvalidKey
	}
	r.mu.Lock()
	delete(r.records, key)
	r.mu.Unlock()
	return nil
}
