// Package memory is a bounded in-process cache.Backend.
package memory

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const DefaultSize = 1024

type entry struct {
	value   []byte
	expires time.Time
}

type Memory struct {
	entries *lru.Cache[string, entry]

	// Now is the clock used for expiry.
	Now func() time.Time
}

// New keeps at most size entries, evicting the least recently used.
func New(size int) (*Memory, error) {
	if size <= 0 {
		size = DefaultSize
	}
	entries, err := lru.New[string, entry](size)
	if err != nil {
		return nil, err
	}
	return &Memory{entries: entries, Now: time.Now}, nil
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	e, ok := m.entries.Get(key)
	if !ok {
		return nil, false, nil
	}
	if !m.Now().Before(e.expires) {
		m.entries.Remove(key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.entries.Add(key, entry{value: value, expires: m.Now().Add(ttl)})
	return nil
}

func (m *Memory) Len() int {
	return m.entries.Len()
}
