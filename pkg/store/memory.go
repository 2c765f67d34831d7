package store

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strconv"
	"sync"
)

// Memory is an in-process Store. Every operation holds one mutex, so the
// compare-and-swap methods never conflict.
type Memory struct {
	mu     sync.Mutex
	values map[string][]byte
	sets   map[string]map[string]struct{}
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		values: make(map[string][]byte),
		sets:   make(map[string]map[string]struct{}),
	}
}

func (m *Memory) GetInt(_ context.Context, key string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getInt(key)
}

func (m *Memory) getInt(key string) (int64, bool, error) {
	raw, ok := m.values[key]
	if !ok {
		return 0, false, nil
	}
	v, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("store: %s no es un entero: %w", key, err)
	}
	return v, true, nil
}

func (m *Memory) SetInt(_ context.Context, key string, value int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = []byte(strconv.FormatInt(value, 10))
	return nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
		delete(m.sets, k)
	}
	return nil
}

func (m *Memory) GetBlob(_ context.Context, key string, dst any) (bool, error) {
	m.mu.Lock()
	raw, ok := m.values[key]
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, decode(raw, dst)
}

func (m *Memory) SetBlob(_ context.Context, key string, value any) error {
	raw, err := encode(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = raw
	return nil
}

// ScanKeys matches with path.Match, which agrees with Redis globs for keys
// without '/'.
func (m *Memory) ScanKeys(_ context.Context, pattern string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := path.Match(pattern, ""); err != nil {
		return nil, err
	}

	var keys []string
	for k := range m.values {
		if ok, _ := path.Match(pattern, k); ok {
			keys = append(keys, k)
		}
	}
	for k := range m.sets {
		if ok, _ := path.Match(pattern, k); ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *Memory) AddToSet(_ context.Context, setKey, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.sets[setKey]
	if !ok {
		set = make(map[string]struct{})
		m.sets[setKey] = set
	}
	set[value] = struct{}{}
	return nil
}

func (m *Memory) RemoveFromSet(_ context.Context, setKey, value string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.sets[setKey]
	if !ok {
		return false, nil
	}
	_, present := set[value]
	delete(set, value)
	if len(set) == 0 {
		delete(m.sets, setKey)
	}
	return present, nil
}

func (m *Memory) IsMember(_ context.Context, setKey, value string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sets[setKey][value]
	return ok, nil
}

func (m *Memory) Members(_ context.Context, setKey string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sets[setKey]))
	for v := range m.sets[setKey] {
		out = append(out, v)
	}
	sort.Strings(out)
	return out, nil
}

func (m *Memory) UpdateInts(_ context.Context, keys []string, fn func(current []int64) ([]int64, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := make([]int64, len(keys))
	for i, k := range keys {
		v, _, err := m.getInt(k)
		if err != nil {
			return err
		}
		current[i] = v
	}
	next, err := fn(current)
	if err != nil {
		return err
	}
	if len(next) != len(keys) {
		return fmt.Errorf("store: UpdateInts devolvió %d valores para %d claves", len(next), len(keys))
	}
	for i, k := range keys {
		m.values[k] = []byte(strconv.FormatInt(next[i], 10))
	}
	return nil
}

func (m *Memory) UpdateBlob(_ context.Context, key string, fn func(current []byte, found bool) ([]byte, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	raw, found := m.values[key]
	next, err := fn(raw, found)
	if err != nil {
		return err
	}
	if next == nil {
		delete(m.values, key)
		return nil
	}
	m.values[key] = next
	return nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }
