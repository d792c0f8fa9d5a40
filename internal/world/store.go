package world

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var ErrMapNotFound = errors.New("map not found")

// MapStore loads map documents by id from a directory of <id>.json files and
// caches them. Loads run off the frame loop, so the cache is locked.
// An empty dir makes the store memory-only.
type MapStore struct {
	dir   string
	mutex sync.RWMutex
	cache map[string]*Map
}

// NewMapStore creates a store rooted at dir.
func NewMapStore(dir string) *MapStore {
	return &MapStore{
		dir:   dir,
		cache: make(map[string]*Map),
	}
}

// Cached returns an already loaded map.
func (s *MapStore) Cached(id string) (*Map, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	m, ok := s.cache[id]
	return m, ok
}

// Put adds or replaces a map in the cache without touching disk.
func (s *MapStore) Put(m *Map) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.cache[m.ID] = m
}

// Load returns the map with the given id, reading it from disk once.
func (s *MapStore) Load(ctx context.Context, id string) (*Map, error) {
	if m, ok := s.Cached(id); ok {
		return m, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.path(id)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("map %q: %w", id, ErrMapNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open map %q: %w", id, err)
	}
	defer f.Close()

	m, err := DecodeMap(f)
	if err != nil {
		return nil, fmt.Errorf("map %q: %w", id, err)
	}
	if m.ID == "" {
		m.ID = id
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	if cached, ok := s.cache[id]; ok {
		return cached, nil
	}
	s.cache[id] = m
	return m, nil
}

// Save writes the whole map document back to disk.
func (s *MapStore) Save(m *Map) error {
	path, err := s.path(m.ID)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode map %q: %w", m.ID, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write map %q: %w", m.ID, err)
	}
	s.Put(m)
	return nil
}

func (s *MapStore) path(id string) (string, error) {
	if s.dir == "" {
		return "", fmt.Errorf("map %q: %w (store has no directory)", id, ErrMapNotFound)
	}
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", fmt.Errorf("invalid map id %q", id)
	}
	return filepath.Join(s.dir, id+".json"), nil
}

// DecodeMap parses and validates one map document.
func DecodeMap(r io.Reader) (*Map, error) {
	var m Map
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode map: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}
