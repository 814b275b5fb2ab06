package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
)

var ErrNotFound = errors.New("not found")

// Storage manages the databases below one data directory.
type Storage struct {
	path string
	mu   sync.RWMutex
	dbs  map[string]*Database
}

func Open(path string) (*Storage, error) {
	err := os.MkdirAll(path, 0o755)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage dir %q: %w", path, err)
	}

	return &Storage{
		path: path,
		dbs:  make(map[string]*Database),
	}, nil
}

func (s *Storage) String() string {
	return "<Storage path=" + s.path + ">"
}

func (s *Storage) Database(ctx context.Context, name string) (*Database, error) {
	s.mu.RLock()
	db, ok := s.dbs[name]
	s.mu.RUnlock()
	if ok {
		return db, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if db, ok := s.dbs[name]; ok {
		return db, nil
	}

	db, err := OpenDatabase(s.path, name)
	if err != nil {
		return nil, err
	}
	s.dbs[name] = db

	return db, nil
}

func (s *Storage) Databases(ctx context.Context) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.dbs))
	for name := range s.dbs {
		names = append(names, name)
	}
	return names
}

func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, db := range s.dbs {
		err := db.Close()
		if err != nil {
			return fmt.Errorf("failed to close db %q: %w", name, err)
		}
	}
	s.dbs = make(map[string]*Database)

	return nil
}
