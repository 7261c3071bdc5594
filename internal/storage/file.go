package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	defaultResultsDir = "results"
	filePrefix        = "interview_"
	fileExt           = ".json"
)

// FileStore keeps one JSON file per interview.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = defaultResultsDir
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("error creating directory %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, filePrefix+id+fileExt)
}

// Save writes through a temp file and rename so readers never see half a record.
func (s *FileStore) Save(_ context.Context, rec *InterviewRecord) error {
	if strings.ContainsAny(rec.ID, `/\`) || rec.ID == "" {
		return fmt.Errorf("invalid interview id %q", rec.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.load(rec.ID)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return err
	case existing.Version >= rec.Version:
		return ErrStaleWrite
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshaling record: %w", err)
	}

	target := s.path(rec.ID)
	tmp, err := os.CreateTemp(s.dir, filePrefix+"*.tmp")
	if err != nil {
		return fmt.Errorf("error creating temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("error writing file %s: %w", target, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("error closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("error renaming into %s: %w", target, err)
	}
	return nil
}

func (s *FileStore) Get(_ context.Context, id string) (*InterviewRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(id)
}

func (s *FileStore) load(id string) (*InterviewRecord, error) {
	data, err := os.ReadFile(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error reading file %s: %w", s.path(id), err)
	}

	var rec InterviewRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("error unmarshaling %s: %w", s.path(id), err)
	}
	return &rec, nil
}

// List returns the ids found in the results directory.
func (s *FileStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("error reading directory %s: %w", s.dir, err)
	}

	ids := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != fileExt || !strings.HasPrefix(name, filePrefix) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileExt))
	}
	return ids, nil
}

func (s *FileStore) Close() error {
	return nil
}
