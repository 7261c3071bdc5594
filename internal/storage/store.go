// Package storage persists interview progress.
package storage

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("interview not found")
	ErrStaleWrite = errors.New("stale write: a newer version is stored")
)

// Store persists interview records keyed by id.
type Store interface {
	// Save writes rec unless the stored version is the same or newer, in which case it
	// returns ErrStaleWrite.
	Save(ctx context.Context, rec *InterviewRecord) error

	// Get returns ErrNotFound for unknown ids.
	Get(ctx context.Context, id string) (*InterviewRecord, error)

	// List returns the ids of all stored interviews.
	List(ctx context.Context) ([]string, error)

	Close() error
}

// Backends accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
	BackendFile   = "file"
)

// Config selects and configures a backend.
type Config struct {
	Backend       string
	Path          string
	MongoURI      string
	MongoDatabase string
}

// Open builds the configured store.
func Open(ctx context.Context, cfg Config) (Store, error) {
	var (
		store Store
		err   error
	)
	switch cfg.Backend {
	case BackendSQLite, "":
		store, err = NewSQLite(cfg.Path)
	case BackendMongo:
		store, err = NewMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
	case BackendFile:
		store, err = NewFileStore(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Backend, err)
	}
	return store, nil
}
