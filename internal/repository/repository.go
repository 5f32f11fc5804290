// Package repository persists records to a document store.
package repository

import (
	"context"
	"fmt"
	"tigerscraper/internal/model"
	"tigerscraper/internal/repository/mongodb"
	"tigerscraper/internal/repository/sqlite"
)

// Repository is a store of records.
type Repository interface {
	// Ping fails if the store is not reachable.
	Ping(ctx context.Context) error
	// EnsureSchema creates the collection and indexes, calling it again is a no-op.
	EnsureSchema(ctx context.Context) error
	// Save stores a record and returns its id.
	Save(ctx context.Context, record model.Record) (string, error)
	Recent(ctx context.Context, n int) ([]model.Document, error)
	Close(ctx context.Context) error
}

const (
	DriverMongoDB = "mongodb"
	DriverSqlite  = "sqlite"
)

type Config struct {
	// Driver is either "mongodb" or "sqlite".
	Driver  string         `json:"driver"`
	MongoDB mongodb.Config `json:"mongodb"`
	Sqlite  sqlite.Config  `json:"sqlite"`
}

func Open(ctx context.Context, config Config) (Repository, error) {
	var repo Repository
	var err error
	switch config.Driver {
	case DriverMongoDB:
		repo, err = mongodb.Open(ctx, config.MongoDB)
	case DriverSqlite:
		repo, err = sqlite.Open(config.Sqlite)
	default:
		return nil, fmt.Errorf("unknown repository driver '%s'", config.Driver)
	}
	if err != nil {
		return nil, err
	}
	return repo, nil
}
