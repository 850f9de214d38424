// Package store persists the record of every generated agent.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// StatusActive is the status of a freshly created agent.
const StatusActive = "active"

// Record describes one generated agent.
type Record struct {
	ID          string    `json:"id" bson:"-"`
	Name        string    `json:"name" bson:"name"`
	Description string    `json:"description" bson:"description"`
	Tools       []string  `json:"tools" bson:"tools"`
	Status      string    `json:"status" bson:"status"`
	Artifact    string    `json:"artifact" bson:"artifact"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

// Store is an append-only collection of records.
type Store interface {
	// Insert adds rec and returns it with its storage key and timestamps set.
	Insert(ctx context.Context, rec Record) (Record, error)
	// List returns every record, oldest first.
	List(ctx context.Context) ([]Record, error)
	Close(ctx context.Context) error
}

// Options select and configure a Store implementation.
type Options struct {
	Driver     string
	URI        string
	Database   string
	Collection string
	Table      string
}

// Open returns the Store selected by opts.Driver.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case "", "memory":
		return NewMemoryStore(), nil
	case "mongo", "mongodb":
		ms, err := NewMongoStore(ctx, opts.URI, opts.Database, opts.Collection)
		if err != nil {
			return nil, err
		}
		return ms, nil
	case "postgres", "postgresql":
		ps, err := NewPostgresStore(ctx, opts.URI, opts.Table)
		if err != nil {
			return nil, err
		}
		return ps, nil
	default:
		return nil, fmt.Errorf("unknown store driver: %s", opts.Driver)
	}
}

// prepare fills the fields every implementation sets on insert.
func prepare(rec Record, now time.Time) Record {
	rec.Tools = append([]string{}, rec.Tools...)
	if rec.Status == "" {
		rec.Status = StatusActive
	}
	now = now.UTC().Truncate(time.Millisecond)
	rec.CreatedAt = now
	rec.UpdatedAt = now
	return rec
}
