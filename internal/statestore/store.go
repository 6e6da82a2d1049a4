package statestore

import (
	"encoding/json"
	"time"
)

// Record is the persisted form of one live panel.
type Record struct {
	ID        string
	ViewType  string
	Column    string
	Title     string
	State     json.RawMessage
	UpdatedAt time.Time
}

// Store defines the panel persistence operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type Store interface {
	Save(rec Record) error
	Get(id string) (*Record, error)
	Delete(id string) error
	List() ([]Record, error)
	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)
