// Package catalog defines the durable catalog of named parameter sets and
// recorded fit results, plus the transaction contract its stores implement.
// Concrete stores live under internal/infra/persistence; callers construct
// them through the wrappers in this package.
package catalog

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound reports a lookup of an absent catalog record.
var ErrNotFound = errors.New("catalog: not found")

// Entry is a named parameter set held in the catalog.
type Entry struct {
	Name      string             `json:"name"`
	Chemistry string             `json:"chemistry,omitempty"`
	Values    map[string]float64 `json:"values"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// FitResult records one completed optimisation run against a catalog set.
type FitResult struct {
	ID          string    `json:"id"`
	SetName     string    `json:"set_name"`
	Parameters  []string  `json:"parameters"`
	Estimates   []float64 `json:"estimates"`
	Cost        float64   `json:"cost"`
	Iterations  int       `json:"iterations"`
	Evaluations int       `json:"evaluations"`
	CreatedAt   time.Time `json:"created_at"`
}

// Snapshot is the full catalog state exchanged with persistent stores.
type Snapshot struct {
	Sets []Entry     `json:"sets"`
	Fits []FitResult `json:"fits"`
}

// Transaction is the mutable view passed to RunInTransaction callbacks.
// Changes are visible only when the callback returns nil.
type Transaction interface {
	PutSet(entry Entry) (Entry, error)
	FindSet(name string) (Entry, bool)
	DeleteSet(name string) error
	RecordFit(result FitResult) (FitResult, error)
	ListSets() []Entry
	ListFits() []FitResult
}

// Store is the persistent catalog contract.
type Store interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) error
	View(ctx context.Context, fn func(Transaction) error) error
	ExportState() Snapshot
	ImportState(Snapshot)
}
