// Package memory implements the catalog store contract in process memory.
// It is the semantic core the durable stores wrap: transactions run against
// a deep copy of the state and commit by swapping it in, so a failed
// callback never leaves partial writes behind.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"battcore/internal/catalog"
)

// Store is an in-memory catalog store safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	state state
	now   func() time.Time
	seq   uint64
}

type state struct {
	sets map[string]catalog.Entry
	fits []catalog.FitResult
}

// NewStore constructs an empty in-memory store.
func NewStore() *Store {
	return &Store{
		state: state{sets: make(map[string]catalog.Entry)},
		now:   func() time.Time { return time.Now().UTC() },
	}
}

var _ catalog.Store = (*Store)(nil)

// RunInTransaction applies fn to a copy of the state and commits it when fn
// returns nil. On error the store is unchanged.
func (s *Store) RunInTransaction(ctx context.Context, fn func(catalog.Transaction) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := &transaction{store: s, state: cloneState(s.state)}
	if err := fn(tx); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

// View runs fn against a read-only copy of the state. Mutations made by fn
// are discarded.
func (s *Store) View(ctx context.Context, fn func(catalog.Transaction) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	snapshot := cloneState(s.state)
	s.mu.RUnlock()
	return fn(&transaction{store: s, state: snapshot})
}

// ExportState returns a deep copy of the full catalog state.
func (s *Store) ExportState() catalog.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromState(s.state)
}

// ImportState replaces the catalog state with the supplied snapshot.
func (s *Store) ImportState(snapshot catalog.Snapshot) {
	st := state{sets: make(map[string]catalog.Entry, len(snapshot.Sets))}
	for _, entry := range snapshot.Sets {
		st.sets[entry.Name] = cloneEntry(entry)
	}
	var seq uint64
	st.fits = make([]catalog.FitResult, 0, len(snapshot.Fits))
	for _, fr := range snapshot.Fits {
		st.fits = append(st.fits, cloneFit(fr))
		var n uint64
		if _, err := fmt.Sscanf(fr.ID, "fit-%d", &n); err == nil && n > seq {
			seq = n
		}
	}
	s.mu.Lock()
	s.state = st
	s.seq = seq
	s.mu.Unlock()
}

// SetNowFunc overrides the timestamp source (tests only).
func (s *Store) SetNowFunc(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

type transaction struct {
	store *Store
	state state
}

// PutSet inserts or replaces a named parameter set.
func (t *transaction) PutSet(entry catalog.Entry) (catalog.Entry, error) {
	if entry.Name == "" {
		return catalog.Entry{}, fmt.Errorf("catalog: entry requires a name")
	}
	if len(entry.Values) == 0 {
		return catalog.Entry{}, fmt.Errorf("catalog: entry %q requires values", entry.Name)
	}
	now := t.store.now()
	if existing, ok := t.state.sets[entry.Name]; ok {
		entry.CreatedAt = existing.CreatedAt
	} else {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now
	t.state.sets[entry.Name] = cloneEntry(entry)
	return entry, nil
}

// FindSet looks up a parameter set by name.
func (t *transaction) FindSet(name string) (catalog.Entry, bool) {
	entry, ok := t.state.sets[name]
	if !ok {
		return catalog.Entry{}, false
	}
	return cloneEntry(entry), true
}

// DeleteSet removes a parameter set; absent names fail with ErrNotFound.
func (t *transaction) DeleteSet(name string) error {
	if _, ok := t.state.sets[name]; !ok {
		return fmt.Errorf("%w: parameter set %q", catalog.ErrNotFound, name)
	}
	delete(t.state.sets, name)
	return nil
}

// RecordFit appends a fit result, assigning an ID and timestamp. The result
// must reference a catalogued set.
func (t *transaction) RecordFit(result catalog.FitResult) (catalog.FitResult, error) {
	if result.SetName == "" {
		return catalog.FitResult{}, fmt.Errorf("catalog: fit result requires a set name")
	}
	if len(result.Parameters) != len(result.Estimates) {
		return catalog.FitResult{}, fmt.Errorf("catalog: fit result has %d parameters but %d estimates", len(result.Parameters), len(result.Estimates))
	}
	if _, ok := t.state.sets[result.SetName]; !ok {
		return catalog.FitResult{}, fmt.Errorf("%w: parameter set %q", catalog.ErrNotFound, result.SetName)
	}
	t.store.seq++
	result.ID = fmt.Sprintf("fit-%d", t.store.seq)
	result.CreatedAt = t.store.now()
	t.state.fits = append(t.state.fits, cloneFit(result))
	return result, nil
}

// ListSets returns all parameter sets sorted by name.
func (t *transaction) ListSets() []catalog.Entry {
	out := make([]catalog.Entry, 0, len(t.state.sets))
	for _, entry := range t.state.sets {
		out = append(out, cloneEntry(entry))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ListFits returns all fit results in insertion order.
func (t *transaction) ListFits() []catalog.FitResult {
	out := make([]catalog.FitResult, 0, len(t.state.fits))
	for _, fr := range t.state.fits {
		out = append(out, cloneFit(fr))
	}
	return out
}

func cloneState(st state) state {
	out := state{sets: make(map[string]catalog.Entry, len(st.sets))}
	for name, entry := range st.sets {
		out.sets[name] = cloneEntry(entry)
	}
	out.fits = make([]catalog.FitResult, 0, len(st.fits))
	out.fits = append(out.fits, st.fits...)
	for i := range out.fits {
		out.fits[i] = cloneFit(out.fits[i])
	}
	return out
}

func cloneEntry(entry catalog.Entry) catalog.Entry {
	values := make(map[string]float64, len(entry.Values))
	for name, v := range entry.Values {
		values[name] = v
	}
	entry.Values = values
	return entry
}

func cloneFit(fr catalog.FitResult) catalog.FitResult {
	fr.Parameters = append([]string(nil), fr.Parameters...)
	fr.Estimates = append([]float64(nil), fr.Estimates...)
	return fr
}

func snapshotFromState(st state) catalog.Snapshot {
	cloned := cloneState(st)
	out := catalog.Snapshot{Fits: cloned.fits}
	out.Sets = make([]catalog.Entry, 0, len(cloned.sets))
	for _, entry := range cloned.sets {
		out.Sets = append(out.Sets, entry)
	}
	sort.Slice(out.Sets, func(i, j int) bool { return out.Sets[i].Name < out.Sets[j].Name })
	return out
}
