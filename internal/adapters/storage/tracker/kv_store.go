package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"statusboard/internal/adapters/storage/kv"
	domain "statusboard/internal/domain/tracker"
)

// KVStore implements Store as a JSON record in a kv.Store.
type KVStore struct {
	kv  kv.Store
	now func() time.Time

	// mu serializes Update so concurrent requests behave like the single
	// event loop the record was designed for.
	mu sync.Mutex
}

var _ Store = (*KVStore)(nil)

// NewKVStore creates a KVStore. now stamps default states.
func NewKVStore(store kv.Store, now func() time.Time) *KVStore {
	if now == nil {
		now = time.Now
	}
	return &KVStore{kv: store, now: func() time.Time { return domain.StampTime(now()) }}
}

// Load reads and decodes the stored record.
// PRE: none
// POST: Returns a state at the current schema version. Missing, malformed or
// incompatible records yield defaults; only storage failures return an error.
func (s *KVStore) Load(ctx context.Context) (domain.State, error) {
	raw, ok, err := s.kv.Get(ctx, StateKey)
	if err != nil {
		return domain.State{}, fmt.Errorf("load state: %w", err)
	}
	if !ok {
		return domain.Defaults(s.now()), nil
	}

	var st domain.State
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		slog.Warn("state_event", "event", "state_malformed", "error", err.Error())
		return domain.Defaults(s.now()), nil
	}

	migrated, outcome, err := domain.Migrate(st, s.now())
	switch {
	case err != nil:
		slog.Warn("state_event", "event", "state_reset", "reason", err.Error())
	case outcome == domain.OutcomeUpgraded:
		slog.Info("state_event", "event", "state_upgraded", "schema_version", migrated.SchemaVersion)
	}
	return migrated, nil
}

// Save encodes st and overwrites the stored record.
// PRE: st was produced by Load, Defaults or a domain transition
// POST: Load returns a state deep-equal to st
func (s *KVStore) Save(ctx context.Context, st domain.State) error {
	st.SchemaVersion = domain.SchemaVersion
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := s.kv.Set(ctx, StateKey, string(data)); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// Update loads the state, applies fn and saves the result.
// PRE: fn does not call back into the store
// POST: on fn error the stored record is untouched and the error is returned
func (s *KVStore) Update(ctx context.Context, fn func(*domain.State) error) (domain.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.Load(ctx)
	if err != nil {
		return domain.State{}, err
	}
	if err := fn(&st); err != nil {
		return domain.State{}, err
	}
	if err := s.Save(ctx, st); err != nil {
		return domain.State{}, err
	}
	return st, nil
}

// Reset overwrites the stored record with defaults.
func (s *KVStore) Reset(ctx context.Context) (domain.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := domain.Defaults(s.now())
	if err := s.Save(ctx, st); err != nil {
		return domain.State{}, err
	}
	slog.Info("state_event", "event", "state_reset", "reason", "requested")
	return st, nil
}
