package tracker

import (
	"context"

	domain "statusboard/internal/domain/tracker"
)

// StateKey is the key the whole state record is stored under.
const StateKey = "migrationData"

// Store persists the tracker state as one record.
type Store interface {
	// Load returns the stored state, or defaults when nothing usable is stored.
	Load(ctx context.Context) (domain.State, error)
	// Save overwrites the stored state.
	Save(ctx context.Context, s domain.State) error
	// Update runs load, fn, save as one serialized step. When fn returns an
	// error nothing is saved.
	Update(ctx context.Context, fn func(*domain.State) error) (domain.State, error)
}
