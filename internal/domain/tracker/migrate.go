package tracker

import (
	"fmt"
	"time"
)

// SchemaVersion is the version written into every saved state.
// Version 0 is the legacy unversioned record.
const SchemaVersion = 1

// MigrationOutcome describes what Migrate did with a stored state.
type MigrationOutcome string

// Migration outcomes
const (
	OutcomeCurrent  MigrationOutcome = "current"
	OutcomeUpgraded MigrationOutcome = "upgraded"
	OutcomeReset    MigrationOutcome = "reset"
)

// migrations maps a version to the step that upgrades it to version+1.
var migrations = map[int]func(State) (State, error){
	0: migrateV0ToV1,
}

// legacyStatuses maps the display labels stored by unversioned records
// to status codes.
var legacyStatuses = map[Status]Status{
	"لم يبدأ":    StatusNotStarted,
	"جاري العمل": StatusInProgress,
	"مكتمل":      StatusComplete,
}

// migrateV0ToV1 accepts legacy records only when they already carry the
// current category layout. The older 4-category layout cannot be mapped.
// Legacy status labels become status codes; unknown labels become not_started.
func migrateV0ToV1(s State) (State, error) {
	if len(s.Categories) != CategoryCount {
		return State{}, fmt.Errorf("%w: %d categories, want %d", ErrSchemaMismatch, len(s.Categories), CategoryCount)
	}
	for i := range s.Categories {
		s.Categories[i].Status = legacyStatus(s.Categories[i].Status)
	}
	s.Recompute()
	s.SchemaVersion = 1
	return s, nil
}

func legacyStatus(st Status) Status {
	if code, ok := legacyStatuses[st]; ok {
		return code
	}
	if IsValidStatus(st) {
		return st
	}
	return StatusNotStarted
}

// Migrate brings a stored state up to SchemaVersion.
// PRE: s was decoded from storage
// POST: Returns a state at SchemaVersion with CategoryCount categories.
// States that cannot be migrated are replaced by Defaults(now) and
// reported as OutcomeReset together with the reason.
func Migrate(s State, now time.Time) (State, MigrationOutcome, error) {
	if s.SchemaVersion > SchemaVersion || s.SchemaVersion < 0 {
		return Defaults(now), OutcomeReset, fmt.Errorf("%w: %d", ErrUnknownSchema, s.SchemaVersion)
	}

	outcome := OutcomeCurrent
	for s.SchemaVersion < SchemaVersion {
		step, ok := migrations[s.SchemaVersion]
		if !ok {
			return Defaults(now), OutcomeReset, fmt.Errorf("%w: no migration from %d", ErrUnknownSchema, s.SchemaVersion)
		}
		next, err := step(s)
		if err != nil {
			return Defaults(now), OutcomeReset, err
		}
		s = next
		outcome = OutcomeUpgraded
	}

	if len(s.Categories) != CategoryCount {
		return Defaults(now), OutcomeReset, fmt.Errorf("%w: %d categories, want %d", ErrSchemaMismatch, len(s.Categories), CategoryCount)
	}

	s.normalize()
	return s, outcome, nil
}

// normalize fills nil sequences left by older writers, replaces unknown
// category statuses with not_started and refreshes the derived fields.
func (s *State) normalize() {
	for i := range s.Categories {
		if !IsValidStatus(s.Categories[i].Status) {
			s.Categories[i].Status = StatusNotStarted
		}
	}
	s.Recompute()
	if s.Updates == nil {
		s.Updates = []Update{}
	}
	for i := range s.Updates {
		if s.Updates[i].Comments == nil {
			s.Updates[i].Comments = []Comment{}
		}
	}
}
