package tracker_test

import (
	"errors"
	"testing"

	"statusboard/internal/domain/tracker"
)

// TestMigrate tests schema detection and upgrade of stored states.
func TestMigrate(t *testing.T) {
	legacy := func(n int) tracker.State {
		s := tracker.Defaults(fixedTime)
		s.SchemaVersion = 0
		s.Categories = s.Categories[:0]
		for i := 0; i < n; i++ {
			s.Categories = append(s.Categories, tracker.Category{Name: "c", Progress: 50, Status: tracker.StatusInProgress})
		}
		s.Updates = nil
		return s
	}

	tests := []struct {
		name        string
		in          tracker.State
		wantOutcome tracker.MigrationOutcome
		wantErr     error
	}{
		{"current version", tracker.Defaults(fixedTime), tracker.OutcomeCurrent, nil},
		{"legacy with six categories", legacy(6), tracker.OutcomeUpgraded, nil},
		{"legacy four categories", legacy(4), tracker.OutcomeReset, tracker.ErrSchemaMismatch},
		{"future version", tracker.State{SchemaVersion: 99}, tracker.OutcomeReset, tracker.ErrUnknownSchema},
		{"current version wrong count", func() tracker.State {
			s := tracker.Defaults(fixedTime)
			s.Categories = s.Categories[:5]
			return s
		}(), tracker.OutcomeReset, tracker.ErrSchemaMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, outcome, err := tracker.Migrate(tt.in, fixedTime)
			if outcome != tt.wantOutcome {
				t.Errorf("outcome = %s, want %s", outcome, tt.wantOutcome)
			}
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if got.SchemaVersion != tracker.SchemaVersion {
				t.Errorf("expected schema version %d, got %d", tracker.SchemaVersion, got.SchemaVersion)
			}
			if len(got.Categories) != tracker.CategoryCount {
				t.Errorf("expected %d categories, got %d", tracker.CategoryCount, len(got.Categories))
			}
			if got.Updates == nil {
				t.Errorf("expected non-nil updates after migration")
			}
		})
	}
}

// TestMigrate_PreservesLegacyData tests that a compatible legacy record is kept verbatim.
func TestMigrate_PreservesLegacyData(t *testing.T) {
	s := tracker.Defaults(fixedTime)
	s.SchemaVersion = 0
	_ = s.SetCategoryProgress(3, 60, fixedTime)
	u, _ := s.AddUpdate("Kept", "", tracker.TypeWarning, fixedTime)
	s.Updates[0].Comments = nil

	got, outcome, err := tracker.Migrate(s, fixedTime)
	if err != nil || outcome != tracker.OutcomeUpgraded {
		t.Fatalf("expected upgrade, got %s %v", outcome, err)
	}
	if got.Categories[3].Progress != 60 {
		t.Errorf("expected progress preserved, got %d", got.Categories[3].Progress)
	}
	if len(got.Updates) != 1 || got.Updates[0].ID != u.ID {
		t.Fatalf("expected update preserved, got %+v", got.Updates)
	}
	if got.Updates[0].Comments == nil {
		t.Errorf("expected nil comments normalized to empty")
	}
}

// TestMigrate_LegacyStatusLabels tests that status labels written by
// unversioned records are mapped to status codes.
func TestMigrate_LegacyStatusLabels(t *testing.T) {
	s := tracker.Defaults(fixedTime)
	s.SchemaVersion = 0
	for i := range s.Categories {
		s.Categories[i].Progress = 50
		s.Categories[i].Status = "جاري العمل"
	}
	s.Categories[0].Status = "مكتمل"
	s.Categories[1].Status = "لم يبدأ"
	s.Categories[2].Status = "قيد المراجعة"
	s.CurrentStatus = "جاري العمل"
	s.OverallProgress = 0

	got, outcome, err := tracker.Migrate(s, fixedTime)
	if err != nil || outcome != tracker.OutcomeUpgraded {
		t.Fatalf("expected upgrade, got %s %v", outcome, err)
	}

	want := []tracker.Status{
		tracker.StatusComplete,
		tracker.StatusNotStarted,
		tracker.StatusNotStarted,
		tracker.StatusInProgress,
		tracker.StatusInProgress,
		tracker.StatusInProgress,
	}
	for i, c := range got.Categories {
		if c.Status != want[i] {
			t.Errorf("category %d: status = %q, want %q", i, c.Status, want[i])
		}
	}
	if got.OverallProgress != 50 {
		t.Errorf("expected overall 50, got %d", got.OverallProgress)
	}
	if got.CurrentStatus != tracker.StatusInProgress {
		t.Errorf("expected current status in_progress, got %q", got.CurrentStatus)
	}
	if got.CurrentStatus.Label() != "In progress" {
		t.Errorf("expected label In progress, got %q", got.CurrentStatus.Label())
	}
}

// TestMigrate_CurrentVersionRepairsDerivedFields tests that stale derived
// fields and unknown statuses in a current record are corrected on load.
func TestMigrate_CurrentVersionRepairsDerivedFields(t *testing.T) {
	s := tracker.Defaults(fixedTime)
	s.Categories[0].Progress = 100
	s.Categories[1].Status = "bogus"
	s.CurrentStatus = tracker.StatusComplete

	got, _, err := tracker.Migrate(s, fixedTime)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Categories[1].Status != tracker.StatusNotStarted {
		t.Errorf("expected unknown status replaced, got %q", got.Categories[1].Status)
	}
	if got.OverallProgress != 17 || got.CurrentStatus != tracker.StatusInProgress {
		t.Errorf("expected 17%% in_progress, got %d%% %q", got.OverallProgress, got.CurrentStatus)
	}
}
