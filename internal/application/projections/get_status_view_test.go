package projections

import (
	"context"
	"errors"
	"testing"
	"time"

	"statusboard/internal/domain/tracker"
)

var fixedTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type mockStateStore struct {
	state tracker.State
	err   error
}

func (m *mockStateStore) Load(context.Context) (tracker.State, error) {
	return m.state, m.err
}

func sampleState(t *testing.T) tracker.State {
	t.Helper()
	st := tracker.Defaults(fixedTime)
	if err := st.SetCategoryProgress(0, 100, fixedTime); err != nil {
		t.Fatalf("SetCategoryProgress: %v", err)
	}
	if err := st.SetCategoryStatus(0, tracker.StatusComplete, fixedTime); err != nil {
		t.Fatalf("SetCategoryStatus: %v", err)
	}
	older, err := st.AddUpdate("Kick-off", "We **started**", tracker.TypeInfo, fixedTime)
	if err != nil {
		t.Fatalf("AddUpdate: %v", err)
	}
	if _, err := st.AddUpdate("Blocked on API keys", "", tracker.TypeWarning, fixedTime.Add(time.Minute)); err != nil {
		t.Fatalf("AddUpdate: %v", err)
	}
	if _, _, err := st.AddComment(older.ID, "Great", "", fixedTime.Add(2*time.Minute)); err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	return st
}

// TestBuildStatusView maps the headline figures, categories, and feed.
func TestBuildStatusView(t *testing.T) {
	v := BuildStatusView(sampleState(t), nil)

	if v.OverallProgress != 17 {
		t.Errorf("expected overall=17, got %d", v.OverallProgress)
	}
	if v.StatusClass != "status-in-progress" || v.StatusLabel != "In progress" {
		t.Errorf("unexpected badge %q/%q", v.StatusClass, v.StatusLabel)
	}
	if v.LastUpdated != "Mar 1, 2026, 12:01" {
		t.Errorf("unexpected lastUpdated %q", v.LastUpdated)
	}
	if len(v.Categories) != tracker.CategoryCount {
		t.Fatalf("expected %d categories, got %d", tracker.CategoryCount, len(v.Categories))
	}
	if c := v.Categories[0]; c.Index != 0 || c.StatusClass != "status-complete" || c.Progress != 100 {
		t.Errorf("unexpected first category %+v", c)
	}
	if !v.HasUpdates || len(v.Updates) != 2 {
		t.Fatalf("expected 2 updates, got %d", len(v.Updates))
	}
	if v.Updates[0].Title != "Blocked on API keys" || v.Updates[0].TypeClass != "update-warning" {
		t.Errorf("expected newest warning first, got %+v", v.Updates[0])
	}
	if v.Updates[0].CommentCount != 0 {
		t.Errorf("expected 0 comments, got %d", v.Updates[0].CommentCount)
	}
	if v.Updates[1].CommentCount != 1 || v.Updates[1].Comments[0].Author != tracker.AnonymousAuthor {
		t.Errorf("unexpected thread %+v", v.Updates[1].Comments)
	}
}

// TestBuildStatusView_Empty shows the empty-state flag for a fresh state.
func TestBuildStatusView_Empty(t *testing.T) {
	v := BuildStatusView(tracker.Defaults(fixedTime), time.UTC)
	if v.HasUpdates {
		t.Error("expected HasUpdates=false")
	}
	if v.StatusClass != "status-not-started" {
		t.Errorf("expected status-not-started, got %s", v.StatusClass)
	}
}

// TestBuildStatusView_Location formats times in the given zone.
func TestBuildStatusView_Location(t *testing.T) {
	loc := time.FixedZone("NZDT", 13*60*60)
	v := BuildStatusView(tracker.Defaults(fixedTime), loc)
	if v.LastUpdated != "Mar 2, 2026, 01:00" {
		t.Errorf("unexpected lastUpdated %q", v.LastUpdated)
	}
}

// TestStatusClass covers every status plus an unknown value.
func TestStatusClass(t *testing.T) {
	tests := []struct {
		status tracker.Status
		want   string
	}{
		{tracker.StatusNotStarted, "status-not-started"},
		{tracker.StatusInProgress, "status-in-progress"},
		{tracker.StatusComplete, "status-complete"},
		{tracker.Status("bogus"), "status-not-started"},
	}
	for _, tt := range tests {
		if got := StatusClass(tt.status); got != tt.want {
			t.Errorf("StatusClass(%q) = %q, want %q", tt.status, got, tt.want)
		}
	}
}

// TestQueryGetStatusView_Error surfaces load failures.
func TestQueryGetStatusView_Error(t *testing.T) {
	_, err := QueryGetStatusView(context.Background(), GetStatusViewDeps{
		StateStore: &mockStateStore{err: errors.New("boom")},
	})
	if err == nil {
		t.Error("expected error")
	}
}

// TestQueryGetDashboardView includes the editing options.
func TestQueryGetDashboardView(t *testing.T) {
	v, err := QueryGetDashboardView(context.Background(), GetDashboardViewDeps{
		StateStore: &mockStateStore{state: sampleState(t)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(v.StatusOptions) != 3 || v.StatusOptions[0].Value != "not_started" {
		t.Errorf("unexpected status options %+v", v.StatusOptions)
	}
	if len(v.TypeOptions) != 3 || v.TypeOptions[0].Value != "info" {
		t.Errorf("unexpected type options %+v", v.TypeOptions)
	}
	if len(v.Updates) != 2 {
		t.Errorf("expected embedded status view, got %d updates", len(v.Updates))
	}
}
