package projections

import (
	"context"
	"strings"
	"time"

	"statusboard/internal/domain/tracker"
)

// TimestampLayout formats timestamps shown to viewers.
const TimestampLayout = "Jan 2, 2006, 15:04"

// StateStore defines the store interface needed by the view projections.
type StateStore interface {
	Load(ctx context.Context) (tracker.State, error)
}

// CategoryView is one tile of the category grid.
type CategoryView struct {
	Index       int
	Name        string
	Progress    int
	Status      tracker.Status
	StatusLabel string
	StatusClass string
}

// CommentView is one entry of an update's thread.
type CommentView struct {
	Author    string
	Text      string
	Timestamp string
}

// UpdateView is one card of the update feed.
type UpdateView struct {
	ID           int64
	Title        string
	Description  string // Markdown, rendered by the template
	Type         tracker.UpdateType
	TypeClass    string
	Timestamp    string
	CommentCount int
	Comments     []CommentView
}

// StatusView is the read-only public view of the state.
type StatusView struct {
	OverallProgress int
	StatusLabel     string
	StatusClass     string
	LastUpdated     string
	Categories      []CategoryView
	Updates         []UpdateView
	HasUpdates      bool
}

// GetStatusViewDeps holds dependencies for the status view projection.
type GetStatusViewDeps struct {
	StateStore StateStore
	Location   *time.Location // optional: nil means UTC
}

// QueryGetStatusView loads the state and builds the public view.
// POST: view reflects the stored state; nothing is written
func QueryGetStatusView(ctx context.Context, deps GetStatusViewDeps) (StatusView, error) {
	st, err := deps.StateStore.Load(ctx)
	if err != nil {
		return StatusView{}, err
	}
	return BuildStatusView(st, deps.Location), nil
}

// BuildStatusView is the pure mapping from state to view.
// INVARIANT: Updates keep stored order (newest first), comments keep insertion order
func BuildStatusView(st tracker.State, loc *time.Location) StatusView {
	if loc == nil {
		loc = time.UTC
	}
	v := StatusView{
		OverallProgress: st.OverallProgress,
		StatusLabel:     st.CurrentStatus.Label(),
		StatusClass:     StatusClass(st.CurrentStatus),
		LastUpdated:     formatTime(st.LastUpdated, loc),
		Categories:      make([]CategoryView, len(st.Categories)),
		Updates:         make([]UpdateView, len(st.Updates)),
		HasUpdates:      len(st.Updates) > 0,
	}
	for i, c := range st.Categories {
		v.Categories[i] = CategoryView{
			Index:       i,
			Name:        c.Name,
			Progress:    c.Progress,
			Status:      c.Status,
			StatusLabel: c.Status.Label(),
			StatusClass: StatusClass(c.Status),
		}
	}
	for i, u := range st.Updates {
		uv := UpdateView{
			ID:           u.ID,
			Title:        u.Title,
			Description:  u.Description,
			Type:         u.Type,
			TypeClass:    "update-" + string(u.Type),
			Timestamp:    formatTime(u.Timestamp, loc),
			CommentCount: len(u.Comments),
			Comments:     make([]CommentView, len(u.Comments)),
		}
		for j, c := range u.Comments {
			uv.Comments[j] = CommentView{
				Author:    c.Author,
				Text:      c.Text,
				Timestamp: formatTime(c.Timestamp, loc),
			}
		}
		v.Updates[i] = uv
	}
	return v
}

// StatusClass maps a status to its badge CSS class, e.g. "status-in-progress".
func StatusClass(s tracker.Status) string {
	if !tracker.IsValidStatus(s) {
		s = tracker.StatusNotStarted
	}
	return "status-" + strings.ReplaceAll(string(s), "_", "-")
}

func formatTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "never"
	}
	return t.In(loc).Format(TimestampLayout)
}
