package orchestrators

import (
	"context"
	"log/slog"
	"time"

	"statusboard/internal/domain/tracker"
)

// StateStoreForOrchestrator defines the store interface needed by tracker orchestrators.
type StateStoreForOrchestrator interface {
	Update(ctx context.Context, fn func(*tracker.State) error) (tracker.State, error)
}

// Announcer is notified after an update is published.
type Announcer interface {
	Announce(ctx context.Context, u tracker.Update) error
}

// --- Set Category Progress ---

// SetCategoryProgressInput carries input for the set progress orchestrator.
type SetCategoryProgressInput struct {
	Index    int
	Progress int
}

// SetCategoryProgressDeps holds dependencies for SetCategoryProgress.
type SetCategoryProgressDeps struct {
	StateStore StateStoreForOrchestrator
	Now        func() time.Time
}

// ExecuteSetCategoryProgress sets one category's progress and recomputes the overall figures.
// PRE: 0 <= Index < tracker.CategoryCount
// POST: progress clamped to [0,100], overall progress and status recomputed, state saved
func ExecuteSetCategoryProgress(ctx context.Context, input SetCategoryProgressInput, deps SetCategoryProgressDeps) (tracker.State, error) {
	now := tracker.StampTime(deps.Now())
	st, err := deps.StateStore.Update(ctx, func(s *tracker.State) error {
		return s.SetCategoryProgress(input.Index, input.Progress, now)
	})
	if err != nil {
		return tracker.State{}, err
	}

	slog.Info("tracker_event", "event", "progress_set", "category", st.Categories[input.Index].Name, "progress", st.Categories[input.Index].Progress, "overall", st.OverallProgress)
	return st, nil
}

// --- Set Category Status ---

// SetCategoryStatusInput carries input for the set status orchestrator.
type SetCategoryStatusInput struct {
	Index  int
	Status tracker.Status
}

// SetCategoryStatusDeps holds dependencies for SetCategoryStatus.
type SetCategoryStatusDeps struct {
	StateStore StateStoreForOrchestrator
	Now        func() time.Time
}

// ExecuteSetCategoryStatus sets one category's status label.
// PRE: 0 <= Index < tracker.CategoryCount; Status is valid
// POST: status set, overall progress untouched, state saved
func ExecuteSetCategoryStatus(ctx context.Context, input SetCategoryStatusInput, deps SetCategoryStatusDeps) (tracker.State, error) {
	now := tracker.StampTime(deps.Now())
	st, err := deps.StateStore.Update(ctx, func(s *tracker.State) error {
		return s.SetCategoryStatus(input.Index, input.Status, now)
	})
	if err != nil {
		return tracker.State{}, err
	}

	slog.Info("tracker_event", "event", "status_set", "category", st.Categories[input.Index].Name, "status", string(input.Status))
	return st, nil
}

// --- Add Update ---

// AddUpdateInput carries input for the add update orchestrator.
type AddUpdateInput struct {
	Title       string
	Description string
	Type        tracker.UpdateType
}

// AddUpdateDeps holds dependencies for AddUpdate.
type AddUpdateDeps struct {
	StateStore StateStoreForOrchestrator
	Announcer  Announcer // optional
	Now        func() time.Time
}

// ExecuteAddUpdate publishes a new update at the top of the list.
// PRE: Title is non-blank
// POST: update prepended with an empty comment list, state saved.
// Announcement failures are logged and do not fail the call.
func ExecuteAddUpdate(ctx context.Context, input AddUpdateInput, deps AddUpdateDeps) (tracker.Update, error) {
	now := tracker.StampTime(deps.Now())
	var added tracker.Update
	_, err := deps.StateStore.Update(ctx, func(s *tracker.State) error {
		u, err := s.AddUpdate(input.Title, input.Description, input.Type, now)
		if err != nil {
			return err
		}
		added = u
		return nil
	})
	if err != nil {
		return tracker.Update{}, err
	}

	slog.Info("tracker_event", "event", "update_added", "update_id", added.ID, "type", string(added.Type))

	if deps.Announcer != nil {
		if err := deps.Announcer.Announce(ctx, added); err != nil {
			slog.Error("announce_error", "update_id", added.ID, "error", err)
		}
	}
	return added, nil
}

// --- Delete Update ---

// DeleteUpdateInput carries input for the delete update orchestrator.
type DeleteUpdateInput struct {
	UpdateID int64
}

// DeleteUpdateDeps holds dependencies for DeleteUpdate.
type DeleteUpdateDeps struct {
	StateStore StateStoreForOrchestrator
}

// ExecuteDeleteUpdate removes an update and its comments.
// POST: no update with UpdateID remains; deleting a missing id is a no-op.
// Returns whether anything was removed.
func ExecuteDeleteUpdate(ctx context.Context, input DeleteUpdateInput, deps DeleteUpdateDeps) (bool, error) {
	var removed bool
	_, err := deps.StateStore.Update(ctx, func(s *tracker.State) error {
		removed = s.DeleteUpdate(input.UpdateID)
		return nil
	})
	if err != nil {
		return false, err
	}

	if removed {
		slog.Info("tracker_event", "event", "update_deleted", "update_id", input.UpdateID)
	}
	return removed, nil
}

// --- Add Comment ---

// AddCommentInput carries input for the add comment orchestrator.
type AddCommentInput struct {
	UpdateID int64
	Text     string
	Author   string
}

// AddCommentDeps holds dependencies for AddComment.
type AddCommentDeps struct {
	StateStore StateStoreForOrchestrator
	Now        func() time.Time
}

// ExecuteAddComment appends a comment to an update's thread.
// PRE: Text is non-blank
// POST: comment appended; tracker.ErrUpdateNotFound and no state change when the update is missing
func ExecuteAddComment(ctx context.Context, input AddCommentInput, deps AddCommentDeps) (tracker.Comment, error) {
	now := tracker.StampTime(deps.Now())
	var added tracker.Comment
	_, err := deps.StateStore.Update(ctx, func(s *tracker.State) error {
		c, found, err := s.AddComment(input.UpdateID, input.Text, input.Author, now)
		if err != nil {
			return err
		}
		if !found {
			return tracker.ErrUpdateNotFound
		}
		added = c
		return nil
	})
	if err != nil {
		return tracker.Comment{}, err
	}

	slog.Info("tracker_event", "event", "comment_added", "update_id", input.UpdateID, "comment_id", added.ID, "author", added.Author)
	return added, nil
}
