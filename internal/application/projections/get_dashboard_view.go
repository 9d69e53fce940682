package projections

import (
	"context"
	"time"

	"statusboard/internal/domain/tracker"
)

// Option is one choice of a select control.
type Option struct {
	Value string
	Label string
}

// DashboardView is the admin view: the public view plus the editing controls.
type DashboardView struct {
	StatusView
	StatusOptions []Option
	TypeOptions   []Option
}

// GetDashboardViewDeps holds dependencies for the dashboard projection.
type GetDashboardViewDeps struct {
	StateStore StateStore
	Location   *time.Location // optional: nil means UTC
}

// QueryGetDashboardView loads the state and builds the dashboard view.
// PRE: caller has unlocked the dashboard
func QueryGetDashboardView(ctx context.Context, deps GetDashboardViewDeps) (DashboardView, error) {
	st, err := deps.StateStore.Load(ctx)
	if err != nil {
		return DashboardView{}, err
	}
	return BuildDashboardView(st, deps.Location), nil
}

// BuildDashboardView is the pure mapping from state to dashboard view.
func BuildDashboardView(st tracker.State, loc *time.Location) DashboardView {
	v := DashboardView{
		StatusView:    BuildStatusView(st, loc),
		StatusOptions: make([]Option, len(tracker.ValidStatuses)),
		TypeOptions:   make([]Option, len(tracker.ValidUpdateTypes)),
	}
	for i, s := range tracker.ValidStatuses {
		v.StatusOptions[i] = Option{Value: string(s), Label: s.Label()}
	}
	for i, t := range tracker.ValidUpdateTypes {
		v.TypeOptions[i] = Option{Value: string(t), Label: typeLabels[t]}
	}
	return v
}

var typeLabels = map[tracker.UpdateType]string{
	tracker.TypeInfo:    "Info",
	tracker.TypeSuccess: "Success",
	tracker.TypeWarning: "Warning",
}
