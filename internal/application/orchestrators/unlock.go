package orchestrators

import (
	"context"
	"log/slog"

	"statusboard/internal/domain/gate"
)

// PassphraseChecker verifies the shared dashboard passphrase.
type PassphraseChecker interface {
	Check(passphrase string) error
}

// SessionCreator persists the authenticated flag for a new browser.
type SessionCreator interface {
	Create(ctx context.Context) (string, error)
}

// UnlockDashboardInput carries input for the unlock orchestrator.
type UnlockDashboardInput struct {
	Passphrase string
}

// UnlockDashboardDeps holds dependencies for UnlockDashboard.
type UnlockDashboardDeps struct {
	Gate     PassphraseChecker
	Sessions SessionCreator
}

// UnlockDashboardResult is the outcome of a successful unlock.
type UnlockDashboardResult struct {
	Token  string
	Screen gate.Screen
}

// ExecuteUnlockDashboard checks the passphrase and persists the authenticated flag.
// PRE: none
// POST: on success the flag is persisted and Screen is gate.ScreenLoggedIn;
// on gate.ErrWrongPassphrase nothing is persisted
func ExecuteUnlockDashboard(ctx context.Context, input UnlockDashboardInput, deps UnlockDashboardDeps) (UnlockDashboardResult, error) {
	if err := deps.Gate.Check(input.Passphrase); err != nil {
		slog.Warn("auth_event", "event", "unlock_failed")
		return UnlockDashboardResult{Screen: gate.ScreenLoggedOut}, err
	}

	token, err := deps.Sessions.Create(ctx)
	if err != nil {
		return UnlockDashboardResult{Screen: gate.ScreenLoggedOut}, err
	}

	slog.Info("auth_event", "event", "dashboard_unlocked")
	return UnlockDashboardResult{Token: token, Screen: gate.ScreenLoggedIn}, nil
}
