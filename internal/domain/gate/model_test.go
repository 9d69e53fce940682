package gate_test

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"statusboard/internal/domain/gate"
)

// TestGate_Check tests passphrase comparison.
func TestGate_Check(t *testing.T) {
	g, err := gate.NewWithCost("correct horse", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"correct", "correct horse", nil},
		{"wrong", "battery staple", gate.ErrWrongPassphrase},
		{"empty", "", gate.ErrWrongPassphrase},
		{"case sensitive", "Correct Horse", gate.ErrWrongPassphrase},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.Check(tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Check(%q) = %v, want %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

// TestNew_EmptyPassphrase tests that a blank passphrase is refused.
func TestNew_EmptyPassphrase(t *testing.T) {
	if _, err := gate.NewWithCost("  ", bcrypt.MinCost); !errors.Is(err, gate.ErrEmptyPassphrase) {
		t.Errorf("expected ErrEmptyPassphrase, got %v", err)
	}
}

// TestFromHash tests building a gate from a stored hash.
func TestFromHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	g, err := gate.FromHash(string(hash))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := g.Check("s3cret"); err != nil {
		t.Errorf("expected match, got %v", err)
	}
	if _, err := gate.FromHash("not-a-hash"); err == nil {
		t.Error("expected error for invalid hash")
	}
}

// TestScreenFor tests the screen state derived from the persisted flag.
func TestScreenFor(t *testing.T) {
	if gate.ScreenFor("true") != gate.ScreenLoggedIn {
		t.Error("expected logged in for \"true\"")
	}
	for _, v := range []string{"", "false", "TRUE", "1"} {
		if gate.ScreenFor(v) != gate.ScreenLoggedOut {
			t.Errorf("expected logged out for %q", v)
		}
	}
}
