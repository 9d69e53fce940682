// Package gate holds the shared-passphrase check that unlocks the dashboard.
//
// This is a single shared secret, not an account system: there are no
// users, no lockout and no session expiry.
package gate

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// FlagValue is the literal value persisted for an unlocked dashboard.
const FlagValue = "true"

// DefaultPassphrase is used when no passphrase is configured.
const DefaultPassphrase = "admin123"

// hashCost is the bcrypt cost for passphrases hashed at startup.
const hashCost = 12

// Screen is the dashboard screen state.
type Screen string

// Screens
const (
	ScreenLoggedOut Screen = "logged_out"
	ScreenLoggedIn  Screen = "logged_in"
)

// Domain errors
var (
	ErrEmptyPassphrase = errors.New("passphrase cannot be empty")
	ErrWrongPassphrase = errors.New("incorrect passphrase")
)

// Gate compares submitted passphrases against one stored bcrypt hash.
type Gate struct {
	hash []byte
}

// New hashes passphrase and returns a Gate for it.
// PRE: passphrase is non-blank
// POST: Returns a Gate whose Check accepts only passphrase
func New(passphrase string) (*Gate, error) {
	return NewWithCost(passphrase, hashCost)
}

// NewWithCost is New with an explicit bcrypt cost. Tests use bcrypt.MinCost.
func NewWithCost(passphrase string, cost int) (*Gate, error) {
	if strings.TrimSpace(passphrase) == "" {
		return nil, ErrEmptyPassphrase
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(passphrase), cost)
	if err != nil {
		return nil, err
	}
	return &Gate{hash: hash}, nil
}

// FromHash builds a Gate from an existing bcrypt hash.
// PRE: hash is a bcrypt hash
func FromHash(hash string) (*Gate, error) {
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, err
	}
	return &Gate{hash: []byte(hash)}, nil
}

// Check verifies a submitted passphrase.
// INVARIANT: Gate is not mutated
func (g *Gate) Check(passphrase string) error {
	if passphrase == "" {
		return ErrWrongPassphrase
	}
	if err := bcrypt.CompareHashAndPassword(g.hash, []byte(passphrase)); err != nil {
		return ErrWrongPassphrase
	}
	return nil
}

// ScreenFor returns the screen shown for a persisted flag value.
func ScreenFor(flag string) Screen {
	if flag == FlagValue {
		return ScreenLoggedIn
	}
	return ScreenLoggedOut
}
