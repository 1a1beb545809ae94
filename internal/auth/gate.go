// Package auth tracks whether the backend holds valid portal
// credentials and gates collection runs on that fact.
package auth

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// State is the gate's view of the backend's credential store.
type State string

const (
	StateUnknown  State = "unknown"
	StateChecking State = "checking"
	StatePresent  State = "present"
	StateAbsent   State = "absent"
)

// Prober answers the credential probe.
type Prober interface {
	CredentialStatus(ctx context.Context) (hasCredentials bool, username string, err error)
}

// ProberFunc adapts a function to the Prober interface.
type ProberFunc func(ctx context.Context) (bool, string, error)

func (f ProberFunc) CredentialStatus(ctx context.Context) (bool, string, error) {
	return f(ctx)
}

// Gate is a small state machine: Unknown -> Checking -> Present/Absent.
// Only its own probe and an explicit MarkUpdated signal move it; nothing
// else may flip the credential flag.
type Gate struct {
	mu       sync.Mutex
	state    State
	username string
	prober   Prober
	logger   *zap.Logger
}

// NewGate creates a gate in StateUnknown.
func NewGate(prober Prober, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{state: StateUnknown, prober: prober, logger: logger}
}

// State returns the current gate state.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Username returns the backend-reported username, if any.
func (g *Gate) Username() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.username
}

// Require reports whether privileged operations may proceed. Callers
// seeing false must route the operator through the login flow instead.
func (g *Gate) Require() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state == StatePresent
}

// Refresh runs the credential probe and settles the gate into Present
// or Absent. A probe failure leaves the gate in StateUnknown so a later
// Refresh can retry; the error is returned for surfacing.
func (g *Gate) Refresh(ctx context.Context) (State, error) {
	g.mu.Lock()
	if g.state == StateChecking {
		s := g.state
		g.mu.Unlock()
		return s, nil
	}
	g.state = StateChecking
	g.mu.Unlock()

	has, username, err := g.prober.CredentialStatus(ctx)

	g.mu.Lock()
	defer g.mu.Unlock()
	if err != nil {
		g.state = StateUnknown
		g.username = ""
		return g.state, fmt.Errorf("credential probe failed: %w", err)
	}
	if has {
		g.state = StatePresent
		g.username = username
	} else {
		g.state = StateAbsent
		g.username = ""
	}
	g.logger.Info("credential gate settled",
		zap.String("state", string(g.state)),
		zap.String("username", g.username))
	return g.state, nil
}

// MarkUpdated is the external login collaborator's success signal. The
// gate drops back to Unknown; the caller follows up with Refresh so the
// probe, not the caller, decides the new state.
func (g *Gate) MarkUpdated() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = StateUnknown
	g.username = ""
	g.logger.Info("credentials updated, gate reset")
}
