package session

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/jjudge-oj/contestjudge/types"
)

// EventKind is a client-side occurrence reported during a live attempt.
type EventKind string

const (
	EventVisibilityHidden EventKind = "visibility_hidden"
	EventWindowBlur       EventKind = "window_blur"
	EventContextMenu      EventKind = "context_menu"
	EventUnload           EventKind = "unload"
)

// ParseEventKind validates a reported event name.
func ParseEventKind(raw string) (EventKind, bool) {
	switch k := EventKind(raw); k {
	case EventVisibilityHidden, EventWindowBlur, EventContextMenu, EventUnload:
		return k, true
	}
	return "", false
}

// DirectiveKind is an instruction the UI must apply.
type DirectiveKind string

const (
	DirectiveLockEditor     DirectiveKind = "lock_editor"
	DirectiveNotice         DirectiveKind = "notice"
	DirectiveNavigate       DirectiveKind = "navigate"
	DirectivePreventDefault DirectiveKind = "prevent_default"
)

type Directive struct {
	Kind        DirectiveKind `json:"kind"`
	Message     string        `json:"message,omitempty"`
	Target      string        `json:"target,omitempty"`
	Dismissable bool          `json:"dismissable"`
}

// MonitorState is watching until the first violation, then violated forever.
type MonitorState string

const (
	MonitorWatching MonitorState = "watching"
	MonitorViolated MonitorState = "violated"
)

const (
	violationNotice = "You left the contest window. Your attempt has been ended and your work so far is recorded."
	exitTarget      = "/dashboard"
)

// Lockout ends the attempt durably before returning.
type Lockout func(ctx context.Context, reason types.EndReason) error

// Monitor turns focus-loss events into a one-way lockout.
type Monitor struct {
	lockout Lockout
	log     *zap.Logger

	mu    sync.Mutex
	state MonitorState
}

func NewMonitor(lockout Lockout, log *zap.Logger) *Monitor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Monitor{lockout: lockout, log: log, state: MonitorWatching}
}

func (m *Monitor) State() MonitorState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Disarm stops monitoring without a violation, used when the attempt ended
// for another reason.
func (m *Monitor) Disarm() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = MonitorViolated
}

// Handle applies ev and returns the directives for the UI. Events arriving
// after the first violation produce no directives and no lockout.
func (m *Monitor) Handle(ctx context.Context, ev EventKind) ([]Directive, error) {
	switch ev {
	case EventContextMenu:
		if m.State() != MonitorWatching {
			return nil, nil
		}
		return []Directive{{Kind: DirectivePreventDefault}}, nil

	case EventVisibilityHidden, EventWindowBlur:
		if !m.trip() {
			return nil, nil
		}
		m.log.Warn("integrity violation", zap.String("event", string(ev)))
		directives := []Directive{
			{Kind: DirectiveLockEditor},
			{Kind: DirectiveNotice, Message: violationNotice},
			{Kind: DirectiveNavigate, Target: exitTarget},
		}
		if err := m.lock(ctx, types.EndIntegrity); err != nil {
			return directives, err
		}
		return directives, nil

	case EventUnload:
		if !m.trip() {
			return nil, nil
		}
		return nil, m.lock(ctx, types.EndUnload)
	}
	return nil, fmt.Errorf("unknown integrity event %q", ev)
}

func (m *Monitor) trip() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != MonitorWatching {
		return false
	}
	m.state = MonitorViolated
	return true
}

func (m *Monitor) lock(ctx context.Context, reason types.EndReason) error {
	if m.lockout == nil {
		return nil
	}
	if err := m.lockout(ctx, reason); err != nil {
		m.log.Error("lockout failed", zap.String("reason", string(reason)), zap.Error(err))
		return fmt.Errorf("lockout: %w", err)
	}
	return nil
}
