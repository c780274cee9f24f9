package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jjudge-oj/contestjudge/types"
)

type lockRecorder struct {
	reasons []types.EndReason
	err     error
}

func (l *lockRecorder) lock(_ context.Context, reason types.EndReason) error {
	l.reasons = append(l.reasons, reason)
	return l.err
}

func TestHiddenViolatesOnce(t *testing.T) {
	rec := &lockRecorder{}
	m := NewMonitor(rec.lock, nil)
	ctx := context.Background()

	directives, err := m.Handle(ctx, EventVisibilityHidden)
	require.NoError(t, err)
	require.Len(t, directives, 3)
	assert.Equal(t, DirectiveLockEditor, directives[0].Kind)
	assert.Equal(t, DirectiveNotice, directives[1].Kind)
	assert.False(t, directives[1].Dismissable)
	assert.Equal(t, Directive{Kind: DirectiveNavigate, Target: "/dashboard"}, directives[2])
	assert.Equal(t, MonitorViolated, m.State())

	directives, err = m.Handle(ctx, EventVisibilityHidden)
	require.NoError(t, err)
	assert.Empty(t, directives)
	directives, err = m.Handle(ctx, EventWindowBlur)
	require.NoError(t, err)
	assert.Empty(t, directives)

	assert.Equal(t, []types.EndReason{types.EndIntegrity}, rec.reasons)
}

func TestContextMenuIsPreventedWithoutTransition(t *testing.T) {
	rec := &lockRecorder{}
	m := NewMonitor(rec.lock, nil)

	directives, err := m.Handle(context.Background(), EventContextMenu)
	require.NoError(t, err)
	assert.Equal(t, []Directive{{Kind: DirectivePreventDefault}}, directives)
	assert.Equal(t, MonitorWatching, m.State())
	assert.Empty(t, rec.reasons)
}

func TestUnloadLocksSynchronously(t *testing.T) {
	rec := &lockRecorder{}
	m := NewMonitor(rec.lock, nil)

	directives, err := m.Handle(context.Background(), EventUnload)
	require.NoError(t, err)
	assert.Empty(t, directives)
	assert.Equal(t, []types.EndReason{types.EndUnload}, rec.reasons)

	_, err = m.Handle(context.Background(), EventVisibilityHidden)
	require.NoError(t, err)
	assert.Len(t, rec.reasons, 1)
}

func TestLockoutFailureStillViolates(t *testing.T) {
	rec := &lockRecorder{err: errors.New("db down")}
	m := NewMonitor(rec.lock, nil)

	directives, err := m.Handle(context.Background(), EventWindowBlur)
	assert.Error(t, err)
	assert.Len(t, directives, 3)
	assert.Equal(t, MonitorViolated, m.State())
}

func TestDisarmSilencesMonitor(t *testing.T) {
	rec := &lockRecorder{}
	m := NewMonitor(rec.lock, nil)
	m.Disarm()

	directives, err := m.Handle(context.Background(), EventVisibilityHidden)
	require.NoError(t, err)
	assert.Empty(t, directives)
	assert.Empty(t, rec.reasons)
}

func TestUnknownEvent(t *testing.T) {
	m := NewMonitor(nil, nil)
	_, err := m.Handle(context.Background(), EventKind("resize"))
	assert.Error(t, err)

	_, ok := ParseEventKind("resize")
	assert.False(t, ok)
	kind, ok := ParseEventKind("window_blur")
	assert.True(t, ok)
	assert.Equal(t, EventWindowBlur, kind)
}
