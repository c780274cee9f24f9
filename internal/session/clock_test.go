package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jjudge-oj/contestjudge/internal/cache"
)

type manualTime struct {
	mu  sync.Mutex
	now time.Time
}

func newManualTime() *manualTime {
	return &manualTime{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (m *manualTime) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *manualTime) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

func TestNewClockStartsFreshDeadline(t *testing.T) {
	store := cache.NewMemoryStore()
	clk, err := NewClock(context.Background(), ClockConfig{Key: "k", Duration: time.Minute, Store: store})
	require.NoError(t, err)

	secs := clk.SecondsRemaining()
	assert.Greater(t, secs, 55)
	assert.LessOrEqual(t, secs, 60)

	persisted, ok, err := store.Deadline(context.Background(), "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, persisted.Equal(clk.Deadline()))
}

func TestNewClockRestoresFutureDeadlineOnly(t *testing.T) {
	ctx := context.Background()
	tm := newManualTime()
	store := cache.NewMemoryStore()

	require.NoError(t, store.SetDeadline(ctx, "k", tm.Now().Add(10*time.Minute)))
	clk, err := NewClock(ctx, ClockConfig{Key: "k", Duration: time.Hour, Store: store, Now: tm.Now})
	require.NoError(t, err)
	assert.Equal(t, 600, clk.SecondsRemaining())

	require.NoError(t, store.SetDeadline(ctx, "k", tm.Now()))
	clk, err = NewClock(ctx, ClockConfig{Key: "k", Duration: time.Hour, Store: store, Now: tm.Now})
	require.NoError(t, err)
	assert.Equal(t, 3600, clk.SecondsRemaining())
}

func TestSecondsRemainingRounds(t *testing.T) {
	tm := newManualTime()
	clk, err := NewClock(context.Background(), ClockConfig{Key: "k", Duration: 10 * time.Second, Store: cache.NewMemoryStore(), Now: tm.Now})
	require.NoError(t, err)

	tm.Advance(1400 * time.Millisecond)
	assert.Equal(t, 9, clk.SecondsRemaining())
	tm.Advance(200 * time.Millisecond)
	assert.Equal(t, 8, clk.SecondsRemaining())
	tm.Advance(time.Minute)
	assert.Equal(t, 0, clk.SecondsRemaining())
}

func TestTickFiresExactlyOnce(t *testing.T) {
	tm := newManualTime()
	var fired atomic.Int32
	clk, err := NewClock(context.Background(), ClockConfig{
		Key: "k", Duration: 2 * time.Second, Store: cache.NewMemoryStore(), Now: tm.Now,
		OnExpire: func() { fired.Add(1) },
	})
	require.NoError(t, err)

	assert.Equal(t, 2, clk.Tick())
	assert.False(t, clk.Expired())

	tm.Advance(3 * time.Second)
	assert.Equal(t, 0, clk.Tick())
	assert.Equal(t, 0, clk.Tick())
	assert.True(t, clk.Expired())
	assert.Equal(t, int32(1), fired.Load())

	select {
	case <-clk.Done():
	default:
		t.Fatal("done channel not closed")
	}
}

func TestRunStopsAfterExpiry(t *testing.T) {
	var fired atomic.Int32
	clk, err := NewClock(context.Background(), ClockConfig{
		Key: "k", Duration: 1200 * time.Millisecond, Store: cache.NewMemoryStore(),
		OnExpire: func() { fired.Add(1) },
	})
	require.NoError(t, err)

	finished := make(chan struct{})
	go func() {
		clk.Run(context.Background())
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("clock did not expire")
	}
	assert.Equal(t, int32(1), fired.Load())
}

func TestExtendPersists(t *testing.T) {
	ctx := context.Background()
	tm := newManualTime()
	store := cache.NewMemoryStore()
	clk, err := NewClock(ctx, ClockConfig{Key: "k", Duration: time.Minute, Store: store, Now: tm.Now})
	require.NoError(t, err)

	end, err := clk.Extend(ctx, 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 360, clk.SecondsRemaining())

	persisted, _, _ := store.Deadline(ctx, "k")
	assert.True(t, persisted.Equal(end))

	tm.Advance(time.Hour)
	clk.Tick()
	_, err = clk.Extend(ctx, time.Minute)
	assert.ErrorIs(t, err, ErrClockExpired)
}

func TestResync(t *testing.T) {
	ctx := context.Background()
	tm := newManualTime()
	clk, err := NewClock(ctx, ClockConfig{Key: "k", Duration: time.Minute, Store: cache.NewMemoryStore(), Now: tm.Now})
	require.NoError(t, err)
	before := clk.Deadline()

	_, err = clk.Resync(ctx, func(context.Context) (time.Time, error) { return tm.Now(), nil })
	var rejected *SyncRejectedError
	require.True(t, errors.As(err, &rejected))
	assert.True(t, before.Equal(clk.Deadline()))

	_, err = clk.Resync(ctx, func(context.Context) (time.Time, error) { return time.Time{}, errors.New("offline") })
	assert.Error(t, err)
	assert.True(t, before.Equal(clk.Deadline()))

	want := tm.Now().Add(30 * time.Second)
	got, err := clk.Resync(ctx, func(context.Context) (time.Time, error) { return want, nil })
	require.NoError(t, err)
	assert.True(t, want.Equal(got))
	assert.Equal(t, 30, clk.SecondsRemaining())
}

func TestNewClockRequiresStore(t *testing.T) {
	_, err := NewClock(context.Background(), ClockConfig{Duration: time.Minute})
	assert.Error(t, err)
}
