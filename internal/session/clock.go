package session

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrClockExpired is returned by mutations on a clock that already fired.
var ErrClockExpired = errors.New("session clock has expired")

// DeadlineStore persists a clock's deadline between processes.
type DeadlineStore interface {
	Deadline(ctx context.Context, key string) (time.Time, bool, error)
	SetDeadline(ctx context.Context, key string, deadline time.Time) error
}

// DeadlineSource fetches the deadline from the session-of-record.
type DeadlineSource func(ctx context.Context) (time.Time, error)

// SyncRejectedError is returned when a resynchronized deadline is not
// strictly in the future. The previous deadline is kept.
type SyncRejectedError struct {
	Fetched time.Time
	Now     time.Time
}

func (e *SyncRejectedError) Error() string {
	return fmt.Sprintf("deadline %s is not after %s; keeping current deadline",
		e.Fetched.UTC().Format(time.RFC3339), e.Now.UTC().Format(time.RFC3339))
}

type ClockConfig struct {
	// Key names the persisted deadline, see cache.DeadlineKey.
	Key string

	// Duration is the allotted time when no future deadline is persisted.
	Duration time.Duration

	Store DeadlineStore

	// Now defaults to time.Now.
	Now func() time.Time

	// OnExpire runs once, on the tick that observes zero seconds remaining.
	OnExpire func()

	Log *zap.Logger
}

// Clock is a per-participant countdown towards an absolute deadline.
type Clock struct {
	key      string
	store    DeadlineStore
	now      func() time.Time
	onExpire func()
	log      *zap.Logger

	mu      sync.Mutex
	end     time.Time
	expired bool
	done    chan struct{}
}

// NewClock restores the persisted deadline when it lies strictly in the
// future, otherwise starts a fresh one at now+Duration and persists it.
func NewClock(ctx context.Context, cfg ClockConfig) (*Clock, error) {
	if cfg.Store == nil {
		return nil, errors.New("deadline store is required")
	}
	c := &Clock{
		key:      cfg.Key,
		store:    cfg.Store,
		now:      cfg.Now,
		onExpire: cfg.OnExpire,
		log:      cfg.Log,
		done:     make(chan struct{}),
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}

	now := c.now()
	stored, ok, err := c.store.Deadline(ctx, c.key)
	if err != nil {
		return nil, fmt.Errorf("load deadline: %w", err)
	}
	if ok && stored.After(now) {
		c.end = stored
		return c, nil
	}

	c.end = now.Add(cfg.Duration)
	if err := c.store.SetDeadline(ctx, c.key, c.end); err != nil {
		return nil, fmt.Errorf("persist deadline: %w", err)
	}
	return c, nil
}

// Deadline returns the current absolute deadline.
func (c *Clock) Deadline() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.end
}

// SecondsRemaining is max(0, round((deadline-now) / 1s)).
func (c *Clock) SecondsRemaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remainingLocked()
}

func (c *Clock) remainingLocked() int {
	secs := math.Round(c.end.Sub(c.now()).Seconds())
	if secs < 0 {
		return 0
	}
	return int(secs)
}

// Expired reports whether the clock has fired.
func (c *Clock) Expired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expired
}

// Done is closed when the clock fires.
func (c *Clock) Done() <-chan struct{} {
	return c.done
}

// Tick evaluates the clock once and returns the seconds remaining. The tick
// that observes zero fires OnExpire; later ticks do nothing.
func (c *Clock) Tick() int {
	c.mu.Lock()
	if c.expired {
		c.mu.Unlock()
		return 0
	}
	remaining := c.remainingLocked()
	if remaining > 0 {
		c.mu.Unlock()
		return remaining
	}
	c.expired = true
	close(c.done)
	c.mu.Unlock()

	c.log.Info("session clock expired", zap.String("key", c.key))
	if c.onExpire != nil {
		c.onExpire()
	}
	return 0
}

// Run ticks once per second until the clock fires or ctx is done.
func (c *Clock) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	c.Tick()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case <-ticker.C:
			c.Tick()
		}
	}
}

// Extend moves the deadline later by d and persists it.
func (c *Clock) Extend(ctx context.Context, d time.Duration) (time.Time, error) {
	c.mu.Lock()
	if c.expired {
		c.mu.Unlock()
		return time.Time{}, ErrClockExpired
	}
	c.end = c.end.Add(d)
	end := c.end
	c.mu.Unlock()

	if err := c.store.SetDeadline(ctx, c.key, end); err != nil {
		return end, fmt.Errorf("persist deadline: %w", err)
	}
	return end, nil
}

// Resync replaces the deadline with the one fetched from src, provided it
// lies strictly after now.
func (c *Clock) Resync(ctx context.Context, src DeadlineSource) (time.Time, error) {
	if c.Expired() {
		return time.Time{}, ErrClockExpired
	}
	fetched, err := src(ctx)
	if err != nil {
		return c.Deadline(), fmt.Errorf("fetch deadline: %w", err)
	}

	c.mu.Lock()
	now := c.now()
	if !fetched.After(now) {
		current := c.end
		c.mu.Unlock()
		return current, &SyncRejectedError{Fetched: fetched, Now: now}
	}
	c.end = fetched
	c.mu.Unlock()

	if err := c.store.SetDeadline(ctx, c.key, fetched); err != nil {
		return fetched, fmt.Errorf("persist deadline: %w", err)
	}
	return fetched, nil
}
