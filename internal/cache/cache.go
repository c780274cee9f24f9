package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/jjudge-oj/contestjudge/config"
)

// Store persists the per-participant session deadline and solved-set.
type Store interface {
	// Deadline returns the stored deadline; ok is false when none is stored.
	Deadline(ctx context.Context, key string) (deadline time.Time, ok bool, err error)
	SetDeadline(ctx context.Context, key string, deadline time.Time) error
	// Solved returns the stored question ids in ascending order.
	Solved(ctx context.Context, key string) ([]int, error)
	// MarkSolved adds questionID to the set and returns the resulting size.
	MarkSolved(ctx context.Context, key string, questionID int) (int, error)
	Close() error
}

// DeadlineKey names the deadline entry for one participant's contest attempt.
func DeadlineKey(contestID, userID int) string {
	return fmt.Sprintf("contest_end:%d:%d", contestID, userID)
}

// SolvedKey names the solved-set entry for one participant's contest attempt.
func SolvedKey(contestID, userID int) string {
	return fmt.Sprintf("contest_solved:%d:%d", contestID, userID)
}

// New returns a Redis store when an address is configured, otherwise an
// in-process store.
func New(cfg config.RedisConfig) (Store, error) {
	if cfg.Addr == "" {
		return NewMemoryStore(), nil
	}
	return NewRedisStore(cfg)
}
