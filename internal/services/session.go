package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jjudge-oj/contestjudge/internal/cache"
	"github.com/jjudge-oj/contestjudge/internal/session"
	"github.com/jjudge-oj/contestjudge/internal/store"
	"github.com/jjudge-oj/contestjudge/types"
)

// SessionRepository defines persistence operations for the session-of-record.
type SessionRepository interface {
	Get(ctx context.Context, userID, contestID int) (types.Session, error)
	Start(ctx context.Context, session types.Session) (types.Session, error)
	End(ctx context.Context, userID, contestID int, reason types.EndReason, at time.Time) (bool, error)
	ListRunning(ctx context.Context) ([]types.Session, error)
}

// ContestReader loads contests.
type ContestReader interface {
	Get(ctx context.Context, id int) (types.Contest, error)
}

// SessionView is a participant's attempt as reported to clients.
type SessionView struct {
	types.Session
	Deadline         *time.Time           `json:"deadline,omitempty"`
	SecondsRemaining int                  `json:"seconds_remaining"`
	Solved           []int                `json:"solved"`
	Integrity        session.MonitorState `json:"integrity,omitempty"`
}

type liveKey struct {
	userID    int
	contestID int
}

// live is the in-process half of a running attempt.
type live struct {
	state   *session.State
	clock   *session.Clock
	monitor *session.Monitor
	cancel  context.CancelFunc
}

// SessionService owns running attempts: their clock, integrity monitor and
// solved-set, and the session-of-record they are persisted to.
type SessionService struct {
	repo     SessionRepository
	contests ContestReader
	cache    cache.Store
	now      func() time.Time
	log      *zap.Logger

	runCtx context.Context
	stop   context.CancelFunc

	mu   sync.Mutex
	live map[liveKey]*live
}

func NewSessionService(repo SessionRepository, contests ContestReader, store cache.Store, log *zap.Logger) *SessionService {
	if log == nil {
		log = zap.NewNop()
	}
	runCtx, stop := context.WithCancel(context.Background())
	return &SessionService{
		repo:     repo,
		contests: contests,
		cache:    store,
		now:      time.Now,
		log:      log,
		runCtx:   runCtx,
		stop:     stop,
		live:     make(map[liveKey]*live),
	}
}

// Start begins an attempt, or resumes it when already running. An ended
// attempt is never restarted.
func (s *SessionService) Start(ctx context.Context, userID, contestID int, level types.LevelScope) (SessionView, error) {
	contest, err := s.contests.Get(ctx, contestID)
	if err != nil {
		return SessionView{}, err
	}

	record, err := s.repo.Get(ctx, userID, contestID)
	switch {
	case err == nil && record.Status == types.SessionEnded:
		return SessionView{}, ErrSessionEnded
	case err == nil && record.Status == types.SessionStarted:
		if _, err := s.attach(ctx, record); err != nil {
			return SessionView{}, err
		}
		return s.Get(ctx, userID, contestID)
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return SessionView{}, err
	}

	now := s.now()
	if now.Before(contest.StartAt) {
		return SessionView{}, invalid("contest", "has not opened yet")
	}
	if !contest.EndAt.IsZero() && now.After(contest.EndAt) {
		return SessionView{}, invalid("contest", "is closed")
	}

	record, err = s.repo.Start(ctx, types.Session{
		UserID:       userID,
		ContestID:    contestID,
		StartedAt:    now,
		Duration:     contest.Duration,
		StartedLevel: level,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return SessionView{}, ErrSessionEnded
		}
		return SessionView{}, err
	}
	s.log.Info("session started",
		zap.Int("user_id", userID),
		zap.Int("contest_id", contestID),
		zap.String("level", string(level)),
		zap.Int("duration_minutes", contest.Duration))

	if _, err := s.attach(ctx, record); err != nil {
		return SessionView{}, err
	}
	return s.Get(ctx, userID, contestID)
}

// attach returns the live attempt for a started record, creating it when
// this process has not seen it yet.
func (s *SessionService) attach(ctx context.Context, record types.Session) (*live, error) {
	key := liveKey{userID: record.UserID, contestID: record.ContestID}

	s.mu.Lock()
	if l, ok := s.live[key]; ok {
		s.mu.Unlock()
		return l, nil
	}
	s.mu.Unlock()

	remaining := s.deadlineOf(ctx, record).Sub(s.now())
	if remaining <= 0 {
		if _, err := s.End(ctx, record.UserID, record.ContestID, types.EndTimeout); err != nil {
			return nil, err
		}
		return nil, ErrSessionEnded
	}

	userID, contestID := record.UserID, record.ContestID
	clock, err := session.NewClock(ctx, session.ClockConfig{
		Key:      cache.DeadlineKey(contestID, userID),
		Duration: remaining,
		Store:    s.cache,
		Now:      s.now,
		Log:      s.log,
		OnExpire: func() {
			if _, err := s.End(s.runCtx, userID, contestID, types.EndTimeout); err != nil {
				s.log.Error("failed to end expired session",
					zap.Int("user_id", userID), zap.Int("contest_id", contestID), zap.Error(err))
			}
		},
	})
	if err != nil {
		return nil, err
	}

	solved, err := s.cache.Solved(ctx, cache.SolvedKey(contestID, userID))
	if err != nil {
		return nil, fmt.Errorf("load solved set: %w", err)
	}

	l := &live{
		state: session.NewState(userID, contestID, record.StartedLevel, clock.Deadline(), solved),
		clock: clock,
		monitor: session.NewMonitor(func(ctx context.Context, reason types.EndReason) error {
			_, err := s.End(ctx, userID, contestID, reason)
			return err
		}, s.log.With(zap.Int("user_id", userID), zap.Int("contest_id", contestID))),
	}

	s.mu.Lock()
	if existing, ok := s.live[key]; ok {
		s.mu.Unlock()
		return existing, nil
	}
	var runCtx context.Context
	runCtx, l.cancel = context.WithCancel(s.runCtx)
	s.live[key] = l
	s.mu.Unlock()

	go clock.Run(runCtx)
	return l, nil
}

// Live returns the running attempt's state, restoring it from the record
// after a restart.
func (s *SessionService) Live(ctx context.Context, userID, contestID int) (*session.State, error) {
	l, err := s.lookup(ctx, userID, contestID)
	if err != nil {
		return nil, err
	}
	return l.state, nil
}

func (s *SessionService) lookup(ctx context.Context, userID, contestID int) (*live, error) {
	s.mu.Lock()
	l, ok := s.live[liveKey{userID: userID, contestID: contestID}]
	s.mu.Unlock()
	if ok && l.state.Running() {
		return l, nil
	}

	record, err := s.repo.Get(ctx, userID, contestID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSessionNotRunning
		}
		return nil, err
	}
	if record.Status == types.SessionEnded {
		return nil, ErrSessionEnded
	}
	return s.attach(ctx, record)
}

// End ends the attempt with reason. Ending twice is a no-op; only the first
// call reports true. The record is written before End returns.
func (s *SessionService) End(ctx context.Context, userID, contestID int, reason types.EndReason) (bool, error) {
	key := liveKey{userID: userID, contestID: contestID}
	s.mu.Lock()
	l, ok := s.live[key]
	delete(s.live, key)
	s.mu.Unlock()

	if ok {
		l.state.End(reason)
		l.monitor.Disarm()
		l.cancel()
	}

	ended, err := s.repo.End(ctx, userID, contestID, reason, s.now())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, ErrSessionNotRunning
		}
		return false, err
	}
	if ended {
		s.log.Info("session ended",
			zap.Int("user_id", userID),
			zap.Int("contest_id", contestID),
			zap.String("reason", string(reason)))
	}
	return ended, nil
}

// Get reports the attempt. A participant without a record is not_started.
func (s *SessionService) Get(ctx context.Context, userID, contestID int) (SessionView, error) {
	record, err := s.repo.Get(ctx, userID, contestID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return SessionView{Session: types.Session{
				UserID:    userID,
				ContestID: contestID,
				Status:    types.SessionNotStarted,
			}, Solved: []int{}}, nil
		}
		return SessionView{}, err
	}

	view := SessionView{Session: record, Solved: []int{}}
	if record.Status != types.SessionStarted {
		solved, err := s.cache.Solved(ctx, cache.SolvedKey(contestID, userID))
		if err == nil {
			view.Solved = solved
		}
		return view, nil
	}

	l, err := s.attach(ctx, record)
	if errors.Is(err, ErrSessionEnded) {
		return s.Get(ctx, userID, contestID)
	}
	if err != nil {
		return SessionView{}, err
	}
	deadline := l.clock.Deadline()
	view.Deadline = &deadline
	view.SecondsRemaining = l.clock.SecondsRemaining()
	view.Solved = l.state.Solved()
	view.Integrity = l.monitor.State()
	return view, nil
}

// Deadline is the authoritative deadline: started_at plus duration, or the
// cached deadline when an extension moved it later.
func (s *SessionService) Deadline(ctx context.Context, userID, contestID int) (time.Time, error) {
	record, err := s.repo.Get(ctx, userID, contestID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return time.Time{}, ErrSessionNotRunning
		}
		return time.Time{}, err
	}
	return s.deadlineOf(ctx, record), nil
}

// Extend moves a running attempt's deadline later by d.
func (s *SessionService) Extend(ctx context.Context, userID, contestID int, d time.Duration) (time.Time, error) {
	if d <= 0 {
		return time.Time{}, invalid("minutes", "must be positive")
	}
	l, err := s.lookup(ctx, userID, contestID)
	if err != nil {
		return time.Time{}, err
	}
	deadline, err := l.clock.Extend(ctx, d)
	if errors.Is(err, session.ErrClockExpired) {
		return time.Time{}, ErrSessionEnded
	}
	if err != nil {
		return time.Time{}, err
	}
	l.state.SetDeadline(deadline)
	return deadline, nil
}

// Resync replaces the running clock's deadline with the authoritative one
// when that lies in the future. Otherwise a *session.SyncRejectedError is
// returned and the deadline is kept.
func (s *SessionService) Resync(ctx context.Context, userID, contestID int) (time.Time, error) {
	l, err := s.lookup(ctx, userID, contestID)
	if err != nil {
		return time.Time{}, err
	}
	deadline, err := l.clock.Resync(ctx, func(ctx context.Context) (time.Time, error) {
		return s.Deadline(ctx, userID, contestID)
	})
	if errors.Is(err, session.ErrClockExpired) {
		return time.Time{}, ErrSessionEnded
	}
	if err != nil {
		return deadline, err
	}
	l.state.SetDeadline(deadline)
	return deadline, nil
}

// deadlineOf is the later of the record's deadline and the cached one, so an
// extension outlives the process that granted it.
func (s *SessionService) deadlineOf(ctx context.Context, record types.Session) time.Time {
	deadline := record.Deadline()
	cached, ok, err := s.cache.Deadline(ctx, cache.DeadlineKey(record.ContestID, record.UserID))
	if err != nil {
		s.log.Warn("failed to read cached deadline",
			zap.Int("user_id", record.UserID),
			zap.Int("contest_id", record.ContestID),
			zap.Error(err))
		return deadline
	}
	if ok && cached.After(deadline) {
		return cached
	}
	return deadline
}

// HandleEvent feeds a client event to the attempt's integrity monitor.
func (s *SessionService) HandleEvent(ctx context.Context, userID, contestID int, ev session.EventKind) ([]session.Directive, error) {
	l, err := s.lookup(ctx, userID, contestID)
	if err != nil {
		return nil, err
	}
	return l.monitor.Handle(ctx, ev)
}

// MarkSolved unions questionID into the attempt's solved-set and persists it.
func (s *SessionService) MarkSolved(ctx context.Context, st *session.State, questionID int) error {
	if !st.MarkSolved(questionID) {
		return nil
	}
	_, err := s.cache.MarkSolved(ctx, cache.SolvedKey(st.ContestID(), st.UserID()), questionID)
	return err
}

// Resume attaches every running record so their clocks fire without a
// client asking. Records already past their deadline are ended.
func (s *SessionService) Resume(ctx context.Context) error {
	records, err := s.repo.ListRunning(ctx)
	if err != nil {
		return err
	}
	for _, record := range records {
		if _, err := s.attach(ctx, record); err != nil && !errors.Is(err, ErrSessionEnded) {
			s.log.Warn("failed to resume session",
				zap.Int("user_id", record.UserID),
				zap.Int("contest_id", record.ContestID),
				zap.Error(err))
		}
	}
	s.log.Info("sessions resumed", zap.Int("count", len(records)))
	return nil
}

// Close stops every running clock. Records stay started.
func (s *SessionService) Close() {
	s.stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live = make(map[liveKey]*live)
}
