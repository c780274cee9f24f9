package session

import (
	"sort"
	"sync"
	"time"

	"github.com/jjudge-oj/contestjudge/types"
)

// State is the single owner of one live attempt's mutable data: status,
// deadline and solved-set. All methods are safe for concurrent use.
type State struct {
	mu        sync.Mutex
	userID    int
	contestID int
	level     types.LevelScope
	status    types.SessionStatus
	reason    types.EndReason
	deadline  time.Time
	solved    map[int]struct{}
}

// NewState returns a running state seeded with a previously cached solved-set.
func NewState(userID, contestID int, level types.LevelScope, deadline time.Time, solved []int) *State {
	s := &State{
		userID:    userID,
		contestID: contestID,
		level:     level,
		status:    types.SessionStarted,
		deadline:  deadline,
		solved:    make(map[int]struct{}, len(solved)),
	}
	for _, id := range solved {
		s.solved[id] = struct{}{}
	}
	return s
}

func (s *State) UserID() int { return s.userID }
func (s *State) ContestID() int { return s.contestID }
func (s *State) Level() types.LevelScope { return s.level }

func (s *State) Status() types.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Running reports whether judged results may still be acted upon.
func (s *State) Running() bool {
	return s.Status() == types.SessionStarted
}

func (s *State) EndReason() types.EndReason {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

func (s *State) Deadline() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deadline
}

func (s *State) SetDeadline(deadline time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deadline = deadline
}

// MarkSolved unions questionID into the solved-set. It is a no-op once the
// attempt has ended and reports whether the set changed.
func (s *State) MarkSolved(questionID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != types.SessionStarted {
		return false
	}
	if _, ok := s.solved[questionID]; ok {
		return false
	}
	s.solved[questionID] = struct{}{}
	return true
}

// Solved returns the solved question ids in ascending order.
func (s *State) Solved() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int, 0, len(s.solved))
	for id := range s.solved {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Covers reports whether every id in questionIDs is solved. An empty
// question set is never covered.
func (s *State) Covers(questionIDs []int) bool {
	if len(questionIDs) == 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range questionIDs {
		if _, ok := s.solved[id]; !ok {
			return false
		}
	}
	return true
}

// End moves the attempt to ended. Only the first call wins; it reports
// whether this call performed the transition.
func (s *State) End(reason types.EndReason) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == types.SessionEnded {
		return false
	}
	s.status = types.SessionEnded
	s.reason = reason
	return true
}
