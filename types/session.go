package types

import "time"

// SessionStatus is the lifecycle state of a participant's contest attempt.
type SessionStatus string

// Session states. A session moves forward only: not_started, started, ended.
const (
	SessionNotStarted SessionStatus = "not_started"
	SessionStarted    SessionStatus = "started"
	SessionEnded      SessionStatus = "ended"
)

// EndReason records why a session ended.
type EndReason string

// Reasons a session can end.
const (
	EndTimeout   EndReason = "timeout"
	EndIntegrity EndReason = "integrity"
	EndCompleted EndReason = "completed"
	EndUnload    EndReason = "unload"
)

// Session is the session-of-record for one participant in one contest.
// Writes are merges where the last write wins.
type Session struct {
	// UserID and ContestID together identify the record.
	UserID    int `json:"user_id" db:"user_id"`
	ContestID int `json:"contest_id" db:"contest_id"`

	// Status is the current lifecycle state.
	Status SessionStatus `json:"status" db:"status"`

	// StartedAt is when the participant started the contest.
	StartedAt time.Time `json:"started_at" db:"started_at"`

	// EndedAt is set once the session has ended.
	EndedAt *time.Time `json:"ended_at,omitempty" db:"ended_at"`

	// Duration is the allotted time in minutes, copied from the contest.
	Duration int `json:"duration" db:"duration"`

	// StartedLevel restricts the attempt to one division, if set.
	StartedLevel LevelScope `json:"started_level,omitempty" db:"started_level"`

	// EndReason explains why the session ended.
	EndReason EndReason `json:"end_reason,omitempty" db:"end_reason"`
}

// Deadline is the absolute time the session runs out according to the record.
func (s Session) Deadline() time.Time {
	return s.StartedAt.Add(time.Duration(s.Duration) * time.Minute)
}
