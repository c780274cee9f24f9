package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/jjudge-oj/contestjudge/types"
)

// Channels carrying judging events.
const (
	ChannelSubmissionJudged = "submission.judged"
	ChannelContestCompleted = "contest.completed"
)

// SubmissionJudged is published after a submission record is written.
type SubmissionJudged struct {
	SubmissionID int                    `json:"submission_id"`
	ContestID    int                    `json:"contest_id"`
	QuestionID   int                    `json:"question_id"`
	UserID       int                    `json:"user_id"`
	Language     string                 `json:"language"`
	Status       types.SubmissionStatus `json:"status"`
	PassedCount  int                    `json:"passed_count"`
	Total        int                    `json:"total"`
	SubmittedAt  time.Time              `json:"submitted_at"`
}

// ContestCompleted is published when a participant solves every question in
// their scope and the attempt is ended.
type ContestCompleted struct {
	ContestID int              `json:"contest_id"`
	UserID    int              `json:"user_id"`
	Level     types.LevelScope `json:"level,omitempty"`
	Solved    []int            `json:"solved_question_ids"`
	EndedAt   time.Time        `json:"ended_at"`
}

// Events publishes typed judging events as JSON.
type Events struct {
	mq *MQ
}

func NewEvents(m *MQ) *Events {
	return &Events{mq: m}
}

func (e *Events) SubmissionJudged(ctx context.Context, ev SubmissionJudged) error {
	return e.publish(ctx, ChannelSubmissionJudged, ev.UserID, ev)
}

func (e *Events) ContestCompleted(ctx context.Context, ev ContestCompleted) error {
	return e.publish(ctx, ChannelContestCompleted, ev.UserID, ev)
}

func (e *Events) publish(ctx context.Context, channel string, userID int, payload any) error {
	if e == nil || e.mq == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", channel, err)
	}
	attrs := map[string]string{
		"event":         channel,
		orderingKeyAttr: "user-" + strconv.Itoa(userID),
	}
	if _, err := e.mq.Publish(ctx, channel, data, attrs); err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	return nil
}
