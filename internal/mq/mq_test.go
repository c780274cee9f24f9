package mq

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jjudge-oj/contestjudge/config"
	"github.com/jjudge-oj/contestjudge/types"
)

func TestEventsPublishJSON(t *testing.T) {
	backend := NewMemoryBackend()
	events := NewEvents(New(backend))
	ctx := context.Background()

	require.NoError(t, events.SubmissionJudged(ctx, SubmissionJudged{
		SubmissionID: 3, ContestID: 1, QuestionID: 2, UserID: 9,
		Language: "python", Status: types.SubmissionCorrect, PassedCount: 2, Total: 2,
	}))

	published := backend.Published(ChannelSubmissionJudged)
	require.Len(t, published, 1)
	assert.Equal(t, "user-9", published[0].Attributes[orderingKeyAttr])
	assert.NotEmpty(t, published[0].ID)

	var decoded SubmissionJudged
	require.NoError(t, json.Unmarshal(published[0].Data, &decoded))
	assert.Equal(t, 3, decoded.SubmissionID)
	assert.Equal(t, types.SubmissionCorrect, decoded.Status)
	assert.Empty(t, backend.Published(ChannelContestCompleted))
}

func TestNilEventsIsNoop(t *testing.T) {
	var events *Events
	assert.NoError(t, events.ContestCompleted(context.Background(), ContestCompleted{}))
}

func TestMemoryKeepsPublishOrder(t *testing.T) {
	backend := NewMemoryBackend()
	m := New(backend)
	ctx := context.Background()

	for _, data := range []string{"one", "two"} {
		_, err := m.Publish(ctx, "ch", []byte(data), nil)
		require.NoError(t, err)
	}

	published := backend.Published("ch")
	require.Len(t, published, 2)
	assert.Equal(t, "one", string(published[0].Data))
	assert.Equal(t, "two", string(published[1].Data))
	assert.NotEqual(t, published[0].ID, published[1].ID)
	assert.Empty(t, backend.Published("other"))
}

func TestMemoryPublishAfterClose(t *testing.T) {
	backend := NewMemoryBackend()
	require.NoError(t, backend.Close())
	_, err := backend.Publish(context.Background(), "ch", nil, nil)
	assert.Error(t, err)
}

func TestOpenSelectsBackend(t *testing.T) {
	m, err := Open(context.Background(), config.MQConfig{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryBackend{}, m.backend)

	_, err = Open(context.Background(), config.MQConfig{Backend: "kafka"})
	assert.Error(t, err)

	_, err = Open(context.Background(), config.MQConfig{Backend: "rabbitmq"})
	assert.Error(t, err)
}
