package mq

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// MemoryBackend keeps published messages in process. It is the default when
// no broker is configured.
type MemoryBackend struct {
	mu      sync.Mutex
	closed  bool
	history map[string][]Message
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{history: make(map[string][]Message)}
}

func (b *MemoryBackend) Publish(_ context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return "", errors.New("mq backend closed")
	}
	msg := Message{ID: uuid.NewString(), Data: data, Attributes: attrs}
	b.history[channel] = append(b.history[channel], msg)
	return msg.ID, nil
}

// Published returns every message published to channel so far.
func (b *MemoryBackend) Published(channel string) []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Message(nil), b.history[channel]...)
}

func (b *MemoryBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}
