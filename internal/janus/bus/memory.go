package bus

import (
	"context"
	"sync"
)

// MemoryPublisher collects messages in memory. Used in tests and when no
// Redis URL is configured.
type MemoryPublisher struct {
	mu       sync.Mutex
	messages map[string][]Message
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{messages: make(map[string][]Message)}
}

func (p *MemoryPublisher) Publish(_ context.Context, channel string, msg Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages[channel] = append(p.messages[channel], msg)
	return nil
}

func (p *MemoryPublisher) Close() error { return nil }

// Messages returns a copy of everything published to channel.
func (p *MemoryPublisher) Messages(channel string) []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Message, len(p.messages[channel]))
	copy(out, p.messages[channel])
	return out
}
