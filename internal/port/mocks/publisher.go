package mocks

import (
	"context"
	"sync"
)

type PublishedEvent struct {
	Key   string
	Event any
}

// Publisher records published events. Err, when set, is returned from Publish.
type Publisher struct {
	mu     sync.Mutex
	events []PublishedEvent
	Err    error
}

func (p *Publisher) Publish(_ context.Context, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.events = append(p.events, PublishedEvent{Key: key, Event: event})
	return nil
}

func (p *Publisher) Events() []PublishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]PublishedEvent(nil), p.events...)
}
