package port

import "context"

type EventPublisher interface {
	// Publish sends event keyed by key. Delivery is best effort.
	Publish(ctx context.Context, key string, event any) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }
