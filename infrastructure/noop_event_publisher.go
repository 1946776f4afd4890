package infrastructure

import (
	"cardroom/domain/events"
)

// NoopEventPublisher drops every event. Used when no message bus is
// configured.
type NoopEventPublisher struct{}

// NewNoopEventPublisher creates a publisher that discards events
func NewNoopEventPublisher() *NoopEventPublisher {
	return &NoopEventPublisher{}
}

// Publish discards the event
func (p *NoopEventPublisher) Publish(event events.Event) error {
	return nil
}
