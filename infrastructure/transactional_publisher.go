package infrastructure

import (
	"context"
	"sync"

	"cardroom/domain/events"
	"cardroom/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// TransactionalPublisher buffers events published during a database
// transaction. Flush delivers them to the underlying publisher after commit;
// Discard drops them on rollback. Consumers therefore never observe events
// for state that was rolled back.
type TransactionalPublisher struct {
	base    interfaces.EventPublisher
	mu      sync.Mutex
	pending []events.Event
}

// NewTransactionalPublisher creates a publisher buffering on top of base
func NewTransactionalPublisher(base interfaces.EventPublisher) *TransactionalPublisher {
	return &TransactionalPublisher{base: base}
}

// Publish buffers the event until the transaction resolves
func (p *TransactionalPublisher) Publish(event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = append(p.pending, event)
	return nil
}

// Flush delivers all buffered events. Delivery failures are logged, not
// returned: the transaction already committed and must not appear failed.
func (p *TransactionalPublisher) Flush(ctx context.Context) error {
	p.mu.Lock()
	pending := p.pending
	p.pending = nil
	p.mu.Unlock()

	for _, event := range pending {
		if err := p.base.Publish(event); err != nil {
			log.WithFields(log.Fields{
				"eventType": event.Type(),
				"error":     err,
			}).Error("Failed to deliver buffered event")
		}
	}
	return nil
}

// Discard drops all buffered events
func (p *TransactionalPublisher) Discard() {
	p.mu.Lock()
	p.pending = nil
	p.mu.Unlock()
}
