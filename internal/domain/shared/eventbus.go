package shared

import "context"

// EventHandler consumes domain events
type EventHandler interface {
	// Handle processes one delivery of an event
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes lists the event types the handler subscribes to.
	// Empty means every event.
	EventTypes() []string
}

// EventPublisher is the side of the bus the application services depend on
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventSubscriber registers handlers; used at process wiring time
type EventSubscriber interface {
	// Subscribe registers a handler for the given event types, or for all
	// events when none are given
	Subscribe(handler EventHandler, eventTypes ...string)
	// Unsubscribe removes a handler from every subscription
	Unsubscribe(handler EventHandler)
}

// EventBus is the full in-process bus: publish, subscribe, and lifecycle
type EventBus interface {
	EventPublisher
	EventSubscriber
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
