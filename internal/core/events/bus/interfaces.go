package bus

// EventBus is an in-process pub/sub bus for simulation events.
//
// - Handlers subscribe by Event.Type() within a topic. Every run gets its own
//   topic, declared with CreateTopic and dropped with DeleteTopic.
// - Delivery is synchronous in the publisher's goroutine.
// - Handler errors are joined and returned from PublishBatch.
// - Metrics are only collected while at least one observer is registered.
//
// All methods are safe for concurrent use.
type EventBus interface {
	// CreateTopic declares a topic. Repeat declarations are idempotent.
	CreateTopic(name string) error
	// DeleteTopic drops a topic and cancels all of its subscriptions.
	DeleteTopic(name string) error
	SubscribeTopic(topic, eventType string, handler EventHandler) (Subscription, error)
	// PublishBatch publishes events to topic in order and joins the errors.
	PublishBatch(topic string, events ...Event) error

	AddObserver(obs EventBusObserver)
	// GetMetrics returns a snapshot of the counters.
	GetMetrics() EventBusMetrics
}

// Event is an immutable message transported by the EventBus.
//
// Source identifies the publisher (a run ID for simulation events) and Frame
// the simulation frame it belongs to.
type Event interface {
	Type() string
	Source() string
	Frame() uint64
	Data() any
}

// EventHandler is invoked per delivered event.
type EventHandler func(event Event) error

// Subscription is a registered handler bound to an event type.
type Subscription interface {
	ID() string
	EventType() string
	IsActive() bool
	// Cancel de-registers the handler. Multiple calls are safe.
	Cancel() error
}

// EventBusObserver is notified about deliveries. Observers should return quickly.
type EventBusObserver interface {
	OnDelivered(topic, eventType string, handlers int, err error, durationMicros int64)
}

type EventBusMetrics struct {
	Published         uint64
	DeliveredHandlers uint64
	Errors            uint64
	SubscribersActive uint64
	Topics            uint64
}
