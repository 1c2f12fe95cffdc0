package events

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeClaimApproved       EventType = "claim_approved"
	EventTypeClaimRejected       EventType = "claim_rejected"
	EventTypeSubscriptionExpired EventType = "subscription_expired"
	EventTypeUserErased          EventType = "user_erased"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// ClaimApprovedEvent fires after a payment claim is approved and the
// entitlement window has been written.
type ClaimApprovedEvent struct {
	ClaimID         int64
	TelegramID      int64
	PlanName        string
	SubscriptionEnd time.Time
}

func (e ClaimApprovedEvent) Type() EventType {
	return EventTypeClaimApproved
}

// ClaimRejectedEvent fires after a payment claim is rejected.
type ClaimRejectedEvent struct {
	ClaimID    int64
	TelegramID int64
	PlanName   string
}

func (e ClaimRejectedEvent) Type() EventType {
	return EventTypeClaimRejected
}

// SubscriptionExpiredEvent fires once per user whose subscription crossed
// its end date during a reconciliation pass.
type SubscriptionExpiredEvent struct {
	TelegramID   int64
	FullName     string
	GroupRemoved bool
}

func (e SubscriptionExpiredEvent) Type() EventType {
	return EventTypeSubscriptionExpired
}

// UserErasedEvent fires after a hard delete cascaded through the store.
type UserErasedEvent struct {
	TelegramID int64
	ErasedBy   int64
}

func (e UserErasedEvent) Type() EventType {
	return EventTypeUserErased
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	// Call handlers asynchronously to avoid blocking
	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// TransactionalBus holds pending events coupled to a unit of work and
// flushes them to the underlying bus only after a successful commit.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Flush is called after a successful DB commit.
func (b *TransactionalBus) Flush(ctx context.Context) {
	// Events outlive the transaction context that produced them.
	eventCtx := context.Background()
	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
}

// Discard is called after rollback to drop stashed events.
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
