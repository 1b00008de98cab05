package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventSignalDetected EventType = "SIGNAL_DETECTED"
	EventRegimeRejected EventType = "REGIME_REJECTED"
	EventPositionOpened EventType = "POSITION_OPENED"
	EventPositionClosed EventType = "POSITION_CLOSED"
	EventRiskBlocked    EventType = "RISK_BLOCKED"
	EventTradingPaused  EventType = "TRADING_PAUSED"
	EventBankrollUpdate EventType = "BANKROLL_UPDATE"
	EventBotStarted     EventType = "BOT_STARTED"
	EventBotStopped     EventType = "BOT_STOPPED"
	EventError          EventType = "ERROR"
)

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// Subscriber is a function that handles events
type Subscriber func(Event)

// EventBus manages event publishing and subscriptions
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]Subscriber
	allSubs     []Subscriber // Subscribers to all events
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[EventType][]Subscriber),
		allSubs:     make([]Subscriber, 0),
	}
}

// Subscribe registers a subscriber for a specific event type
func (eb *EventBus) Subscribe(eventType EventType, subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.subscribers[eventType] = append(eb.subscribers[eventType], subscriber)
}

// SubscribeAll registers a subscriber for all events
func (eb *EventBus) SubscribeAll(subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.allSubs = append(eb.allSubs, subscriber)
}

// Publish sends an event to all subscribers
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	// Set timestamp if not provided
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	// Notify specific subscribers
	if subs, ok := eb.subscribers[event.Type]; ok {
		for _, sub := range subs {
			go sub(event) // Run in goroutine to avoid blocking
		}
	}

	// Notify all-event subscribers
	for _, sub := range eb.allSubs {
		go sub(event)
	}
}

// LogSubscriber returns a subscriber that writes every event to the given
// logger at debug level, tracing the full event stream.
func LogSubscriber(logger zerolog.Logger) Subscriber {
	return func(e Event) {
		logger.Debug().
			Str("event", string(e.Type)).
			Time("at", e.Timestamp).
			Fields(e.Data).
			Msg("event")
	}
}

// PublishSignalDetected publishes a fade signal detection event
func (eb *EventBus) PublishSignalDetected(slug, outcome string, score int, edge float64) {
	eb.Publish(Event{
		Type: EventSignalDetected,
		Data: map[string]interface{}{
			"market":        slug,
			"outcome":       outcome,
			"score":         score,
			"expected_edge": edge,
		},
	})
}

// PublishRegimeRejected publishes a regime filter rejection
func (eb *EventBus) PublishRegimeRejected(slug, reason string, score float64) {
	eb.Publish(Event{
		Type: EventRegimeRejected,
		Data: map[string]interface{}{
			"market": slug,
			"reason": reason,
			"score":  score,
		},
	})
}

// PublishPositionOpened publishes a position open event
func (eb *EventBus) PublishPositionOpened(slug, outcome, side string, entryPrice, size float64) {
	eb.Publish(Event{
		Type: EventPositionOpened,
		Data: map[string]interface{}{
			"market":      slug,
			"outcome":     outcome,
			"side":        side,
			"entry_price": entryPrice,
			"size":        size,
		},
	})
}

// PublishPositionClosed publishes a position close event
func (eb *EventBus) PublishPositionClosed(slug, outcome, reason string, exitPrice, pnl float64) {
	eb.Publish(Event{
		Type: EventPositionClosed,
		Data: map[string]interface{}{
			"market":     slug,
			"outcome":    outcome,
			"reason":     reason,
			"exit_price": exitPrice,
			"pnl":        pnl,
		},
	})
}

// PublishRiskBlocked publishes a risk manager veto
func (eb *EventBus) PublishRiskBlocked(slug, reason string) {
	eb.Publish(Event{
		Type: EventRiskBlocked,
		Data: map[string]interface{}{
			"market": slug,
			"reason": reason,
		},
	})
}

// PublishTradingPaused publishes a circuit breaker trip
func (eb *EventBus) PublishTradingPaused(reason string) {
	eb.Publish(Event{
		Type: EventTradingPaused,
		Data: map[string]interface{}{
			"reason": reason,
		},
	})
}

// PublishBankrollUpdate publishes the current bankroll after a close
func (eb *EventBus) PublishBankrollUpdate(bankroll, todayPnl float64) {
	eb.Publish(Event{
		Type: EventBankrollUpdate,
		Data: map[string]interface{}{
			"bankroll":  bankroll,
			"today_pnl": todayPnl,
		},
	})
}

// PublishError publishes an error event
func (eb *EventBus) PublishError(source, message string, err error) {
	data := map[string]interface{}{
		"source":  source,
		"message": message,
	}
	if err != nil {
		data["error"] = err.Error()
	}
	eb.Publish(Event{
		Type: EventError,
		Data: data,
	})
}
