package api

import "sync"

// EventType is the kind of event a session broadcasts to its WebSocket
// subscribers, adapted from the teacher's VM-state/output/execution split
// onto the IME's own three observable moments.
type EventType string

const (
	// EventTypeComposition fires after every ProcessKey call, composition
	// PUT and reset, carrying the resulting composing buffer whether or not
	// it changed (mirrors the teacher's state-change event).
	EventTypeComposition EventType = "composition"
	// EventTypeAction fires once per ProcessKey call, carrying the full
	// EditAction the host would have applied (mirrors the teacher's
	// execution event: useful for a client replaying a session's history).
	EventTypeAction EventType = "action"
	// EventTypeSession fires on session lifecycle transitions (layout
	// loaded, reset).
	EventTypeSession EventType = "session"
)

// BroadcastEvent is one event sent to WebSocket subscribers.
type BroadcastEvent struct {
	Type      EventType              `json:"type"`
	SessionID string                 `json:"sessionId"`
	Data      map[string]interface{} `json:"data"`
}

// Subscription is a client's filter over the broadcast stream.
type Subscription struct {
	SessionID  string
	EventTypes map[EventType]bool
	Channel    chan BroadcastEvent
}

// Broadcaster fans out session events to any number of WebSocket clients,
// grounded line-for-line on the teacher's api/broadcaster.go: a single
// goroutine owns the subscription set, so register/unregister/broadcast
// never race each other.
type Broadcaster struct {
	mu            sync.RWMutex
	subscriptions map[*Subscription]bool
	broadcast     chan BroadcastEvent
	register      chan *Subscription
	unregister    chan *Subscription
	done          chan struct{}
}

// NewBroadcaster creates and starts a new event broadcaster.
func NewBroadcaster() *Broadcaster {
	b := &Broadcaster{
		subscriptions: make(map[*Subscription]bool),
		broadcast:     make(chan BroadcastEvent, 256),
		register:      make(chan *Subscription),
		unregister:    make(chan *Subscription),
		done:          make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *Broadcaster) run() {
	for {
		select {
		case sub := <-b.register:
			b.mu.Lock()
			b.subscriptions[sub] = true
			b.mu.Unlock()

		case sub := <-b.unregister:
			b.mu.Lock()
			if b.subscriptions[sub] {
				delete(b.subscriptions, sub)
				close(sub.Channel)
			}
			b.mu.Unlock()

		case event := <-b.broadcast:
			b.mu.RLock()
			for sub := range b.subscriptions {
				if sub.SessionID != "" && sub.SessionID != event.SessionID {
					continue
				}
				if len(sub.EventTypes) > 0 && !sub.EventTypes[event.Type] {
					continue
				}
				select {
				case sub.Channel <- event:
				default:
					// slow client: drop rather than block the broadcaster
				}
			}
			b.mu.RUnlock()

		case <-b.done:
			b.mu.Lock()
			for sub := range b.subscriptions {
				close(sub.Channel)
			}
			b.subscriptions = make(map[*Subscription]bool)
			b.mu.Unlock()
			return
		}
	}
}

// Subscribe registers a new subscription (sessionID empty = all sessions,
// eventTypes empty = all types).
func (b *Broadcaster) Subscribe(sessionID string, eventTypes []EventType) *Subscription {
	eventTypeMap := make(map[EventType]bool)
	for _, et := range eventTypes {
		eventTypeMap[et] = true
	}
	sub := &Subscription{
		SessionID:  sessionID,
		EventTypes: eventTypeMap,
		Channel:    make(chan BroadcastEvent, 64),
	}
	b.register <- sub
	return sub
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broadcaster) Unsubscribe(sub *Subscription) {
	b.unregister <- sub
}

// Broadcast sends an event to all matching subscriptions, dropping it if
// the broadcaster's internal queue is saturated.
func (b *Broadcaster) Broadcast(event BroadcastEvent) {
	select {
	case b.broadcast <- event:
	default:
	}
}

// BroadcastComposition sends a composition-changed event.
func (b *Broadcaster) BroadcastComposition(sessionID, composition string) {
	b.Broadcast(BroadcastEvent{
		Type:      EventTypeComposition,
		SessionID: sessionID,
		Data:      map[string]interface{}{"composition": composition},
	})
}

// BroadcastAction sends the full EditAction of one ProcessKey call.
func (b *Broadcaster) BroadcastAction(sessionID string, action EditActionResponse) {
	b.Broadcast(BroadcastEvent{
		Type:      EventTypeAction,
		SessionID: sessionID,
		Data: map[string]interface{}{
			"kind":           action.Kind,
			"text":           action.Text,
			"deleteCount":    action.DeleteCount,
			"composingAfter": action.ComposingAfter,
			"consumed":       action.Consumed,
		},
	})
}

// BroadcastSession sends a lifecycle event ("layout_loaded", "reset").
func (b *Broadcaster) BroadcastSession(sessionID, event string) {
	b.Broadcast(BroadcastEvent{
		Type:      EventTypeSession,
		SessionID: sessionID,
		Data:      map[string]interface{}{"event": event},
	})
}

// Close shuts down the broadcaster and closes all subscriptions.
func (b *Broadcaster) Close() {
	close(b.done)
}

// SubscriptionCount returns the number of active subscriptions.
func (b *Broadcaster) SubscriptionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscriptions)
}
