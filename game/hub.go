package game

import (
	"sync"
	"time"
)

// Event names published by the engine. state-update is synthetic: it is only
// ever the first frame of a new subscription.
const (
	EventPlayerJoined = "player-joined"
	EventPlayerLeft   = "player-left"
	EventGameStarted  = "game-started"
	EventDiceRolled   = "dice-rolled"
	EventTurnEnded    = "turn-ended"
	EventGameEnded    = "game-ended"
	EventStateUpdate  = "state-update"
)

// Event is one state-change notification fanned out to a room's subscribers.
type Event struct {
	Type      string `json:"type"`
	Payload   any    `json:"data"`
	Timestamp int64  `json:"timestamp"`
}

// Event payloads. Each carries a full room snapshot.
type roomPayload struct {
	Room RoomSnapshot `json:"room"`
}

type playerJoinedPayload struct {
	Player Player       `json:"player"`
	Room   RoomSnapshot `json:"room"`
}

type playerLeftPayload struct {
	PlayerID string       `json:"playerId"`
	Room     RoomSnapshot `json:"room"`
}

type diceRolledPayload struct {
	Room   RoomSnapshot `json:"room"`
	Busted bool         `json:"busted"`
	Rolled []Die        `json:"rolled"`
}

type gameEndedPayload struct {
	Room   RoomSnapshot `json:"room"`
	Winner Player       `json:"winner"`
}

// subscriberBuffer is the per-subscriber event backlog. A subscriber that
// falls further behind than this starts losing events rather than blocking
// the publisher; the next full snapshot resynchronizes it.
const subscriberBuffer = 32

// Hub fans a room's events out to its subscribers. Delivery is non-blocking:
// publishing never waits on a slow or dead consumer.
type Hub struct {
	mu     sync.Mutex
	subs   map[chan Event]struct{}
	closed bool
}

func newHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a new consumer and returns its channel plus an
// unsubscribe function. The channel is closed on unsubscribe or room
// teardown. Subscribing to a closed hub yields an already-closed channel.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			h.mu.Lock()
			if _, ok := h.subs[ch]; ok {
				delete(h.subs, ch)
				close(ch)
			}
			h.mu.Unlock()
		})
	}
	return ch, unsubscribe
}

// publish delivers the event to every current subscriber, dropping it for
// any whose buffer is full.
func (h *Hub) publish(eventType string, payload any) {
	ev := Event{
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// close tears the hub down, closing every subscriber channel so live streams
// terminate. Further publishes and subscribes are no-ops.
func (h *Hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subs {
		close(ch)
	}
	h.subs = nil
}
