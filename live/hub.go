// Copyright (c) 2026 Cineforum Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package live

import (
	"context"
	"log/slog"
)

// Event types pushed to live subscribers.
const (
	EventMessageAppended = "message_appended"
	EventFloorGranted    = "floor_granted"
	EventFloorReleased   = "floor_released"
	EventHandRaised      = "hand_raised"
	EventPhaseChanged    = "phase_changed"
	EventSlotResolved    = "slot_resolved"
)

// Event is a session-scoped notification fanned out to every live
// subscriber of that session.
type Event struct {
	Type      string      `json:"type"`
	SessionID string      `json:"session_id"`
	Payload   interface{} `json:"payload,omitempty"`
}

// Hub fans session events out to websocket subscribers. All membership
// state is owned by the single Run goroutine; the channels are the only
// way in. Buffers absorb bursts, and a full events channel drops the
// event rather than blocking a request handler: the feed is advisory,
// the database is the source of truth.
type Hub struct {
	register   chan *client
	unregister chan *client
	events     chan Event

	sessions map[string]map[*client]struct{}
}

// NewHub creates a hub. Call Run before Serve or Publish.
func NewHub() *Hub {
	return &Hub{
		register:   make(chan *client, 16),
		unregister: make(chan *client, 16),
		events:     make(chan Event, 256),
		sessions:   make(map[string]map[*client]struct{}),
	}
}

// Run owns the subscriber map until ctx is cancelled. On shutdown every
// subscriber's send channel is closed, which ends its write pump.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for _, subs := range h.sessions {
				for c := range subs {
					close(c.send)
				}
			}
			h.sessions = make(map[string]map[*client]struct{})
			return

		case c := <-h.register:
			subs, ok := h.sessions[c.sessionID]
			if !ok {
				subs = make(map[*client]struct{})
				h.sessions[c.sessionID] = subs
			}
			subs[c] = struct{}{}
			slog.Debug("Live subscriber joined", "client_id", c.id, "session_id", c.sessionID)

		case c := <-h.unregister:
			if subs, ok := h.sessions[c.sessionID]; ok {
				if _, present := subs[c]; present {
					delete(subs, c)
					close(c.send)
				}
				if len(subs) == 0 {
					delete(h.sessions, c.sessionID)
				}
			}

		case ev := <-h.events:
			for c := range h.sessions[ev.SessionID] {
				select {
				case c.send <- ev:
				default:
					// Slow subscriber: drop it rather than stall the hub.
					delete(h.sessions[ev.SessionID], c)
					close(c.send)
				}
			}
		}
	}
}

// Publish queues an event for fan-out. Safe on a nil hub and never
// blocks; under backpressure the event is dropped.
func (h *Hub) Publish(ev Event) {
	if h == nil {
		return
	}
	select {
	case h.events <- ev:
	default:
		slog.Warn("Live event dropped", "type", ev.Type, "session_id", ev.SessionID)
	}
}
