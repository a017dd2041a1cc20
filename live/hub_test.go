// Copyright (c) 2026 Cineforum Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package live

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestHubFanOut(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(w, r, "s1")
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to dial websocket: %v", err)
	}
	defer conn.Close()

	// Give the register message time to land before publishing.
	time.Sleep(50 * time.Millisecond)

	hub.Publish(Event{Type: EventPhaseChanged, SessionID: "s1", Payload: map[string]string{"phase": "viewing"}})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("Failed to read event: %v", err)
	}
	if ev.Type != EventPhaseChanged || ev.SessionID != "s1" {
		t.Errorf("Unexpected event: %+v", ev)
	}
}

func TestHubScopesEventsToSession(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(w, r, r.URL.Query().Get("session"))
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?session=s2", nil)
	if err != nil {
		t.Fatalf("Failed to dial websocket: %v", err)
	}
	defer conn.Close()

	time.Sleep(50 * time.Millisecond)

	// An event for another session must not reach this subscriber.
	hub.Publish(Event{Type: EventHandRaised, SessionID: "s1"})
	hub.Publish(Event{Type: EventSlotResolved, SessionID: "s2"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("Failed to read event: %v", err)
	}
	if ev.Type != EventSlotResolved {
		t.Errorf("Expected only the s2 event, got %+v", ev)
	}
}

func TestPublishOnNilHub(t *testing.T) {
	var hub *Hub
	// Must not panic.
	hub.Publish(Event{Type: EventMessageAppended, SessionID: "s1"})
}
