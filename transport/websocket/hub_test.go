package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wricardo/mcp-training/minesweeper/game/engine"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-hub.done
	})
	return hub
}

// waitForClients polls until the session has n clients
func waitForClients(t *testing.T, hub *Hub, sessionID string, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount(sessionID) == n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Expected %d clients in session %s, got %d", n, sessionID, hub.ClientCount(sessionID))
}

func testBoard(t *testing.T) *engine.BoardView {
	t.Helper()
	eng, err := engine.NewGameEngine(3, 3, 1, engine.WithPlacer(engine.FixedPlacer{{Row: 0, Col: 0}}))
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	if _, err := eng.Reveal(0, 1); err != nil {
		t.Fatalf("Failed to reveal: %v", err)
	}
	return eng.View()
}

func TestHubRegisterClient(t *testing.T) {
	hub := NewHub(nil)

	client := &Client{
		hub:       hub,
		sessionID: "test-session",
		send:      make(chan []byte, 256),
	}

	hub.registerClient(client)

	if !hub.sessions["test-session"][client] {
		t.Error("Client was not registered in session")
	}
	if len(hub.sessions["test-session"]) != 1 {
		t.Errorf("Expected 1 client in session, got %d", len(hub.sessions["test-session"]))
	}
}

func TestHubUnregisterClient(t *testing.T) {
	hub := NewHub(nil)
	sessionID := "multi-client-session"

	client1 := &Client{hub: hub, sessionID: sessionID, send: make(chan []byte, 256)}
	client2 := &Client{hub: hub, sessionID: sessionID, send: make(chan []byte, 256)}

	hub.registerClient(client1)
	hub.registerClient(client2)
	hub.unregisterClient(client1)

	if len(hub.sessions[sessionID]) != 1 || !hub.sessions[sessionID][client2] {
		t.Error("Expected only client2 to remain")
	}
	if _, ok := <-client1.send; ok {
		t.Error("Expected client1 send channel to be closed")
	}

	// Unregistering twice is harmless
	hub.unregisterClient(client1)

	hub.unregisterClient(client2)
	if _, exists := hub.sessions[sessionID]; exists {
		t.Error("Session should have been cleaned up after last client unregistered")
	}
}

func TestHubBroadcastBoard(t *testing.T) {
	hub := NewHub(nil)
	sessionID := "broadcast-test"

	client := &Client{hub: hub, sessionID: sessionID, send: make(chan []byte, 256)}
	other := &Client{hub: hub, sessionID: "other", send: make(chan []byte, 256)}
	hub.registerClient(client)
	hub.registerClient(other)

	hub.BroadcastBoard(sessionID, testBoard(t), &engine.Change{Action: engine.ActionReveal, Changed: true})
	hub.broadcastMessage(<-hub.broadcast)

	select {
	case data := <-client.send:
		var message Message
		if err := json.Unmarshal(data, &message); err != nil {
			t.Fatalf("Failed to unmarshal message: %v", err)
		}
		if message.Type != TypeBoardUpdate {
			t.Errorf("Expected type %s, got %s", TypeBoardUpdate, message.Type)
		}
		if message.Board == nil || message.Board.OpenedNonMine != 1 {
			t.Errorf("Board not correctly transmitted: %+v", message.Board)
		}
		if message.Change == nil || message.Change.Action != engine.ActionReveal {
			t.Errorf("Change not correctly transmitted: %+v", message.Change)
		}
	default:
		t.Fatal("No message received")
	}

	if len(other.send) != 0 {
		t.Error("Clients of other sessions must not receive the message")
	}
}

func TestHubSlowClientDropped(t *testing.T) {
	hub := NewHub(nil)
	slow := &Client{hub: hub, sessionID: "slow", send: make(chan []byte)}
	hub.registerClient(slow)

	hub.broadcastMessage(&Message{Type: TypeBoardUpdate, SessionID: "slow"})

	if _, exists := hub.sessions["slow"]; exists {
		t.Error("Expected client with a full queue to be dropped")
	}
}

func TestHubEnqueueDoesNotBlock(t *testing.T) {
	// No Run loop: the buffer fills and further messages are dropped
	hub := NewHub(nil)
	done := make(chan struct{})
	go func() {
		for i := 0; i < broadcastBuffer*2; i++ {
			hub.BroadcastEvent("s", TypeGameOver, i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("BroadcastEvent blocked without a running hub")
	}
	if len(hub.broadcast) != broadcastBuffer {
		t.Errorf("Expected %d queued messages, got %d", broadcastBuffer, len(hub.broadcast))
	}
}

func TestWebSocketRoundTrip(t *testing.T) {
	hub := startHub(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, r.URL.Query().Get("session"))
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "?session=ws01"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	defer conn.Close()

	waitForClients(t, hub, "ws01", 1)

	hub.BroadcastBoard("ws01", testBoard(t), nil)
	hub.BroadcastEvent("ws01", TypeGameOver, map[string]string{"phase": "won"})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	for _, want := range []string{TypeBoardUpdate, TypeGameOver} {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("Failed to read WebSocket message: %v", err)
		}
		var message Message
		if err := json.Unmarshal(data, &message); err != nil {
			t.Fatalf("Failed to unmarshal message: %v", err)
		}
		if message.Type != want {
			t.Errorf("Expected type %s, got %s", want, message.Type)
		}
		if message.SessionID != "ws01" {
			t.Errorf("Expected session ws01, got %s", message.SessionID)
		}
	}

	conn.Close()
	waitForClients(t, hub, "ws01", 0)
}
