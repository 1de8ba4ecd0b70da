// Package websocket pushes live board updates to browsers watching a session.
//
// A central Hub owns every connection. Registration, removal and fan-out
// all happen on the goroutine running Hub.Run, so callers never touch the
// client map directly. Each connection has a read pump that only watches
// for disconnects and a write pump that forwards queued messages and pings.
//
// Message Protocol:
//
// The server sends one JSON document per frame:
//
//	{"type": "board_update", "session_id": "ab12", "board": {...}, "change": {...}}
//	{"type": "game_over", "session_id": "ab12", "data": {...}}
//
// Clients choose a session with the query parameter ?session=ab12.
//
// Usage:
//
//	hub := websocket.NewHub(logger)
//	go hub.Run(ctx)
//
//	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("session"))
//	})
//
//	hub.BroadcastBoard(sessionID, board, change)
//
// Broadcasting never blocks: when the queue is full the message is dropped
// and a slow client whose own queue is full is disconnected.
package websocket
