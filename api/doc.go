// Package api exposes the minesweeper service over HTTP.
//
// Endpoints:
//
// Sessions:
//   - POST   /api/sessions                 {"preset": "easy", "player": "Ann"}
//   - GET    /api/sessions                 ?sort=created|accessed&order=asc|desc&limit=N&player=&preset=
//   - GET    /api/sessions/{id}
//   - DELETE /api/sessions/{id}
//
// Play:
//   - GET  /api/sessions/{id}/board
//   - POST /api/sessions/{id}/reveal      {"row": 3, "col": 4, "elapsed_seconds": 41}
//   - POST /api/sessions/{id}/mark        {"row": 3, "col": 4}
//   - POST /api/sessions/{id}/chord       {"row": 3, "col": 4}
//   - POST /api/sessions/{id}/reset
//   - GET  /api/sessions/{id}/history     ?page=1&limit=20&order=desc
//
// Presets and records:
//   - GET  /api/presets
//   - POST /api/presets
//   - GET  /api/presets/{name}
//   - GET  /api/leaderboard/{difficulty}  ?limit=10 (0 means all)
//   - GET  /api/leaderboard/{difficulty}/{player}
//
// Live updates are served on /ws?session={id}; see package websocket.
//
// Errors are returned as {"error": "..."} with 404 for unknown sessions,
// presets and records, 400 for out-of-bounds coordinates and invalid
// input, and 500 otherwise.
package api
