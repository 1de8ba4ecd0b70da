// Package mcp exposes the minesweeper REST API as Model Context Protocol
// tools so an agent can play over stdio.
//
// The Client holds no game state. Each tool call becomes one HTTP request
// against a running server and the response is rendered as a text grid
// followed, where useful, by the raw JSON:
//
//	Phase: in_progress | Mines: 10 | Flags: 1 | Remaining: 9 | Opened: 31/90
//
//	    0  1  2  3  ...
//	 0  #  #  1  .
//	 1  F  2  1  .
//
// Tools: create_session, list_sessions, board, reveal, toggle_mark, chord,
// reset, history, leaderboard and list_presets. Arguments are decoded with
// mapstructure, so numbers may arrive as JSON numbers or numeric strings.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080", logger)
//	server.ServeStdio(client.GetMCPServer())
//
// Stdout carries protocol frames in this mode, so logs must go to stderr
// or a file.
package mcp
