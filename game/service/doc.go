// Package service provides the business logic layer for the minesweeper server.
//
// The service package implements:
//   - Multi-session game management
//   - Difficulty preset lookup and storage
//   - Command processing (reveal, mark, chord, reset)
//   - The per-session timer and the win handoff to the leaderboard
//   - Command history tracking
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// ConfigManager loads and saves difficulty presets.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the game engine. The engine knows nothing about time or players; the
// service starts a session's timer on the first reveal, stops it when the
// game ends, and on a win hands the player name, difficulty label and
// elapsed seconds to a records.Store.
//
// Usage:
//
//	sessionMgr := session.NewManager(nil)
//	configMgr, _ := config.NewManager("presets")
//	store := records.NewMemoryStore()
//	gameService := service.NewGameService(sessionMgr, configMgr, store)
//
//	info, err := gameService.CreateSession(ctx, "easy", "Ann")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := gameService.Reveal(ctx, info.ID, service.MoveRequest{Row: 4, Col: 4})
//	if result.Record != nil && result.Record.NewBest {
//		fmt.Println("New personal best!")
//	}
//
// Concurrency:
//
// Each session carries its own lock; commands on one session are applied
// in order while different sessions proceed independently.
package service
