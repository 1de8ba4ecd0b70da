// Package engine provides the core rules of the minesweeper game.
//
// The engine package implements the game mechanics including:
//   - Board geometry and neighbor queries
//   - Deferred mine placement that never mines the first revealed cell
//   - Adjacency counts and iterative flood-fill reveal
//   - Chorded reveal around satisfied numbers
//   - Flag/question mark cycling
//   - Win and loss detection
//   - State export and restore for persistence
//
// Core Types:
//
// The Engine interface defines the main contract for game operations,
// implemented by GameEngine. Board owns the grid of Cell values and its
// geometry, while MinePlacer implementations decide where mines go once
// the first reveal happens. BoardView is the masked, display-safe
// snapshot that transports hand to players.
//
// Usage:
//
//	gameEngine, err := engine.NewGameEngine(10, 10, 10, engine.WithSeed(42))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	change, err := gameEngine.Reveal(4, 4)
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(change.Opened, gameEngine.Phase())
//
// Game Rules:
//
// The first reveal places the mines, excluding the revealed cell, and
// opens it. Cells with no neighboring mines expand to their neighbors.
// Revealing a mine loses the game and opens every mine. Revealing every
// non-mine cell wins. The engine never measures time and performs no
// I/O; timers and records belong to the caller.
package engine
