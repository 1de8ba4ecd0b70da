// Package records keeps the best completion times per player and difficulty.
//
// A Store receives the outcome of every won game as a Record holding the
// player name, the difficulty label and the elapsed seconds. Only the best
// (lowest) time per player and difficulty is kept; names and labels are
// compared case-insensitively. Stores answer leaderboard queries ordered by
// time.
//
// Implementations:
//   - MemoryStore: process-local, for tests and ephemeral servers
//   - FileStore: a single JSON document rewritten on every stored record
//   - GormStore: MySQL through gorm
//   - MongoStore: one document per player and difficulty
//
// Open selects an implementation from settings:
//
//	store, err := records.Open(ctx, cfg.Records, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer store.Close()
//
//	res, err := store.Add(ctx, records.Record{PlayerName: "ann", Difficulty: "Easy", Seconds: 42})
package records
