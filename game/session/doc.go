// Package session provides session management for the minesweeper server.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Unique session ID generation
//   - Optional JSON file persistence so games survive restarts
//   - Session cleanup and expiration
//
// Session Identifiers:
//
// Sessions use 4-character hex IDs drawn from crypto/rand. Lookups are
// case-insensitive and IDs that could escape the sessions directory are
// rejected.
//
// Concurrency:
//
// The manager's map is guarded by its own lock. Each service.Session
// also carries a lock that serializes commands on its engine; Save expects
// the caller to hold it, UpdateLastAccessed takes it itself.
//
// Usage:
//
//	persistence, _ := session.NewFilePersistence("sessions", configMgr)
//	manager := session.NewManagerWithPersistence(persistence, logger)
//	_ = manager.LoadPersistedSessions()
//
//	sess, err := manager.Create("Ann", preset)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Drop idle sessions from memory; their files stay on disk
//	manager.CleanupExpiredSessions(24 * time.Hour)
package session
