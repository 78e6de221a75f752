// Package session provides session management for the naval battle game.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Unique session ID generation
//   - Session persistence to JSON files or SQLite
//   - Session cleanup and expiration
//
// Core Types:
//
// Manager is the main session manager that handles all session operations.
// SessionPersistence stores sessions; FilePersistence writes one JSON file
// per session and SQLitePersistence keeps them in a SQLite database along
// with a row per attack.
//
// Session Identifiers:
//
// Sessions use 4-character hex IDs for easy reference, generated with
// cryptographic randomness and looked up case-insensitively.
//
// Stored Format:
//
// A stored session holds its config id, nickname, phase and message plus an
// engine.GameSnapshot. Loading re-derives every ship's cells from the grid;
// data that fails that check surfaces as ErrCorruptSession and stays in
// storage until Discard removes it.
//
// Usage:
//
//	persistence, err := session.NewFilePersistence("sessions", configMgr, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//	manager := session.NewManagerWithPersistence(persistence, logger)
//
//	sess, err := manager.Create("", "classic", config, "Nemo")
//	sess, err = manager.Get(sessionID)
//	sessions := manager.List()
//
// Cleanup:
//
// Sessions can be deleted explicitly or dropped from memory after a period
// of inactivity. Dropping a session stops its opponent scheduler.
package session
