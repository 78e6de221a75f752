// Package service provides the business logic layer for the naval battle game.
//
// The service package implements:
//   - Multi-session match management
//   - Fleet placement before the battle starts
//   - Player attacks and the automated opponent's scheduler
//   - Session lifecycle and attack history
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// ConfigManager manages match configuration loading and validation.
// Notifier receives events as sessions change.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the game engine. Each session owns an engine.Game and, once the battle has
// started, a scheduler.Scheduler playing the opponent's turns. Scheduler
// callbacks run through the configured Dispatcher and persist the session and
// push events to the Notifier.
//
// Usage:
//
//	sessionMgr := session.NewManager(logger)
//	configMgr, _ := config.NewManager("configs", logger)
//	gameService := service.NewGameService(sessionMgr, configMgr,
//		service.WithLogger(logger),
//		service.WithNotifier(hub),
//		service.WithDispatcher(hub),
//	)
//
//	info, err := gameService.CreateSession(ctx, "classic", "Nemo")
//	if err != nil {
//		log.Fatal(err)
//	}
//	_, err = gameService.StartBattle(ctx, info.ID)
//	result, err := gameService.Attack(ctx, info.ID, 4, 4)
//
// Session phases:
//
// A session starts in the placement phase with the player's fleet in the
// default formation and the opponent's fleet placed at random. StartBattle
// moves it to the battle phase, and it is finished once either fleet is sunk.
package service
