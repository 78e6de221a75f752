// Package websocket pushes naval battle session events to browsers.
//
// The package uses a hub-and-spoke model where a central Hub manages all
// WebSocket connections. Each connection is served by a read goroutine and a
// write goroutine; the Hub's Run loop owns every client map.
//
// Session Integration:
//
// Connections subscribe to exactly one session. The Hub implements
// service.Notifier, so every session event (player_attack, opponent_attack,
// match_over and so on) is fanned out to that session's clients. A freshly
// connected client first receives a state_update carrying the current game
// state.
//
// Scheduler Callbacks:
//
// The Hub also implements scheduler.Dispatcher. Opponent-turn callbacks are
// queued onto the Run loop, so they execute one at a time in the same
// context that broadcasts to clients.
//
// Usage:
//
//	hub := websocket.NewHub(logger)
//	go hub.Run(ctx)
//
//	svc := service.NewGameService(sessions, configs,
//		service.WithNotifier(hub),
//		service.WithDispatcher(hub),
//	)
//
// Backpressure:
//
// Notify never blocks. Events are dropped with a warning when the broadcast
// queue is full, and a client whose send buffer is full is disconnected.
package websocket
