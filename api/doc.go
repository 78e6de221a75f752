// Package api provides HTTP REST API handlers for the naval battle game.
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create a session ({"config_id", "nickname"})
//   - GET /api/sessions - List sessions (sort, order, limit, phase)
//   - GET /api/sessions/{id} - Get a session
//   - DELETE /api/sessions/{id} - Delete a session, including corrupt ones
//
// Fleet Placement (placement phase only):
//   - POST /api/sessions/{id}/fleet/randomize - Re-deal the player's fleet
//   - POST /api/sessions/{id}/fleet/move - Shift a ship ({"ship_id", "d_row", "d_col"})
//   - POST /api/sessions/{id}/fleet/rotate - Rotate a ship about its bow ({"ship_id"})
//
// Battle:
//   - POST /api/sessions/{id}/start - Start the battle and the opponent
//   - POST /api/sessions/{id}/attack - Fire at the opponent ({"row", "col"})
//   - GET /api/sessions/{id}/state - Current game state
//   - GET /api/sessions/{id}/history - Attack history (page, limit, order)
//
// Configuration:
//   - GET /api/configs - List match configurations
//   - GET /api/configs/{name} - Get one configuration
//   - POST /api/configs - Save a configuration
//
// WebSocket:
//   - GET /ws?session={id} - Subscribe to a session's events
//
// Error Handling:
//
// Errors are returned as {"error": "..."} with a status derived from the
// underlying sentinel: 404 for unknown sessions, configs and ships; 409 for
// wrong turn, repeated shots, locked placement and phase violations; 400 for
// out-of-bounds shots and invalid placements. A session whose stored data is
// corrupt answers 422 and adds a "discard_hint" naming the DELETE call that
// removes it.
package api
