// Package mcp provides the Model Context Protocol interface for the naval battle game.
//
// The Client is a thin proxy: every tool call becomes a request against the
// REST API, so an agent plays against exactly the same sessions a browser
// sees.
//
// MCP Tools:
//
//   - create_session, get_session, list_sessions, delete_session
//   - game_state: both boards rendered as text plus fleet and shot stats
//   - randomize_fleet, move_ship, rotate_ship: placement phase only
//   - start_battle: lock the fleet and start the opponent
//   - attack: fire at the opponent's board, with an optional intent
//   - attack_history: paginated shot history
//   - list_configs: available match configurations
//   - describe_cell: what is known about a single cell
//   - game_instructions: rules and board legend
//
// API errors are returned as tool errors (IsError set) rather than Go
// errors, so the agent sees the message and can correct its next call.
//
// Transport Modes:
//
//   - Stdio: the binary's mcp command serves GetMCPServer over stdin/stdout
//   - HTTP: the server mode mounts the same MCP server at /mcp
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
