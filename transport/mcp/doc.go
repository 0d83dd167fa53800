// Package mcp provides the Model Context Protocol interface of the 421 dice server.
//
// The mcp package implements:
//   - MCP server for AI agent integration
//   - Tool definitions for room and match operations
//   - A thin proxy over the REST API
//   - Plain-text rendering of rooms, matches and logs
//
// MCP Tools:
//
// The package exposes the following tools for AI agents:
//   - list_rooms, get_room: Browse open rooms
//   - create_room, join_room, leave_room: Manage seats
//   - add_bot, start_match: Host controls
//   - roll, stop, keep: Play a turn
//   - game_state, match_log: Inspect a match
//   - list_combos, list_configs, game_instructions: Reference data
//
// Transport Modes:
//
// The server supports two transport modes:
//   - Stdio: Direct stdio communication for local MCP clients
//   - HTTP: The /mcp endpoint of the main server
//
// Every tool call becomes one REST request, so agents share rooms with
// websocket players: an agent's roll is broadcast like any other.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
