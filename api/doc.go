// Package api provides the HTTP surface of the 421 dice server.
//
// The api package implements:
//   - RESTful endpoints for rooms and matches
//   - A single action endpoint sharing the websocket message path
//   - Reference data (combo ranking, presets)
//   - WebSocket upgrade handling
//
// Endpoints:
//
// Rooms:
//   - GET /api/rooms - List rooms (sort=created|activity, order=asc|desc, limit)
//   - POST /api/rooms - Create a room
//   - GET /api/rooms/{code} - Get a room
//   - GET /api/rooms/{code}/state - Get the match snapshot
//   - GET /api/rooms/{code}/log - Get the match log with pagination
//   - POST /api/rooms/{code}/actions - JOIN, ADD_BOT, START, ROLL, STOP, KEEP or LEAVE
//
// Reference:
//   - GET /api/combos - Combo ranking, strongest first
//   - GET /api/configs - List presets
//   - GET /api/configs/{name} - Get a preset
//   - POST /api/configs - Save a preset (file id from ?id=, else the preset name)
//   - POST /api/configs/reload - Drop cached presets and reread them from disk
//
// Health:
//   - GET /api/health - Status and open room count
//
// Realtime:
//   - /ws - WebSocket upgrade; frames go through Receiver to the room service
//
// Actions use the websocket message shape:
//
//	{
//	  "type": "ROLL",
//	  "username": "alice",
//	  "idx": 0           // die index, required for KEEP
//	}
//
// Usage:
//
//	hub := websocket.NewHub(api.NewReceiver(roomService))
//	go hub.Run()
//	server := api.NewServer(roomService, hub)
//	http.ListenAndServe(":8080", server)
//
// Error Handling:
//
// Errors are returned as JSON with a status derived from the service error:
//
//	{
//	  "error": "room not found",
//	  "code": 404
//	}
package api
