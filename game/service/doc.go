// Package service is the room coordinator of the 421 server.
//
// It sits between the transports (websocket, REST, MCP) and the rules engine.
// Every request goes through Dispatch, whatever its origin: the websocket
// path decodes frames with HandleMessage and turns reportable errors into
// ERROR frames, the REST path turns them into HTTP statuses.
//
// Messages:
//
//	CREATE   {code, username, avatar, maxPlayers, totalTokens, config}
//	JOIN     {code, username, avatar}
//	ADD_BOT  {code, username}     host only
//	START    {code, username}     host only
//	ROLL     {code, username}
//	STOP     {code, username}
//	KEEP     {code, username, idx}
//	LEAVE    {code, username}
//
// Clients receive ROOM_UPDATE {room}, STATE {gs, anims} and ERROR {msg}.
//
// Ordering:
//
// Each request holds its room's lock from validation to broadcast, and bot
// turns take the same lock, so all peers of a room see the same sequence of
// frames. Requests arriving out of turn are dropped silently: with several
// clients and bots acting, late clicks are normal. See IsSilent.
//
// Usage:
//
//	rooms := session.NewManager()
//	configs, _ := config.NewManager("configs")
//	svc := service.NewRoomService(rooms, configs)
//
//	svc.HandleMessage(ctx, peer, frame)
package service
