// Package session keeps the rooms of the 421 server.
//
// Manager is the registry: it creates rooms under unique, case-insensitive
// codes, looks them up, lists them and removes idle ones. Room holds
// everything a table needs between messages: the lobby metadata, the match
// snapshot once started, the connected peers and the bot timer.
//
// Concurrency:
//
// Each Room embeds a mutex and every read or write of its fields happens
// with it held. Broadcasting is done under the same lock so that each peer
// sees frames in mutation order; Peer.Send never blocks. When both locks
// are needed, the room lock is taken before the manager lock.
//
// Usage:
//
//	manager := session.NewManager()
//
//	room, err := manager.Create("", session.Member{Username: "alice"}, session.Settings{
//		MaxPlayers:  4,
//		TotalTokens: 21,
//		Preset:      preset,
//	})
//
//	room.Lock()
//	room.Attach(peer)
//	room.Broadcast(frame)
//	room.Unlock()
//
// Bot timers:
//
// ArmBot schedules a callback tagged with a generation number. Cancelling
// or re-arming bumps the generation, so a callback that lost the race with
// a cancellation sees BotCurrent(gen) == false and does nothing.
package session
