// Package websocket provides the WebSocket transport of the 421 server.
//
// The package uses a hub-and-spoke model where a central Hub tracks all
// connections. Each client runs a read goroutine, which hands every frame to
// the hub's Receiver in arrival order, and a write goroutine draining a
// buffered send channel.
//
// Clients are not tied to a room at connection time: the first CREATE or
// JOIN message binds them (see Client.Bind). A Client satisfies the peer
// contract of the room layer: Send never blocks, and a client that cannot
// keep up is disconnected instead of slowing its room down.
//
// Usage:
//
//	hub := websocket.NewHub(receiver)
//	go hub.Run()
//	http.HandleFunc("/ws", hub.ServeWS)
//
// Stop closes every connection and ends Run.
package websocket
