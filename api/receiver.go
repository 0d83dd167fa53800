package api

import (
	"context"

	"github.com/wricardo/mcp-training/dice421/game/service"
	"github.com/wricardo/mcp-training/dice421/transport/websocket"
)

// Receiver feeds websocket frames into the room service.
type Receiver struct {
	service service.RoomService
}

// NewReceiver creates a Receiver for the hub
func NewReceiver(roomService service.RoomService) *Receiver {
	return &Receiver{service: roomService}
}

// Receive implements websocket.Receiver
func (r *Receiver) Receive(ctx context.Context, c *websocket.Client, data []byte) {
	r.service.HandleMessage(ctx, c, data)
}

// Closed implements websocket.Receiver
func (r *Receiver) Closed(ctx context.Context, c *websocket.Client) {
	r.service.Disconnect(ctx, c)
}

var _ websocket.Receiver = (*Receiver)(nil)
