package service

import (
	"errors"

	"github.com/wricardo/mcp-training/dice421/game/config"
	"github.com/wricardo/mcp-training/dice421/game/engine"
	"github.com/wricardo/mcp-training/dice421/game/session"
)

var (
	ErrRoomNotFound     = session.ErrRoomNotFound
	ErrRoomExists       = session.ErrRoomExists
	ErrInvalidSettings  = config.ErrInvalidSettings
	ErrNotEnoughPlayers = engine.ErrNotEnoughPlayers
	ErrRoomFull         = errors.New("room is full")
	ErrAlreadyStarted   = errors.New("match already started")
	ErrUsernameRequired = errors.New("username required")

	// Rejections dropped without an ERROR frame.
	ErrNotHost        = errors.New("only the host can do that")
	ErrNotStarted     = errors.New("match not started")
	ErrUnknownMessage = errors.New("unknown message type")
)

// IsSilent reports whether err should be dropped without notifying the sender.
func IsSilent(err error) bool {
	return engine.IsSilent(err) ||
		errors.Is(err, ErrNotHost) ||
		errors.Is(err, ErrNotStarted) ||
		errors.Is(err, ErrUnknownMessage)
}

// reportable decides whether a rejected message earns its sender an ERROR
// frame. A missing room is only worth reporting to someone trying to join.
func reportable(msgType string, err error) bool {
	if IsSilent(err) {
		return false
	}
	if errors.Is(err, ErrRoomNotFound) && msgType != MsgJoin {
		return false
	}
	return true
}
