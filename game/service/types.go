package service

import (
	"time"

	"github.com/wricardo/mcp-training/dice421/game/engine"
	"github.com/wricardo/mcp-training/dice421/game/session"
)

// Message types exchanged with clients.
const (
	MsgCreate     = "CREATE"
	MsgJoin       = "JOIN"
	MsgAddBot     = "ADD_BOT"
	MsgStart      = "START"
	MsgRoll       = "ROLL"
	MsgStop       = "STOP"
	MsgKeep       = "KEEP"
	MsgLeave      = "LEAVE"
	MsgRoomUpdate = "ROOM_UPDATE"
	MsgState      = "STATE"
	MsgError      = "ERROR"
)

// Inbound is a client request. Fields not used by a message type are ignored.
type Inbound struct {
	Type        string `json:"type"`
	Code        string `json:"code"`
	Username    string `json:"username"`
	Avatar      string `json:"avatar,omitempty"`
	MaxPlayers  int    `json:"maxPlayers,omitempty"`
	TotalTokens int    `json:"totalTokens,omitempty"`
	Idx         *int   `json:"idx,omitempty"`
	Config      string `json:"config,omitempty"`
}

// RoomUpdate carries the lobby view of a room.
type RoomUpdate struct {
	Type string       `json:"type"`
	Room session.Meta `json:"room"`
}

// StateUpdate carries a match snapshot and the animations of the transition that produced it.
type StateUpdate struct {
	Type  string             `json:"type"`
	State *engine.MatchState `json:"gs"`
	Anims []string           `json:"anims"`
}

// ErrorMessage reports a rejected request to its sender.
type ErrorMessage struct {
	Type string `json:"type"`
	Msg  string `json:"msg"`
}

// ActionResult is what a request produced, for callers without a push channel.
type ActionResult struct {
	Room  session.Meta       `json:"room"`
	State *engine.MatchState `json:"gs,omitempty"`
	Anims []string           `json:"anims"`
}

// RoomInfo describes a room for listings
type RoomInfo struct {
	Room         session.Meta `json:"room"`
	Peers        int          `json:"peers"`
	Phase        int          `json:"phase,omitempty"`
	Finished     bool         `json:"finished"`
	Current      string       `json:"current,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	LastActivity time.Time    `json:"last_activity"`
}

// LogOptions configures match log retrieval
type LogOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// LogResponse contains a paginated match log
type LogResponse struct {
	Entries     []engine.LogEntry `json:"entries"`
	Total       int               `json:"total"`
	Page        int               `json:"page"`
	PageSize    int               `json:"page_size"`
	TotalPages  int               `json:"total_pages"`
	HasNext     bool              `json:"has_next"`
	HasPrevious bool              `json:"has_previous"`
}
