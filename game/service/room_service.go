package service

import (
	"context"
	"time"

	"github.com/wricardo/mcp-training/dice421/game/config"
	"github.com/wricardo/mcp-training/dice421/game/engine"
	"github.com/wricardo/mcp-training/dice421/game/session"
)

// RoomService defines all room and match operations
type RoomService interface {
	// Realtime
	HandleMessage(ctx context.Context, peer session.Peer, raw []byte)
	Dispatch(ctx context.Context, peer session.Peer, msg Inbound) (*ActionResult, error)
	Disconnect(ctx context.Context, peer session.Peer)

	// Rooms
	CreateRoom(ctx context.Context, req Inbound) (*RoomInfo, error)
	GetRoom(ctx context.Context, code string) (*RoomInfo, error)
	ListRooms(ctx context.Context) ([]*RoomInfo, error)
	GetState(ctx context.Context, code string) (*engine.MatchState, error)
	GetLog(ctx context.Context, code string, opts LogOptions) (*LogResponse, error)

	// Reference data
	Combos(ctx context.Context) []engine.ComboInfo
	ListConfigs(ctx context.Context) ([]*config.PresetInfo, error)
	LoadConfig(ctx context.Context, name string) (*config.Preset, error)
	SaveConfig(ctx context.Context, name string, preset *config.Preset) error
	ReloadConfigs(ctx context.Context) error

	// Lifecycle
	RoomCount(ctx context.Context) int
	CleanupIdle(ctx context.Context, maxAge time.Duration) int
	Shutdown(ctx context.Context)
}

// RoomManager defines room storage operations
type RoomManager interface {
	Create(code string, host session.Member, settings session.Settings) (*session.Room, error)
	Get(code string) (*session.Room, error)
	Remove(room *session.Room) bool
	List() []*session.Room
	Count() int
	CleanupIdle(maxAge time.Duration) int
	CloseAll()
}

// ConfigManager handles preset loading
type ConfigManager interface {
	Resolve(name string) (*config.Preset, error)
	LoadConfig(name string) (*config.Preset, error)
	ListConfigs() ([]*config.PresetInfo, error)
	SaveConfig(name string, preset *config.Preset) error
	RefreshCache() error
}
