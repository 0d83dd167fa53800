package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wricardo/mcp-training/dice421/game/config"
	"github.com/wricardo/mcp-training/dice421/game/engine"
	"github.com/wricardo/mcp-training/dice421/game/session"
)

// roomServiceImpl implements the RoomService interface
type roomServiceImpl struct {
	rooms   RoomManager
	configs ConfigManager
	engine  *engine.Engine
}

// Option customises the room service.
type Option func(*roomServiceImpl)

// WithEngine sets the rules engine, typically to inject a scripted roller.
func WithEngine(e *engine.Engine) Option {
	return func(s *roomServiceImpl) {
		s.engine = e
	}
}

// NewRoomService creates a new room service instance
func NewRoomService(rooms RoomManager, configs ConfigManager, opts ...Option) RoomService {
	s := &roomServiceImpl{
		rooms:   rooms,
		configs: configs,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.engine == nil {
		s.engine = engine.NewEngine(nil)
	}
	return s
}

// HandleMessage decodes and dispatches one client frame. Malformed frames are dropped.
func (s *roomServiceImpl) HandleMessage(ctx context.Context, peer session.Peer, raw []byte) {
	var msg Inbound
	if err := json.Unmarshal(raw, &msg); err != nil {
		log.Debug().Err(err).Str("client_id", peer.ID()).Msg("dropping malformed frame")
		return
	}

	if _, err := s.Dispatch(ctx, peer, msg); err != nil {
		if !reportable(msg.Type, err) {
			log.Debug().Err(err).Str("client_id", peer.ID()).Str("event", msg.Type).Msg("request ignored")
			return
		}
		log.Debug().Err(err).Str("client_id", peer.ID()).Str("event", msg.Type).Msg("request rejected")
		if data := encode(ErrorMessage{Type: MsgError, Msg: err.Error()}); data != nil {
			peer.Send(data)
		}
	}
}

// Dispatch applies one request. peer may be nil for callers without a push channel.
func (s *roomServiceImpl) Dispatch(ctx context.Context, peer session.Peer, msg Inbound) (*ActionResult, error) {
	switch msg.Type {
	case MsgCreate:
		return s.create(peer, msg)
	case MsgJoin:
		return s.join(peer, msg)
	case MsgLeave:
		return nil, s.leaveMessage(peer, msg)
	case MsgAddBot, MsgStart, MsgRoll, MsgStop, MsgKeep:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, msg.Type)
	}

	room, err := s.rooms.Get(msg.Code)
	if err != nil {
		return nil, err
	}
	room.Lock()
	defer room.Unlock()
	if room.Closed() {
		return nil, ErrRoomNotFound
	}
	room.Touch()

	switch msg.Type {
	case MsgAddBot:
		return s.addBot(room, msg)
	case MsgStart:
		return s.start(room, msg)
	default:
		return s.play(room, peer, msg)
	}
}

func (s *roomServiceImpl) create(peer session.Peer, msg Inbound) (*ActionResult, error) {
	username := strings.TrimSpace(msg.Username)
	if username == "" {
		return nil, ErrUsernameRequired
	}
	preset, err := s.configs.Resolve(msg.Config)
	if err != nil {
		return nil, fmt.Errorf("preset %q: %w", msg.Config, err)
	}
	maxPlayers, totalTokens, err := preset.Settings(msg.MaxPlayers, msg.TotalTokens)
	if err != nil {
		return nil, err
	}

	if peer != nil {
		s.unbind(peer)
	}

	room, err := s.rooms.Create(msg.Code, session.Member{Username: username, Avatar: msg.Avatar}, session.Settings{
		MaxPlayers:  maxPlayers,
		TotalTokens: totalTokens,
		ConfigName:  msg.Config,
		Preset:      preset,
	})
	if err != nil {
		return nil, err
	}

	room.Lock()
	defer room.Unlock()
	if peer != nil {
		room.Attach(peer)
		peer.Bind(room.Meta.Code, username)
	}
	s.broadcastRoom(room)

	log.Info().Str("room_code", room.Meta.Code).Str("username", username).Int("max_players", maxPlayers).Int("total_tokens", totalTokens).Msg("room created")
	return &ActionResult{Room: room.Snapshot(), Anims: []string{}}, nil
}

func (s *roomServiceImpl) join(peer session.Peer, msg Inbound) (*ActionResult, error) {
	username := strings.TrimSpace(msg.Username)
	if username == "" {
		return nil, ErrUsernameRequired
	}

	if peer != nil {
		if code, _ := peer.Binding(); code != "" && !strings.EqualFold(code, msg.Code) {
			s.unbind(peer)
		}
	}

	room, err := s.rooms.Get(msg.Code)
	if err != nil {
		return nil, err
	}
	room.Lock()
	defer room.Unlock()
	if room.Closed() {
		return nil, ErrRoomNotFound
	}
	if room.Meta.Status != session.StatusWaiting {
		return nil, ErrAlreadyStarted
	}
	if room.IsFull() && !room.HasMember(username) {
		return nil, ErrRoomFull
	}

	room.Touch()
	room.AddMember(session.Member{Username: username, Avatar: msg.Avatar})
	if peer != nil {
		room.Attach(peer)
		peer.Bind(room.Meta.Code, username)
	}
	s.broadcastRoom(room)

	log.Info().Str("room_code", room.Meta.Code).Str("username", username).Msg("player joined")
	return &ActionResult{Room: room.Snapshot(), Anims: []string{}}, nil
}

func (s *roomServiceImpl) addBot(room *session.Room, msg Inbound) (*ActionResult, error) {
	if msg.Username != room.Meta.Host {
		return nil, ErrNotHost
	}
	if room.Meta.Status != session.StatusWaiting {
		return nil, ErrAlreadyStarted
	}
	if room.IsFull() {
		return nil, ErrRoomFull
	}

	name, avatar := room.Preset.Roster().Pick(room.BotCount())
	unique := name
	for n := 2; room.HasMember(unique); n++ {
		unique = fmt.Sprintf("%s%d", name, n)
	}
	room.AddMember(session.Member{Username: unique, Avatar: avatar, IsBot: true})
	s.broadcastRoom(room)

	log.Debug().Str("room_code", room.Meta.Code).Str("bot", unique).Msg("bot added")
	return &ActionResult{Room: room.Snapshot(), Anims: []string{}}, nil
}

func (s *roomServiceImpl) start(room *session.Room, msg Inbound) (*ActionResult, error) {
	if msg.Username != room.Meta.Host {
		return nil, ErrNotHost
	}
	if room.Meta.Status != session.StatusWaiting {
		return nil, ErrAlreadyStarted
	}
	if len(room.Meta.Players) < 2 {
		return nil, ErrNotEnoughPlayers
	}

	players := make([]engine.Player, 0, len(room.Meta.Players))
	for _, m := range room.Meta.Players {
		players = append(players, engine.Player{Username: m.Username, Avatar: m.Avatar, IsBot: m.IsBot})
	}
	match, err := s.engine.NewMatch(players, room.Meta.TotalTokens)
	if err != nil {
		return nil, fmt.Errorf("failed to start match: %w", err)
	}

	room.Match = match
	room.Meta.Status = session.StatusPlaying
	s.broadcastState(room, []string{})
	s.scheduleBot(room)

	log.Info().Str("room_code", room.Meta.Code).Str("match_id", match.ID).Int("players", len(players)).Msg("match started")
	return &ActionResult{Room: room.Snapshot(), State: match, Anims: []string{}}, nil
}

func (s *roomServiceImpl) play(room *session.Room, peer session.Peer, msg Inbound) (*ActionResult, error) {
	if room.Match == nil {
		return nil, ErrNotStarted
	}

	username := msg.Username
	if peer != nil && room.HasPeer(peer.ID()) {
		if _, bound := peer.Binding(); bound != "" {
			username = bound
		}
	}

	action := engine.Action{Kind: engine.ActionKind(msg.Type), Username: username}
	if msg.Idx != nil {
		action.Index = *msg.Idx
	} else if action.Kind == engine.ActionKeep {
		return nil, fmt.Errorf("%w: missing idx", engine.ErrInvalidDie)
	}
	tr, err := s.engine.Apply(room.Match, action)
	if err != nil {
		return nil, err
	}

	room.Match = tr.State
	s.broadcastState(room, tr.Anims)
	if action.Kind != engine.ActionKeep {
		s.scheduleBot(room)
	}
	if tr.State.Finished {
		logFinished(room)
	}
	return &ActionResult{Room: room.Snapshot(), State: tr.State, Anims: tr.Anims}, nil
}

func (s *roomServiceImpl) leaveMessage(peer session.Peer, msg Inbound) error {
	code, username := msg.Code, msg.Username
	if peer != nil {
		if boundCode, boundUser := peer.Binding(); boundCode != "" {
			code, username = boundCode, boundUser
		}
	}
	return s.leave(peer, code, username)
}

// Disconnect releases whatever the peer was bound to.
func (s *roomServiceImpl) Disconnect(ctx context.Context, peer session.Peer) {
	s.unbind(peer)
}

// unbind makes the peer leave the room it is bound to, if any.
func (s *roomServiceImpl) unbind(peer session.Peer) {
	code, username := peer.Binding()
	if code == "" {
		return
	}
	if err := s.leave(peer, code, username); err != nil && !errors.Is(err, ErrRoomNotFound) {
		log.Warn().Err(err).Str("room_code", code).Msg("leave failed")
	}
}

// leave detaches a peer and updates the lobby. The room is closed when its
// last peer goes, or when the host walks out before the start.
func (s *roomServiceImpl) leave(peer session.Peer, code, username string) error {
	if peer != nil {
		peer.Bind("", "")
	}
	room, err := s.rooms.Get(code)
	if err != nil {
		return err
	}
	room.Lock()
	defer room.Unlock()
	if room.Closed() {
		return ErrRoomNotFound
	}

	// Only a departing connection can empty a room: REST and MCP callers hold none.
	attached := peer != nil && room.HasPeer(peer.ID())
	left := room.PeerCount()
	if attached {
		left = room.Detach(peer.ID())
	}
	room.Touch()

	log.Info().Str("room_code", room.Meta.Code).Str("username", username).Int("peers_left", left).Msg("player left")

	switch {
	case attached && left == 0:
		s.closeRoom(room)
	case username == room.Meta.Host && room.Meta.Status == session.StatusWaiting:
		room.Broadcast(encode(ErrorMessage{Type: MsgError, Msg: "host left the room"}))
		s.closeRoom(room)
	case room.Meta.Status == session.StatusWaiting:
		room.RemoveMember(username)
		s.broadcastRoom(room)
	}
	return nil
}

// closeRoom stops the room and forgets it. Callers hold the room lock.
func (s *roomServiceImpl) closeRoom(room *session.Room) {
	room.MarkClosed()
	s.rooms.Remove(room)
	for _, p := range room.Peers() {
		if code, _ := p.Binding(); strings.EqualFold(code, room.Meta.Code) {
			p.Bind("", "")
		}
		room.Detach(p.ID())
	}
	log.Info().Str("room_code", room.Meta.Code).Msg("room closed")
}

// CreateRoom opens a room on behalf of a caller without a push channel
func (s *roomServiceImpl) CreateRoom(ctx context.Context, req Inbound) (*RoomInfo, error) {
	req.Type = MsgCreate
	res, err := s.create(nil, req)
	if err != nil {
		return nil, err
	}
	return s.GetRoom(ctx, res.Room.Code)
}

// GetRoom retrieves room information
func (s *roomServiceImpl) GetRoom(ctx context.Context, code string) (*RoomInfo, error) {
	room, err := s.rooms.Get(code)
	if err != nil {
		return nil, err
	}
	room.Lock()
	defer room.Unlock()
	return roomInfo(room), nil
}

// ListRooms returns all open rooms
func (s *roomServiceImpl) ListRooms(ctx context.Context) ([]*RoomInfo, error) {
	rooms := s.rooms.List()
	result := make([]*RoomInfo, 0, len(rooms))
	for _, room := range rooms {
		room.Lock()
		if !room.Closed() {
			result = append(result, roomInfo(room))
		}
		room.Unlock()
	}
	return result, nil
}

// GetState returns the current match snapshot
func (s *roomServiceImpl) GetState(ctx context.Context, code string) (*engine.MatchState, error) {
	room, err := s.rooms.Get(code)
	if err != nil {
		return nil, err
	}
	room.Lock()
	defer room.Unlock()
	if room.Match == nil {
		return nil, ErrNotStarted
	}
	return room.Match, nil
}

// GetLog returns a page of the match log
func (s *roomServiceImpl) GetLog(ctx context.Context, code string, opts LogOptions) (*LogResponse, error) {
	state, err := s.GetState(ctx, code)
	if err != nil {
		return nil, err
	}
	return paginate(state.Log, opts), nil
}

// Combos returns the ranking table, strongest first
func (s *roomServiceImpl) Combos(ctx context.Context) []engine.ComboInfo {
	return engine.Combos()
}

// ListConfigs returns available presets
func (s *roomServiceImpl) ListConfigs(ctx context.Context) ([]*config.PresetInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a preset by name
func (s *roomServiceImpl) LoadConfig(ctx context.Context, name string) (*config.Preset, error) {
	return s.configs.LoadConfig(name)
}

// SaveConfig writes a preset to the configs directory
func (s *roomServiceImpl) SaveConfig(ctx context.Context, name string, preset *config.Preset) error {
	if err := s.configs.SaveConfig(name, preset); err != nil {
		return err
	}
	log.Info().Str("config", name).Msg("preset saved")
	return nil
}

// ReloadConfigs drops cached presets so edits on disk are picked up
func (s *roomServiceImpl) ReloadConfigs(ctx context.Context) error {
	return s.configs.RefreshCache()
}

// RoomCount returns the number of open rooms
func (s *roomServiceImpl) RoomCount(ctx context.Context) int {
	return s.rooms.Count()
}

// CleanupIdle removes rooms nobody is connected to anymore
func (s *roomServiceImpl) CleanupIdle(ctx context.Context, maxAge time.Duration) int {
	return s.rooms.CleanupIdle(maxAge)
}

// Shutdown stops every bot and drops all rooms
func (s *roomServiceImpl) Shutdown(ctx context.Context) {
	s.rooms.CloseAll()
}

func roomInfo(room *session.Room) *RoomInfo {
	info := &RoomInfo{
		Room:         room.Snapshot(),
		Peers:        room.PeerCount(),
		CreatedAt:    room.CreatedAt,
		LastActivity: room.LastActivity,
	}
	if m := room.Match; m != nil {
		info.Phase = m.Phase
		info.Finished = m.Finished
		info.Current = m.CurrentUsername()
	}
	return info
}

func paginate(entries []engine.LogEntry, opts LogOptions) *LogResponse {
	total := len(entries)

	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := min(start+opts.Limit, total)

	page := []engine.LogEntry{}
	if opts.Order == "desc" {
		// Most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			page = append(page, entries[i])
		}
	} else if start < total {
		page = append(page, entries[start:end]...)
	}

	return &LogResponse{
		Entries:     page,
		Total:       total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}
}

func (s *roomServiceImpl) broadcastRoom(room *session.Room) {
	room.Broadcast(encode(RoomUpdate{Type: MsgRoomUpdate, Room: room.Snapshot()}))
}

func (s *roomServiceImpl) broadcastState(room *session.Room, anims []string) {
	if anims == nil {
		anims = []string{}
	}
	room.Broadcast(encode(StateUpdate{Type: MsgState, State: room.Match, Anims: anims}))
}

func logFinished(room *session.Room) {
	m := room.Match
	log.Info().
		Str("room_code", room.Meta.Code).
		Str("match_id", m.ID).
		Strs("winners", m.Winners).
		Strs("losers", m.Losers).
		Int("rounds", m.Round).
		Msg("match finished")
}

func encode(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to encode frame")
		return nil
	}
	return data
}
