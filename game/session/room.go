package session

import (
	"sync"
	"time"

	"github.com/wricardo/mcp-training/dice421/game/config"
	"github.com/wricardo/mcp-training/dice421/game/engine"
)

// Status is the lobby state of a room.
type Status string

const (
	StatusWaiting Status = "waiting"
	StatusPlaying Status = "playing"
)

// Member is a seat in the lobby roster.
type Member struct {
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
	IsBot    bool   `json:"isBot"`
}

// Meta is the lobby view of a room sent in ROOM_UPDATE frames.
type Meta struct {
	Code        string   `json:"code"`
	Host        string   `json:"host"`
	MaxPlayers  int      `json:"maxPlayers"`
	TotalTokens int      `json:"totalTokens"`
	Players     []Member `json:"players"`
	Status      Status   `json:"status"`
	Config      string   `json:"config,omitempty"`
}

// Peer is a connected client able to receive frames.
type Peer interface {
	ID() string
	// Send queues data without blocking and reports whether it was accepted.
	Send(data []byte) bool
	// Bind records the room and username the peer acts for.
	Bind(code, username string)
	Binding() (code, username string)
}

// Room is one game table. All fields are guarded by the embedded mutex.
type Room struct {
	sync.Mutex

	Meta         Meta
	Match        *engine.MatchState
	Preset       *config.Preset
	CreatedAt    time.Time
	LastActivity time.Time

	peers  map[string]Peer
	timer  *time.Timer
	botGen uint64
	closed bool
	now    func() time.Time
}

// Snapshot returns a copy of the lobby metadata.
func (r *Room) Snapshot() Meta {
	meta := r.Meta
	meta.Players = append([]Member{}, r.Meta.Players...)
	return meta
}

// Touch records activity on the room.
func (r *Room) Touch() {
	r.LastActivity = r.now()
}

// HasMember reports whether username holds a seat.
func (r *Room) HasMember(username string) bool {
	for _, m := range r.Meta.Players {
		if m.Username == username {
			return true
		}
	}
	return false
}

// AddMember seats m unless the username is already seated.
func (r *Room) AddMember(m Member) bool {
	if r.HasMember(m.Username) {
		return false
	}
	r.Meta.Players = append(r.Meta.Players, m)
	return true
}

// RemoveMember frees the seat of username.
func (r *Room) RemoveMember(username string) bool {
	players := r.Meta.Players[:0:0]
	removed := false
	for _, m := range r.Meta.Players {
		if m.Username == username {
			removed = true
			continue
		}
		players = append(players, m)
	}
	r.Meta.Players = players
	return removed
}

// BotCount returns how many seats are held by bots.
func (r *Room) BotCount() int {
	n := 0
	for _, m := range r.Meta.Players {
		if m.IsBot {
			n++
		}
	}
	return n
}

// IsFull reports whether every seat is taken.
func (r *Room) IsFull() bool {
	return len(r.Meta.Players) >= r.Meta.MaxPlayers
}

// Attach registers a peer for broadcasts.
func (r *Room) Attach(p Peer) {
	r.peers[p.ID()] = p
}

// Detach unregisters a peer and returns the number of peers left.
func (r *Room) Detach(id string) int {
	delete(r.peers, id)
	return len(r.peers)
}

// HasPeer reports whether the peer is attached.
func (r *Room) HasPeer(id string) bool {
	_, ok := r.peers[id]
	return ok
}

// PeerCount returns the number of attached peers.
func (r *Room) PeerCount() int {
	return len(r.peers)
}

// Peers returns the attached peers.
func (r *Room) Peers() []Peer {
	out := make([]Peer, 0, len(r.peers))
	for _, p := range r.peers {
		out = append(out, p)
	}
	return out
}

// Broadcast sends data to every attached peer and returns how many accepted it.
func (r *Room) Broadcast(data []byte) int {
	if data == nil {
		return 0
	}
	sent := 0
	for _, p := range r.peers {
		if p.Send(data) {
			sent++
		}
	}
	return sent
}

// ArmBot replaces any pending bot timer with one firing after delay.
func (r *Room) ArmBot(delay time.Duration, fire func(gen uint64)) {
	r.CancelBot()
	if r.closed {
		return
	}
	gen := r.botGen
	r.timer = time.AfterFunc(delay, func() { fire(gen) })
}

// CancelBot stops the pending bot timer, if any, and invalidates callbacks already running.
func (r *Room) CancelBot() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.botGen++
}

// BotArmed reports whether a bot timer is pending.
func (r *Room) BotArmed() bool {
	return r.timer != nil
}

// BotCurrent reports whether a callback armed with gen is still wanted.
func (r *Room) BotCurrent(gen uint64) bool {
	return !r.closed && gen == r.botGen
}

// Closed reports whether the room was shut down.
func (r *Room) Closed() bool {
	return r.closed
}

// MarkClosed cancels the bot timer and flags the room as gone.
func (r *Room) MarkClosed() {
	r.CancelBot()
	r.closed = true
}
