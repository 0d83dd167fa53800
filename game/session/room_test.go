package session

import (
	"sync"
	"testing"
	"time"
)

type fakePeer struct {
	id       string
	mu       sync.Mutex
	frames   [][]byte
	full     bool
	code     string
	username string
}

func newFakePeer(id string) *fakePeer {
	return &fakePeer{id: id}
}

func (p *fakePeer) ID() string { return p.id }

func (p *fakePeer) Send(data []byte) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.full {
		return false
	}
	p.frames = append(p.frames, data)
	return true
}

func (p *fakePeer) Bind(code, username string) {
	p.mu.Lock()
	p.code, p.username = code, username
	p.mu.Unlock()
}

func (p *fakePeer) Binding() (string, string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.code, p.username
}

func (p *fakePeer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.frames)
}

func newTestRoom(t *testing.T) *Room {
	t.Helper()
	manager, _ := newTestManager()
	room, err := manager.Create("abcd", Member{Username: "alice", Avatar: "🐱"}, Settings{MaxPlayers: 3, TotalTokens: 10})
	if err != nil {
		t.Fatalf("Failed to create room: %v", err)
	}
	return room
}

func TestRoom_Members(t *testing.T) {
	room := newTestRoom(t)

	if room.AddMember(Member{Username: "alice"}) {
		t.Error("A seated username must not be added twice")
	}
	if !room.AddMember(Member{Username: "RobotX", IsBot: true}) {
		t.Error("Expected the bot to be seated")
	}
	if room.BotCount() != 1 {
		t.Errorf("Expected 1 bot, got %d", room.BotCount())
	}
	if room.IsFull() {
		t.Error("Room with 2 of 3 seats is not full")
	}
	room.AddMember(Member{Username: "bob"})
	if !room.IsFull() {
		t.Error("Room with 3 of 3 seats is full")
	}

	snap := room.Snapshot()
	if !room.RemoveMember("bob") {
		t.Error("Expected bob to be removed")
	}
	if room.RemoveMember("bob") {
		t.Error("bob was already removed")
	}
	if len(snap.Players) != 3 {
		t.Errorf("Snapshot must not change after removal, got %d players", len(snap.Players))
	}
	if room.HasMember("bob") || !room.HasMember("RobotX") {
		t.Error("Unexpected roster after removal")
	}
}

func TestRoom_Broadcast(t *testing.T) {
	room := newTestRoom(t)
	a, b, c := newFakePeer("a"), newFakePeer("b"), newFakePeer("c")
	c.full = true

	room.Attach(a)
	room.Attach(b)
	room.Attach(c)
	room.Attach(a)

	if room.PeerCount() != 3 {
		t.Fatalf("Expected 3 peers, got %d", room.PeerCount())
	}
	if sent := room.Broadcast([]byte("hello")); sent != 2 {
		t.Errorf("Expected 2 deliveries, got %d", sent)
	}
	if a.count() != 1 || b.count() != 1 || c.count() != 0 {
		t.Errorf("Unexpected frame counts a=%d b=%d c=%d", a.count(), b.count(), c.count())
	}

	if left := room.Detach("b"); left != 2 {
		t.Errorf("Expected 2 peers left, got %d", left)
	}
	if room.HasPeer("b") {
		t.Error("b should be detached")
	}
	room.Broadcast([]byte("again"))
	if b.count() != 1 {
		t.Error("Detached peer must not receive frames")
	}
}

func TestRoom_BotTimer(t *testing.T) {
	room := newTestRoom(t)
	fired := make(chan uint64, 2)

	room.Lock()
	room.ArmBot(time.Millisecond, func(gen uint64) { fired <- gen })
	room.Unlock()

	select {
	case gen := <-fired:
		room.Lock()
		if !room.BotCurrent(gen) {
			t.Error("Expected the fired generation to be current")
		}
		room.Unlock()
	case <-time.After(2 * time.Second):
		t.Fatal("Bot timer never fired")
	}
}

func TestRoom_CancelInvalidatesGeneration(t *testing.T) {
	room := newTestRoom(t)
	var armed uint64

	room.Lock()
	room.ArmBot(time.Hour, func(gen uint64) {})
	armed = room.botGen
	room.CancelBot()
	stale := room.BotCurrent(armed)
	pending := room.BotArmed()
	room.Unlock()

	if stale {
		t.Error("A cancelled generation must not be current")
	}
	if pending {
		t.Error("Expected no pending timer after cancel")
	}
}

func TestRoom_ClosedRoomDoesNotArm(t *testing.T) {
	room := newTestRoom(t)

	room.Lock()
	defer room.Unlock()
	room.MarkClosed()
	room.ArmBot(time.Millisecond, func(uint64) { t.Error("closed room fired a bot") })

	if room.BotArmed() {
		t.Error("Closed room must not arm a timer")
	}
	if room.BotCurrent(room.botGen) {
		t.Error("Closed room has no current generation")
	}
}

func TestRoom_Touch(t *testing.T) {
	manager, clock := newTestManager()
	room, _ := manager.Create("abcd", Member{Username: "alice"}, testSettings())

	clock.Advance(time.Minute)
	room.Lock()
	room.Touch()
	room.Unlock()

	if got := room.LastActivity.Sub(room.CreatedAt); got != time.Minute {
		t.Errorf("Expected activity one minute after creation, got %v", got)
	}
}
