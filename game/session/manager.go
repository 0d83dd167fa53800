package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wricardo/mcp-training/dice421/game/config"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomExists   = errors.New("room already exists")
	ErrInvalidCode  = errors.New("invalid room code")
)

var codePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,16}$`)

// randRead is the entropy source for generated codes.
var randRead = rand.Read

// Settings are the lobby parameters chosen at creation.
type Settings struct {
	MaxPlayers  int
	TotalTokens int
	ConfigName  string
	Preset      *config.Preset
}

// Manager handles room lifecycle
type Manager struct {
	rooms map[string]*Room
	mu    sync.RWMutex
	now   func() time.Time
}

// NewManager creates a new room manager
func NewManager() *Manager {
	return &Manager{
		rooms: make(map[string]*Room),
		now:   time.Now,
	}
}

// Create registers a new waiting room hosted by host. An empty code gets a
// generated one.
func (m *Manager) Create(code string, host Member, settings Settings) (*Room, error) {
	if code != "" && !codePattern.MatchString(code) {
		return nil, ErrInvalidCode
	}
	if settings.Preset == nil {
		settings.Preset = config.DefaultPreset()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if code == "" {
		generated, err := m.generateCode()
		if err != nil {
			return nil, err
		}
		code = generated
	}
	if _, exists := m.rooms[strings.ToLower(code)]; exists {
		return nil, ErrRoomExists
	}

	now := m.now()
	room := &Room{
		Meta: Meta{
			Code:        code,
			Host:        host.Username,
			MaxPlayers:  settings.MaxPlayers,
			TotalTokens: settings.TotalTokens,
			Players:     []Member{host},
			Status:      StatusWaiting,
			Config:      settings.ConfigName,
		},
		Preset:       settings.Preset,
		CreatedAt:    now,
		LastActivity: now,
		peers:        make(map[string]Peer),
		now:          m.now,
	}
	m.rooms[strings.ToLower(code)] = room

	log.Debug().Str("room_code", code).Str("username", host.Username).Msg("room created")
	return room, nil
}

// Get retrieves a room by code (case-insensitive)
func (m *Manager) Get(code string) (*Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	room, exists := m.rooms[strings.ToLower(code)]
	if !exists {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// Remove unregisters room. A newer room that reused the code is left alone.
func (m *Manager) Remove(room *Room) bool {
	if room == nil {
		return false
	}
	key := strings.ToLower(room.Meta.Code)

	m.mu.Lock()
	defer m.mu.Unlock()

	if current, exists := m.rooms[key]; exists && current == room {
		delete(m.rooms, key)
		return true
	}
	return false
}

// List returns all rooms ordered by creation time
func (m *Manager) List() []*Room {
	m.mu.RLock()
	result := make([]*Room, 0, len(m.rooms))
	for _, room := range m.rooms {
		result = append(result, room)
	}
	m.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

// Count returns the number of rooms
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}

// CleanupIdle closes rooms without peers whose last activity is older than maxAge.
func (m *Manager) CleanupIdle(maxAge time.Duration) int {
	cutoff := m.now().Add(-maxAge)
	removed := 0

	for _, room := range m.List() {
		room.Lock()
		if room.PeerCount() == 0 && room.LastActivity.Before(cutoff) {
			room.MarkClosed()
			if m.Remove(room) {
				removed++
				log.Info().Str("room_code", room.Meta.Code).Msg("idle room removed")
			}
		}
		room.Unlock()
	}
	return removed
}

// CloseAll stops every bot timer and empties the registry.
func (m *Manager) CloseAll() {
	for _, room := range m.List() {
		room.Lock()
		room.MarkClosed()
		m.Remove(room)
		room.Unlock()
	}
}

// generateCode returns an unused random 4-character code. Callers hold m.mu.
func (m *Manager) generateCode() (string, error) {
	for {
		bytes := make([]byte, 2)
		if _, err := randRead(bytes); err != nil {
			return "", fmt.Errorf("failed to generate room code: %w", err)
		}
		code := hex.EncodeToString(bytes)
		if _, exists := m.rooms[code]; !exists {
			return code, nil
		}
	}
}
