package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/wricardo/mcp-training/dice421/game/bot"
)

// ErrInvalidSettings is returned when requested room settings fall outside a preset's limits.
var ErrInvalidSettings = errors.New("invalid room settings")

// Preset holds room defaults, limits and bot pacing.
type Preset struct {
	Name            string      `json:"name"`
	Description     string      `json:"description"`
	MaxPlayers      int         `json:"max_players"`
	TotalTokens     int         `json:"total_tokens"`
	MaxPlayersLimit int         `json:"max_players_limit"`
	MaxTokensLimit  int         `json:"max_tokens_limit"`
	Bot             BotSettings `json:"bot"`
}

// BotSettings configures computer-controlled players.
type BotSettings struct {
	Phase1DelayMS int      `json:"phase1_delay_ms"`
	Phase2DelayMS int      `json:"phase2_delay_ms"`
	Names         []string `json:"names,omitempty"`
	Avatars       []string `json:"avatars,omitempty"`
}

// PresetInfo summarises a preset file for listings.
type PresetInfo struct {
	Filename    string `json:"filename"`
	ConfigID    string `json:"config_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MaxPlayers  int    `json:"max_players"`
	TotalTokens int    `json:"total_tokens"`
}

// DefaultPreset is used when the configs directory holds no usable preset.
func DefaultPreset() *Preset {
	return &Preset{
		Name:            "default",
		Description:     "Default minimal configuration",
		MaxPlayers:      6,
		TotalTokens:     21,
		MaxPlayersLimit: 8,
		MaxTokensLimit:  99,
		Bot: BotSettings{
			Phase1DelayMS: 1000,
			Phase2DelayMS: 850,
		},
	}
}

// Validate checks the preset for consistency.
func (p *Preset) Validate() error {
	if p.Name == "" {
		return errors.New("name is required")
	}
	if p.MaxPlayersLimit < 2 {
		return fmt.Errorf("max_players_limit must be at least 2, got %d", p.MaxPlayersLimit)
	}
	if p.MaxTokensLimit < 2 {
		return fmt.Errorf("max_tokens_limit must be at least 2, got %d", p.MaxTokensLimit)
	}
	if p.MaxPlayers < 2 || p.MaxPlayers > p.MaxPlayersLimit {
		return fmt.Errorf("max_players must be between 2 and %d, got %d", p.MaxPlayersLimit, p.MaxPlayers)
	}
	if p.TotalTokens < 1 || p.TotalTokens > p.MaxTokensLimit {
		return fmt.Errorf("total_tokens must be between 1 and %d, got %d", p.MaxTokensLimit, p.TotalTokens)
	}
	if p.Bot.Phase1DelayMS < 0 || p.Bot.Phase2DelayMS < 0 {
		return errors.New("bot delays cannot be negative")
	}
	if len(p.Bot.Avatars) > 0 && len(p.Bot.Avatars) != len(p.Bot.Names) {
		return fmt.Errorf("bot avatars (%d) must match bot names (%d)", len(p.Bot.Avatars), len(p.Bot.Names))
	}
	seen := make(map[string]bool, len(p.Bot.Names))
	for _, n := range p.Bot.Names {
		if n == "" || seen[n] {
			return fmt.Errorf("bot names must be unique and non-empty: %q", n)
		}
		seen[n] = true
	}
	return nil
}

// Settings resolves the room size and stock a host asked for. Zero values
// fall back to the preset defaults.
func (p *Preset) Settings(maxPlayers, totalTokens int) (int, int, error) {
	if maxPlayers == 0 {
		maxPlayers = p.MaxPlayers
	}
	if totalTokens == 0 {
		totalTokens = p.TotalTokens
	}
	if maxPlayers < 2 || maxPlayers > p.MaxPlayersLimit {
		return 0, 0, fmt.Errorf("%w: max players must be between 2 and %d", ErrInvalidSettings, p.MaxPlayersLimit)
	}
	if totalTokens < 1 || totalTokens > p.MaxTokensLimit {
		return 0, 0, fmt.Errorf("%w: total tokens must be between 1 and %d", ErrInvalidSettings, p.MaxTokensLimit)
	}
	return maxPlayers, totalTokens, nil
}

// Phase1Delay is the pause before a bot rolls during distribution.
func (p *Preset) Phase1Delay() time.Duration {
	return time.Duration(p.Bot.Phase1DelayMS) * time.Millisecond
}

// Phase2Delay is the pause before a bot acts during the showdown.
func (p *Preset) Phase2Delay() time.Duration {
	return time.Duration(p.Bot.Phase2DelayMS) * time.Millisecond
}

// Roster returns the bot identities of the preset, or the built-in ones.
func (p *Preset) Roster() bot.Roster {
	if len(p.Bot.Names) == 0 {
		return bot.DefaultRoster()
	}
	return bot.Roster{Names: p.Bot.Names, Avatars: p.Bot.Avatars}
}
