package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/pterm/pterm"

	"github.com/wricardo/mcp-training/dice421/game/bot"
	"github.com/wricardo/mcp-training/dice421/game/engine"
)

// maxSteps bounds a single simulated match.
const maxSteps = 20000

// SimulationParams configures a batch of all-bot matches.
type SimulationParams struct {
	Matches int
	Players int
	Tokens  int
	Seed    uint64
}

// SimulationStats aggregates the outcome of a batch.
type SimulationStats struct {
	Matches int
	Players int
	Tokens  int
	// Losses counts lost matches per seat.
	Losses []int
	Wins   []int
	Rolls  int
	Phase2 int
	// Stalled counts matches cut off by maxSteps.
	Stalled int
}

func simulate(ctx context.Context, p SimulationParams) (*SimulationStats, error) {
	if p.Matches < 1 {
		return nil, errors.New("matches must be at least 1")
	}
	if p.Players < 2 {
		return nil, engine.ErrNotEnoughPlayers
	}
	if p.Tokens < 1 {
		return nil, engine.ErrInvalidStock
	}

	stats := &SimulationStats{
		Matches: p.Matches,
		Players: p.Players,
		Tokens:  p.Tokens,
		Losses:  make([]int, p.Players),
		Wins:    make([]int, p.Players),
	}

	seats := make(map[string]int, p.Players)
	players := make([]engine.Player, p.Players)
	for i := range players {
		name := fmt.Sprintf("Bot %d", i+1)
		players[i] = engine.Player{Username: name, IsBot: true}
		seats[name] = i
	}

	for i := 0; i < p.Matches; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		state, rolls, err := playMatch(engine.NewEngine(engine.NewSeededRoller(p.Seed+uint64(i))), players, p.Tokens)
		if err != nil {
			return nil, fmt.Errorf("match %d: %w", i, err)
		}
		stats.Rolls += rolls
		if state.Phase == 2 {
			stats.Phase2++
		}
		if !state.Finished {
			stats.Stalled++
			continue
		}
		for _, name := range state.Losers {
			stats.Losses[seats[name]]++
		}
		for _, name := range state.Winners {
			stats.Wins[seats[name]]++
		}
	}
	return stats, nil
}

// playMatch lets bot.Decide drive a match until it finishes or maxSteps is hit.
func playMatch(e *engine.Engine, players []engine.Player, tokens int) (*engine.MatchState, int, error) {
	state, err := e.NewMatch(players, tokens)
	if err != nil {
		return nil, 0, err
	}
	rolls := 0
	for step := 0; step < maxSteps; step++ {
		action, ok := bot.Decide(state)
		if !ok {
			break
		}
		tr, err := e.Apply(state, action)
		if err != nil {
			return nil, rolls, err
		}
		if action.Kind == engine.ActionRoll {
			rolls++
		}
		state = tr.State
	}
	return state, rolls, nil
}

func (s *SimulationStats) seatTable() pterm.TableData {
	data := pterm.TableData{{"Seat", "Lost", "Lost %", "Won"}}
	for i := range s.Losses {
		data = append(data, []string{
			fmt.Sprintf("Bot %d", i+1),
			fmt.Sprintf("%d", s.Losses[i]),
			fmt.Sprintf("%.1f", 100*float64(s.Losses[i])/float64(s.Matches)),
			fmt.Sprintf("%d", s.Wins[i]),
		})
	}
	return data
}
