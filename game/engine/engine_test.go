package engine

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

var testClock = func() time.Time {
	return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
}

func testPlayers(names ...string) []Player {
	players := make([]Player, 0, len(names))
	for _, n := range names {
		players = append(players, Player{Username: n, Avatar: "🙂"})
	}
	return players
}

func newTestEngine(faces ...int) (*Engine, *FixedRoller) {
	roller := NewFixedRoller(faces...)
	return NewEngine(roller, WithClock(testClock)), roller
}

func mustApply(t *testing.T, e *Engine, s *MatchState, a Action) *Transition {
	t.Helper()
	tr, err := e.Apply(s, a)
	if err != nil {
		t.Fatalf("Apply(%+v) failed: %v", a, err)
	}
	return tr
}

func roll(name string) Action {
	return Action{Kind: ActionRoll, Username: name}
}

func stop(name string) Action {
	return Action{Kind: ActionStop, Username: name}
}

func snapshot(t *testing.T, s *MatchState) string {
	t.Helper()
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal state: %v", err)
	}
	return string(data)
}

func TestNewMatch(t *testing.T) {
	e, _ := newTestEngine(1)

	s, err := e.NewMatch(testPlayers("alice", "bob", "carol"), 21)
	if err != nil {
		t.Fatalf("NewMatch failed: %v", err)
	}

	if s.Phase != 1 {
		t.Errorf("expected phase 1, got %d", s.Phase)
	}
	if s.StockTokens != 21 || s.TotalTokens != 21 {
		t.Errorf("expected stock 21, got %d (total %d)", s.StockTokens, s.TotalTokens)
	}
	if len(s.P1Order) != 3 || s.P1Order[0] != 0 || s.P1Order[2] != 2 {
		t.Errorf("unexpected initial order %v", s.P1Order)
	}
	if len(s.Log) != 2 {
		t.Errorf("expected 2 opening log lines, got %d", len(s.Log))
	}
	if !s.Log[0].At.Equal(testClock()) {
		t.Errorf("log entry not stamped with the engine clock: %v", s.Log[0].At)
	}
	if s.ID == "" {
		t.Error("expected a match ID")
	}
	if got := s.CurrentUsername(); got != "alice" {
		t.Errorf("expected alice to start, got %q", got)
	}
	for _, p := range s.Players {
		if p.Tokens != 0 {
			t.Errorf("%s starts with %d tokens", p.Username, p.Tokens)
		}
	}
}

func TestNewMatchErrors(t *testing.T) {
	e, _ := newTestEngine(1)

	tests := []struct {
		name    string
		players []Player
		stock   int
		wantErr error
	}{
		{"single player", testPlayers("alice"), 10, ErrNotEnoughPlayers},
		{"empty stock", testPlayers("alice", "bob"), 0, ErrInvalidStock},
		{"duplicate username", testPlayers("alice", "alice"), 10, ErrDuplicatePlayer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.NewMatch(tt.players, tt.stock)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	e, _ := newTestEngine(6, 5, 4)
	s, _ := e.NewMatch(testPlayers("alice", "bob"), 10)
	before := snapshot(t, s)

	tr := mustApply(t, e, s, roll("alice"))

	if snapshot(t, s) != before {
		t.Error("Apply modified the input state")
	}
	if tr.State == s {
		t.Error("Apply returned the input pointer")
	}
	if len(tr.State.P1RoundResults) != 1 {
		t.Errorf("expected 1 round result in the new state, got %d", len(tr.State.P1RoundResults))
	}
}

func TestStockInvariantAcrossRandomMatches(t *testing.T) {
	for seed := uint64(1); seed <= 40; seed++ {
		e := NewEngine(NewSeededRoller(seed), WithClock(testClock))
		s, err := e.NewMatch(testPlayers("a", "b", "c", "d"), 15)
		if err != nil {
			t.Fatalf("NewMatch failed: %v", err)
		}

		granted := 0
		for steps := 0; !s.Finished; steps++ {
			if steps > 20000 {
				t.Fatalf("seed %d: match did not finish", seed)
			}
			tr := mustApply(t, e, s, roll(s.CurrentUsername()))
			for _, eff := range tr.Effects {
				if eff.Kind == EffectGift || eff.Kind == EffectStockTransfer {
					granted += eff.Amount
				}
			}
			s = tr.State

			if s.StockTokens < 0 {
				t.Fatalf("seed %d: negative stock %d", seed, s.StockTokens)
			}
			if s.Phase == 1 && s.StockTokens != 15-granted {
				t.Fatalf("seed %d: stock %d, want %d", seed, s.StockTokens, 15-granted)
			}
			if s.Phase == 1 && s.StockTokens+s.TokensInPlay() != 15 {
				t.Fatalf("seed %d: tokens not conserved in phase 1", seed)
			}
		}

		if len(s.Losers) > 1 {
			t.Errorf("seed %d: expected at most one loser, got %v", seed, s.Losers)
		}
		if _, err := e.Apply(s, roll("a")); !errors.Is(err, ErrMatchFinished) {
			t.Errorf("seed %d: expected ErrMatchFinished after the end, got %v", seed, err)
		}
	}
}
