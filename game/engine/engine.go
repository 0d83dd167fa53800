package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotEnoughPlayers = errors.New("at least 2 players required")
	ErrInvalidStock     = errors.New("stock must be positive")
	ErrDuplicatePlayer  = errors.New("duplicate username")
	ErrNoMatch          = errors.New("no match in progress")
)

// Engine applies the rules of the game. It holds no match state of its own.
type Engine struct {
	roller Roller
	now    func() time.Time
}

// Option customises an Engine.
type Option func(*Engine)

// WithClock sets the clock used to timestamp log entries.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an engine drawing dice from roller. A nil roller uses DefaultRoller.
func NewEngine(roller Roller, opts ...Option) *Engine {
	if roller == nil {
		roller = DefaultRoller()
	}
	e := &Engine{
		roller: roller,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewMatch creates a phase-1 match. Every player starts with zero tokens and
// the stock holds totalTokens.
func (e *Engine) NewMatch(players []Player, totalTokens int) (*MatchState, error) {
	if len(players) < 2 {
		return nil, ErrNotEnoughPlayers
	}
	if totalTokens <= 0 {
		return nil, ErrInvalidStock
	}

	seen := make(map[string]bool, len(players))
	roster := make([]Player, len(players))
	order := make([]int, len(players))
	for i, p := range players {
		if seen[p.Username] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicatePlayer, p.Username)
		}
		seen[p.Username] = true
		p.Tokens = 0
		roster[i] = p
		order[i] = i
	}

	s := &MatchState{
		ID:              uuid.NewString(),
		Phase:           1,
		Players:         roster,
		StockTokens:     totalTokens,
		TotalTokens:     totalTokens,
		P1Order:         order,
		P1RoundResults:  []RoundResult{},
		P2ActivePlayers: []string{},
		P2MaxRolls:      3,
		P2Rolls:         map[string]*PlayerRolls{},
		P2RollsLeft:     3,
		Log:             []LogEntry{},
		Winners:         []string{},
		Losers:          []string{},
	}
	st := &step{engine: e, state: s}
	st.logf(ClassResolve, "🎲 Match started! Phase 1: distribution")
	st.logf(ClassPlain, "📌 Each round, the worst combo takes the value of the best combo from the stock")
	return s, nil
}

// Apply validates action against state and returns the resulting transition.
// The given state is never modified. Rejections listed in IsSilent are
// expected under latency and carry no information for the sender.
func (e *Engine) Apply(state *MatchState, action Action) (*Transition, error) {
	if state == nil {
		return nil, ErrNoMatch
	}
	if err := Validate(state, action); err != nil {
		return nil, err
	}

	st := &step{engine: e, state: state.Clone(), anims: []string{}, effects: []Effect{}}
	switch action.Kind {
	case ActionRoll:
		if st.state.Phase == 1 {
			st.rollPhase1()
		} else {
			if action.Keep != nil {
				st.state.P2KeptDice = *action.Keep
			}
			st.rollPhase2()
		}
	case ActionStop:
		st.finishPhase2Player()
	case ActionKeep:
		st.state.P2KeptDice[action.Index] = !st.state.P2KeptDice[action.Index]
	}

	return &Transition{State: st.state, Anims: st.anims, Effects: st.effects}, nil
}

func (e *Engine) rollDie() int {
	return e.roller.Intn(6) + 1
}

func (e *Engine) rollDice() Dice {
	return Dice{e.rollDie(), e.rollDie(), e.rollDie()}
}

// step accumulates the side effects of one Apply call on a private copy of the state.
type step struct {
	engine  *Engine
	state   *MatchState
	anims   []string
	effects []Effect
}

func (st *step) logf(class, format string, args ...any) {
	st.state.Log = append(st.state.Log, LogEntry{
		Text:  fmt.Sprintf(format, args...),
		Class: class,
		At:    st.engine.now(),
	})
}

func (st *step) anim(format string, args ...any) {
	st.anims = append(st.anims, fmt.Sprintf(format, args...))
}

func (st *step) effect(e Effect) {
	st.effects = append(st.effects, e)
}

func (st *step) finish(winners, losers []string) {
	st.state.Finished = true
	st.state.Winners = append([]string{}, winners...)
	st.state.Losers = append([]string{}, losers...)
	st.effect(Effect{Kind: EffectFinished})
}

// scoreSuffix renders " (N🪙)" for combos worth something.
func scoreSuffix(combo string) string {
	if s := Score(combo); s > 0 {
		return fmt.Sprintf(" (%d🪙)", s)
	}
	return ""
}

func usernames(players []Player) []string {
	out := make([]string, 0, len(players))
	for _, p := range players {
		out = append(out, p.Username)
	}
	return out
}
