package engine

import (
	"fmt"
	"time"
)

// Dice is one 3-die roll.
type Dice [3]int

// String renders the faces as a combo-style literal, e.g. "421".
func (d Dice) String() string {
	return fmt.Sprintf("%d%d%d", d[0], d[1], d[2])
}

// Dashed renders the faces for the match log, e.g. "4-2-1".
func (d Dice) Dashed() string {
	return fmt.Sprintf("%d-%d-%d", d[0], d[1], d[2])
}

// Player is a participant of a match.
type Player struct {
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
	IsBot    bool   `json:"isBot"`
	Tokens   int    `json:"tokens"`
}

// RoundResult is one phase-1 roll of the current round.
type RoundResult struct {
	PlayerIdx int    `json:"playerIdx"`
	Username  string `json:"username"`
	Dice      Dice   `json:"dice"`
	Combo     string `json:"combo"`
}

// RollAttempt is one phase-2 roll of a player's turn.
type RollAttempt struct {
	Dice  Dice   `json:"dice"`
	Combo string `json:"combo"`
}

// PlayerRolls tracks a player's phase-2 turn within the current round.
type PlayerRolls struct {
	Rolls      []RollAttempt `json:"rolls"`
	Done       bool          `json:"done"`
	LastCombo  string        `json:"lastCombo,omitempty"`
	LastPower  int           `json:"lastPower"`
	FinalCombo string        `json:"finalCombo,omitempty"`
	FinalPower int           `json:"finalPower"`
}

func newPlayerRolls() *PlayerRolls {
	return &PlayerRolls{Rolls: []RollAttempt{}, LastPower: -1, FinalPower: -1}
}

// Log entry style tags.
const (
	ClassPlain   = ""
	ClassResolve = "ev-resolve"
	ClassMoney   = "ev-money"
	ClassGift    = "ev-gift"
	ClassDone    = "ev-done"
	ClassWin     = "ev-win"
)

// LogEntry is a narrative line of the match log.
type LogEntry struct {
	Text  string    `json:"txt"`
	Class string    `json:"cls"`
	At    time.Time `json:"at"`
}

// MatchState is the complete state of one match.
//
// Phase-2 bookkeeping is keyed by username: the players list is filtered when
// phase 2 starts, so indices are not stable across phases.
type MatchState struct {
	ID          string   `json:"id"`
	Phase       int      `json:"phase"`
	Players     []Player `json:"players"`
	StockTokens int      `json:"stockTokens"`
	TotalTokens int      `json:"totalTokens"`

	P1Order        []int         `json:"p1Order"`
	P1CurrentSlot  int           `json:"p1CurrentSlot"`
	P1RoundResults []RoundResult `json:"p1RoundResults"`

	P2ActivePlayers []string                `json:"p2ActivePlayers"`
	P2CurrentSlot   int                     `json:"p2CurrentSlot"`
	P2MaxRolls      int                     `json:"p2MaxRolls"`
	P2FirstDone     bool                    `json:"p2FirstDone"`
	P2Rolls         map[string]*PlayerRolls `json:"p2Rolls"`
	P2RollsLeft     int                     `json:"p2RollsLeft"`
	P2KeptDice      [3]bool                 `json:"p2KeptDice"`
	P2CurrentDice   *Dice                   `json:"p2CurrentDice"`

	CurrentDice *Dice      `json:"currentDice"`
	Log         []LogEntry `json:"log"`
	Round       int        `json:"round"`
	Finished    bool       `json:"finished"`
	Winners     []string   `json:"winners"`
	Losers      []string   `json:"losers"`
}

// Clone returns a deep copy of the state.
func (s *MatchState) Clone() *MatchState {
	if s == nil {
		return nil
	}
	c := *s
	c.Players = append([]Player(nil), s.Players...)
	c.P1Order = append([]int(nil), s.P1Order...)
	c.P1RoundResults = append([]RoundResult{}, s.P1RoundResults...)
	c.P2ActivePlayers = append([]string{}, s.P2ActivePlayers...)
	c.P2Rolls = make(map[string]*PlayerRolls, len(s.P2Rolls))
	for name, pr := range s.P2Rolls {
		if pr == nil {
			continue
		}
		cp := *pr
		cp.Rolls = append([]RollAttempt{}, pr.Rolls...)
		c.P2Rolls[name] = &cp
	}
	if s.P2CurrentDice != nil {
		d := *s.P2CurrentDice
		c.P2CurrentDice = &d
	}
	if s.CurrentDice != nil {
		d := *s.CurrentDice
		c.CurrentDice = &d
	}
	c.Log = append([]LogEntry{}, s.Log...)
	c.Winners = append([]string{}, s.Winners...)
	c.Losers = append([]string{}, s.Losers...)
	return &c
}

// PlayerIndex returns the position of username in Players, or -1.
func (s *MatchState) PlayerIndex(username string) int {
	for i, p := range s.Players {
		if p.Username == username {
			return i
		}
	}
	return -1
}

// Player returns the player with the given username.
func (s *MatchState) Player(username string) (*Player, bool) {
	i := s.PlayerIndex(username)
	if i < 0 {
		return nil, false
	}
	return &s.Players[i], true
}

// TokensInPlay returns the sum of all player balances.
func (s *MatchState) TokensInPlay() int {
	total := 0
	for _, p := range s.Players {
		total += p.Tokens
	}
	return total
}

// EffectKind classifies a side effect of a transition.
type EffectKind string

const (
	EffectGift          EffectKind = "gift"
	EffectStockTransfer EffectKind = "stock_transfer"
	EffectDuelTransfer  EffectKind = "duel_transfer"
	EffectPhaseChange   EffectKind = "phase_change"
	EffectTieReroll     EffectKind = "tie_reroll"
	EffectFinished      EffectKind = "finished"
)

// Effect describes something that happened while applying an action.
// From is empty for tokens taken from the stock.
type Effect struct {
	Kind   EffectKind `json:"kind"`
	From   string     `json:"from,omitempty"`
	To     string     `json:"to,omitempty"`
	Amount int        `json:"amount,omitempty"`
	Phase  int        `json:"phase,omitempty"`
}

// Transition is the outcome of a successful Apply.
type Transition struct {
	State   *MatchState `json:"state"`
	Anims   []string    `json:"anims"`
	Effects []Effect    `json:"effects"`
}

// ActionKind is the type of a player action.
type ActionKind string

const (
	ActionRoll ActionKind = "ROLL"
	ActionStop ActionKind = "STOP"
	ActionKeep ActionKind = "KEEP"
)

// Action is a player's intent for the current turn.
type Action struct {
	Kind     ActionKind
	Username string
	// Index is the die toggled by ActionKeep.
	Index int
	// Keep, when set on a phase-2 ActionRoll, replaces the kept-dice mask before rolling.
	Keep *[3]bool
}
