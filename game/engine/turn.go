package engine

import "errors"

// Turn arbitration errors. All of them are silent: see IsSilent.
var (
	ErrMatchFinished = errors.New("match is finished")
	ErrNotYourTurn   = errors.New("not your turn")
	ErrWrongPhase    = errors.New("action not allowed in this phase")
	ErrInvalidDie    = errors.New("die index out of range")
	ErrNothingToStop = errors.New("nothing to stop")
	ErrUnknownAction = errors.New("unknown action")
)

// IsSilent reports whether err is a turn arbitration rejection. Such actions
// are dropped without notifying anybody: stale client messages are expected.
func IsSilent(err error) bool {
	return errors.Is(err, ErrMatchFinished) ||
		errors.Is(err, ErrNotYourTurn) ||
		errors.Is(err, ErrWrongPhase) ||
		errors.Is(err, ErrInvalidDie) ||
		errors.Is(err, ErrNothingToStop) ||
		errors.Is(err, ErrUnknownAction)
}

// CurrentPlayer returns the player whose turn it is.
func (s *MatchState) CurrentPlayer() (Player, bool) {
	if s == nil {
		return Player{}, false
	}
	if s.Phase == 1 {
		if s.P1CurrentSlot < 0 || s.P1CurrentSlot >= len(s.P1Order) {
			return Player{}, false
		}
		idx := s.P1Order[s.P1CurrentSlot]
		if idx < 0 || idx >= len(s.Players) {
			return Player{}, false
		}
		return s.Players[idx], true
	}
	if s.P2CurrentSlot < 0 || s.P2CurrentSlot >= len(s.P2ActivePlayers) {
		return Player{}, false
	}
	p, ok := s.Player(s.P2ActivePlayers[s.P2CurrentSlot])
	if !ok {
		return Player{}, false
	}
	return *p, true
}

// CurrentUsername returns the username whose turn it is, or "".
func (s *MatchState) CurrentUsername() string {
	p, ok := s.CurrentPlayer()
	if !ok {
		return ""
	}
	return p.Username
}

// Validate checks that action may be applied to state right now.
func Validate(s *MatchState, a Action) error {
	if s.Finished {
		return ErrMatchFinished
	}
	switch a.Kind {
	case ActionRoll, ActionStop, ActionKeep:
	default:
		return ErrUnknownAction
	}
	if a.Kind != ActionRoll && s.Phase != 2 {
		return ErrWrongPhase
	}
	cur, ok := s.CurrentPlayer()
	if !ok || cur.Username != a.Username {
		return ErrNotYourTurn
	}

	switch a.Kind {
	case ActionKeep:
		if a.Index < 0 || a.Index > 2 {
			return ErrInvalidDie
		}
	case ActionStop:
		pr := s.P2Rolls[a.Username]
		if pr == nil || len(pr.Rolls) == 0 || pr.Done {
			return ErrNothingToStop
		}
	}
	return nil
}
