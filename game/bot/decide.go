package bot

import "github.com/wricardo/mcp-training/dice421/game/engine"

var (
	strongPower = engine.Power("321")
	validPower  = engine.Power("221")
)

// Decide returns the action the current player should take when it is a bot.
// ok is false when the match is over, the current player is human, or the
// state does not allow a decision.
func Decide(s *engine.MatchState) (engine.Action, bool) {
	if s == nil || s.Finished {
		return engine.Action{}, false
	}
	cur, ok := s.CurrentPlayer()
	if !ok || !cur.IsBot {
		return engine.Action{}, false
	}

	roll := engine.Action{Kind: engine.ActionRoll, Username: cur.Username}
	if s.Phase == 1 {
		return roll, true
	}

	pr := s.P2Rolls[cur.Username]
	if pr == nil {
		return engine.Action{}, false
	}
	hasDice := s.P2CurrentDice != nil && len(pr.Rolls) > 0
	if !hasDice {
		return roll, true
	}

	dice := *s.P2CurrentDice
	power := engine.Power(engine.Classify(dice))
	isFirst := s.P2CurrentSlot == 0
	rolls := len(pr.Rolls)

	if power >= strongPower ||
		(isFirst && rolls >= 2 && power >= validPower) ||
		(!isFirst && rolls >= s.P2MaxRolls) {
		return engine.Action{Kind: engine.ActionStop, Username: cur.Username}, true
	}

	mask := KeepMask(dice, power)
	roll.Keep = &mask
	return roll, true
}

// KeepMask picks the dice a bot holds before rolling again: the first two 1s
// when at least two are showing, a lone 1 when the roll is already a valid
// combo, nothing otherwise.
func KeepMask(dice engine.Dice, power int) [3]bool {
	var mask [3]bool
	ones := 0
	for _, d := range dice {
		if d == 1 {
			ones++
		}
	}

	switch {
	case ones >= 2:
		kept := 0
		for i, d := range dice {
			if d == 1 && kept < 2 {
				mask[i] = true
				kept++
			}
		}
	case ones == 1 && power >= validPower:
		for i, d := range dice {
			mask[i] = d == 1
		}
	}
	return mask
}
