package engine

import (
	"fmt"
	"strings"
)

// resetPhase2Round starts a fresh phase-2 round for the current active players.
func (st *step) resetPhase2Round(rolls int) {
	s := st.state
	s.P2CurrentSlot = 0
	s.P2RollsLeft = rolls
	s.P2KeptDice = [3]bool{}
	s.P2CurrentDice = nil
	s.P2Rolls = make(map[string]*PlayerRolls, len(s.P2ActivePlayers))
	for _, name := range s.P2ActivePlayers {
		s.P2Rolls[name] = newPlayerRolls()
	}
}

func (st *step) rollPhase2() {
	s := st.state
	name := s.P2ActivePlayers[s.P2CurrentSlot]
	player, _ := s.Player(name)
	pr := s.P2Rolls[name]
	if pr == nil {
		pr = newPlayerRolls()
		s.P2Rolls[name] = pr
	}
	kept := s.P2KeptDice
	isFirst := s.P2CurrentSlot == 0

	var dice Dice
	if s.P2CurrentDice != nil && len(pr.Rolls) > 0 {
		dice = *s.P2CurrentDice
		for i := range dice {
			if !kept[i] {
				dice[i] = st.engine.rollDie()
			}
		}
	} else {
		dice = st.engine.rollDice()
	}
	current := dice
	s.P2CurrentDice = &current

	combo := Classify(dice)
	pr.LastCombo = combo
	pr.LastPower = Power(combo)
	pr.Rolls = append(pr.Rolls, RollAttempt{Dice: dice, Combo: combo})
	s.P2RollsLeft--

	keptStr := ""
	var keptFaces []string
	for i, k := range kept {
		if k {
			keptFaces = append(keptFaces, fmt.Sprint(dice[i]))
		}
	}
	if len(keptFaces) > 0 {
		keptStr = " 🔒" + strings.Join(keptFaces, ",")
	}
	allowance := "?"
	if !isFirst {
		allowance = fmt.Sprint(s.P2MaxRolls)
	}
	st.logf(ClassPlain, "%s %s [%d/%s]: [%s]%s → %s%s",
		player.Avatar, player.Username, len(pr.Rolls), allowance, dice.Dashed(), keptStr, combo, scoreSuffix(combo))

	display := dice
	s.CurrentDice = &display

	if s.P2RollsLeft <= 0 {
		st.finishPhase2Player()
	}
}

// finishPhase2Player locks in the current player's last roll and moves on.
// The round leader's roll count becomes the allowance of everybody else.
func (st *step) finishPhase2Player() {
	s := st.state
	name := s.P2ActivePlayers[s.P2CurrentSlot]
	pr := s.P2Rolls[name]
	if pr == nil {
		pr = newPlayerRolls()
		s.P2Rolls[name] = pr
	}
	isFirst := s.P2CurrentSlot == 0

	pr.Done = true
	pr.FinalCombo = pr.LastCombo
	pr.FinalPower = pr.LastPower
	if pr.FinalCombo == "" {
		pr.FinalPower = -1
	}
	s.P2KeptDice = [3]bool{}
	s.P2CurrentDice = nil

	if isFirst {
		s.P2MaxRolls = len(pr.Rolls)
		s.P2FirstDone = true
		st.logf(ClassDone, "  ✅ %s stops, keeps %s (%d🪙). Others: %d roll(s).", name, pr.FinalCombo, Score(pr.FinalCombo), s.P2MaxRolls)
	} else {
		st.logf(ClassDone, "  ✅ %s keeps %s (%d🪙)", name, pr.FinalCombo, Score(pr.FinalCombo))
	}

	next := s.P2CurrentSlot + 1
	if next < len(s.P2ActivePlayers) {
		s.P2CurrentSlot = next
		s.P2RollsLeft = s.P2MaxRolls
		return
	}
	st.logf(ClassResolve, "〔 Round resolution 〕")
	st.resolvePhase2Round()
}

type duelResult struct {
	player *Player
	combo  string
	power  int
}

// resolvePhase2Round moves tokens from the strongest to the weakest final combo.
func (st *step) resolvePhase2Round() {
	s := st.state
	s.Round++

	results := make([]duelResult, 0, len(s.P2ActivePlayers))
	for _, name := range s.P2ActivePlayers {
		p, ok := s.Player(name)
		if !ok {
			continue
		}
		r := duelResult{player: p, power: -1}
		if pr := s.P2Rolls[name]; pr != nil {
			r.combo = pr.FinalCombo
			r.power = pr.FinalPower
		}
		results = append(results, r)
	}
	if len(results) == 0 {
		st.finish(usernames(s.Players), nil)
		return
	}

	maxP, minP := results[0].power, results[0].power
	for _, r := range results[1:] {
		maxP = max(maxP, r.power)
		minP = min(minP, r.power)
	}

	if maxP == minP {
		st.logf(ClassPlain, "🤝 Tie! Every player rolls once more!")
		st.resetPhase2Round(1)
		st.effect(Effect{Kind: EffectTieReroll})
		return
	}

	var best, worst duelResult
	for _, r := range results {
		if r.power == maxP {
			best = r
			break
		}
	}
	for _, r := range results {
		if r.power == minP {
			worst = r
			break
		}
	}

	value := Score(best.combo)
	transfer := min(value, best.player.Tokens)
	if transfer > 0 {
		best.player.Tokens -= transfer
		worst.player.Tokens += transfer
		st.anim("%d🪙 : %s → %s", transfer, best.player.Username, worst.player.Username)
		st.logf(ClassMoney, "💸 %s (%s=%d🪙) → %d🪙 to %s (%s)", best.player.Username, best.combo, value, transfer, worst.player.Username, worst.combo)
	} else {
		st.logf(ClassPlain, "⚪ %s has no token to give", best.player.Username)
	}
	st.effect(Effect{Kind: EffectDuelTransfer, From: best.player.Username, To: worst.player.Username, Amount: transfer})

	total := s.TokensInPlay()
	if total > 0 {
		for _, p := range s.Players {
			if p.Tokens >= total {
				st.logf(ClassPlain, "💀 %s holds every token, LOST!", p.Username)
				st.finish(othersThan(s.Players, p.Username), []string{p.Username})
				return
			}
		}
	}

	// The round loser leads the next round even when it holds no token.
	loserName := worst.player.Username
	active := []string{loserName}
	for _, p := range s.Players {
		if p.Tokens > 0 && p.Username != loserName {
			active = append(active, p.Username)
		}
	}
	s.P2ActivePlayers = active
	s.P2MaxRolls = 3
	s.P2FirstDone = false
	st.resetPhase2Round(3)

	var holders []Player
	for _, p := range s.Players {
		if p.Tokens > 0 {
			holders = append(holders, p)
		}
	}
	switch len(holders) {
	case 0:
		st.finish(usernames(s.Players), nil)
	case 1:
		st.finish(othersThan(s.Players, holders[0].Username), []string{holders[0].Username})
	default:
		st.logf(ClassResolve, "--- 🔄 New round ---")
	}
}

func othersThan(players []Player, username string) []string {
	var out []string
	for _, p := range players {
		if p.Username != username {
			out = append(out, p.Username)
		}
	}
	return out
}
