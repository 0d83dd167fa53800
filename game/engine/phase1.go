package engine

import "strings"

// giftCombo earns its roller one token from the stock during phase 1.
const giftCombo = "221"

func (st *step) rollPhase1() {
	s := st.state
	playerIdx := s.P1Order[s.P1CurrentSlot]
	player := &s.Players[playerIdx]

	dice := st.engine.rollDice()
	combo := Classify(dice)
	s.CurrentDice = &dice
	st.logf(ClassPlain, "%s %s: [%s] → %s%s", player.Avatar, player.Username, dice.Dashed(), combo, scoreSuffix(combo))

	if combo == giftCombo {
		gift := min(1, s.StockTokens)
		if gift > 0 {
			player.Tokens += gift
			s.StockTokens -= gift
			st.logf(ClassGift, "  🎁 %s rolled 221! +1 bonus token", player.Username)
			st.anim("🎁 +1 → %s", player.Username)
			st.effect(Effect{Kind: EffectGift, To: player.Username, Amount: gift})
		}
	}

	s.P1RoundResults = append(s.P1RoundResults, RoundResult{
		PlayerIdx: playerIdx,
		Username:  player.Username,
		Dice:      dice,
		Combo:     combo,
	})

	if len(s.P1RoundResults) >= len(s.Players) {
		st.logf(ClassResolve, "〔 Round resolution 〕")
		st.resolvePhase1Round()
		return
	}
	s.P1CurrentSlot++
}

// resolvePhase1Round hands stock tokens to the worst roller of the round.
// Ties on power keep the first result encountered.
func (st *step) resolvePhase1Round() {
	s := st.state
	results := s.P1RoundResults
	s.Round++

	valid := false
	for _, r := range results {
		if Power(r.Combo) > 0 {
			valid = true
			break
		}
	}
	if !valid {
		st.logf(ClassPlain, "⚪ No valid combo")
		s.P1RoundResults = []RoundResult{}
		s.P1CurrentSlot = 0
		return
	}

	best, worst := results[0], results[0]
	for _, r := range results[1:] {
		if Power(r.Combo) > Power(best.Combo) {
			best = r
		}
		if Power(r.Combo) < Power(worst.Combo) {
			worst = r
		}
	}

	if best.Username == worst.Username {
		st.logf(ClassPlain, "🤝 Tie, no distribution")
	} else {
		wp := &s.Players[worst.PlayerIdx]
		give := min(Score(best.Combo), s.StockTokens)
		wp.Tokens += give
		s.StockTokens -= give
		st.logf(ClassMoney, "💸 %s %s (worst: %s) ← %d🪙 from stock (best: %s)", wp.Avatar, wp.Username, worst.Combo, give, best.Combo)
		if give > 0 {
			st.anim("+%d🪙 → %s", give, wp.Username)
		}
		st.effect(Effect{Kind: EffectStockTransfer, To: wp.Username, Amount: give})

		order := []int{worst.PlayerIdx}
		for _, i := range s.P1Order {
			if i != worst.PlayerIdx {
				order = append(order, i)
			}
		}
		s.P1Order = order
	}

	s.P1RoundResults = []RoundResult{}
	s.P1CurrentSlot = 0
	st.checkPhase1End()
}

// checkPhase1End ends phase 1 once the stock is empty.
func (st *step) checkPhase1End() {
	s := st.state
	if s.StockTokens > 0 {
		return
	}
	s.StockTokens = 0

	var winners, remaining []Player
	for _, p := range s.Players {
		if p.Tokens == 0 {
			winners = append(winners, p)
		} else {
			remaining = append(remaining, p)
		}
	}

	st.logf(ClassResolve, "--- 🎉 Stock empty! End of phase 1 ---")
	if len(winners) > 0 {
		names := make([]string, 0, len(winners))
		for _, p := range winners {
			names = append(names, p.Avatar+" "+p.Username)
		}
		st.logf(ClassWin, "🏆 %s won!", strings.Join(names, ", "))
	}

	switch len(remaining) {
	case 0:
		st.finish(usernames(winners), nil)
	case 1:
		st.logf(ClassPlain, "💀 %s is the only one left with tokens, LOST!", remaining[0].Username)
		st.finish(usernames(winners), []string{remaining[0].Username})
	default:
		s.Phase = 2
		s.Players = remaining
		s.P2ActivePlayers = usernames(remaining)
		st.resetPhase2Round(3)
		s.P2MaxRolls = 3
		s.P2FirstDone = false
		st.effect(Effect{Kind: EffectPhaseChange, Phase: 2})
		st.logf(ClassResolve, "--- ⚔️ Phase 2: showdown! ---")
		st.logf(ClassPlain, "The first player sets the number of rolls. Keep dice with 🔒")
	}
}
