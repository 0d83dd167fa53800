package engine

import "testing"

// duelState builds a phase-2 state where the named players hold the given tokens.
func duelState(t *testing.T, e *Engine, names []string, tokens []int) *MatchState {
	t.Helper()
	total := 0
	for _, n := range tokens {
		total += n
	}
	s, err := e.NewMatch(testPlayers(names...), max(total, 1))
	if err != nil {
		t.Fatalf("NewMatch failed: %v", err)
	}
	for i := range s.Players {
		s.Players[i].Tokens = tokens[i]
	}
	s.Phase = 2
	s.StockTokens = 0
	s.P2ActivePlayers = append([]string{}, names...)
	st := &step{engine: e, state: s}
	st.resetPhase2Round(3)
	return s
}

func keep(name string, idx int) Action {
	return Action{Kind: ActionKeep, Username: name, Index: idx}
}

func TestPhase2StopSetsAllowanceAndEndsMatch(t *testing.T) {
	e, _ := newTestEngine(4, 2, 1, 3, 3, 2)
	s := duelState(t, e, []string{"alice", "bob"}, []int{5, 3})

	s = mustApply(t, e, s, roll("alice")).State
	if s.P2RollsLeft != 2 {
		t.Fatalf("expected 2 rolls left, got %d", s.P2RollsLeft)
	}
	s = mustApply(t, e, s, stop("alice")).State

	if s.P2MaxRolls != 1 || !s.P2FirstDone {
		t.Errorf("leader stop should set allowance to 1, got max=%d firstDone=%v", s.P2MaxRolls, s.P2FirstDone)
	}
	if got := s.CurrentUsername(); got != "bob" {
		t.Fatalf("expected bob to play, got %q", got)
	}
	if s.P2RollsLeft != 1 {
		t.Errorf("bob should have 1 roll, got %d", s.P2RollsLeft)
	}

	tr := mustApply(t, e, s, roll("bob"))
	s = tr.State

	if !s.Finished {
		t.Fatal("expected bob to hold every token and lose")
	}
	alice, _ := s.Player("alice")
	bob, _ := s.Player("bob")
	if alice.Tokens != 0 || bob.Tokens != 8 {
		t.Errorf("expected 0/8 after transfer, got %d/%d", alice.Tokens, bob.Tokens)
	}
	if !equalStrings(s.Losers, []string{"bob"}) || !equalStrings(s.Winners, []string{"alice"}) {
		t.Errorf("unexpected outcome winners=%v losers=%v", s.Winners, s.Losers)
	}
	if len(tr.Anims) != 1 || tr.Anims[0] != "5🪙 : alice → bob" {
		t.Errorf("unexpected anims %v", tr.Anims)
	}
}

func TestPhase2KeptDiceSurviveReroll(t *testing.T) {
	e, _ := newTestEngine(1, 3, 5, 1, 4)
	s := duelState(t, e, []string{"alice", "bob"}, []int{5, 3})

	s = mustApply(t, e, s, roll("alice")).State
	s = mustApply(t, e, s, keep("alice", 0)).State
	if !s.P2KeptDice[0] {
		t.Fatal("die 0 should be kept")
	}
	s = mustApply(t, e, s, roll("alice")).State

	if s.P2CurrentDice == nil || *s.P2CurrentDice != (Dice{1, 1, 4}) {
		t.Fatalf("expected dice 1-1-4, got %v", s.P2CurrentDice)
	}
	if got := s.P2Rolls["alice"].LastCombo; got != "114" {
		t.Errorf("expected combo 114, got %q", got)
	}
	if !s.P2KeptDice[0] {
		t.Error("kept mask should persist between rolls of the same player")
	}
	last := s.Log[len(s.Log)-1].Text
	if last != "🙂 alice [2/?]: [1-1-4] 🔒1 → 114 (4🪙)" {
		t.Errorf("unexpected log line %q", last)
	}
}

func TestPhase2KeepToggles(t *testing.T) {
	e, _ := newTestEngine(1, 3, 5)
	s := duelState(t, e, []string{"alice", "bob"}, []int{5, 3})

	s = mustApply(t, e, s, roll("alice")).State
	s = mustApply(t, e, s, keep("alice", 2)).State
	s = mustApply(t, e, s, keep("alice", 2)).State
	if s.P2KeptDice != ([3]bool{}) {
		t.Errorf("keeping twice should release the die, got %v", s.P2KeptDice)
	}
}

func TestPhase2RollWithKeepMask(t *testing.T) {
	e, _ := newTestEngine(1, 3, 1, 6)
	s := duelState(t, e, []string{"alice", "bob"}, []int{5, 3})

	s = mustApply(t, e, s, roll("alice")).State
	mask := [3]bool{true, false, true}
	s = mustApply(t, e, s, Action{Kind: ActionRoll, Username: "alice", Keep: &mask}).State

	if *s.P2CurrentDice != (Dice{1, 6, 1}) {
		t.Errorf("expected 1-6-1, got %v", *s.P2CurrentDice)
	}
}

func TestPhase2LeaderAutoFinalizesAfterThreeRolls(t *testing.T) {
	e, _ := newTestEngine(6, 5, 3)
	s := duelState(t, e, []string{"alice", "bob"}, []int{5, 3})

	for i := 0; i < 3; i++ {
		s = mustApply(t, e, s, roll("alice")).State
	}

	pr := s.P2Rolls["alice"]
	if !pr.Done || pr.FinalCombo != "653" {
		t.Errorf("expected alice done with 653, got done=%v final=%q", pr.Done, pr.FinalCombo)
	}
	if s.P2MaxRolls != 3 || !s.P2FirstDone {
		t.Errorf("expected allowance 3, got %d", s.P2MaxRolls)
	}
	if got := s.CurrentUsername(); got != "bob" || s.P2RollsLeft != 3 {
		t.Errorf("expected bob with 3 rolls, got %q with %d", got, s.P2RollsLeft)
	}
	if s.P2CurrentDice != nil {
		t.Error("dice should be cleared for the next player")
	}
}

func TestPhase2TieRestartsWithOneRoll(t *testing.T) {
	e, _ := newTestEngine(4, 2, 1, 1, 2, 4)
	s := duelState(t, e, []string{"alice", "bob"}, []int{5, 3})

	s = mustApply(t, e, s, roll("alice")).State
	s = mustApply(t, e, s, stop("alice")).State
	tr := mustApply(t, e, s, roll("bob"))
	s = tr.State

	if s.Finished {
		t.Fatal("a tie must not end the match")
	}
	if s.P2RollsLeft != 1 || s.P2CurrentSlot != 0 {
		t.Errorf("expected a one-roll restart from the leader, got left=%d slot=%d", s.P2RollsLeft, s.P2CurrentSlot)
	}
	if s.P2MaxRolls != 1 || !s.P2FirstDone {
		t.Errorf("tie restart keeps the allowance, got max=%d firstDone=%v", s.P2MaxRolls, s.P2FirstDone)
	}
	if !equalStrings(s.P2ActivePlayers, []string{"alice", "bob"}) {
		t.Errorf("active players should not change, got %v", s.P2ActivePlayers)
	}
	if pr := s.P2Rolls["alice"]; pr == nil || len(pr.Rolls) != 0 || pr.Done {
		t.Errorf("roll records should be reset, got %+v", pr)
	}
	alice, _ := s.Player("alice")
	if alice.Tokens != 5 {
		t.Errorf("no transfer expected on a tie, alice has %d", alice.Tokens)
	}
	found := false
	for _, eff := range tr.Effects {
		if eff.Kind == EffectTieReroll {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a tie reroll effect, got %+v", tr.Effects)
	}
}

func TestPhase2StrongestWithoutTokensGivesNothing(t *testing.T) {
	// alice leads with no token after losing the previous round.
	e, _ := newTestEngine(4, 2, 1, 6, 6, 6, 3, 3, 2)
	s := duelState(t, e, []string{"alice", "bob", "carol"}, []int{0, 5, 3})

	s = mustApply(t, e, s, roll("alice")).State
	s = mustApply(t, e, s, stop("alice")).State
	s = mustApply(t, e, s, roll("bob")).State
	tr := mustApply(t, e, s, roll("carol"))
	s = tr.State

	if s.Finished {
		t.Fatal("match should continue")
	}
	if len(tr.Anims) != 0 {
		t.Errorf("expected no animation, got %v", tr.Anims)
	}
	bob, _ := s.Player("bob")
	carol, _ := s.Player("carol")
	if bob.Tokens != 5 || carol.Tokens != 3 {
		t.Errorf("tokens should not move, got bob=%d carol=%d", bob.Tokens, carol.Tokens)
	}
	if !equalStrings(s.P2ActivePlayers, []string{"carol", "bob"}) {
		t.Errorf("expected [carol bob], got %v", s.P2ActivePlayers)
	}
}

func TestPhase2RoundLoserLeadsNextRound(t *testing.T) {
	e, _ := newTestEngine(6, 6, 6, 5, 4, 3, 3, 3, 1)
	s := duelState(t, e, []string{"alice", "bob", "carol"}, []int{4, 3, 2})

	s = mustApply(t, e, s, roll("alice")).State
	s = mustApply(t, e, s, stop("alice")).State
	s = mustApply(t, e, s, roll("bob")).State
	tr := mustApply(t, e, s, roll("carol"))
	s = tr.State

	if s.Finished {
		t.Fatal("match should continue")
	}
	alice, _ := s.Player("alice")
	carol, _ := s.Player("carol")
	if alice.Tokens != 0 || carol.Tokens != 6 {
		t.Errorf("expected alice=0 carol=6, got %d/%d", alice.Tokens, carol.Tokens)
	}
	if !equalStrings(s.P2ActivePlayers, []string{"carol", "bob"}) {
		t.Errorf("expected [carol bob], got %v", s.P2ActivePlayers)
	}
	if s.P2MaxRolls != 3 || s.P2FirstDone || s.P2RollsLeft != 3 {
		t.Errorf("new round should reset allowance, got max=%d firstDone=%v left=%d", s.P2MaxRolls, s.P2FirstDone, s.P2RollsLeft)
	}
	if len(s.P2Rolls) != 2 {
		t.Errorf("expected roll records for 2 players, got %d", len(s.P2Rolls))
	}
	if s.Round != 1 {
		t.Errorf("expected round counter 1, got %d", s.Round)
	}
	eff := tr.Effects[len(tr.Effects)-1]
	if eff.Kind != EffectDuelTransfer || eff.From != "alice" || eff.To != "carol" || eff.Amount != 4 {
		t.Errorf("unexpected effect %+v", eff)
	}
}

func TestPhase2TokensConserved(t *testing.T) {
	for seed := uint64(1); seed <= 30; seed++ {
		e := NewEngine(NewSeededRoller(seed), WithClock(testClock))
		s := duelState(t, e, []string{"a", "b", "c"}, []int{4, 4, 4})

		for steps := 0; !s.Finished && steps < 5000; steps++ {
			s = mustApply(t, e, s, roll(s.CurrentUsername())).State
			if s.TokensInPlay() != 12 {
				t.Fatalf("seed %d: tokens in play %d, want 12", seed, s.TokensInPlay())
			}
		}
	}
}
