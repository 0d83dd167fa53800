// Package engine provides the core rules of the 421 dice game.
//
// The engine package implements:
//   - The combo ranking table (classification, power and score of a 3-die roll)
//   - The match state and its two phases (distribution and elimination duel)
//   - Turn arbitration for incoming player actions
//   - Injected randomness so matches can be replayed deterministically
//
// Core Types:
//
// MatchState is the per-room game state. It is plain data with JSON tags that
// match the wire protocol, so it can be pushed to clients as is. Engine applies
// actions to a MatchState and returns a Transition holding the derived state,
// the transient animation strings and a list of typed side effects.
//
// Usage:
//
//	eng := engine.NewEngine(engine.DefaultRoller())
//
//	state, err := eng.NewMatch(players, 21)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	t, err := eng.Apply(state, engine.Action{Kind: engine.ActionRoll, Username: "alice"})
//	if engine.IsSilent(err) {
//		// stale or out-of-turn action, ignore it
//	}
//	state = t.State
//
// Game Rules:
//
// Phase 1 hands out the stock. Every player rolls once per round; the player
// with the worst combo receives from the stock as many tokens as the best
// combo is worth, and leads the next round. Once the stock is empty, players
// without tokens have won. If two or more players still hold tokens, phase 2
// starts: the round leader decides how many rolls (up to three) everybody gets,
// dice can be kept between rolls, and the strongest combo pushes tokens onto
// the weakest. The player left holding every token loses.
//
// Apply never mutates the state it is given. Callers swap in Transition.State,
// which makes a published snapshot safe to share between goroutines.
package engine
