// Package bot decides what a computer-controlled player does on its turn.
//
// Decide is a pure function of the match state: it never rolls dice or
// mutates anything, it only returns the action the engine should apply.
// Scheduling (delays, cancellation) is the caller's concern.
//
// Phase 1 bots always roll. In phase 2 a bot stops on a strong combo
// (321 or better), as round leader after two rolls on anything valid, or
// when it has used the allowance set by the leader. Otherwise it rolls
// again, holding its 1s when they are worth keeping.
package bot
