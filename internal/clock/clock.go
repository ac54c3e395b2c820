// Package clock implements the Fischer-with-delay-and-increment accountant
// of spec.md §4.2. Pure value semantics, whole-second granularity, stdlib
// only (see DESIGN.md — there is no library in the pack for "subtract then
// add back" integer arithmetic).
package clock

// InitialRemaining is the clock a side starts a game with: main thinking
// time plus fixed extra time baked into one bucket, per spec.md §4.2 ("fixed
// extra time is not a separate bucket at runtime").
func InitialRemaining(mainThinkingTime, fixedExtraTime int) int {
	return mainThinkingTime + fixedExtraTime
}

// Deduct subtracts elapsed seconds since the side's last turn from its
// remaining time. The result may go negative — callers interpret remaining
// < 0 as a timeout (spec.md §4.2/§4.3), it is not clamped here so the caller
// can tell a timeout apart from a last-second legal move.
func Deduct(remaining, elapsed int) int {
	return remaining - elapsed
}

// CreditIncrement adds the per-turn increment back to a side's clock after
// it completes a legal move.
func CreditIncrement(remaining, increment int) int {
	return remaining + increment
}

// TimedOut reports whether remaining time (after Deduct) means the side to
// move has run out of time: spec.md §4.2, "remaining <= 0 at the moment the
// engine evaluates a move or a timeout assertion" — resolved per spec.md §9's
// open question as strictly negative, so an exact-boundary move (elapsed ==
// remaining) is accepted.
func TimedOut(remainingAfterDeduction int) bool {
	return remainingAfterDeduction < 0
}
