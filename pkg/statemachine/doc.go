// Package statemachine provides a stateless transition chart for finite
// state machines whose current state lives elsewhere, typically inside a
// persisted record.
//
// Unlike a classic state machine object, a Chart holds no current state: the
// caller passes the state it read alongside the event, and the chart answers
// with the next state or a typed error. This keeps transition decisions pure
// and makes the chart safe to share between concurrent callers without
// locking.
//
// Guards allow runtime branching: the first transition whose guards all pass
// wins, so registration order expresses priority.
//
// Basic usage:
//
//	chart := statemachine.MustNewChart(
//	    statemachine.WithTransition("draft", "published", "publish"),
//	    statemachine.WithTransition("published", "archived", "archive",
//	        statemachine.WithGuard(func(data any) bool {
//	            return data.(*Post).Views > 0
//	        }),
//	    ),
//	)
//
//	next, err := chart.Next("draft", "publish", post)
//	if statemachine.IsNoTransitionError(err) {
//	    // event is not valid from this state
//	}
package statemachine
