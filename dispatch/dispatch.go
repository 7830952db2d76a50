// Package dispatch bridges a single-threaded cooperative execution context
// with blocking native calls.
//
// A Loop runs submitted work items one at a time on its own goroutine. A
// Pool runs blocking work on a fixed set of OS-thread-locked workers. A
// Future is a one-shot deferred result: it is fulfilled exactly once, from
// any goroutine, and its observers are always notified on the Loop, so
// callers on the loop never observe completions concurrently with their own
// work.
//
// Run ties the three together: it dispatches a blocking closure onto the
// pool and returns a Future fulfilled with its outcome.
package dispatch
