// Package manager ties the store accessor, credential locator, expiry
// policy, refresh client and update writer into a single refresh-if-needed
// operation and a long-running scheduled loop.
//
// The loop is serial: one logical task at a time, woken by a coarse poll
// tick so cancellation never waits out a multi-day sleep. Every failure of
// a scheduled invocation is logged and absorbed; only cancellation ends the
// loop.
package manager
