// Package digits provides Worker, which computes the hexadecimal digits of π
// for one contiguous Range using the BBP series.
//
// A worker evaluates the series once per eight digits and shifts digits out of
// the running fraction in between. Before every digit it passes a checkpoint on
// a shared pause.Gate, which is the only point where it can be suspended.
//
// # Lifecycle
//
//	running -> paused -> running -> ... -> done
//
// Done is terminal. Progress (Computed) and State are atomic and may be read
// while Run is executing.
package digits
