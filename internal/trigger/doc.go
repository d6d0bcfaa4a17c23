// Package trigger provides the external resume signals a coordinator waits on
// while its workers are paused.
//
//   - Manual: fired programmatically (HTTP API, tests)
//   - Line:   a line read from an io.Reader such as os.Stdin
//   - File:   a create/write of a watched file (fsnotify)
//   - Delay:  a fixed time after the pause, for unattended runs
//
// Every Trigger honours context cancellation in Wait.
package trigger
