// Package liveness implements the connection Liveness Monitor.
//
// The Liveness Monitor:
//   - Sends a probe token on a fixed period while the connection is open
//   - Arms a one-shot deadline after each probe and waits for the ack token
//   - Raises the alert indicator when the deadline elapses (Degraded)
//   - Asks an injected Prompter whether to reload the connection
//   - Forwards every other inbound message to the log verbatim
//
// All transitions run on the goroutine that calls Run. Timers and transport
// callbacks only post events, so Monitor state needs no locking.
package liveness
