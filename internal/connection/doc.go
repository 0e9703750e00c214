// Package connection implements the console Transport.
//
// The Transport:
//   - Dials the device's WebSocket endpoint derived from its web origin
//   - Delivers inbound frames as text with a local receive timestamp
//   - Serialises outbound text frames with a write deadline
//   - Reports a peer close or a network failure exactly once on Errors()
//
// Liveness is not handled here: the console's heartbeat runs at the
// application level (ping/pong text frames) in package liveness.
package connection
