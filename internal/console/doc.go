// Package console runs an interactive device console over the WebSocket
// transport.
//
// A Session is one page load: it dials the device, starts a
// liveness.Monitor and pumps frames and typed input until the Monitor
// closes. The Runner starts a fresh Session whenever the user (or the
// degraded-connection policy) chooses to reload.
//
// Typed lines are sent to the device verbatim. Lines starting with a slash
// are local commands:
//
//	/clear   clear the device log and the local view
//	/logout  close the connection and end the device's web session
//	/status  show heartbeat state and counters
//	/quit    close the connection and exit
//	/help    list commands
//
// A leading "//" sends the rest of the line (starting with "/") verbatim.
package console
