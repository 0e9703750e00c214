// Package discovery finds device consoles advertised over mDNS.
//
// Devices announce an HTTP service (default _http._tcp in local.). Browse
// collects the announcements seen within a timeout and returns them
// deduplicated by instance name. TXT records are kept as key=value strings;
// a "path" key, when present, names the WebSocket endpoint.
package discovery
