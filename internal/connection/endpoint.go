package connection

import (
	"fmt"
	"net/url"
	"strings"
)

// EndpointURL derives the WebSocket URL for path from the device's web
// origin. http becomes ws and https becomes wss; an origin without a
// scheme is treated as http.
func EndpointURL(origin, path string) (string, error) {
	u, err := parseOrigin(origin)
	if err != nil {
		return "", err
	}

	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	}
	u.Path = path
	return u.String(), nil
}

// LogoutURL derives the plain HTTP(S) URL for path from the device origin.
func LogoutURL(origin, path string) (string, error) {
	u, err := parseOrigin(origin)
	if err != nil {
		return "", err
	}

	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "http"
	case "https", "wss":
		u.Scheme = "https"
	}
	u.Path = path
	return u.String(), nil
}

func parseOrigin(origin string) (*url.URL, error) {
	origin = strings.TrimSpace(origin)
	if origin == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidOrigin)
	}
	if !strings.Contains(origin, "://") {
		origin = "http://" + origin
	}

	u, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOrigin, err)
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidOrigin, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host in %q", ErrInvalidOrigin, origin)
	}

	u.Path = ""
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	u.User = nil
	return u, nil
}
