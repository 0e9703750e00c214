package console

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// LogoutError reports a logout endpoint that answered with an error status.
type LogoutError struct {
	StatusCode int
	Message    string
}

func (e *LogoutError) Error() string {
	return fmt.Sprintf("logout failed %d: %s", e.StatusCode, e.Message)
}

// Logout issues the plain GET that ends the device's web session. Redirects
// are followed by the client.
func Logout(ctx context.Context, hc *http.Client, logoutURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, logoutURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return &LogoutError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
		}
	}
	return nil
}
