package console

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/wsconsole/internal/connection"
	"github.com/rickgao/wsconsole/internal/liveness"
)

// fakeDevice serves /ws and /logout like a device's web console.
type fakeDevice struct {
	t      *testing.T
	server *httptest.Server

	mu     sync.Mutex
	frames []string

	conns   atomic.Int32
	logouts atomic.Int32

	// behave runs each accepted connection, numbered from 1.
	behave func(n int32, conn *websocket.Conn)
}

func newFakeDevice(t *testing.T, behave func(d *fakeDevice, n int32, conn *websocket.Conn)) *fakeDevice {
	d := &fakeDevice{t: t}
	d.behave = func(n int32, conn *websocket.Conn) { behave(d, n, conn) }

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		d.behave(d.conns.Add(1), conn)
	})
	mux.HandleFunc("/logout", func(w http.ResponseWriter, r *http.Request) {
		d.logouts.Add(1)
		w.WriteHeader(http.StatusOK)
	})
	d.server = httptest.NewServer(mux)
	t.Cleanup(d.server.Close)
	return d
}

// serve records frames and answers pings with pongs when answer is set.
func (d *fakeDevice) serve(conn *websocket.Conn, answer bool) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		text := string(msg)
		d.mu.Lock()
		d.frames = append(d.frames, text)
		d.mu.Unlock()

		if answer && text == "ping" {
			if err := conn.WriteMessage(websocket.TextMessage, []byte("pong")); err != nil {
				return
			}
		}
	}
}

// closeNormally sends a close frame and waits for the reply.
func closeNormally(conn *websocket.Conn) {
	conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	conn.SetReadDeadline(time.Now().Add(time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (d *fakeDevice) received(text string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, f := range d.frames {
		if f == text {
			return true
		}
	}
	return false
}

func (d *fakeDevice) waitFrame(text string) {
	d.t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !d.received(text) {
		if time.Now().After(deadline) {
			d.t.Fatalf("device never received %q", text)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func (d *fakeDevice) waitConns(n int32) {
	d.t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for d.conns.Load() < n {
		if time.Now().After(deadline) {
			d.t.Fatalf("device saw %d connections, want %d", d.conns.Load(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func (d *fakeDevice) sessionConfig() SessionConfig {
	client := connection.DefaultClientConfig()
	client.URL = "ws" + strings.TrimPrefix(d.server.URL, "http") + "/ws"

	live := liveness.DefaultConfig()
	live.ProbeInterval = 40 * time.Millisecond
	live.AckTimeout = 30 * time.Millisecond

	return SessionConfig{
		Client:     client,
		Liveness:   live,
		LogoutURL:  d.server.URL + "/logout",
		ClearToken: "clearlog",
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
