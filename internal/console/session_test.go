package console

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/wsconsole/internal/connection"
	"github.com/rickgao/wsconsole/internal/liveness"
	"github.com/rickgao/wsconsole/internal/transcript"
)

type sessionResult struct {
	outcome Outcome
	err     error
}

func startSession(ctx context.Context, s *Session) <-chan sessionResult {
	done := make(chan sessionResult, 1)
	go func() {
		outcome, err := s.Run(ctx)
		done <- sessionResult{outcome, err}
	}()
	return done
}

func awaitResult(t *testing.T, done <-chan sessionResult) sessionResult {
	t.Helper()
	select {
	case r := <-done:
		return r
	case <-time.After(3 * time.Second):
		t.Fatal("session did not end")
		return sessionResult{}
	}
}

func newTestSession(d *fakeDevice, view *View, prompter liveness.Prompter, input <-chan string, opts ...Option) *Session {
	cfg := d.sessionConfig()
	return NewSession(cfg, connection.NewClient(cfg.Client, nil), view, prompter, input, opts...)
}

// memRecorder collects transcript entries.
type memRecorder struct {
	mu      sync.Mutex
	entries []transcript.Entry
}

func (r *memRecorder) Add(e transcript.Entry) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return true
}

func (r *memRecorder) has(dir transcript.Direction, text string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.Direction == dir && e.Text == text {
			return true
		}
	}
	return false
}

func TestSession_HeartbeatAndLog(t *testing.T) {
	d := newFakeDevice(t, func(d *fakeDevice, n int32, conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte("boot ok\n"))
		d.serve(conn, true)
	})

	var out syncBuffer
	input := make(chan string)
	s := newTestSession(d, NewView(&out, false), PolicyPrompter{}, input)
	done := startSession(context.Background(), s)

	// A few probe periods.
	d.waitFrame("ping")
	waitFor(t, "device log", func() bool { return strings.Contains(out.String(), "boot ok\n") })
	time.Sleep(100 * time.Millisecond)

	input <- "/quit"
	r := awaitResult(t, done)

	if r.err != nil {
		t.Fatalf("Run error: %v", r.err)
	}
	if r.outcome != OutcomeQuit {
		t.Errorf("outcome = %s, want quit", r.outcome)
	}
	if strings.Contains(out.String(), "pong") {
		t.Errorf("ack leaked into the log: %q", out.String())
	}
}

func TestSession_SendAndClear(t *testing.T) {
	d := newFakeDevice(t, func(d *fakeDevice, n int32, conn *websocket.Conn) {
		d.serve(conn, true)
	})

	var out syncBuffer
	input := make(chan string)
	s := newTestSession(d, NewView(&out, false), PolicyPrompter{}, input)
	done := startSession(context.Background(), s)

	input <- "   "
	input <- "status"
	input <- "/clear"
	input <- "//raw"
	d.waitFrame("status")
	d.waitFrame("clearlog")
	d.waitFrame("/raw")

	input <- "/status"
	input <- "/bogus"
	waitFor(t, "status notice", func() bool { return strings.Contains(out.String(), "session "+s.ID().String()) })
	waitFor(t, "unknown notice", func() bool { return strings.Contains(out.String(), "unknown command /bogus") })

	input <- "/quit"
	awaitResult(t, done)

	if !strings.Contains(out.String(), "-- log cleared --") {
		t.Errorf("view not cleared: %q", out.String())
	}
	if d.received("   ") {
		t.Error("blank input was sent")
	}
}

func TestSession_Logout(t *testing.T) {
	closed := make(chan struct{})
	d := newFakeDevice(t, func(d *fakeDevice, n int32, conn *websocket.Conn) {
		d.serve(conn, true)
		close(closed)
	})

	var out syncBuffer
	input := make(chan string)
	s := newTestSession(d, NewView(&out, false), PolicyPrompter{}, input)
	done := startSession(context.Background(), s)

	input <- "/logout"
	r := awaitResult(t, done)

	if r.outcome != OutcomeLogout {
		t.Errorf("outcome = %s, want logout", r.outcome)
	}
	if d.logouts.Load() != 1 {
		t.Errorf("logout requests = %d, want 1", d.logouts.Load())
	}
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Error("websocket still open after logout")
	}
	if !strings.Contains(out.String(), "logged out") {
		t.Errorf("missing logout notice: %q", out.String())
	}
}

func TestSession_PeerClose(t *testing.T) {
	d := newFakeDevice(t, func(d *fakeDevice, n int32, conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte("rebooting\n"))
		closeNormally(conn)
	})

	var out syncBuffer
	s := newTestSession(d, NewView(&out, false), PolicyPrompter{}, nil)
	r := awaitResult(t, startSession(context.Background(), s))

	if r.err != nil {
		t.Fatalf("Run error: %v", r.err)
	}
	if r.outcome != OutcomeClosed {
		t.Errorf("outcome = %s, want closed", r.outcome)
	}
	got := out.String()
	if !strings.Contains(got, "rebooting\n") {
		t.Errorf("frame before close was lost: %q", got)
	}
	if !strings.Contains(got, "connection closed by device") {
		t.Errorf("missing close notice: %q", got)
	}
}

func TestSession_ReloadPolicyOnMissedAck(t *testing.T) {
	d := newFakeDevice(t, func(d *fakeDevice, n int32, conn *websocket.Conn) {
		d.serve(conn, false)
	})

	var out syncBuffer
	view := NewView(&out, false)
	s := newTestSession(d, view, PolicyPrompter{Reload: true, View: view}, nil)
	r := awaitResult(t, startSession(context.Background(), s))

	if r.outcome != OutcomeReload {
		t.Errorf("outcome = %s, want reload", r.outcome)
	}
	if !strings.Contains(out.String(), AlertOnLine) {
		t.Errorf("alert never shown: %q", out.String())
	}
	if view.Alert() {
		t.Error("alert still set after the session closed")
	}
}

func TestSession_TerminalPromptAnswer(t *testing.T) {
	d := newFakeDevice(t, func(d *fakeDevice, n int32, conn *websocket.Conn) {
		d.serve(conn, false)
	})

	var out syncBuffer
	view := NewView(&out, false)
	prompter := NewTerminalPrompter(view)
	input := make(chan string)
	s := newTestSession(d, view, prompter, input)
	done := startSession(context.Background(), s)

	waitPending(t, prompter)
	input <- "y"
	r := awaitResult(t, done)

	if r.outcome != OutcomeReload {
		t.Errorf("outcome = %s, want reload", r.outcome)
	}
	if !strings.Contains(out.String(), ReloadQuestion) {
		t.Errorf("question not asked: %q", out.String())
	}
	if d.received("y") {
		t.Error("prompt answer was sent to the device")
	}
}

func TestSession_ConnectFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	cfg := connection.DefaultClientConfig()
	cfg.URL = "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	s := NewSession(SessionConfig{Client: cfg}, connection.NewClient(cfg, nil), NewView(&syncBuffer{}, false), nil, nil)

	outcome, err := s.Run(context.Background())
	if !errors.Is(err, ErrConnect) {
		t.Errorf("error = %v, want ErrConnect", err)
	}
	if outcome != OutcomeClosed {
		t.Errorf("outcome = %s, want closed", outcome)
	}
}

func TestSession_ContextCancel(t *testing.T) {
	d := newFakeDevice(t, func(d *fakeDevice, n int32, conn *websocket.Conn) {
		d.serve(conn, true)
	})

	ctx, cancel := context.WithCancel(context.Background())
	s := newTestSession(d, NewView(&syncBuffer{}, false), PolicyPrompter{}, nil)
	done := startSession(ctx, s)

	d.waitFrame("ping")
	cancel()
	r := awaitResult(t, done)

	if r.outcome != OutcomeQuit {
		t.Errorf("outcome = %s, want quit", r.outcome)
	}
}

func TestSession_Recorder(t *testing.T) {
	d := newFakeDevice(t, func(d *fakeDevice, n int32, conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte("hello\n"))
		d.serve(conn, true)
	})

	rec := &memRecorder{}
	input := make(chan string)
	s := newTestSession(d, NewView(&syncBuffer{}, false), PolicyPrompter{}, input, WithRecorder(rec))
	done := startSession(context.Background(), s)

	input <- "status"
	d.waitFrame("status")
	waitFor(t, "inbound entry", func() bool { return rec.has(transcript.Inbound, "hello\n") })

	input <- "/quit"
	awaitResult(t, done)

	if !rec.has(transcript.Outbound, "status") {
		t.Error("outbound command not recorded")
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	for _, e := range rec.entries {
		if e.SessionID != s.ID() {
			t.Fatalf("entry session = %s, want %s", e.SessionID, s.ID())
		}
	}
}

func TestOutcome_String(t *testing.T) {
	tests := []struct {
		outcome Outcome
		want    string
	}{
		{OutcomeClosed, "closed"},
		{OutcomeReload, "reload"},
		{OutcomeLogout, "logout"},
		{OutcomeQuit, "quit"},
		{Outcome(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.outcome.String(); got != tt.want {
			t.Errorf("Outcome(%d).String() = %q, want %q", tt.outcome, got, tt.want)
		}
	}
}
