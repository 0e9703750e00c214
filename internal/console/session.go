package console

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/wsconsole/internal/connection"
	"github.com/rickgao/wsconsole/internal/liveness"
	"github.com/rickgao/wsconsole/internal/transcript"
)

// Errors
var (
	ErrConnect = errors.New("connect failed")
)

// Outcome is how a Session ended.
type Outcome int

const (
	OutcomeClosed Outcome = iota // Peer closed or the transport failed
	OutcomeReload                // Reload chosen after a missed ack
	OutcomeLogout                // User logged out
	OutcomeQuit                  // User quit or the context was cancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeClosed:
		return "closed"
	case OutcomeReload:
		return "reload"
	case OutcomeLogout:
		return "logout"
	case OutcomeQuit:
		return "quit"
	default:
		return "unknown"
	}
}

// SessionConfig holds the settings for one session.
type SessionConfig struct {
	Client     connection.ClientConfig
	Liveness   liveness.Config
	LogoutURL  string // Empty skips the logout request
	ClearToken string // Sent by /clear
}

// Session is one connection with its liveness Monitor.
type Session struct {
	id       uuid.UUID
	cfg      SessionConfig
	client   connection.Client
	view     *View
	prompter liveness.Prompter
	input    <-chan string
	opts     options
	logger   *slog.Logger
}

// NewSession creates a Session over client. Lines read from input are
// either answers to a pending question or console input.
func NewSession(
	cfg SessionConfig,
	client connection.Client,
	view *View,
	prompter liveness.Prompter,
	input <-chan string,
	opts ...Option,
) *Session {
	if cfg.ClearToken == "" {
		cfg.ClearToken = "clearlog"
	}
	o := buildOptions(opts)
	id := uuid.New()
	return &Session{
		id:       id,
		cfg:      cfg,
		client:   client,
		view:     view,
		prompter: prompter,
		input:    input,
		opts:     o,
		logger:   o.logger.With("session_id", id),
	}
}

// ID returns the session identifier used in logs and transcripts.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Run connects and pumps frames until the Monitor closes.
func (s *Session) Run(ctx context.Context) (Outcome, error) {
	transport := &sessionTransport{client: s.client, session: s}
	mon := liveness.New(s.cfg.Liveness, transport, s.view, s.prompter, liveness.WithLogger(s.logger))

	mon.Connecting()
	s.logger.Info("connecting", "url", s.cfg.Client.URL)
	if err := s.client.Connect(ctx); err != nil {
		s.client.Close()
		return OutcomeClosed, fmt.Errorf("%w: %w", ErrConnect, err)
	}
	mon.Opened()
	s.view.Notice("connected to %s", s.cfg.Client.URL)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// Cancellation is a shutdown, not a failure.
		mon.Run(gctx)
		return nil
	})
	g.Go(func() error {
		s.readPump(mon)
		return nil
	})
	g.Go(func() error {
		s.inputPump(gctx, mon, transport)
		return nil
	})
	err := g.Wait()

	// Already closed unless the peer went away first.
	s.client.Close()

	outcome := outcomeFor(mon.Reason())
	stats := mon.Stats()
	s.logger.Info("session ended",
		"outcome", outcome,
		"reason", mon.Reason(),
		"probes_sent", stats.ProbesSent,
		"acks_received", stats.AcksReceived,
		"missed_acks", stats.MissedAcks,
	)
	switch mon.Reason() {
	case liveness.ReasonTransportClosed:
		s.view.Notice("connection closed by device")
	case liveness.ReasonTransportError:
		s.view.Notice("connection lost")
	}
	return outcome, err
}

func outcomeFor(r liveness.CloseReason) Outcome {
	switch r {
	case liveness.ReasonReload:
		return OutcomeReload
	case liveness.ReasonLogout:
		return OutcomeLogout
	case liveness.ReasonShutdown:
		return OutcomeQuit
	default:
		return OutcomeClosed
	}
}

// readPump forwards inbound frames to the Monitor. Frames already received
// are delivered before the close or error that followed them.
func (s *Session) readPump(mon *liveness.Monitor) {
	for {
		select {
		case <-mon.Done():
			return
		case msg := <-s.client.Messages():
			s.deliver(mon, msg)
		case err := <-s.client.Errors():
			s.drain(mon)
			if errors.Is(err, connection.ErrClosed) {
				mon.TransportDone(nil)
			} else {
				mon.TransportDone(err)
			}
			return
		}
	}
}

func (s *Session) drain(mon *liveness.Monitor) {
	for {
		select {
		case msg := <-s.client.Messages():
			s.deliver(mon, msg)
		default:
			return
		}
	}
}

func (s *Session) deliver(mon *liveness.Monitor, msg connection.InboundMessage) {
	s.record(transcript.Inbound, msg.Text, msg.ReceivedAt)
	mon.Message(msg.Text)
}

// inputPump handles typed lines until the Monitor closes.
func (s *Session) inputPump(ctx context.Context, mon *liveness.Monitor, transport liveness.Transport) {
	answerer, _ := s.prompter.(Answerer)
	input := s.input
	for {
		select {
		case <-mon.Done():
			return
		case line, ok := <-input:
			if !ok {
				s.logger.Debug("input closed")
				input = nil
				continue
			}
			if answerer != nil && answerer.Offer(line) {
				continue
			}
			s.handle(ctx, mon, transport, ParseInput(line))
		}
	}
}

func (s *Session) handle(ctx context.Context, mon *liveness.Monitor, transport liveness.Transport, cmd Command) {
	switch cmd.Kind {
	case CommandNone:

	case CommandSend:
		if err := transport.Send(cmd.Text); err != nil {
			s.logger.Warn("send failed", "error", err)
			s.view.Notice("send failed: %v", err)
		}

	case CommandClear:
		if err := transport.Send(s.cfg.ClearToken); err != nil {
			s.logger.Warn("send failed", "error", err)
			s.view.Notice("send failed: %v", err)
		}
		s.view.Clear()

	case CommandLogout:
		s.logout(ctx, mon)

	case CommandQuit:
		mon.Shutdown()

	case CommandStatus:
		stats := mon.Stats()
		s.view.Notice("session %s: %s, probes %d, acks %d, missed %d, late %d",
			s.id, mon.State(), stats.ProbesSent, stats.AcksReceived, stats.MissedAcks, stats.LateAcks)

	case CommandHelp:
		for _, line := range strings.Split(HelpText, "\n") {
			s.view.Notice("%s", line)
		}

	case CommandUnknown:
		s.view.Notice("unknown command /%s (try /help)", cmd.Text)
	}
}

// logout closes the connection first, then ends the web session.
func (s *Session) logout(ctx context.Context, mon *liveness.Monitor) {
	if err := mon.Logout(ctx); err != nil {
		return
	}
	if s.cfg.LogoutURL == "" {
		return
	}
	if err := Logout(ctx, s.opts.httpClient, s.cfg.LogoutURL); err != nil {
		s.logger.Warn("logout request failed", "url", s.cfg.LogoutURL, "error", err)
		s.view.Notice("logout request failed: %v", err)
		return
	}
	s.view.Notice("logged out")
}

func (s *Session) record(dir transcript.Direction, text string, at time.Time) {
	if s.opts.recorder == nil {
		return
	}
	s.opts.recorder.Add(transcript.Entry{
		SessionID: s.id,
		Direction: dir,
		Text:      text,
		At:        at,
	})
}

// sessionTransport records outbound frames.
type sessionTransport struct {
	client  connection.Client
	session *Session
}

func (t *sessionTransport) Send(text string) error {
	if err := t.client.Send(text); err != nil {
		return err
	}
	t.session.record(transcript.Outbound, text, time.Now())
	return nil
}

func (t *sessionTransport) Close() error {
	return t.client.Close()
}
