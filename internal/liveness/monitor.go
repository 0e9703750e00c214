package liveness

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Option configures a Monitor.
type Option func(*Monitor)

// WithClock sets the clock used for the probe and deadline timers.
func WithClock(c Clock) Option {
	return func(m *Monitor) {
		m.clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Monitor) {
		m.logger = l
	}
}

// Monitor detects a silently dead connection with a ping/pong heartbeat.
type Monitor struct {
	cfg       Config
	clock     Clock
	logger    *slog.Logger
	transport Transport
	presenter Presenter
	prompter  Prompter

	events chan Event
	done   chan struct{}

	// Owned by the goroutine running Dispatch
	state         State
	probeTimer    Timer
	deadlineTimer Timer
	probeGen      uint64
	cycle         uint64
	probeSentAt   time.Time
	nextProbeAt   time.Time
	prompting     bool

	promptCtx    context.Context
	promptCancel context.CancelFunc

	// Snapshots for other goroutines
	published atomic.Int32
	reason    atomic.Int32
	closeOnce sync.Once

	probesSent   atomic.Int64
	acksReceived atomic.Int64
	missedAcks   atomic.Int64
	lateAcks     atomic.Int64
	logMessages  atomic.Int64
}

// New creates a Monitor for one connection. A nil prompter declines every
// reload.
func New(cfg Config, transport Transport, presenter Presenter, prompter Prompter, opts ...Option) *Monitor {
	def := DefaultConfig()
	if cfg.ProbeInterval <= 0 {
		cfg.ProbeInterval = def.ProbeInterval
	}
	if cfg.AckTimeout <= 0 {
		cfg.AckTimeout = def.AckTimeout
	}
	if cfg.ProbeToken == "" {
		cfg.ProbeToken = def.ProbeToken
	}
	if cfg.AckToken == "" {
		cfg.AckToken = def.AckToken
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = def.EventBuffer
	}
	if prompter == nil {
		prompter = PrompterFunc(func(context.Context, Degradation) (bool, error) {
			return false, nil
		})
	}

	m := &Monitor{
		cfg:       cfg,
		clock:     RealClock(),
		logger:    slog.Default(),
		transport: transport,
		presenter: presenter,
		prompter:  prompter,
		events:    make(chan Event, cfg.EventBuffer),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	m.promptCtx, m.promptCancel = context.WithCancel(context.Background())
	return m
}

// Run processes events until the Monitor is closed or ctx is cancelled.
// Cancelling ctx shuts the Monitor down and closes an open transport.
func (m *Monitor) Run(ctx context.Context) error {
	for {
		if m.state == StateClosed {
			return nil
		}
		select {
		case <-ctx.Done():
			m.Dispatch(Event{Kind: EventShutdown})
			return ctx.Err()
		case ev := <-m.events:
			m.Dispatch(ev)
		}
	}
}

// Dispatch applies one event. It must only be called from the goroutine
// running Run, or from a single test goroutine when Run is not used.
func (m *Monitor) Dispatch(ev Event) {
	if m.state == StateClosed {
		return
	}

	switch ev.Kind {
	case EventConnecting:
		if m.state == StateIdle {
			m.setState(StateConnecting)
		}

	case EventOpened:
		if m.state != StateIdle && m.state != StateConnecting {
			return
		}
		m.setState(StateHealthy)
		m.logger.Info("connection established",
			"heartbeat", !m.cfg.Disabled,
			"probe_interval", m.cfg.ProbeInterval,
			"ack_timeout", m.cfg.AckTimeout,
		)
		if !m.cfg.Disabled {
			m.probeGen++
			m.nextProbeAt = m.clock.Now()
			m.scheduleProbe()
		}

	case EventMessage:
		m.handleMessage(ev.Text)

	case EventProbeTimer:
		if ev.gen != m.probeGen || !m.state.Open() {
			return
		}
		m.scheduleProbe()
		m.sendProbe()

	case EventDeadlineTimer:
		// A deadline that lost the race with its ack, or belongs to an
		// earlier cycle, is stale.
		if ev.gen != m.cycle || m.deadlineTimer == nil || m.state != StateAwaitingAck {
			return
		}
		m.deadlineTimer = nil
		m.degrade()

	case EventPromptAnswered:
		m.prompting = false
		if !ev.Reload {
			m.logger.Info("reload declined, keeping connection")
			return
		}
		m.logger.Info("reload requested")
		m.close(ReasonReload, m.state.Open())

	case EventClosed:
		m.close(ReasonTransportClosed, false)

	case EventErrored:
		m.logger.Warn("transport error", "error", ev.Err)
		m.close(ReasonTransportError, false)

	case EventLogout:
		m.close(ReasonLogout, m.state.Open())

	case EventShutdown:
		m.close(ReasonShutdown, m.state.Open())
	}
}

// Post queues an event for Run. It returns false once the Monitor is closed.
func (m *Monitor) Post(ev Event) bool {
	select {
	case <-m.done:
		return false
	default:
	}
	select {
	case m.events <- ev:
		return true
	case <-m.done:
		return false
	}
}

// Connecting records that the transport dial has started.
func (m *Monitor) Connecting() bool {
	return m.Post(Event{Kind: EventConnecting})
}

// Opened records that the transport is open.
func (m *Monitor) Opened() bool {
	return m.Post(Event{Kind: EventOpened})
}

// Message delivers one inbound text frame.
func (m *Monitor) Message(text string) bool {
	return m.Post(Event{Kind: EventMessage, Text: text})
}

// TransportDone records a close (err == nil) or a transport error.
func (m *Monitor) TransportDone(err error) bool {
	if err == nil {
		return m.Post(Event{Kind: EventClosed})
	}
	return m.Post(Event{Kind: EventErrored, Err: err})
}

// Shutdown asks the Monitor to close the transport and stop.
func (m *Monitor) Shutdown() bool {
	return m.Post(Event{Kind: EventShutdown})
}

// Logout closes an open transport and waits until the Monitor is closed.
// The caller navigates to the logout endpoint afterwards.
func (m *Monitor) Logout(ctx context.Context) error {
	if !m.Post(Event{Kind: EventLogout}) {
		return nil
	}
	select {
	case <-m.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed when the Monitor reaches StateClosed.
func (m *Monitor) Done() <-chan struct{} {
	return m.done
}

// State returns the current state. Safe from any goroutine.
func (m *Monitor) State() State {
	return State(m.published.Load())
}

// Reason returns why the Monitor closed, or ReasonNone.
func (m *Monitor) Reason() CloseReason {
	return CloseReason(m.reason.Load())
}

// Stats returns heartbeat counters.
func (m *Monitor) Stats() Stats {
	return Stats{
		ProbesSent:   m.probesSent.Load(),
		AcksReceived: m.acksReceived.Load(),
		MissedAcks:   m.missedAcks.Load(),
		LateAcks:     m.lateAcks.Load(),
		LogMessages:  m.logMessages.Load(),
	}
}

func (m *Monitor) setState(s State) {
	if m.state == s {
		return
	}
	m.logger.Debug("liveness transition", "from", m.state, "to", s)
	m.state = s
	m.published.Store(int32(s))
}

// handleMessage consumes the ack token and forwards everything else.
func (m *Monitor) handleMessage(text string) {
	if m.cfg.Disabled || text != m.cfg.AckToken {
		m.logMessages.Add(1)
		m.presenter.AppendLog(text)
		return
	}

	switch m.state {
	case StateAwaitingAck:
		m.stopDeadline()
		m.acksReceived.Add(1)
		m.presenter.SetAlert(false)
		m.setState(StateHealthy)
		m.logger.Debug("ack received",
			"cycle", m.cycle,
			"latency", m.clock.Now().Sub(m.probeSentAt),
		)
	case StateDegraded:
		m.lateAcks.Add(1)
		m.logger.Debug("late ack ignored", "cycle", m.cycle)
	default:
		m.logger.Debug("unsolicited ack ignored", "state", m.state)
	}
}

// scheduleProbe arms the next probe of the current generation. Probes stay
// on a fixed schedule from the open time, so a late dispatch of the timer
// event does not push later probes back.
func (m *Monitor) scheduleProbe() {
	gen := m.probeGen
	m.nextProbeAt = m.nextProbeAt.Add(m.cfg.ProbeInterval)
	delay := m.nextProbeAt.Sub(m.clock.Now())
	if delay < 0 {
		delay = 0
	}
	m.probeTimer = m.clock.AfterFunc(delay, func() {
		m.Post(Event{Kind: EventProbeTimer, gen: gen})
	})
}

// sendProbe starts a new ack cycle.
func (m *Monitor) sendProbe() {
	m.stopDeadline()

	if err := m.transport.Send(m.cfg.ProbeToken); err != nil {
		m.logger.Warn("failed to send probe", "error", err)
		m.close(ReasonTransportError, false)
		return
	}
	m.probesSent.Add(1)

	m.cycle++
	gen := m.cycle
	m.probeSentAt = m.clock.Now()
	m.setState(StateAwaitingAck)
	m.deadlineTimer = m.clock.AfterFunc(m.cfg.AckTimeout, func() {
		m.Post(Event{Kind: EventDeadlineTimer, gen: gen})
	})
	m.logger.Debug("probe sent", "cycle", gen)
}

// degrade raises the alert and asks the prompter, unless a prompt is
// already outstanding.
func (m *Monitor) degrade() {
	m.missedAcks.Add(1)
	m.presenter.SetAlert(true)
	m.setState(StateDegraded)
	m.logger.Warn("ack not received before deadline",
		"cycle", m.cycle,
		"ack_timeout", m.cfg.AckTimeout,
	)

	if m.prompting {
		return
	}
	m.prompting = true

	d := Degradation{
		Cycle:       m.cycle,
		ProbeSentAt: m.probeSentAt,
		AckTimeout:  m.cfg.AckTimeout,
	}
	ctx := m.promptCtx
	go func() {
		reload, err := m.prompter.Confirm(ctx, d)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				m.logger.Warn("reload prompt failed", "error", err)
			}
			reload = false
		}
		m.Post(Event{Kind: EventPromptAnswered, Reload: reload})
	}()
}

func (m *Monitor) stopDeadline() {
	if m.deadlineTimer != nil {
		m.deadlineTimer.Stop()
		m.deadlineTimer = nil
	}
}

func (m *Monitor) stopTimers() {
	// Bumping the generation drops probe fires already queued.
	m.probeGen++
	if m.probeTimer != nil {
		m.probeTimer.Stop()
		m.probeTimer = nil
	}
	m.stopDeadline()
}

// close moves to StateClosed. The alert indicator is always cleared.
func (m *Monitor) close(reason CloseReason, closeTransport bool) {
	m.stopTimers()
	if closeTransport {
		if err := m.transport.Close(); err != nil {
			m.logger.Debug("transport close failed", "error", err)
		}
	}
	m.presenter.SetAlert(false)
	m.reason.Store(int32(reason))
	m.setState(StateClosed)
	m.promptCancel()
	m.closeOnce.Do(func() { close(m.done) })

	m.logger.Info("liveness monitor closed",
		"reason", reason,
		"probes_sent", m.probesSent.Load(),
		"missed_acks", m.missedAcks.Load(),
	)
}
