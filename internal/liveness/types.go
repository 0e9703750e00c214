package liveness

import (
	"context"
	"errors"
	"time"
)

// Errors
var (
	ErrClosed = errors.New("monitor closed")
)

// State is the Monitor's position in the heartbeat state machine.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateHealthy
	StateAwaitingAck
	StateDegraded
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateHealthy:
		return "healthy"
	case StateAwaitingAck:
		return "awaiting_ack"
	case StateDegraded:
		return "degraded"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Open reports whether the connection is open in this state.
func (s State) Open() bool {
	return s == StateHealthy || s == StateAwaitingAck || s == StateDegraded
}

// EventKind tags an Event.
type EventKind int

const (
	EventConnecting EventKind = iota + 1
	EventOpened
	EventClosed
	EventErrored
	EventMessage
	EventProbeTimer
	EventDeadlineTimer
	EventLogout
	EventPromptAnswered
	EventShutdown
)

func (k EventKind) String() string {
	switch k {
	case EventConnecting:
		return "connecting"
	case EventOpened:
		return "opened"
	case EventClosed:
		return "closed"
	case EventErrored:
		return "errored"
	case EventMessage:
		return "message"
	case EventProbeTimer:
		return "probe_timer"
	case EventDeadlineTimer:
		return "deadline_timer"
	case EventLogout:
		return "logout"
	case EventPromptAnswered:
		return "prompt_answered"
	case EventShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Event is the single input type of the transition function.
type Event struct {
	Kind   EventKind
	Text   string // EventMessage
	Err    error  // EventErrored
	Reload bool   // EventPromptAnswered
	gen    uint64 // timer generation, used to drop stale fires
}

// CloseReason records why the Monitor reached StateClosed.
type CloseReason int

const (
	ReasonNone CloseReason = iota
	ReasonTransportClosed
	ReasonTransportError
	ReasonLogout
	ReasonReload
	ReasonShutdown
)

func (r CloseReason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonTransportClosed:
		return "transport_closed"
	case ReasonTransportError:
		return "transport_error"
	case ReasonLogout:
		return "logout"
	case ReasonReload:
		return "reload"
	case ReasonShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Transport is the part of the connection the Monitor drives.
type Transport interface {
	Send(text string) error
	Close() error
}

// Presenter consumes log text and the alert indicator.
type Presenter interface {
	AppendLog(text string)
	SetAlert(on bool)
}

// Degradation describes a missed acknowledgment.
type Degradation struct {
	Cycle       uint64        // Probe cycle that went unanswered
	ProbeSentAt time.Time     // When the probe was sent
	AckTimeout  time.Duration // Deadline that elapsed
}

// Prompter decides whether a degraded connection should be reloaded.
// Confirm may block; the Monitor always calls it on its own goroutine.
type Prompter interface {
	Confirm(ctx context.Context, d Degradation) (reload bool, err error)
}

// PrompterFunc is a function adapter for Prompter.
type PrompterFunc func(context.Context, Degradation) (bool, error)

func (f PrompterFunc) Confirm(ctx context.Context, d Degradation) (bool, error) {
	return f(ctx, d)
}

// Config holds Monitor configuration.
type Config struct {
	Disabled      bool          // No probes at all; the Monitor only tracks open/closed
	ProbeInterval time.Duration // Period of the probe timer (default: 20s)
	AckTimeout    time.Duration // Deadline for the ack after each probe (default: 5s)
	ProbeToken    string        // Outbound keepalive text (default: "ping")
	AckToken      string        // Inbound acknowledgment text (default: "pong")
	EventBuffer   int           // Event queue size (default: 64)
}

// DefaultConfig returns the reference timings and tokens.
func DefaultConfig() Config {
	return Config{
		ProbeInterval: 20 * time.Second,
		AckTimeout:    5 * time.Second,
		ProbeToken:    "ping",
		AckToken:      "pong",
		EventBuffer:   64,
	}
}

// Stats contains heartbeat counters.
type Stats struct {
	ProbesSent   int64
	AcksReceived int64
	MissedAcks   int64
	LateAcks     int64
	LogMessages  int64
}
