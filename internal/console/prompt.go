package console

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/rickgao/wsconsole/internal/config"
	"github.com/rickgao/wsconsole/internal/liveness"
)

// Errors
var (
	ErrUnknownPolicy = errors.New("unknown degraded-connection policy")
)

// ReloadQuestion is asked when an ack misses its deadline.
const ReloadQuestion = "Server is down (pong was not received)! Would you like to reload?"

// Answerer accepts typed lines while a question is outstanding.
type Answerer interface {
	// Offer hands line to a pending question. It returns false when no
	// question is waiting, so the line should be handled normally.
	Offer(line string) bool
}

// TerminalPrompter asks the reload question on the View and takes the next
// typed line as the answer.
type TerminalPrompter struct {
	view    *View
	answers chan string
	pending atomic.Bool
}

// NewTerminalPrompter creates a TerminalPrompter.
func NewTerminalPrompter(view *View) *TerminalPrompter {
	return &TerminalPrompter{
		view:    view,
		answers: make(chan string, 1),
	}
}

// Confirm blocks until a line is offered or ctx is done.
func (p *TerminalPrompter) Confirm(ctx context.Context, d liveness.Degradation) (bool, error) {
	// Discard an answer left over from an abandoned question.
	select {
	case <-p.answers:
	default:
	}

	p.pending.Store(true)
	defer p.pending.Store(false)

	p.view.Notice("%s [y/N]", ReloadQuestion)

	select {
	case line := <-p.answers:
		return isYes(line), nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Offer implements Answerer.
func (p *TerminalPrompter) Offer(line string) bool {
	// Only the first line after the question is taken as the answer.
	if !p.pending.CompareAndSwap(true, false) {
		return false
	}
	select {
	case p.answers <- line:
	default:
	}
	return true
}

// Pending reports whether a question is waiting for an answer.
func (p *TerminalPrompter) Pending() bool {
	return p.pending.Load()
}

func isYes(line string) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// PolicyPrompter answers every question the same way without asking.
type PolicyPrompter struct {
	Reload bool
	View   *View // optional; notes the decision
}

// Confirm implements liveness.Prompter.
func (p PolicyPrompter) Confirm(_ context.Context, d liveness.Degradation) (bool, error) {
	if p.View != nil {
		if p.Reload {
			p.View.Notice("no pong within %s, reloading", d.AckTimeout)
		} else {
			p.View.Notice("no pong within %s, keeping connection", d.AckTimeout)
		}
	}
	return p.Reload, nil
}

// NewPrompter returns the Prompter for a config.LivenessConfig.OnDegraded
// policy.
func NewPrompter(policy string, view *View) (liveness.Prompter, error) {
	switch policy {
	case "", config.OnDegradedPrompt:
		return NewTerminalPrompter(view), nil
	case config.OnDegradedReload:
		return PolicyPrompter{Reload: true, View: view}, nil
	case config.OnDegradedIgnore:
		return PolicyPrompter{Reload: false, View: view}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, policy)
	}
}
