package console

import (
	"context"
	"errors"
	"time"

	"github.com/rickgao/wsconsole/internal/liveness"
)

// RunnerConfig holds Runner settings.
type RunnerConfig struct {
	Session          SessionConfig
	ReloadDelay      time.Duration // Pause before a reload opens the next session
	ReconnectOnClose bool          // Start a new session when the device closes
}

// Runner opens sessions until one ends in a way that should not reload.
type Runner struct {
	cfg      RunnerConfig
	view     *View
	prompter liveness.Prompter
	input    <-chan string
	rawOpts  []Option
	opts     options

	sessions int
}

// NewRunner creates a Runner. The prompter and input are shared by every
// session it opens.
func NewRunner(cfg RunnerConfig, view *View, prompter liveness.Prompter, input <-chan string, opts ...Option) *Runner {
	return &Runner{
		cfg:      cfg,
		view:     view,
		prompter: prompter,
		input:    input,
		rawOpts:  opts,
		opts:     buildOptions(opts),
	}
}

// Run opens the first session and keeps reloading as long as sessions end
// with OutcomeReload (or OutcomeClosed when ReconnectOnClose is set). It
// returns the final Outcome.
func (r *Runner) Run(ctx context.Context) (Outcome, error) {
	for {
		client := r.opts.newClient(r.cfg.Session.Client, r.opts.logger)
		sess := NewSession(r.cfg.Session, client, r.view, r.prompter, r.input, r.rawOpts...)
		r.sessions++

		outcome, err := sess.Run(ctx)
		if ctx.Err() != nil {
			return OutcomeQuit, nil
		}
		if err != nil {
			// A device that went away to reboot may refuse a few dials.
			if !(r.cfg.ReconnectOnClose && r.sessions > 1 && errors.Is(err, ErrConnect)) {
				return outcome, err
			}
			r.opts.logger.Warn("reconnect failed", "error", err)
			outcome = OutcomeClosed
		}

		switch outcome {
		case OutcomeReload:
			r.view.Notice("reloading")
		case OutcomeClosed:
			if !r.cfg.ReconnectOnClose {
				return outcome, nil
			}
			r.view.Notice("reconnecting in %s", r.cfg.ReloadDelay)
		default:
			return outcome, nil
		}

		select {
		case <-ctx.Done():
			return OutcomeQuit, nil
		case <-time.After(r.cfg.ReloadDelay):
		}
	}
}

// Sessions returns how many sessions have been opened.
func (r *Runner) Sessions() int {
	return r.sessions
}
