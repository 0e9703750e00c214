package console

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/rickgao/wsconsole/internal/connection"
	"github.com/rickgao/wsconsole/internal/transcript"
)

// Recorder receives every frame a session sends or receives.
type Recorder interface {
	Add(e transcript.Entry) bool
}

// ClientFactory creates the transport for one session.
type ClientFactory func(cfg connection.ClientConfig, logger *slog.Logger) connection.Client

// Option configures a Session or Runner.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	recorder   Recorder
	httpClient *http.Client
	newClient  ClientFactory
}

func buildOptions(opts []Option) options {
	o := options{
		logger:     slog.Default(),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		newClient:  connection.NewClient,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRecorder archives session traffic.
func WithRecorder(r Recorder) Option {
	return func(o *options) {
		o.recorder = r
	}
}

// WithHTTPClient sets the client used for the logout request.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		o.httpClient = hc
	}
}

// WithClientFactory replaces connection.NewClient.
func WithClientFactory(f ClientFactory) Option {
	return func(o *options) {
		o.newClient = f
	}
}
