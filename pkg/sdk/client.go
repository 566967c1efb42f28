package sdk

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/nicktill/mixgo/pkg/config"
	"github.com/nicktill/mixgo/pkg/logger"
	"github.com/nicktill/mixgo/pkg/sdk/auth"
	"github.com/nicktill/mixgo/pkg/sdk/batch"
	"github.com/nicktill/mixgo/pkg/sdk/event"
	"github.com/nicktill/mixgo/pkg/sdk/transport"
)

// ErrNoServiceAccount is returned by TrackMany when the configuration has
// no complete service account. No I/O is attempted in that case.
var ErrNoServiceAccount = errors.New("historical import requires a configured service account")

// Client is the public entry point of the SDK.
type Client struct {
	cfg       *config.Config
	transport *transport.Client
	batcher   *batch.Batcher
	log       *zap.Logger
}

type options struct {
	log           *zap.Logger
	transportOpts []transport.Option
}

// Option customizes a Client.
type Option func(*options)

// WithLogger replaces the logger built from cfg.Environment.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithBackend injects an HTTP backend, typically a test stub.
func WithBackend(b transport.Backend) Option {
	return func(o *options) {
		o.transportOpts = append(o.transportOpts, transport.WithBackend(b))
	}
}

// New validates cfg and wires up the transport and the batcher. The config
// is not read from the environment here; use config.Load for that.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		log, err := logger.New(cfg.Environment)
		if err != nil {
			return nil, err
		}
		o.log = log
	}

	c := &Client{
		cfg:       cfg,
		transport: transport.New(cfg, o.log.Named("transport"), o.transportOpts...),
		log:       o.log,
	}
	c.batcher = batch.New(liveSender{c}, batch.Config{
		MaxBatchSize: cfg.BatchSize,
		FlushAfter:   cfg.BatchTimeout,
		// Budget the detached send for the full retry schedule.
		SendTimeout: cfg.RequestTimeout * time.Duration(cfg.MaxRetries+2),
	}, o.log.Named("batch"))

	return c, nil
}

// Track queues one event for batched delivery and returns immediately. A
// nil error means "queued", not "delivered": the eventual send is
// fire-and-forget and its failure is visible only in logs. Callers that
// need the delivery outcome should use TrackImmediate.
func (c *Client) Track(name string, props map[string]any) error {
	ev, err := event.New(name, props)
	if err != nil {
		return err
	}
	c.batcher.Add(ev)
	return nil
}

// TrackImmediate sends one event synchronously, bypassing the buffer, and
// returns the classified outcome. The returned error is outcome.Err(): nil
// exactly when the remote service accepted the event.
func (c *Client) TrackImmediate(ctx context.Context, name string, props map[string]any) (transport.Outcome, error) {
	ev, err := event.New(name, props)
	if err != nil {
		return transport.Outcome{}, err
	}

	p := ev.Live()
	auth.AttachToken(&p, c.cfg.Token)
	out := c.transport.Send(ctx, transport.EndpointTrack, p, auth.TrackHeaders())
	return out, out.Err()
}

// TrackMany imports a batch of historical events synchronously. It requires
// a complete service account and validates the whole batch before any I/O.
// On acceptance the outcome carries the imported-record count.
func (c *Client) TrackMany(ctx context.Context, events []event.Input) (transport.Outcome, error) {
	if !c.cfg.ServiceAccount.Complete() {
		return transport.Outcome{}, ErrNoServiceAccount
	}
	if err := event.ValidateBatch(events); err != nil {
		return transport.Outcome{}, err
	}

	payloads := make([]event.Payload, len(events))
	for i, in := range events {
		ev, err := event.New(in.Name, in.Properties)
		if err != nil {
			return transport.Outcome{}, err
		}
		p := ev.Historical()
		auth.AttachToken(&p, c.cfg.Token)
		auth.AttachProjectID(&p, c.cfg.ServiceAccount.ProjectID)
		payloads[i] = p
	}

	out := c.transport.Send(ctx, transport.EndpointImport, payloads, auth.ImportHeaders(c.cfg.ServiceAccount))
	return out, out.Err()
}

// Flush synchronously sends everything buffered and reports how many events
// the attempt covered. It acknowledges the attempt, not delivery.
func (c *Client) Flush(ctx context.Context) int {
	return c.batcher.Flush(ctx)
}

// Pending returns the number of buffered events awaiting delivery.
func (c *Client) Pending() int {
	return c.batcher.Pending()
}

// Close performs one best-effort final flush. Call it once at shutdown.
func (c *Client) Close(ctx context.Context) error {
	c.batcher.Close(ctx)
	_ = c.log.Sync()
	return nil
}

// liveSender adapts the client into the batcher's Sender: it shapes live
// payloads, injects the token last, and posts the array to /track.
type liveSender struct {
	c *Client
}

func (s liveSender) Send(ctx context.Context, events []*event.Event) transport.Outcome {
	payloads := make([]event.Payload, len(events))
	for i, ev := range events {
		p := ev.Live()
		auth.AttachToken(&p, s.c.cfg.Token)
		payloads[i] = p
	}
	return s.c.transport.Send(ctx, transport.EndpointTrack, payloads, auth.TrackHeaders())
}
