package ipc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/vaibhav93076/MadelineProto/channel"
	"github.com/vaibhav93076/MadelineProto/params"
	"github.com/vaibhav93076/MadelineProto/session"
	"github.com/vaibhav93076/MadelineProto/wire"
)

var (
	// ErrClosed is returned when a call is made on a client whose channel
	// has closed or whose worker has been stopped.
	ErrClosed = errors.New("ipc client closed")
	// ErrUnsupported is returned by operations that must not be invoked
	// through the proxy role.
	ErrUnsupported = errors.New("unsupported operation")
)

// outcome is what the receive loop hands back to a suspended caller.
type outcome struct {
	result any
	err    error
}

// Client is the proxy handle for one session. Construction registers the
// client in the registry and starts its receive loop; Unreference tears it
// down.
type Client struct {
	sessionID session.ID
	ch        channel.Channel
	registry  *Registry
	log       zerolog.Logger

	callbacks *params.Table
	wrapper   *params.Wrapper

	mu      sync.Mutex
	pending map[uint64]chan outcome
	nextID  uint64

	// running transitions true → false exactly once, never back.
	running  atomic.Bool
	done     chan struct{}
	teardown sync.Once
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the diagnostic logger. Without it the client is silent.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// New creates a client for id over ch, registers it in reg (replacing any
// prior client for the same session), and starts its receive loop.
func New(id session.ID, ch channel.Channel, reg *Registry, opts ...Option) *Client {
	table := params.NewTable()
	c := &Client{
		sessionID: id,
		ch:        ch,
		registry:  reg,
		log:       zerolog.Nop(),
		callbacks: table,
		wrapper:   params.NewWrapper(table),
		pending:   make(map[uint64]chan outcome),
		done:      make(chan struct{}),
	}
	c.running.Store(true)

	for _, opt := range opts {
		opt(c)
	}

	if reg != nil {
		reg.Register(id, c)
	}

	go c.receiveLoop()
	return c
}

// SessionID returns the canonical identifier of this client's session.
func (c *Client) SessionID() session.ID { return c.sessionID }

// Running reports whether the instance is still accepting calls.
func (c *Client) Running() bool { return c.running.Load() }

// Done is closed once the receive loop has exited and all pending requests
// have been failed over.
func (c *Client) Done() <-chan struct{} { return c.done }

// callOptions control dispatch behavior for a single request.
type callOptions struct {
	// noResponse dispatches fire-and-forget: the call returns as soon as
	// the request is on the wire and a later Response for its id is
	// discarded.
	noResponse bool
}

// invoke is the single generic dispatch primitive. All public operations
// go through it with their typed argument lists already wrapped.
func (c *Client) invoke(ctx context.Context, method string, args []any, opts callOptions) (any, error) {
	if !c.running.Load() {
		return nil, fmt.Errorf("%w: dispatch of %s", ErrClosed, method)
	}

	// The pending entry must be fully registered before the send can yield
	// control; a fast Response must always find its slot.
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	var resCh chan outcome
	if !opts.noResponse {
		resCh = make(chan outcome, 1)
		c.pending[id] = resCh
	}
	c.mu.Unlock()

	if err := c.ch.Send(wire.NewRequest(id, method, args)); err != nil {
		if resCh != nil {
			c.forget(id)
		}
		return nil, fmt.Errorf("send request %d (%s): %w", id, method, err)
	}

	if opts.noResponse {
		return nil, nil
	}

	select {
	case out := <-resCh:
		return out.result, out.err
	case <-ctx.Done():
		c.forget(id)
		return nil, ctx.Err()
	case <-c.done:
		return nil, fmt.Errorf("%w: request %d (%s) abandoned", ErrClosed, id, method)
	}
}

// forget drops the pending entry for id, if still present.
func (c *Client) forget(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, id)
}

// receiveLoop consumes inbound messages until the channel closes. It runs
// concurrently with all foreground calls; one loop per client.
func (c *Client) receiveLoop() {
	ctx := context.Background()
	for {
		msg, err := c.ch.Receive(ctx)
		if err != nil {
			if errors.Is(err, wire.ErrProtocol) {
				// Malformed frame; the stream itself is intact.
				c.log.Warn().Err(err).Msg("ignoring malformed message")
				continue
			}
			if !errors.Is(err, io.EOF) && c.running.Load() {
				c.log.Warn().Err(err).Msg("channel receive failed")
			}
			break
		}

		switch msg.Kind {
		case wire.KindResponse:
			c.handleResponse(msg)
		case wire.KindCallbackInvoke:
			c.handleCallbackInvoke(msg)
		case wire.KindShutdown:
			c.running.Store(false)
			c.log.Debug().Msg("worker announced shutdown, draining channel")
		default:
			c.log.Warn().Str("kind", string(msg.Kind)).Msg("ignoring message of unexpected kind")
		}
	}
	c.shutdown()
}

// handleResponse resolves the pending request matching the response id.
// A response with no pending entry is late or duplicated and is discarded.
func (c *Client) handleResponse(msg *wire.Message) {
	c.mu.Lock()
	resCh, ok := c.pending[msg.ID]
	if ok {
		delete(c.pending, msg.ID)
	}
	c.mu.Unlock()

	if !ok {
		c.log.Debug().Uint64("id", msg.ID).Msg("discarding response with no pending request")
		return
	}

	var out outcome
	if msg.Err != nil {
		out.err = msg.Err
	} else {
		out.result = msg.Result
	}
	resCh <- out
}

// handleCallbackInvoke runs the callable registered for the token and
// answers with a CallbackResult. Any failure during invocation, including
// an unknown token, becomes the carried error of the result; nothing here
// may terminate the loop.
func (c *Client) handleCallbackInvoke(msg *wire.Message) {
	result, err := c.callbacks.ResolveInvoke(msg.Token, msg.Args)

	var res *wire.Message
	if err != nil {
		c.log.Warn().Uint64("token", msg.Token).Err(err).Msg("callback invocation failed")
		code := "callback_failed"
		if errors.Is(err, params.ErrUnknownToken) {
			code = "unknown_token"
		}
		res = wire.NewCallbackResult(msg.Token, nil, &wire.RemoteError{Code: code, Message: err.Error()})
	} else {
		res = wire.NewCallbackResult(msg.Token, result, nil)
	}

	if err := c.ch.Send(res); err != nil {
		c.log.Warn().Uint64("token", msg.Token).Err(err).Msg("send callback result failed")
	}
}

// shutdown fails all pending requests and marks the client closed. Runs
// once, when the receive loop exits.
func (c *Client) shutdown() {
	c.teardown.Do(func() {
		c.running.Store(false)

		c.mu.Lock()
		for id, resCh := range c.pending {
			delete(c.pending, id)
			resCh <- outcome{err: fmt.Errorf("%w: request %d unresolved", ErrClosed, id)}
		}
		c.mu.Unlock()

		close(c.done)
	})
}
