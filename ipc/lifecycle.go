package ipc

import (
	"context"
	"fmt"

	"github.com/vaibhav93076/MadelineProto/wire"
)

// Disconnect closes the underlying channel. Closing is delegated to the
// channel implementation; the receive loop observes the closure and fails
// any still-pending requests.
func (c *Client) Disconnect(ctx context.Context) error {
	if err := c.ch.Close(); err != nil {
		return fmt.Errorf("close channel: %w", err)
	}
	return nil
}

// StopWorker marks this instance as no longer running and tells the worker
// process to terminate. The channel is not closed here; the worker closing
// its end of the transport is what ultimately ends the receive loop.
func (c *Client) StopWorker(ctx context.Context) error {
	c.running.Store(false)
	if err := c.ch.Send(wire.NewShutdown()); err != nil {
		return fmt.Errorf("send shutdown: %w", err)
	}
	return nil
}

// RestartWorker tells the worker process to terminate without marking this
// instance stopped. Used when an external supervisor replaces the worker
// while the registry entry stays valid for reconnection.
func (c *Client) RestartWorker(ctx context.Context) error {
	if err := c.ch.Send(wire.NewShutdown()); err != nil {
		return fmt.Errorf("send shutdown: %w", err)
	}
	return nil
}

// Unreference disconnects and removes this client from the registry. It
// blocks until the disconnect has completed and the receive loop has
// exited, or until ctx is cancelled; a disconnect failure is logged, never
// propagated, since teardown must always complete.
func (c *Client) Unreference(ctx context.Context) {
	if err := c.Disconnect(ctx); err != nil {
		c.log.Warn().Err(err).Msg("disconnect during unreference")
	}

	select {
	case <-c.done:
	case <-ctx.Done():
		c.log.Warn().Err(ctx.Err()).Msg("gave up waiting for receive loop during unreference")
	}

	if c.registry != nil {
		c.registry.removeMatching(c.sessionID, c)
	}
}

// SetEventHandler always fails: event handlers run inside the worker
// process, not through the proxy.
func (c *Client) SetEventHandler(handler any) error {
	return fmt.Errorf("%w: event handlers live in the worker process; install one via the worker entry point, not the IPC proxy", ErrUnsupported)
}

// GetEventHandler always fails: event handlers run inside the worker
// process, not through the proxy.
func (c *Client) GetEventHandler() (any, error) {
	return nil, fmt.Errorf("%w: event handlers live in the worker process; query them via the worker entry point, not the IPC proxy", ErrUnsupported)
}
