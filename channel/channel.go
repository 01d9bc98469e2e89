// Package channel provides the reliable, ordered, bidirectional message
// transport between a proxy client and its worker process.
//
// The concrete implementation frames wire envelopes as newline-delimited
// JSON over an io.ReadWriter (typically a socket or the stdio pipes of a
// child process). Stream-level encryption is an external concern: callers
// may supply a StreamCipher that wraps the raw reader and writer.
package channel

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/vaibhav93076/MadelineProto/wire"
)

// Channel is a bidirectional message transport. Receive blocks until the
// next inbound message is available and returns io.EOF once the remote end
// has closed the stream and all buffered messages have been drained.
type Channel interface {
	Send(msg *wire.Message) error
	Receive(ctx context.Context) (*wire.Message, error)
	Close() error
}

// StreamCipher wraps the raw byte stream with symmetric encryption. The
// algorithm and key exchange are owned by the collaborator providing the
// implementation; this package only applies the wrapping.
type StreamCipher interface {
	EncryptWriter(w io.Writer) io.Writer
	DecryptReader(r io.Reader) io.Reader
}

// Stream is a Channel over a byte stream, one JSON envelope per line.
type Stream struct {
	reader *bufio.Reader
	writer io.Writer
	raw    io.ReadWriter

	mu sync.Mutex // protects writer
}

// Option configures a Stream.
type Option func(*streamConfig)

type streamConfig struct {
	cipher StreamCipher
}

// WithCipher applies a stream cipher to all traffic on the channel.
func WithCipher(c StreamCipher) Option {
	return func(cfg *streamConfig) {
		cfg.cipher = c
	}
}

// NewStream creates a stream channel over rw. If rw implements io.Closer,
// Close closes it.
func NewStream(rw io.ReadWriter, opts ...Option) *Stream {
	var cfg streamConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	var r io.Reader = rw
	var w io.Writer = rw
	if cfg.cipher != nil {
		r = cfg.cipher.DecryptReader(r)
		w = cfg.cipher.EncryptWriter(w)
	}

	return &Stream{
		reader: bufio.NewReader(r),
		writer: w,
		raw:    rw,
	}
}

// Send encodes and writes a single message. Safe for concurrent use.
func (s *Stream) Send(msg *wire.Message) error {
	data, err := msg.Encode()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write %s message: %w", msg.Kind, err)
	}
	return nil
}

// Receive reads the next message from the stream. A malformed line yields
// an error wrapping wire.ErrProtocol; the stream stays usable and the next
// call reads the following line. Stream closure yields io.EOF.
//
// Cancellation is checked between frames only; a read already in progress
// is not interrupted.
func (s *Stream) Receive(ctx context.Context) (*wire.Message, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF && len(bytes.TrimSpace(line)) > 0 {
				// Final unterminated line still holds a frame.
				return wire.Decode(bytes.TrimSpace(line))
			}
			return nil, err
		}

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		return wire.Decode(line)
	}
}

// Close closes the underlying stream if it supports closing.
func (s *Stream) Close() error {
	if closer, ok := s.raw.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
