// Package wire defines the five message kinds exchanged between a proxy
// client and its worker process, and their encoding.
//
// Every payload crossing the channel is a single envelope:
//
//	┌──────────────────────────────────────────────────────────┐
//	│  kind    - "request" | "response" | "callback_invoke"    │
//	│            | "callback_result" | "shutdown"              │
//	├──────────────────────────────────────────────────────────┤
//	│  id      - request/response correlation (uint64)         │
//	├──────────────────────────────────────────────────────────┤
//	│  method  - remote method name (requests only)            │
//	├──────────────────────────────────────────────────────────┤
//	│  args    - positional arguments (requests, invokes)      │
//	├──────────────────────────────────────────────────────────┤
//	│  token   - callback correlation (invokes, results)       │
//	├──────────────────────────────────────────────────────────┤
//	│  result / error - outcome carried by responses and       │
//	│            callback results (mutually exclusive)         │
//	└──────────────────────────────────────────────────────────┘
//
// The envelope is serialized as JSON. Framing (one envelope per line) is
// the channel package's concern; this package only defines the shape.
//
// # Direction
//
//   - Request, CallbackResult, Shutdown: client → worker
//   - Response, CallbackInvoke: worker → client
//
// The worker may also send Shutdown to announce its own termination.
package wire

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind identifies the type of a wire message.
type Kind string

const (
	// KindRequest is a method call sent to the worker.
	KindRequest Kind = "request"
	// KindResponse resolves a previously sent request by id.
	KindResponse Kind = "response"
	// KindCallbackInvoke asks the client to run a registered callback.
	KindCallbackInvoke Kind = "callback_invoke"
	// KindCallbackResult carries a callback's outcome back to the worker.
	KindCallbackResult Kind = "callback_result"
	// KindShutdown signals that the receiving process should terminate.
	KindShutdown Kind = "shutdown"
)

var (
	// ErrProtocol is returned when a message is malformed or of an
	// unrecognized shape.
	ErrProtocol = errors.New("protocol error")
)

// RemoteError is an error payload carried inside a Response or
// CallbackResult. It originates from the worker or from an invoked
// callback, never from the transport.
type RemoteError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("remote error (%s): %s", e.Code, e.Message)
	}
	return "remote error: " + e.Message
}

// CallbackRef is the token descriptor substituted for a non-serializable
// callable in an argument tree. The worker invokes the token via
// CallbackInvoke; Repeat tells it whether more than one invocation is
// allowed. Name and Size describe chunked file-content providers.
type CallbackRef struct {
	Token  uint64 `json:"_callback"`
	Repeat bool   `json:"repeat,omitempty"`
	Name   string `json:"name,omitempty"`
	Size   int64  `json:"size,omitempty"`
}

// Message is the tagged union carried over the channel. Which fields are
// meaningful depends on Kind; Validate checks the combination.
type Message struct {
	Kind   Kind         `json:"kind"`
	ID     uint64       `json:"id,omitempty"`
	Method string       `json:"method,omitempty"`
	Args   []any        `json:"args,omitempty"`
	Token  uint64       `json:"token,omitempty"`
	Result any          `json:"result,omitempty"`
	Err    *RemoteError `json:"error,omitempty"`
}

// Validate checks that the message has a known kind and the fields that
// kind requires. It returns an error wrapping ErrProtocol otherwise.
func (m *Message) Validate() error {
	switch m.Kind {
	case KindRequest:
		if m.ID == 0 {
			return fmt.Errorf("%w: request without id", ErrProtocol)
		}
		if m.Method == "" {
			return fmt.Errorf("%w: request %d without method", ErrProtocol, m.ID)
		}
	case KindResponse:
		if m.ID == 0 {
			return fmt.Errorf("%w: response without id", ErrProtocol)
		}
		if m.Result != nil && m.Err != nil {
			return fmt.Errorf("%w: response %d carries both result and error", ErrProtocol, m.ID)
		}
	case KindCallbackInvoke:
		if m.Token == 0 {
			return fmt.Errorf("%w: callback invoke without token", ErrProtocol)
		}
	case KindCallbackResult:
		if m.Token == 0 {
			return fmt.Errorf("%w: callback result without token", ErrProtocol)
		}
		if m.Result != nil && m.Err != nil {
			return fmt.Errorf("%w: callback result %d carries both result and error", ErrProtocol, m.Token)
		}
	case KindShutdown:
		// No fields required.
	default:
		return fmt.Errorf("%w: unknown message kind %q", ErrProtocol, m.Kind)
	}
	return nil
}

// Encode serializes the message to its JSON envelope.
func (m *Message) Encode() ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode %s message: %w", m.Kind, err)
	}
	return data, nil
}

// Decode deserializes a message from its JSON envelope and validates it.
func Decode(data []byte) (*Message, error) {
	m := &Message{}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Helper functions for creating specific message kinds

// NewRequest creates a Request message. The id must be unique within the
// sending client's lifetime.
func NewRequest(id uint64, method string, args []any) *Message {
	return &Message{
		Kind:   KindRequest,
		ID:     id,
		Method: method,
		Args:   args,
	}
}

// NewResponse creates a Response message resolving the request with the
// given id. Exactly one of result and remoteErr should be set.
func NewResponse(id uint64, result any, remoteErr *RemoteError) *Message {
	return &Message{
		Kind:   KindResponse,
		ID:     id,
		Result: result,
		Err:    remoteErr,
	}
}

// NewCallbackInvoke creates a CallbackInvoke message for a token issued by
// the receiving client.
func NewCallbackInvoke(token uint64, args []any) *Message {
	return &Message{
		Kind:  KindCallbackInvoke,
		Token: token,
		Args:  args,
	}
}

// NewCallbackResult creates a CallbackResult message carrying a callback's
// outcome. Exactly one of result and remoteErr should be set.
func NewCallbackResult(token uint64, result any, remoteErr *RemoteError) *Message {
	return &Message{
		Kind:   KindCallbackResult,
		Token:  token,
		Result: result,
		Err:    remoteErr,
	}
}

// NewShutdown creates a Shutdown message.
func NewShutdown() *Message {
	return &Message{Kind: KindShutdown}
}
