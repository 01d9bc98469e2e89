// Package params marshals call arguments for transmission to the worker
// process, substituting non-serializable callables with wire tokens.
//
// Argument values may carry "callback capability": they wrap a callable
// that the worker needs to invoke back in this process (progress
// reporting, chunked file reads). Such values cannot cross the process
// boundary, so the wrapper replaces them with a wire.CallbackRef and
// records the callable in a Table keyed by token. When the worker sends a
// CallbackInvoke for a token, ResolveInvoke runs the original callable.
//
// Which argument positions may carry callback capability is declared per
// remote method as a Schema; the walk over a call's arguments is driven by
// that declared shape and visits every addressable slot, including each
// element of a media batch.
package params

import (
	"errors"
	"fmt"
	"sync"

	"github.com/vaibhav93076/MadelineProto/wire"
)

var (
	// ErrUnknownToken is returned when a callback invocation references a
	// token with no registered owner (stale or foreign token).
	ErrUnknownToken = errors.New("unknown callback token")
	// ErrSchemaMismatch is returned when an argument list does not fit the
	// declared schema for the method being marshalled.
	ErrSchemaMismatch = errors.New("arguments do not match declared schema")
)

// Callable is the underlying invocable wrapped by a callback carrier.
type Callable func(args ...any) (any, error)

// CallbackCarrier is the callback-capability contract. The wrapper only
// unwraps values answering IsCallbackCarrier true.
type CallbackCarrier interface {
	IsCallbackCarrier() bool
	Callable() Callable
}

// Callback wraps a plain callable, marking it as callback-capable. It is
// used for progress and status callbacks that the worker invokes with
// transfer counters.
type Callback struct {
	fn Callable
}

// NewCallback wraps fn as a callback carrier.
func NewCallback(fn Callable) *Callback {
	return &Callback{fn: fn}
}

// IsCallbackCarrier implements CallbackCarrier.
func (c *Callback) IsCallbackCarrier() bool { return c != nil && c.fn != nil }

// Callable implements CallbackCarrier.
func (c *Callback) Callable() Callable { return c.fn }

// FileCallback is a chunked file-content provider: a named, sized source
// whose callable is invoked repeatedly by the worker with (offset, limit)
// and returns the next chunk of bytes.
type FileCallback struct {
	name string
	size int64
	fn   Callable
}

// NewFileCallback wraps fn as a file-content provider. size is the total
// content length in bytes; name is the file name presented to the worker.
func NewFileCallback(name string, size int64, fn Callable) *FileCallback {
	return &FileCallback{name: name, size: size, fn: fn}
}

// Name returns the file name presented to the worker.
func (f *FileCallback) Name() string { return f.name }

// Size returns the total content length in bytes.
func (f *FileCallback) Size() int64 { return f.size }

// IsCallbackCarrier implements CallbackCarrier.
func (f *FileCallback) IsCallbackCarrier() bool { return f != nil && f.fn != nil }

// Callable implements CallbackCarrier.
func (f *FileCallback) Callable() Callable { return f.fn }

// MediaItem is one element of a media batch. File may be a URL string, a
// previously obtained file reference, or a callback carrier providing the
// content; carriers are wrapped in place during marshalling.
type MediaItem struct {
	Kind    string `json:"kind,omitempty"`
	Caption string `json:"caption,omitempty"`
	File    any    `json:"file,omitempty"`
}

// Table maps locally-issued tokens to their owner callables. Tokens are
// unique for the lifetime of one table and never reused.
type Table struct {
	mu     sync.Mutex
	next   uint64
	owners map[uint64]Callable
}

// NewTable creates an empty callback table.
func NewTable() *Table {
	return &Table{owners: make(map[uint64]Callable)}
}

// Register records fn under a fresh token and returns the token.
func (t *Table) Register(fn Callable) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.next++
	t.owners[t.next] = fn
	return t.next
}

// Len returns the number of registered tokens.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.owners)
}

// ResolveInvoke looks up token and invokes its owner callable with args.
// A panicking callable is captured and reported as an error; the token
// stays registered, since the protocol may call it again.
func (t *Table) ResolveInvoke(token uint64, args []any) (result any, err error) {
	t.mu.Lock()
	fn, ok := t.owners[token]
	t.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownToken, token)
	}

	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("callback %d panicked: %v", token, r)
		}
	}()

	return fn(args...)
}

// SlotKind declares what an argument position may hold.
type SlotKind int

const (
	// SlotValue is a plain serializable value; callback carriers are not
	// allowed here.
	SlotValue SlotKind = iota
	// SlotCallback may hold a callback carrier (or nil).
	SlotCallback
	// SlotMedia holds a single MediaItem whose File may carry a callback.
	SlotMedia
	// SlotMediaList holds a []MediaItem, each element's File wrapped
	// independently.
	SlotMediaList
)

// Slot describes one argument position of a remote method. Repeat is the
// protocol hint recorded on issued tokens: true when the worker may invoke
// the callback more than once (progress, chunk providers), false for
// exactly-once completion callbacks. The wrapper does not enforce the
// count.
type Slot struct {
	Kind   SlotKind
	Repeat bool
}

// Schema is the declared argument shape of a remote method, one Slot per
// position.
type Schema []Slot

// Wrapper walks outbound argument lists against their declared schema and
// substitutes callback carriers with token descriptors registered in its
// table.
type Wrapper struct {
	table *Table
}

// NewWrapper creates a wrapper issuing tokens into table.
func NewWrapper(table *Table) *Wrapper {
	return &Wrapper{table: table}
}

// Wrap replaces v with a token descriptor if it carries callback
// capability, registering the underlying callable first. Absent values and
// non-carriers are returned unchanged. allowRepeatedInvoke is recorded on
// the descriptor as the repeat-invocation hint.
func (w *Wrapper) Wrap(v any, allowRepeatedInvoke bool) any {
	if v == nil {
		return nil
	}

	carrier, ok := v.(CallbackCarrier)
	if !ok || !carrier.IsCallbackCarrier() {
		return v
	}

	ref := wire.CallbackRef{
		Token:  w.table.Register(carrier.Callable()),
		Repeat: allowRepeatedInvoke,
	}
	if fc, ok := v.(*FileCallback); ok {
		ref.Name = fc.Name()
		ref.Size = fc.Size()
	}
	return ref
}

// WrapArgs marshals args against schema, returning a new argument list
// with every declared callback slot wrapped. The walk is total: every
// position, and every element of a media batch, is visited. A callback
// carrier found in a SlotValue position is a caller bug and fails with
// ErrSchemaMismatch.
func (w *Wrapper) WrapArgs(args []any, schema Schema) ([]any, error) {
	if len(args) != len(schema) {
		return nil, fmt.Errorf("%w: schema declares %d positions, got %d arguments",
			ErrSchemaMismatch, len(schema), len(args))
	}

	out := make([]any, len(args))
	for i, slot := range schema {
		switch slot.Kind {
		case SlotValue:
			if isCarrier(args[i]) {
				return nil, fmt.Errorf("%w: position %d does not accept callbacks",
					ErrSchemaMismatch, i)
			}
			out[i] = args[i]

		case SlotCallback:
			out[i] = w.Wrap(args[i], slot.Repeat)

		case SlotMedia:
			item, err := w.wrapMedia(args[i], slot, i)
			if err != nil {
				return nil, err
			}
			out[i] = item

		case SlotMediaList:
			items, ok := args[i].([]MediaItem)
			if !ok && args[i] != nil {
				return nil, fmt.Errorf("%w: position %d expects []MediaItem, got %T",
					ErrSchemaMismatch, i, args[i])
			}
			wrapped := make([]MediaItem, len(items))
			for j, item := range items {
				item.File = w.Wrap(item.File, slot.Repeat)
				wrapped[j] = item
			}
			out[i] = wrapped

		default:
			return nil, fmt.Errorf("%w: position %d has unknown slot kind %d",
				ErrSchemaMismatch, i, slot.Kind)
		}
	}
	return out, nil
}

// wrapMedia wraps the File of a single MediaItem argument.
func (w *Wrapper) wrapMedia(v any, slot Slot, pos int) (any, error) {
	if v == nil {
		return nil, nil
	}
	item, ok := v.(MediaItem)
	if !ok {
		return nil, fmt.Errorf("%w: position %d expects MediaItem, got %T",
			ErrSchemaMismatch, pos, v)
	}
	item.File = w.Wrap(item.File, slot.Repeat)
	return item, nil
}

func isCarrier(v any) bool {
	c, ok := v.(CallbackCarrier)
	return ok && c.IsCallbackCarrier()
}
