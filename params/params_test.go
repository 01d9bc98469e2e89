package params

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaibhav93076/MadelineProto/wire"
)

func TestWrapPassesAbsentAndPlainValuesThrough(t *testing.T) {
	w := NewWrapper(NewTable())

	assert.Nil(t, w.Wrap(nil, false))
	assert.Equal(t, "hello", w.Wrap("hello", false))
	assert.Equal(t, 42, w.Wrap(42, true))
}

func TestWrapRegistersCarrier(t *testing.T) {
	table := NewTable()
	w := NewWrapper(table)

	cb := NewCallback(func(args ...any) (any, error) { return "done", nil })
	wrapped := w.Wrap(cb, true)

	ref, ok := wrapped.(wire.CallbackRef)
	require.True(t, ok, "expected CallbackRef, got %T", wrapped)
	assert.True(t, ref.Repeat)
	assert.Equal(t, 1, table.Len())

	result, err := table.ResolveInvoke(ref.Token, nil)
	require.NoError(t, err)
	assert.Equal(t, "done", result)
}

func TestWrapFileCallbackCarriesNameAndSize(t *testing.T) {
	w := NewWrapper(NewTable())

	fc := NewFileCallback("movie.mkv", 2048, func(args ...any) (any, error) { return nil, nil })
	ref, ok := w.Wrap(fc, true).(wire.CallbackRef)
	require.True(t, ok)
	assert.Equal(t, "movie.mkv", ref.Name)
	assert.EqualValues(t, 2048, ref.Size)
}

func TestTokensAreUniqueAndNeverReused(t *testing.T) {
	table := NewTable()
	noop := func(args ...any) (any, error) { return nil, nil }

	seen := make(map[uint64]bool)
	for i := 0; i < 100; i++ {
		tok := table.Register(noop)
		assert.False(t, seen[tok], "token %d issued twice", tok)
		seen[tok] = true
	}
}

func TestResolveInvokePassesArguments(t *testing.T) {
	table := NewTable()

	var got []any
	tok := table.Register(func(args ...any) (any, error) {
		got = args
		return len(args), nil
	})

	result, err := table.ResolveInvoke(tok, []any{50, 100})
	require.NoError(t, err)
	assert.Equal(t, 2, result)
	assert.Equal(t, []any{50, 100}, got)
}

func TestResolveInvokeUnknownToken(t *testing.T) {
	table := NewTable()

	_, err := table.ResolveInvoke(999, nil)
	assert.ErrorIs(t, err, ErrUnknownToken)
}

func TestResolveInvokeCapturesPanic(t *testing.T) {
	table := NewTable()
	tok := table.Register(func(args ...any) (any, error) {
		panic("callback exploded")
	})

	_, err := table.ResolveInvoke(tok, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "callback exploded")

	// The token survives a panic; streaming callbacks may be retried.
	tok2 := table.Register(func(args ...any) (any, error) { return nil, nil })
	assert.NotEqual(t, tok, tok2)
	_, err = table.ResolveInvoke(tok, nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnknownToken)
}

func TestWrapArgsLengthMismatch(t *testing.T) {
	w := NewWrapper(NewTable())

	_, err := w.WrapArgs([]any{"a"}, Schema{{Kind: SlotValue}, {Kind: SlotCallback}})
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestWrapArgsRejectsCarrierInValueSlot(t *testing.T) {
	w := NewWrapper(NewTable())

	cb := NewCallback(func(args ...any) (any, error) { return nil, nil })
	_, err := w.WrapArgs([]any{cb}, Schema{{Kind: SlotValue}})
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestWrapArgsWalksMediaList(t *testing.T) {
	table := NewTable()
	w := NewWrapper(table)

	provider := func(args ...any) (any, error) { return []byte{1, 2, 3}, nil }
	items := []MediaItem{
		{Kind: "photo", File: "https://example.org/a.jpg"},
		{Kind: "video", File: NewFileCallback("b.mp4", 10, provider)},
		{Kind: "document", File: NewFileCallback("c.pdf", 20, provider)},
	}

	schema := Schema{
		{Kind: SlotValue},
		{Kind: SlotMediaList, Repeat: true},
		{Kind: SlotCallback, Repeat: true},
	}
	out, err := w.WrapArgs([]any{"peer", items, nil}, schema)
	require.NoError(t, err)
	require.Len(t, out, 3)

	wrapped, ok := out[1].([]MediaItem)
	require.True(t, ok)
	require.Len(t, wrapped, 3)

	// Element without callback capability passes through unchanged.
	assert.Equal(t, "https://example.org/a.jpg", wrapped[0].File)

	refB, ok := wrapped[1].File.(wire.CallbackRef)
	require.True(t, ok, "expected CallbackRef, got %T", wrapped[1].File)
	refC, ok := wrapped[2].File.(wire.CallbackRef)
	require.True(t, ok)
	assert.NotEqual(t, refB.Token, refC.Token)
	assert.Equal(t, 2, table.Len())

	// The caller's slice is untouched; marshalling returns a new tree.
	_, stillCarrier := items[1].File.(*FileCallback)
	assert.True(t, stillCarrier)
}

func TestWrapArgsSingleMedia(t *testing.T) {
	w := NewWrapper(NewTable())

	item := MediaItem{Kind: "photo", File: NewFileCallback("d.jpg", 5, func(args ...any) (any, error) { return nil, nil })}
	out, err := w.WrapArgs([]any{item}, Schema{{Kind: SlotMedia, Repeat: true}})
	require.NoError(t, err)

	wrapped, ok := out[0].(MediaItem)
	require.True(t, ok)
	_, isRef := wrapped.File.(wire.CallbackRef)
	assert.True(t, isRef)
}

func TestWrapArgsRejectsWrongMediaType(t *testing.T) {
	w := NewWrapper(NewTable())

	_, err := w.WrapArgs([]any{"not media"}, Schema{{Kind: SlotMedia}})
	assert.ErrorIs(t, err, ErrSchemaMismatch)

	_, err = w.WrapArgs([]any{"not a list"}, Schema{{Kind: SlotMediaList}})
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestCallableErrorPropagates(t *testing.T) {
	table := NewTable()
	boom := errors.New("disk full")
	tok := table.Register(func(args ...any) (any, error) { return nil, boom })

	_, err := table.ResolveInvoke(tok, nil)
	assert.ErrorIs(t, err, boom)
}
