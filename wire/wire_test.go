package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestRoundTrip(t *testing.T) {
	msg := NewRequest(1, "ping", nil)

	data, err := msg.Encode()
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, KindRequest, decoded.Kind)
	assert.Equal(t, uint64(1), decoded.ID)
	assert.Equal(t, "ping", decoded.Method)
	assert.Nil(t, decoded.Err)
}

func TestResponseCarriesRemoteError(t *testing.T) {
	msg := NewResponse(7, nil, &RemoteError{Code: "FLOOD_WAIT", Message: "slow down"})

	data, err := msg.Encode()
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)

	require.NotNil(t, decoded.Err)
	assert.Equal(t, "FLOOD_WAIT", decoded.Err.Code)
	assert.Contains(t, decoded.Err.Error(), "slow down")
}

func TestCallbackRefSurvivesArgs(t *testing.T) {
	msg := NewRequest(3, "upload.fromCallable", []any{
		CallbackRef{Token: 9, Repeat: true, Name: "video.mp4", Size: 1024},
		512,
		nil,
	})

	data, err := msg.Encode()
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	require.Len(t, decoded.Args, 3)

	// JSON decoding yields a generic map for the descriptor.
	ref, ok := decoded.Args[0].(map[string]any)
	require.True(t, ok, "expected descriptor map, got %T", decoded.Args[0])
	assert.EqualValues(t, 9, ref["_callback"])
	assert.Equal(t, true, ref["repeat"])
	assert.Equal(t, "video.mp4", ref["name"])
}

func TestValidateRejectsUnknownKind(t *testing.T) {
	_, err := Decode([]byte(`{"kind":"banana"}`))
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestValidateRejectsMalformedEnvelopes(t *testing.T) {
	cases := map[string]*Message{
		"request without id":         {Kind: KindRequest, Method: "ping"},
		"request without method":     {Kind: KindRequest, ID: 1},
		"response without id":        {Kind: KindResponse},
		"invoke without token":       {Kind: KindCallbackInvoke},
		"result without token":       {Kind: KindCallbackResult},
		"response with both payloads": {Kind: KindResponse, ID: 1, Result: "ok", Err: &RemoteError{Message: "boom"}},
	}

	for name, msg := range cases {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, msg.Validate(), ErrProtocol)
		})
	}
}

func TestDecodeRejectsBrokenJSON(t *testing.T) {
	_, err := Decode([]byte(`{"kind":"request",`))
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestShutdownHasNoRequiredFields(t *testing.T) {
	data, err := NewShutdown().Encode()
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, KindShutdown, decoded.Kind)
}
