package probe

import (
	"testing"
	"time"

	"HttpSpectra/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestCodec_Request(t *testing.T) {
	ev := model.Event{
		Kind:      model.EventRequest,
		Host:      "example.com",
		ByteSize:  120,
		Method:    "POST",
		Flow:      "10.0.0.1:51000-10.0.0.2:80",
		Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 123456789, time.UTC),
	}
	data, err := EncodeEvent(ev)
	require.NoError(t, err)

	got, err := DecodeEvent(data)
	require.NoError(t, err)
	assert.Equal(t, ev.Kind, got.Kind)
	assert.Equal(t, ev.Host, got.Host)
	assert.Equal(t, ev.ByteSize, got.ByteSize)
	assert.Equal(t, ev.Method, got.Method)
	assert.Equal(t, ev.Flow, got.Flow)
	assert.True(t, ev.Timestamp.Equal(got.Timestamp))
}

func TestCodec_ResponseWithoutTimestamp(t *testing.T) {
	ev := model.Event{Kind: model.EventResponse, ByteSize: 940, StatusCode: 200, StatusText: "OK", ContentType: "text/html"}
	data, err := EncodeEvent(ev)
	require.NoError(t, err)

	got, err := DecodeEvent(data)
	require.NoError(t, err)
	assert.Equal(t, ev, got)
	assert.True(t, got.Timestamp.IsZero())
}

func TestCodec_NegativeSizeSurvives(t *testing.T) {
	data, err := EncodeEvent(model.ResponseEvent(-5))
	require.NoError(t, err)
	got, err := DecodeEvent(data)
	require.NoError(t, err)
	assert.Equal(t, -5, got.ByteSize)
}

func TestDecodeEvent_SkipsUnknownFields(t *testing.T) {
	data, err := EncodeEvent(model.RequestEvent("a", 3))
	require.NoError(t, err)
	data = protowire.AppendTag(data, 42, protowire.BytesType)
	data = protowire.AppendString(data, "future")
	data = protowire.AppendTag(data, 43, protowire.VarintType)
	data = protowire.AppendVarint(data, 7)

	got, err := DecodeEvent(data)
	require.NoError(t, err)
	assert.Equal(t, "a", got.Host)
	assert.Equal(t, 3, got.ByteSize)
}

func TestDecodeEvent_Errors(t *testing.T) {
	_, err := DecodeEvent([]byte{0x12, 0x05, 'a'})
	assert.Error(t, err, "truncated string")

	bad := protowire.AppendTag(nil, fieldKind, protowire.VarintType)
	bad = protowire.AppendVarint(bad, 9)
	_, err = DecodeEvent(bad)
	assert.ErrorIs(t, err, errBadKind)
}
