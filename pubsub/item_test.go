package pubsub

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequest_Serialized(t *testing.T) {
	req, err := NewRequest(NumberRequestID(1), "eth_subscribe", []any{"newHeads"})
	require.NoError(t, err)

	var w wireRequest
	require.NoError(t, json.Unmarshal(req.Serialized(), &w))
	assert.Equal(t, "2.0", w.JSONRPC)
	assert.Equal(t, "eth_subscribe", w.Method)
	assert.JSONEq(t, `["newHeads"]`, string(w.Params))
}

func TestRequestID_Equal(t *testing.T) {
	a := NumberRequestID(1)
	b := NumberRequestID(1)
	c := NumberRequestID(2)
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestRequestID_Null(t *testing.T) {
	id := NullRequestID()
	assert.True(t, id.IsNull())
	assert.False(t, NumberRequestID(0).IsNull())
}

func TestDecodeItem_Response(t *testing.T) {
	raw := json.RawMessage(`{"jsonrpc":"2.0","id":1,"result":"0x1"}`)
	item, err := DecodeItem(raw)
	require.NoError(t, err)
	assert.Equal(t, ItemResponse, item.Kind)
	assert.JSONEq(t, `"0x1"`, string(item.Response.Payload.Success))
	assert.Nil(t, item.Response.Payload.Err)
}

func TestDecodeItem_ErrorResponse(t *testing.T) {
	raw := json.RawMessage(`{"jsonrpc":"2.0","id":1,"error":{"code":-32000,"message":"boom"}}`)
	item, err := DecodeItem(raw)
	require.NoError(t, err)
	require.NotNil(t, item.Response.Payload.Err)
	assert.Equal(t, -32000, item.Response.Payload.Err.Code)
	assert.Equal(t, "boom", item.Response.Payload.Err.Message)
}

func TestDecodeItem_Notification(t *testing.T) {
	sid := NewID()
	raw := json.RawMessage(`{"jsonrpc":"2.0","method":"eth_subscription","params":{"subscription":"` + sid.String() + `","result":"0xabc"}}`)
	item, err := DecodeItem(raw)
	require.NoError(t, err)
	assert.Equal(t, ItemNotification, item.Kind)
	assert.Equal(t, sid, item.Notification.ServerID.ID)
	assert.JSONEq(t, `"0xabc"`, string(item.Notification.Result))
}

func TestDecodeItem_Malformed(t *testing.T) {
	_, err := DecodeItem(json.RawMessage(`not json`))
	assert.Error(t, err)
}
