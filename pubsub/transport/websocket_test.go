package transport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWebSocket_Connect_EmptyURL(t *testing.T) {
	w := &WebSocket{}
	_, err := w.Connect(context.Background())
	assert.Error(t, err)
}

func TestWebSocket_Connect_DialFailure(t *testing.T) {
	w := &WebSocket{URL: "ws://127.0.0.1:1/does-not-exist"}
	_, err := w.Connect(context.Background())
	assert.Error(t, err)
}
