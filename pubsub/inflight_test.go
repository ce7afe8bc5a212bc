package pubsub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInFlight_Resolve(t *testing.T) {
	req, err := NewRequest(NumberRequestID(1), "eth_call", nil)
	require.NoError(t, err)
	f, rx := NewInFlight(req)

	f.Resolve(Result{Response: Response{ID: req.ID()}})

	res, ok := <-rx
	require.True(t, ok)
	assert.Equal(t, req.ID(), res.Response.ID)

	_, ok = <-rx
	assert.False(t, ok)
}

func TestInFlight_Abandon(t *testing.T) {
	req, err := NewRequest(NumberRequestID(2), "eth_call", nil)
	require.NoError(t, err)
	f, rx := NewInFlight(req)

	f.Abandon()

	_, ok := <-rx
	assert.False(t, ok)
}
