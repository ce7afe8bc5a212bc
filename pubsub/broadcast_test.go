package pubsub

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRing_PublishFanOut(t *testing.T) {
	r := newRing()
	a := r.subscribe()
	b := r.subscribe()

	r.publish(json.RawMessage(`"x"`))

	pa := <-a
	pb := <-b
	assert.JSONEq(t, `"x"`, string(pa.Result))
	assert.JSONEq(t, `"x"`, string(pb.Result))
}

func TestRing_LaggedOnOverflow(t *testing.T) {
	r := newRing()
	sub := r.subscribe()

	for i := 0; i < broadcastDepth; i++ {
		r.publish(json.RawMessage(`"x"`))
	}
	// The buffer is now full. Drain one slot so the next publish fits
	// without lagging.
	<-sub
	r.publish(json.RawMessage(`"overflow"`))

	for i := 0; i < broadcastDepth-1; i++ {
		p := <-sub
		require.False(t, p.Lagged)
	}
	last := <-sub
	assert.JSONEq(t, `"overflow"`, string(last.Result))

	// Fill the buffer again and publish once more: the oldest value is
	// evicted and a lagged marker takes the overflowing payload's place.
	for i := 0; i < broadcastDepth; i++ {
		r.publish(json.RawMessage(`"x"`))
	}
	r.publish(json.RawMessage(`"dropped"`))

	for i := 0; i < broadcastDepth-1; i++ {
		p := <-sub
		require.False(t, p.Lagged)
	}
	lagged := <-sub
	assert.True(t, lagged.Lagged)
}

func TestRing_CloseEndsSubscribers(t *testing.T) {
	r := newRing()
	sub := r.subscribe()
	r.close()

	_, ok := <-sub
	assert.False(t, ok)
}

func TestRing_SubscribeAfterPublish_MissesEarlierValues(t *testing.T) {
	r := newRing()
	r.publish(json.RawMessage(`"before"`))
	sub := r.subscribe()
	r.publish(json.RawMessage(`"after"`))

	p := <-sub
	assert.JSONEq(t, `"after"`, string(p.Result))
}
