package pubsub

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscriptionManager_UpsertNewAndGetRx(t *testing.T) {
	m := NewSubscriptionManager()
	req, _ := NewRequest(NumberRequestID(1), "eth_subscribe", []any{"newHeads"})
	sid := ServerID{NewID()}

	lid := m.Upsert(req, sid)
	assert.Equal(t, 1, m.Len())

	got, ok := m.LocalIDFor(sid)
	require.True(t, ok)
	assert.Equal(t, lid, got)

	rx, ok := m.GetRx(lid)
	require.True(t, ok)
	assert.NotNil(t, rx)
}

func TestSubscriptionManager_UpsertReplay_SameRequestSameLocalID(t *testing.T) {
	m := NewSubscriptionManager()
	req, _ := NewRequest(NullRequestID(), "eth_subscribe", []any{"newHeads"})

	oldSID := ServerID{NewID()}
	lid1 := m.Upsert(req, oldSID)

	newSID := ServerID{NewID()}
	lid2 := m.Upsert(req, newSID)

	assert.Equal(t, lid1, lid2)
	assert.Equal(t, 1, m.Len())

	_, stillMapped := m.LocalIDFor(oldSID)
	assert.False(t, stillMapped)

	got, ok := m.LocalIDFor(newSID)
	require.True(t, ok)
	assert.Equal(t, lid1, got)
}

func TestSubscriptionManager_Notify(t *testing.T) {
	m := NewSubscriptionManager()
	req, _ := NewRequest(NumberRequestID(1), "eth_subscribe", []any{"newHeads"})
	sid := ServerID{NewID()}
	lid := m.Upsert(req, sid)

	rx, ok := m.GetRx(lid)
	require.True(t, ok)

	m.Notify(Notification{ServerID: sid, Result: json.RawMessage(`"payload"`)})

	payload := <-rx
	assert.JSONEq(t, `"payload"`, string(payload.Result))
	assert.False(t, payload.Lagged)
}

func TestSubscriptionManager_Notify_UnknownServerID_Dropped(t *testing.T) {
	m := NewSubscriptionManager()
	assert.NotPanics(t, func() {
		m.Notify(Notification{ServerID: ServerID{NewID()}, Result: json.RawMessage(`"x"`)})
	})
}

func TestSubscriptionManager_RemoveSub_ClosesRing(t *testing.T) {
	m := NewSubscriptionManager()
	req, _ := NewRequest(NumberRequestID(1), "eth_subscribe", nil)
	sid := ServerID{NewID()}
	lid := m.Upsert(req, sid)
	rx, _ := m.GetRx(lid)

	m.RemoveSub(lid)

	_, ok := <-rx
	assert.False(t, ok)
	_, ok = m.LocalIDFor(sid)
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())
}

func TestSubscriptionManager_DropServerIDs(t *testing.T) {
	m := NewSubscriptionManager()
	req, _ := NewRequest(NumberRequestID(1), "eth_subscribe", nil)
	sid := ServerID{NewID()}
	lid := m.Upsert(req, sid)

	m.DropServerIDs()

	_, ok := m.LocalIDFor(sid)
	assert.False(t, ok)
	assert.Equal(t, 1, m.Len())

	recs := m.Iter()
	require.Len(t, recs, 1)
	assert.Equal(t, lid, recs[0].LocalID)
}

func TestSubscriptionManager_CloseAll(t *testing.T) {
	m := NewSubscriptionManager()
	req, _ := NewRequest(NumberRequestID(1), "eth_subscribe", nil)
	lid := m.Upsert(req, ServerID{NewID()})
	rx, _ := m.GetRx(lid)

	m.CloseAll()

	_, ok := <-rx
	assert.False(t, ok)
}
