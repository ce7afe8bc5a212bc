package pubsub

// subscription is the record SubscriptionManager keeps per logical
// subscription: the original subscribe request (kept verbatim for replay),
// the current server id (absent during reconnection), and the broadcast
// ring fanning notifications out to subscribers.
type subscription struct {
	request  Request
	serverID *ServerID
	ring     *ring
}

// SubscriptionRecord is the read-only view Iter hands out for replay.
type SubscriptionRecord struct {
	LocalID LocalID
	Request Request
}

// SubscriptionManager maintains the bidirectional local/server id mapping,
// stores each subscription's original request for replay, and fans
// notifications out to subscribers. Like RequestManager, it is owned
// exclusively by the service loop goroutine: no locking.
type SubscriptionManager struct {
	byLocal   map[LocalID]*subscription
	byServer  map[ServerID]LocalID
	byRequest map[string]LocalID // keyed by the original subscribe request's id
	order     []LocalID
}

// NewSubscriptionManager creates an empty SubscriptionManager.
func NewSubscriptionManager() *SubscriptionManager {
	return &SubscriptionManager{
		byLocal:   make(map[LocalID]*subscription),
		byServer:  make(map[ServerID]LocalID),
		byRequest: make(map[string]LocalID),
	}
}

// Upsert associates a server id with the given subscribe request. If a
// record already exists for this request (found by its original request
// id), its server id is updated in place and the existing local id is
// returned. Otherwise a fresh local id is allocated and a new record is
// created.
func (m *SubscriptionManager) Upsert(req Request, serverID ServerID) LocalID {
	reqKey := req.ID().key()
	if lid, exists := m.byRequest[reqKey]; exists {
		sub := m.byLocal[lid]
		if sub.serverID != nil {
			delete(m.byServer, *sub.serverID)
		}
		sid := serverID
		sub.serverID = &sid
		m.byServer[serverID] = lid
		return lid
	}

	lid := LocalID{NewID()}
	sid := serverID
	m.byLocal[lid] = &subscription{request: req, serverID: &sid, ring: newRing()}
	m.byServer[serverID] = lid
	m.byRequest[reqKey] = lid
	m.order = append(m.order, lid)
	return lid
}

// LocalIDFor returns the local id for a server id. Mandatory to succeed
// immediately after Upsert.
func (m *SubscriptionManager) LocalIDFor(serverID ServerID) (LocalID, bool) {
	lid, ok := m.byServer[serverID]
	return lid, ok
}

// GetRx hands out an additional receiver for an existing subscription.
func (m *SubscriptionManager) GetRx(localID LocalID) (<-chan NotificationPayload, bool) {
	sub, ok := m.byLocal[localID]
	if !ok {
		return nil, false
	}
	return sub.ring.subscribe(), true
}

// Notify broadcasts a notification's payload to the subscription it
// belongs to. If no record matches the notification's server id (racing an
// unsubscribe or a reconnect mid-flight), it is silently dropped.
func (m *SubscriptionManager) Notify(n Notification) {
	lid, ok := m.byServer[n.ServerID]
	if !ok {
		return
	}
	m.byLocal[lid].ring.publish(n.Result)
}

// RemoveSub erases both indices for localID and closes its broadcast ring,
// so every receiver observes end-of-stream.
func (m *SubscriptionManager) RemoveSub(localID LocalID) {
	sub, ok := m.byLocal[localID]
	if !ok {
		return
	}
	if sub.serverID != nil {
		delete(m.byServer, *sub.serverID)
	}
	delete(m.byRequest, sub.request.ID().key())
	delete(m.byLocal, localID)
	sub.ring.close()
}

// DropServerIDs clears the server_id -> local_id index and marks every
// record's server id absent, retaining the records themselves. Called at
// the start of reconnection so stale notifications can no longer match.
func (m *SubscriptionManager) DropServerIDs() {
	for _, sub := range m.byLocal {
		sub.serverID = nil
	}
	m.byServer = make(map[ServerID]LocalID)
}

// Len returns the number of subscriptions currently tracked.
func (m *SubscriptionManager) Len() int { return len(m.byLocal) }

// Iter yields every subscription record in insertion order, for replay.
func (m *SubscriptionManager) Iter() []SubscriptionRecord {
	out := make([]SubscriptionRecord, 0, len(m.byLocal))
	for _, lid := range m.order {
		if sub, ok := m.byLocal[lid]; ok {
			out = append(out, SubscriptionRecord{LocalID: lid, Request: sub.request})
		}
	}
	return out
}

// CloseAll closes every subscription's broadcast ring without removing the
// records. Called when the service loop terminates.
func (m *SubscriptionManager) CloseAll() {
	for _, sub := range m.byLocal {
		sub.ring.close()
	}
}
