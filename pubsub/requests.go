package pubsub

// RequestManager maps request ids to their InFlight record and classifies
// incoming responses as either a plain reply or a subscription-open
// response. It is owned exclusively by the service loop goroutine: no
// locking, matching the single-owner model in spec §5/§9.
type RequestManager struct {
	byID  map[string]*InFlight
	order []string // insertion order, for deterministic replay on reconnect
}

// NewRequestManager creates an empty RequestManager.
func NewRequestManager() *RequestManager {
	return &RequestManager{byID: make(map[string]*InFlight)}
}

// Insert indexes the in-flight by its request id. Request ids are
// caller-unique; on collision the prior entry is overwritten and abandoned,
// so its waiter resolves via channel closure instead of a response.
// Re-inserting the same InFlight (as reconnection does) is not a collision.
func (m *RequestManager) Insert(f *InFlight) {
	key := f.ID().key()
	if prev, exists := m.byID[key]; !exists {
		m.order = append(m.order, key)
	} else if prev != f {
		prev.Abandon()
	}
	m.byID[key] = f
}

// Len returns the number of in-flight requests.
func (m *RequestManager) Len() int { return len(m.byID) }

// Iter returns the in-flight requests in insertion order. The slice is a
// snapshot: safe to range over while mutating the manager afterward, which
// is required by the reconnection protocol's "collect before iterating"
// step.
func (m *RequestManager) Iter() []*InFlight {
	out := make([]*InFlight, 0, len(m.byID))
	for _, key := range m.order {
		if f, ok := m.byID[key]; ok {
			out = append(out, f)
		}
	}
	return out
}

// Abandon closes every remaining in-flight's channel without a result and
// clears the manager. Called when the service loop exits.
func (m *RequestManager) Abandon() {
	for _, f := range m.byID {
		f.Abandon()
	}
	m.byID = make(map[string]*InFlight)
	m.order = nil
}

// HandleResponse looks up the in-flight matching resp's id.
//
// If there is no match, the response is discarded (a late response after
// unsubscribe or shutdown) and ok is false.
//
// If the response's success payload decodes as a 256-bit value, it is
// treated as a subscription-open response: it is NOT forwarded to the
// waiter. Instead (serverID, inFlight, true) is returned so the caller can
// register the subscription and synthesize a rewritten response.
//
// Otherwise the response (success or error) is forwarded to the waiter via
// its one-shot channel, the entry is removed, and ok is false.
func (m *RequestManager) HandleResponse(resp Response) (serverID ServerID, inFlight *InFlight, ok bool) {
	key := resp.ID.key()
	f, found := m.byID[key]
	if !found {
		return ServerID{}, nil, false
	}
	delete(m.byID, key)
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}

	if resp.Payload.Err == nil {
		if sid, isSub := decodeServerID(resp.Payload.Success); isSub {
			return sid, f, true
		}
	}
	f.Resolve(Result{Response: resp})
	return ServerID{}, nil, false
}

func decodeServerID(raw []byte) (ServerID, bool) {
	if len(raw) == 0 {
		return ServerID{}, false
	}
	var id ServerID
	if err := id.UnmarshalJSON(raw); err != nil {
		return ServerID{}, false
	}
	return id, true
}
