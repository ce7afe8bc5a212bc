package pubsub

import "encoding/json"

// broadcastDepth is the buffer depth of each subscriber's channel.
const broadcastDepth = 16

// NotificationPayload is what a subscriber receives: either a raw
// notification result, or a lagged marker when the subscriber could not
// keep up with the publish rate.
type NotificationPayload struct {
	Result json.RawMessage
	Lagged bool
}

// ring is a ring-buffered, drop-for-laggards broadcast primitive. It is
// touched only from the service loop goroutine (subscribe/publish/close);
// individual subscribers only ever read from the channel they were handed,
// so no locking is needed here, matching the managers' single-owner model.
type ring struct {
	subs []chan NotificationPayload
}

func newRing() *ring {
	return &ring{}
}

// subscribe hands out a new receiver.
func (r *ring) subscribe() <-chan NotificationPayload {
	ch := make(chan NotificationPayload, broadcastDepth)
	r.subs = append(r.subs, ch)
	return ch
}

// publish fans the payload out to every subscriber without blocking. When a
// subscriber's buffer is full, its oldest buffered value is evicted and a
// lagged marker is queued in place of the new payload, which is dropped.
// The subscriber is otherwise left alone: it stays subscribed and resumes
// receiving once it catches up.
func (r *ring) publish(payload json.RawMessage) {
	for _, ch := range r.subs {
		select {
		case ch <- NotificationPayload{Result: payload}:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- NotificationPayload{Lagged: true}:
			default:
			}
		}
	}
}

// close closes every subscriber channel, so receivers observe end-of-stream.
func (r *ring) close() {
	for _, ch := range r.subs {
		close(ch)
	}
	r.subs = nil
}
