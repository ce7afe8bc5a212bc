package pubsub

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
)

// Frontend is the caller-facing handle returned by Dial. It marshals
// instructions to the service over an unbuffered channel; the service is
// the sole owner of all mutable state on the other end.
type Frontend struct {
	ins       chan instruction
	id        uint64
	closeOnce sync.Once
}

func newFrontend(ins chan instruction) *Frontend {
	return &Frontend{ins: ins}
}

func (f *Frontend) nextID() uint64 {
	return atomic.AddUint64(&f.id, 1)
}

// Call performs a plain JSON-RPC call and waits for its response. The
// service dispatches the request and tracks it in RequestManager until a
// reply arrives or the service shuts down.
func (f *Frontend) Call(ctx context.Context, method string, params []any, result any) error {
	req, err := NewRequest(NumberRequestID(f.nextID()), method, params)
	if err != nil {
		return err
	}
	inFlight, rx := NewInFlight(req)

	select {
	case f.ins <- instruction{kind: insRequest, inFlight: inFlight}:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case res, ok := <-rx:
		if !ok {
			return ErrServiceClosed
		}
		if res.Err != nil {
			return res.Err
		}
		if res.Response.Payload.Err != nil {
			return res.Response.Payload.Err
		}
		if result != nil && len(res.Response.Payload.Success) > 0 {
			return json.Unmarshal(res.Response.Payload.Success, result)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GetSub requests a broadcast receiver for an existing subscription. It
// returns ErrNoSuchSubscription if localID names no live subscription.
func (f *Frontend) GetSub(ctx context.Context, localID LocalID) (<-chan NotificationPayload, error) {
	reply := make(chan (<-chan NotificationPayload), 1)

	select {
	case f.ins <- instruction{kind: insGetSub, localID: localID, subReply: reply}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case rx, ok := <-reply:
		if !ok {
			return nil, ErrNoSuchSubscription
		}
		return rx, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Unsubscribe tells the service to dispatch eth_unsubscribe and drop the
// local subscription. It does not wait for a reply.
func (f *Frontend) Unsubscribe(ctx context.Context, localID LocalID) error {
	select {
	case f.ins <- instruction{kind: insUnsubscribe, localID: localID}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscription is the caller-facing handle for a live subscription.
type Subscription struct {
	LocalID LocalID
	ch      <-chan NotificationPayload
	front   *Frontend
}

// C returns the channel of notification payloads for this subscription.
func (s *Subscription) C() <-chan NotificationPayload { return s.ch }

// Unsubscribe tears the subscription down.
func (s *Subscription) Unsubscribe(ctx context.Context) error {
	return s.front.Unsubscribe(ctx, s.LocalID)
}

// Subscribe issues an eth_subscribe-style call (method, followed by the
// subscription's own arguments) and registers a receiver for it. The
// returned Subscription's LocalID is stable across reconnects even though
// the server's underlying subscription id is not.
func (f *Frontend) Subscribe(ctx context.Context, method string, args ...any) (*Subscription, error) {
	var localID LocalID
	params := append([]any{method}, args...)
	if err := f.Call(ctx, "eth_subscribe", params, &localID); err != nil {
		return nil, err
	}
	rx, err := f.GetSub(ctx, localID)
	if err != nil {
		return nil, err
	}
	return &Subscription{LocalID: localID, ch: rx, front: f}, nil
}

// Close drops the frontend handle. The service observes the instruction
// channel closing and exits cleanly: outstanding in-flights resolve with
// ErrServiceClosed and outstanding subscription broadcasts close.
func (f *Frontend) Close() {
	f.closeOnce.Do(func() { close(f.ins) })
}
