// Package transport provides Connector/ConnectionHandle implementations
// backing a pubsub.Frontend: WebSocket, IPC, and a backoff-wrapping Retry
// connector that can wrap either.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"github.com/fabriqnetwork/alloy-go/pubsub"
)

// WebSocket is a pubsub.Connector backed by a WebSocket connection.
type WebSocket struct {
	URL        string
	HTTPClient *http.Client
	HTTPHeader http.Header

	// Timeout bounds how long the initial dial may take. Default is 60s.
	Timeout time.Duration
}

// Connect implements pubsub.Connector.
func (w *WebSocket) Connect(ctx context.Context) (pubsub.ConnectionHandle, error) {
	if w.URL == "" {
		return nil, errors.New("pubsub/transport: websocket URL cannot be empty")
	}
	timeout := w.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, w.URL, &websocket.DialOptions{
		HTTPClient: w.HTTPClient,
		HTTPHeader: w.HTTPHeader,
	})
	if err != nil {
		return nil, err
	}
	return newWSHandle(conn), nil
}

// TryReconnect implements pubsub.Connector by performing a fresh Connect.
// Backoff between attempts is the Retry connector's job, not this one's.
func (w *WebSocket) TryReconnect(ctx context.Context) (pubsub.ConnectionHandle, error) {
	return w.Connect(ctx)
}

// wsHandle adapts a *websocket.Conn to pubsub.ConnectionHandle.
type wsHandle struct {
	conn  *websocket.Conn
	items chan pubsub.Item
	errCh chan error

	closeOnce sync.Once
	done      chan struct{}
}

func newWSHandle(conn *websocket.Conn) *wsHandle {
	h := &wsHandle{
		conn:  conn,
		items: make(chan pubsub.Item, 64),
		errCh: make(chan error, 1),
		done:  make(chan struct{}),
	}
	go h.readerLoop()
	return h
}

func (h *wsHandle) readerLoop() {
	defer close(h.items)
	// The background context is deliberate: canceling a context passed to
	// conn.Read closes the connection with a policy-violation close code,
	// which is not the signal we want for an ordinary reader-loop exit.
	ctx := context.Background()
	for {
		_, data, err := h.conn.Read(ctx)
		if err != nil {
			select {
			case <-h.done:
				return
			default:
			}
			h.sendErr(err)
			return
		}
		item, err := pubsub.DecodeItem(data)
		if err != nil {
			h.sendErr(err)
			continue
		}
		select {
		case h.items <- item:
		case <-h.done:
			return
		}
	}
}

func (h *wsHandle) sendErr(err error) {
	select {
	case h.errCh <- err:
	default:
	}
}

func (h *wsHandle) FromSocket() <-chan pubsub.Item { return h.items }

func (h *wsHandle) Send(frame json.RawMessage) error {
	return h.conn.Write(context.Background(), websocket.MessageText, frame)
}

func (h *wsHandle) Err() <-chan error { return h.errCh }

func (h *wsHandle) Shutdown() {
	h.closeOnce.Do(func() {
		close(h.done)
		_ = h.conn.Close(websocket.StatusNormalClosure, "")
	})
}
