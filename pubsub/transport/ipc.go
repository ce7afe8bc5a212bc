package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"sync"

	"github.com/fabriqnetwork/alloy-go/pubsub"
)

// IPC is a pubsub.Connector backed by a Unix domain socket.
type IPC struct {
	// Path is the filesystem path to the IPC socket.
	Path string
}

// Connect implements pubsub.Connector.
func (i *IPC) Connect(ctx context.Context) (pubsub.ConnectionHandle, error) {
	if i.Path == "" {
		return nil, errors.New("pubsub/transport: ipc path cannot be empty")
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", i.Path)
	if err != nil {
		return nil, err
	}
	return newIPCHandle(conn), nil
}

// TryReconnect implements pubsub.Connector by dialing a fresh socket.
func (i *IPC) TryReconnect(ctx context.Context) (pubsub.ConnectionHandle, error) {
	return i.Connect(ctx)
}

// ipcHandle adapts a net.Conn (a Unix domain socket) to pubsub.ConnectionHandle.
type ipcHandle struct {
	conn  net.Conn
	items chan pubsub.Item
	errCh chan error
	out   chan json.RawMessage

	closeOnce sync.Once
	done      chan struct{}
}

func newIPCHandle(conn net.Conn) *ipcHandle {
	h := &ipcHandle{
		conn:  conn,
		items: make(chan pubsub.Item, 64),
		errCh: make(chan error, 1),
		out:   make(chan json.RawMessage),
		done:  make(chan struct{}),
	}
	go h.readerLoop()
	go h.writerLoop()
	return h
}

func (h *ipcHandle) readerLoop() {
	defer close(h.items)
	dec := json.NewDecoder(h.conn)
	for {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			select {
			case <-h.done:
				return
			default:
			}
			if errors.Is(err, io.EOF) {
				return
			}
			h.pushErr(err)
			return
		}
		item, err := pubsub.DecodeItem(raw)
		if err != nil {
			h.pushErr(err)
			continue
		}
		select {
		case h.items <- item:
		case <-h.done:
			return
		}
	}
}

func (h *ipcHandle) writerLoop() {
	enc := json.NewEncoder(h.conn)
	for {
		select {
		case <-h.done:
			return
		case frame := <-h.out:
			if err := enc.Encode(frame); err != nil {
				h.pushErr(err)
			}
		}
	}
}

func (h *ipcHandle) pushErr(err error) {
	select {
	case h.errCh <- err:
	default:
	}
}

func (h *ipcHandle) FromSocket() <-chan pubsub.Item { return h.items }

func (h *ipcHandle) Send(frame json.RawMessage) error {
	select {
	case h.out <- frame:
		return nil
	case <-h.done:
		return errors.New("pubsub/transport: ipc connection closed")
	}
}

func (h *ipcHandle) Err() <-chan error { return h.errCh }

func (h *ipcHandle) Shutdown() {
	h.closeOnce.Do(func() {
		close(h.done)
		_ = h.conn.Close()
	})
}
