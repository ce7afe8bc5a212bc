package pubsub

import (
	"encoding/json"
	"fmt"
)

// RequestID is the JSON-RPC identifier assigned by the caller: a number, a
// string, or null. It is kept as the raw JSON encoding rather than decoded
// into a Go type, the same way the wire id is treated as an opaque value
// throughout this package.
type RequestID struct {
	raw json.RawMessage
}

// NumberRequestID builds a RequestID from an integer.
func NumberRequestID(n uint64) RequestID {
	b, _ := json.Marshal(n)
	return RequestID{raw: b}
}

// StringRequestID builds a RequestID from a string.
func StringRequestID(s string) RequestID {
	b, _ := json.Marshal(s)
	return RequestID{raw: b}
}

// NullRequestID is the id used for fire-and-forget requests such as
// eth_unsubscribe.
func NullRequestID() RequestID {
	return RequestID{raw: json.RawMessage("null")}
}

// IsNull reports whether the id is JSON null (or was never set).
func (id RequestID) IsNull() bool {
	return len(id.raw) == 0 || string(id.raw) == "null"
}

// Equal reports whether two request ids have the same wire representation.
func (id RequestID) Equal(other RequestID) bool {
	return id.key() == other.key()
}

func (id RequestID) key() string {
	if len(id.raw) == 0 {
		return "null"
	}
	return string(id.raw)
}

func (id RequestID) MarshalJSON() ([]byte, error) {
	if len(id.raw) == 0 {
		return []byte("null"), nil
	}
	return id.raw, nil
}

func (id *RequestID) UnmarshalJSON(input []byte) error {
	id.raw = append(json.RawMessage(nil), input...)
	return nil
}

// wireRequest is the JSON-RPC request object on the wire.
type wireRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// wireResponse is the JSON-RPC response/notification object on the wire. A
// single struct covers both shapes, the way the teacher's rpcResponse does:
// a response has ID set, a notification has Method/Params set instead.
type wireResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *wireError      `json:"error,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// wireSubscription is the payload of an eth_subscription notification.
type wireSubscription struct {
	Subscription ServerID        `json:"subscription"`
	Result       json.RawMessage `json:"result"`
}

type wireError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// RPCError is a JSON-RPC error response, propagated verbatim to the caller.
type RPCError struct {
	Code    int
	Message string
	Data    any
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("pubsub: rpc error %d: %s", e.Code, e.Message)
}

// Request is a JSON-RPC call, kept both as its structured id/method and as
// the exact bytes that were sent, so reconnection can replay it verbatim.
type Request struct {
	id         RequestID
	method     string
	serialized json.RawMessage
}

// NewRequest builds and serializes a JSON-RPC request.
func NewRequest(id RequestID, method string, params []any) (Request, error) {
	rawParams := json.RawMessage("[]")
	if len(params) > 0 {
		p, err := json.Marshal(params)
		if err != nil {
			return Request{}, fmt.Errorf("pubsub: marshal params: %w", err)
		}
		rawParams = p
	}
	rawID, err := id.MarshalJSON()
	if err != nil {
		return Request{}, fmt.Errorf("pubsub: marshal request id: %w", err)
	}
	b, err := json.Marshal(wireRequest{
		JSONRPC: "2.0",
		ID:      rawID,
		Method:  method,
		Params:  rawParams,
	})
	if err != nil {
		return Request{}, fmt.Errorf("pubsub: marshal request: %w", err)
	}
	return Request{id: id, method: method, serialized: b}, nil
}

func (r Request) ID() RequestID { return r.id }

func (r Request) Method() string { return r.method }

// Serialized returns the exact bytes dispatched to the backend. Replayed
// verbatim on reconnect.
func (r Request) Serialized() json.RawMessage { return r.serialized }

// ResponsePayload is either a successful raw JSON result or an RPCError.
type ResponsePayload struct {
	Success json.RawMessage
	Err     *RPCError
}

// Response is a reply to a Request, correlated by RequestID.
type Response struct {
	ID      RequestID
	Payload ResponsePayload
}

// Notification is an unsolicited message identifying a server id and
// carrying a raw payload.
type Notification struct {
	ServerID ServerID
	Result   json.RawMessage
}

// ItemKind distinguishes the two PubSubItem variants.
type ItemKind int

const (
	ItemResponse ItemKind = iota
	ItemNotification
)

// Item is the parsed item enum produced by a ConnectionHandle's inbound
// stream: either a Response or a Notification.
type Item struct {
	Kind         ItemKind
	Response     Response
	Notification Notification
}

// DecodeItem parses a raw backend frame into an Item. Transport
// implementations (WebSocket, IPC, ...) call this once per inbound frame.
func DecodeItem(raw json.RawMessage) (Item, error) {
	var w wireResponse
	if err := json.Unmarshal(raw, &w); err != nil {
		return Item{}, fmt.Errorf("pubsub: decode item: %w", err)
	}

	// A notification has no id and carries its payload in params; a
	// response always has an id (possibly null, for requests sent with a
	// null id, but never a method+params pair).
	if len(w.ID) == 0 && len(w.Params) > 0 {
		var sub wireSubscription
		if err := json.Unmarshal(w.Params, &sub); err != nil {
			return Item{}, fmt.Errorf("pubsub: decode notification: %w", err)
		}
		return Item{
			Kind: ItemNotification,
			Notification: Notification{
				ServerID: sub.Subscription,
				Result:   sub.Result,
			},
		}, nil
	}

	resp := Response{ID: RequestID{raw: w.ID}}
	if w.Error != nil {
		resp.Payload.Err = &RPCError{Code: w.Error.Code, Message: w.Error.Message, Data: w.Error.Data}
	} else {
		resp.Payload.Success = w.Result
	}
	return Item{Kind: ItemResponse, Response: resp}, nil
}
