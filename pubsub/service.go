package pubsub

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
)

// Options collects the optional knobs Dial accepts, built through Option
// values the way the teacher's ClientOptions/WebsocketOptions are composed.
type Options struct {
	log *slog.Logger
}

// Option configures Dial.
type Option func(*Options)

// WithLogger overrides the logger the service reports reconnects and fatal
// errors through. Defaults to a logger that discards all output.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) { o.log = l }
}

func defaultOptions() *Options {
	return &Options{log: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// Dial connects through connector and spawns the service loop that owns the
// connection for the rest of its life, reconnecting through connector as
// needed. The returned Frontend is the only caller-facing handle; closing it
// tears the service down.
func Dial(ctx context.Context, connector Connector, opts ...Option) (*Frontend, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	handle, err := connector.Connect(ctx)
	if err != nil {
		return nil, err
	}

	ins := make(chan instruction)
	s := &service{
		handle:    handle,
		connector: connector,
		ins:       ins,
		subs:      NewSubscriptionManager(),
		inFlights: NewRequestManager(),
		log:       o.log,
	}
	go s.run()

	return newFrontend(ins), nil
}

// service is the single goroutine that owns the connection, the in-flight
// requests, and the subscriptions. Nothing outside this goroutine ever
// touches inFlights, subs, or handle, so neither needs a lock (spec §5/§9).
type service struct {
	handle    ConnectionHandle
	connector Connector
	ins       chan instruction
	subs      *SubscriptionManager
	inFlights *RequestManager
	log       *slog.Logger
}

func (s *service) run() {
	err := s.loop()
	if err != nil {
		s.log.Error("pubsub service terminated", "error", err)
	}
	s.shutdownCleanup()
}

// loop emulates a biased select: inbound items are always drained before the
// loop will even consider blocking on a fresh select, and a pending error is
// always observed before a fresh instruction is accepted. Go's select has no
// priority keyword, so the drain/check/select structure below stands in for
// it.
func (s *service) loop() error {
	for {
		if err := s.drainInbound(); err != nil {
			return err
		}

		select {
		case err := <-s.handle.Err():
			if err := s.reconnect(err); err != nil {
				return err
			}
			continue
		default:
		}

		select {
		case item, ok := <-s.handle.FromSocket():
			if !ok {
				if err := s.reconnect(nil); err != nil {
					return err
				}
				continue
			}
			if err := s.handleItem(item); err != nil {
				return err
			}
		case err := <-s.handle.Err():
			if err := s.reconnect(err); err != nil {
				return err
			}
			continue
		case ins, ok := <-s.ins:
			if !ok {
				return nil
			}
			// Re-check the error signal before servicing the instruction
			// just received: both cases may have been simultaneously
			// ready, select chooses among them at random, and the error
			// signal must win. The instruction itself is not discarded,
			// just serviced against the reconnected backend.
			select {
			case err := <-s.handle.Err():
				if err := s.reconnect(err); err != nil {
					return err
				}
			default:
			}
			if err := s.serviceInstruction(ins); err != nil {
				return err
			}
		}
	}
}

// drainInbound non-blockingly consumes every item already buffered on the
// inbound channel, so a backlog of notifications is fully applied before the
// loop considers anything else.
func (s *service) drainInbound() error {
	for {
		select {
		case item, ok := <-s.handle.FromSocket():
			if !ok {
				return s.reconnect(nil)
			}
			if err := s.handleItem(item); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (s *service) handleItem(item Item) error {
	switch item.Kind {
	case ItemResponse:
		return s.handleResponse(item.Response)
	case ItemNotification:
		s.subs.Notify(item.Notification)
		return nil
	default:
		return nil
	}
}

func (s *service) handleResponse(resp Response) error {
	serverID, inFlight, isSubOpen := s.inFlights.HandleResponse(resp)
	if !isSubOpen {
		return nil
	}
	return s.handleSubResponse(resp, serverID, inFlight)
}

// handleSubResponse registers a newly opened subscription and resolves the
// waiting caller with a response rewritten to show only the local id: the
// substitution trick that keeps the server's ephemeral id entirely internal.
func (s *service) handleSubResponse(resp Response, serverID ServerID, inFlight *InFlight) error {
	localID := s.subs.Upsert(inFlight.Request(), serverID)

	raw, err := json.Marshal(localID)
	if err != nil {
		inFlight.Resolve(Result{Err: err})
		return nil
	}
	rewritten := resp
	rewritten.Payload.Success = raw
	inFlight.Resolve(Result{Response: rewritten})
	return nil
}

// dispatch serializes nothing itself: req.Serialized() was computed once at
// creation time so it can be replayed verbatim on reconnect.
func (s *service) dispatch(req Request) error {
	if err := s.handle.Send(req.Serialized()); err != nil {
		return &TransportError{Kind: KindBackendGone, Err: err}
	}
	return nil
}

func (s *service) serviceInstruction(ins instruction) error {
	switch ins.kind {
	case insRequest:
		s.inFlights.Insert(ins.inFlight)
		return s.dispatch(ins.inFlight.Request())

	case insGetSub:
		rx, ok := s.subs.GetRx(ins.localID)
		if !ok {
			close(ins.subReply)
			return nil
		}
		ins.subReply <- rx
		close(ins.subReply)
		return nil

	case insUnsubscribe:
		req, err := NewRequest(NullRequestID(), "eth_unsubscribe", []any{ins.localID})
		if err != nil {
			return &TransportError{Kind: KindSerialization, Err: err}
		}
		s.subs.RemoveSub(ins.localID)
		return s.dispatch(req)

	default:
		return nil
	}
}

// reconnect drains whatever the dying backend already buffered, shuts it
// down, collects outstanding work, drops stale server ids, obtains a fresh
// backend, and replays every still-outstanding plain request and then every
// subscribe request against the new backend.
func (s *service) reconnect(cause error) error {
	if cause != nil {
		s.log.Info("pubsub backend lost, reconnecting", "error", cause)
	} else {
		s.log.Info("pubsub backend closed, reconnecting")
	}

drainLoop:
	for {
		select {
		case item, ok := <-s.handle.FromSocket():
			if !ok {
				break drainLoop
			}
			if err := s.handleItem(item); err != nil {
				return err
			}
		default:
			break drainLoop
		}
	}
	s.handle.Shutdown()

	pendingRequests := s.inFlights.Iter()
	pendingSubs := s.subs.Iter()
	s.subs.DropServerIDs()

	newHandle, err := s.connector.TryReconnect(context.Background())
	if err != nil {
		return &TransportError{Kind: KindReconnectFailed, Err: err}
	}
	s.handle = newHandle
	s.log.Info("pubsub backend reconnected")

	for _, f := range pendingRequests {
		s.inFlights.Insert(f)
		if err := s.dispatch(f.Request()); err != nil {
			return err
		}
	}
	for _, rec := range pendingSubs {
		// A fresh InFlight stands in for the original subscribe call so its
		// eventual response still runs through handleSubResponse and
		// re-establishes the server id. Nothing reads its result channel;
		// Resolve never blocks regardless (see InFlight.Resolve).
		f, _ := NewInFlight(rec.Request)
		s.inFlights.Insert(f)
		if err := s.dispatch(rec.Request); err != nil {
			return err
		}
	}

	return nil
}

func (s *service) shutdownCleanup() {
	s.inFlights.Abandon()
	s.subs.CloseAll()
	s.handle.Shutdown()
}
