package pubsub

// Result is what an InFlight eventually resolves to: the backend's response,
// or a transport-level error (e.g. the service shut down before a reply
// arrived).
type Result struct {
	Response Response
	Err      error
}

// InFlight is one pending request: its payload (kept for replay), its
// origin id, and a one-shot channel back to the caller.
type InFlight struct {
	request Request
	tx      chan Result
}

// NewInFlight wraps a request and returns it along with the channel its
// eventual result will arrive on. The channel has capacity 1, so Resolve
// never blocks regardless of whether anyone is still listening.
func NewInFlight(req Request) (*InFlight, <-chan Result) {
	ch := make(chan Result, 1)
	return &InFlight{request: req, tx: ch}, ch
}

// Request returns the original request, kept verbatim for replay.
func (f *InFlight) Request() Request { return f.request }

// ID returns the original request's id.
func (f *InFlight) ID() RequestID { return f.request.ID() }

// Resolve delivers the result to the waiter and closes the channel.
func (f *InFlight) Resolve(res Result) {
	f.tx <- res
	close(f.tx)
}

// Abandon closes the channel without a result, so the waiter observes
// channel closure ("backend gone") instead of a value. Used when the
// service shuts down with requests still outstanding.
func (f *InFlight) Abandon() {
	close(f.tx)
}
