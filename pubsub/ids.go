package pubsub

import (
	"bytes"
	"crypto/rand"
	"fmt"

	"github.com/fabriqnetwork/alloy-go/hexutil"
)

// IDLength is the length, in bytes, of a local or server subscription id.
const IDLength = 32

// ID is an opaque 256-bit value. It underlies both LocalID and ServerID;
// the two are kept as distinct named types so the local and server id
// spaces can never be confused at compile time (spec invariant: every
// server id maps to exactly one local id, and vice versa).
type ID [IDLength]byte

// NewID generates a fresh, cryptographically random ID. Used to mint a new
// LocalID the first time a subscription's open response arrives.
func NewID() ID {
	var id ID
	if _, err := rand.Read(id[:]); err != nil {
		panic("pubsub: failed to read random bytes: " + err.Error())
	}
	return id
}

// HexToID parses a 0x-prefixed, 32-byte hex string into an ID.
func HexToID(x string) (id ID, err error) {
	err = id.UnmarshalText([]byte(x))
	return
}

// MustHexToID is like HexToID but panics on error.
func MustHexToID(x string) ID {
	id, err := HexToID(x)
	if err != nil {
		panic(err)
	}
	return id
}

func (id ID) Bytes() []byte {
	return id[:]
}

func (id ID) String() string {
	return hexutil.BytesToHex(id[:])
}

func (id ID) MarshalJSON() ([]byte, error) {
	return naiveQuote([]byte(id.String())), nil
}

func (id *ID) UnmarshalJSON(input []byte) error {
	if bytes.Equal(input, []byte("null")) {
		return fmt.Errorf("pubsub: id cannot be null")
	}
	return id.UnmarshalText(naiveUnquote(input))
}

func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *ID) UnmarshalText(input []byte) error {
	b, err := hexutil.HexToBytes(string(input))
	if err != nil {
		return fmt.Errorf("pubsub: invalid id: %w", err)
	}
	if len(b) != IDLength {
		return fmt.Errorf("pubsub: id must encode %d bytes, got %d", IDLength, len(b))
	}
	copy(id[:], b)
	return nil
}

// naiveQuote returns a double-quoted string. It does not perform any
// escaping, which is fine because a hex string never contains a quote.
func naiveQuote(i []byte) []byte {
	b := make([]byte, len(i)+2)
	b[0] = '"'
	b[len(b)-1] = '"'
	copy(b[1:], i)
	return b
}

// naiveUnquote returns the string inside the quotes, if any.
func naiveUnquote(i []byte) []byte {
	if len(i) >= 2 && i[0] == '"' && i[len(i)-1] == '"' {
		return i[1 : len(i)-1]
	}
	return i
}

// LocalID is a service-assigned, caller-visible subscription identifier.
// Stable for the lifetime of the logical subscription, including across
// reconnects.
type LocalID struct{ ID }

// ServerID is a peer-assigned subscription identifier. Ephemeral: a new one
// is issued by the server on every reconnect.
type ServerID struct{ ID }
