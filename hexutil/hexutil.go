package hexutil

import (
	"encoding/hex"
	"fmt"
)

// BytesToHex returns the hex representation of the given bytes. The hex string
// is always even-length and prefixed with "0x".
func BytesToHex(b []byte) string {
	r := make([]byte, len(b)*2+2)
	copy(r, `0x`)
	hex.Encode(r[2:], b)
	return string(r)
}

// HexToBytes returns the bytes representation of the given hex string.
// The number of hex digits must be even, except that a lone "0" decodes to a
// single zero byte. The hex string may be prefixed with "0x".
func HexToBytes(h string) ([]byte, error) {
	if len(h) == 0 {
		return []byte{}, nil
	}
	if has0xPrefix(h) {
		h = h[2:]
	}
	if len(h) == 1 && h[0] == '0' {
		return []byte{0}, nil
	}
	if len(h) == 0 {
		return []byte{}, nil
	}
	if len(h)%2 != 0 {
		return nil, fmt.Errorf("invalid hex string, length must be even")
	}
	return hex.DecodeString(h)
}

// has0xPrefix returns true if the given byte slice starts with "0x".
func has0xPrefix(h string) bool {
	return len(h) >= 2 && h[0] == '0' && (h[1] == 'x' || h[1] == 'X')
}
