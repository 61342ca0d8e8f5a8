package storage

import (
	"fmt"
)

// Stored values carry a one-byte header describing how the rest of
// the payload is encoded. Small values stay raw so reads can hand the
// store's buffer straight to the caller; values past the threshold
// are zstd-compressed.
const (
	payloadRaw  = 0x00
	payloadZstd = 0x01

	compressThreshold = 4096
)

func (s *Storage) encodePayload(data []byte) []byte {
	if len(data) < compressThreshold {
		out := make([]byte, 1+len(data))
		out[0] = payloadRaw
		copy(out[1:], data)
		return out
	}

	out := make([]byte, 1, 1+len(data)/2)
	out[0] = payloadZstd
	return s.zenc.EncodeAll(data, out)
}

// decodePayload unwraps a stored value. Raw payloads are returned as
// a sub-slice of p, preserving the caller's borrow; compressed
// payloads decode into a fresh buffer.
func (s *Storage) decodePayload(p []byte) ([]byte, error) {
	if len(p) < 1 {
		return nil, fmt.Errorf("storage: empty payload")
	}
	switch p[0] {
	case payloadRaw:
		return p[1:], nil
	case payloadZstd:
		data, err := s.zdec.DecodeAll(p[1:], nil)
		if err != nil {
			return nil, fmt.Errorf("storage: decompressing payload: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("storage: unknown payload header 0x%02x", p[0])
	}
}
