package blocks

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Persisted layout, little endian:
//
//	[0]     version
//	[1]     flags (reserved, zero)
//	[2:6]   block count, uint32
//	[6:n-8] descriptors: type byte, start uvarint, length uvarint,
//	        and for mention-index blocks the tag index uvarint
//	[n-8:n] xxhash64 of everything before the trailer
//
// The encoding is deterministic: identical block sequences produce
// byte-identical values, which makes re-ingest idempotent.
const (
	encVersion  = 1
	headerSize  = 6
	trailerSize = 8
)

// Encode serializes a block sequence into its persisted form.
func Encode(blks []Block) []byte {
	buf := make([]byte, headerSize, headerSize+len(blks)*6+trailerSize)
	buf[0] = encVersion
	buf[1] = 0
	binary.LittleEndian.PutUint32(buf[2:6], uint32(len(blks)))

	var tmp [binary.MaxVarintLen64]byte
	for _, b := range blks {
		buf = append(buf, byte(b.Type))
		n := binary.PutUvarint(tmp[:], uint64(b.Span.Start))
		buf = append(buf, tmp[:n]...)
		n = binary.PutUvarint(tmp[:], uint64(b.Span.Len))
		buf = append(buf, tmp[:n]...)
		if b.Type == BlockMentionIndex {
			n = binary.PutUvarint(tmp[:], uint64(b.Mention))
			buf = append(buf, tmp[:n]...)
		}
	}

	return binary.LittleEndian.AppendUint64(buf, xxhash.Sum64(buf))
}

// validateEncoded checks the frame around the descriptors: size,
// version and checksum. Descriptor contents are validated while
// iterating.
func validateEncoded(encoded []byte) (count int, body []byte, err error) {
	if len(encoded) < headerSize+trailerSize {
		return 0, nil, fmt.Errorf("%w: %d bytes", ErrMalformedEncoding, len(encoded))
	}
	if encoded[0] != encVersion {
		return 0, nil, fmt.Errorf("%w: unsupported version %d", ErrMalformedEncoding, encoded[0])
	}

	payload := encoded[:len(encoded)-trailerSize]
	sum := binary.LittleEndian.Uint64(encoded[len(encoded)-trailerSize:])
	if xxhash.Sum64(payload) != sum {
		return 0, nil, fmt.Errorf("%w: checksum mismatch", ErrMalformedEncoding)
	}

	count = int(binary.LittleEndian.Uint32(encoded[2:6]))

	return count, payload[headerSize:], nil
}
