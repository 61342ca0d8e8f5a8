package storage

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/notedb/notedb/pkg/types"
)

// ErrCorruptRecord reports a note record that cannot be decoded.
var ErrCorruptRecord = errors.New("storage: corrupt note record")

const noteRecordVersion = 1

// encodeNoteRecord serializes the note's metadata. Content lives
// under its own key so that reads can borrow it without touching the
// record. The layout is deterministic: identical notes encode to
// identical bytes.
//
//	version u8
//	id 32B, pubkey 32B, sig 64B
//	created_at u64 LE, kind u32 LE
//	tag count uvarint, then per tag: element count uvarint,
//	then per element: length uvarint + bytes
func encodeNoteRecord(n *types.Note) []byte {
	size := 1 + 32 + 32 + 64 + 8 + 4 + binary.MaxVarintLen32
	for _, tag := range n.Tags {
		size += binary.MaxVarintLen32
		for _, el := range tag {
			size += binary.MaxVarintLen32 + len(el)
		}
	}

	buf := make([]byte, 0, size)
	buf = append(buf, noteRecordVersion)
	buf = append(buf, n.ID[:]...)
	buf = append(buf, n.Pubkey[:]...)
	buf = append(buf, n.Sig[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(n.CreatedAt))
	buf = binary.LittleEndian.AppendUint32(buf, n.Kind)

	buf = binary.AppendUvarint(buf, uint64(len(n.Tags)))
	for _, tag := range n.Tags {
		buf = binary.AppendUvarint(buf, uint64(len(tag)))
		for _, el := range tag {
			buf = binary.AppendUvarint(buf, uint64(len(el)))
			buf = append(buf, el...)
		}
	}

	return buf
}

// decodeNoteRecord decodes a record produced by encodeNoteRecord.
// The returned note has no content; the caller attaches it from the
// content key.
func decodeNoteRecord(rec []byte) (*types.Note, error) {
	const fixed = 1 + 32 + 32 + 64 + 8 + 4
	if len(rec) < fixed {
		return nil, fmt.Errorf("%w: %d bytes", ErrCorruptRecord, len(rec))
	}
	if rec[0] != noteRecordVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptRecord, rec[0])
	}

	var n types.Note
	off := 1
	off += copy(n.ID[:], rec[off:])
	off += copy(n.Pubkey[:], rec[off:])
	off += copy(n.Sig[:], rec[off:])
	n.CreatedAt = int64(binary.LittleEndian.Uint64(rec[off:]))
	off += 8
	n.Kind = binary.LittleEndian.Uint32(rec[off:])
	off += 4

	tagCount, w := binary.Uvarint(rec[off:])
	if w <= 0 {
		return nil, fmt.Errorf("%w: truncated tag count", ErrCorruptRecord)
	}
	off += w

	n.Tags = make([]types.Tag, 0, tagCount)
	for i := uint64(0); i < tagCount; i++ {
		elCount, w := binary.Uvarint(rec[off:])
		if w <= 0 {
			return nil, fmt.Errorf("%w: truncated tag %d", ErrCorruptRecord, i)
		}
		off += w

		tag := make(types.Tag, 0, elCount)
		for j := uint64(0); j < elCount; j++ {
			elLen, w := binary.Uvarint(rec[off:])
			if w <= 0 {
				return nil, fmt.Errorf("%w: truncated tag element %d/%d", ErrCorruptRecord, i, j)
			}
			off += w
			if elLen > uint64(len(rec)-off) {
				return nil, fmt.Errorf("%w: truncated tag element %d/%d", ErrCorruptRecord, i, j)
			}
			tag = append(tag, string(rec[off:off+int(elLen)]))
			off += int(elLen)
		}
		n.Tags = append(n.Tags, tag)
	}
	if off != len(rec) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorruptRecord, len(rec)-off)
	}

	return &n, nil
}
