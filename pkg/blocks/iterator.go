package blocks

import (
	"encoding/binary"
	"fmt"
	"iter"
)

// Iterator replays a persisted block sequence against the original
// content buffer. Decoding is streaming: each Next decodes exactly one
// descriptor and validates it before exposing it, so a malformed
// encoding stops iteration instead of producing an out-of-range span.
//
// An Iterator is positioned, not restartable; construct a new one to
// iterate again.
type Iterator struct {
	content   []byte
	body      []byte
	off       int
	remain    int
	nextStart uint32
	tagCount  int
	txn       Txn
	cur       Block
	err       error
}

// Iterate returns an iterator over the persisted blocks, resolving
// spans against content. tagCount bounds mention indices; pass a
// negative value when the tag list is not at hand.
//
// content must be the exact buffer the blocks were tokenized from.
// When the Blocks value is transaction-scoped, the iterator stops
// with ErrTxnClosed once the transaction is no longer open.
func (b *Blocks) Iterate(content []byte, tagCount int) *Iterator {
	return &Iterator{
		content:  content,
		body:     b.body,
		remain:   b.count,
		tagCount: tagCount,
		txn:      b.txn,
	}
}

// Next advances to the next block. It returns false at the end of the
// sequence or on the first malformed descriptor; Err distinguishes
// the two.
func (it *Iterator) Next() bool {
	if it.err != nil {
		return false
	}
	if it.txn != nil && !it.txn.Active() {
		it.err = ErrTxnClosed
		return false
	}

	if it.remain == 0 {
		if it.off != len(it.body) {
			it.err = fmt.Errorf("%w: %d trailing descriptor bytes", ErrMalformedEncoding, len(it.body)-it.off)
		} else if it.nextStart != uint32(len(it.content)) {
			it.err = fmt.Errorf("%w: blocks cover %d of %d content bytes", ErrMalformedEncoding, it.nextStart, len(it.content))
		}
		return false
	}

	blk, n, err := it.decodeDescriptor()
	if err != nil {
		it.err = err
		return false
	}

	it.off += n
	it.nextStart = blk.Span.End()
	it.remain--
	it.cur = blk

	return true
}

func (it *Iterator) decodeDescriptor() (Block, int, error) {
	buf := it.body[it.off:]
	if len(buf) == 0 {
		return Block{}, 0, fmt.Errorf("%w: truncated descriptor", ErrMalformedEncoding)
	}

	t := BlockType(buf[0])
	if !t.valid() {
		return Block{}, 0, fmt.Errorf("%w: %d", ErrInvalidBlockType, buf[0])
	}
	n := 1

	start, w := binary.Uvarint(buf[n:])
	if w <= 0 {
		return Block{}, 0, fmt.Errorf("%w: truncated span start", ErrMalformedEncoding)
	}
	n += w
	length, w := binary.Uvarint(buf[n:])
	if w <= 0 {
		return Block{}, 0, fmt.Errorf("%w: truncated span length", ErrMalformedEncoding)
	}
	n += w

	blk := Block{Type: t, Span: Span{Start: uint32(start), Len: uint32(length)}}
	if t == BlockMentionIndex {
		idx, w := binary.Uvarint(buf[n:])
		if w <= 0 {
			return Block{}, 0, fmt.Errorf("%w: truncated mention index", ErrMalformedEncoding)
		}
		n += w
		if it.tagCount >= 0 && idx >= uint64(it.tagCount) {
			return Block{}, 0, fmt.Errorf("%w: mention index %d outside tag list of %d", ErrMalformedEncoding, idx, it.tagCount)
		}
		blk.Mention = uint32(idx)
	}

	// Contiguity and bounds: the descriptor must pick up exactly
	// where the previous one ended and stay inside the content.
	if start != uint64(it.nextStart) || length > uint64(len(it.content))-start {
		return Block{}, 0, fmt.Errorf("%w: span [%d,%d) out of place in %d bytes of content",
			ErrMalformedEncoding, start, start+length, len(it.content))
	}

	return blk, n, nil
}

// Block returns the current block. Valid after Next reported true.
func (it *Iterator) Block() Block { return it.cur }

// Type returns the current block's type.
func (it *Iterator) Type() BlockType { return it.cur.Type }

// Text returns the current block's text as a view into the content
// buffer, with markers stripped. No allocation.
func (it *Iterator) Text() string { return it.cur.Text(it.content) }

// MentionIndex returns the resolved tag-array index of the current
// mention-index block.
func (it *Iterator) MentionIndex() int { return int(it.cur.Mention) }

// Err returns the error that stopped iteration, or nil after a clean
// end of sequence.
func (it *Iterator) Err() error { return it.err }

// All returns a range-over-func view of the block sequence, yielding
// (type, text) pairs. Iteration errors are not observable through
// All; use Iterate when they matter.
func (b *Blocks) All(content []byte, tagCount int) iter.Seq2[BlockType, string] {
	return func(yield func(BlockType, string) bool) {
		it := b.Iterate(content, tagCount)
		for it.Next() {
			if !yield(it.Type(), it.Text()) {
				return
			}
		}
	}
}
