// Package blocks tokenizes note content into typed, contiguous spans
// (hashtags, mentions, urls, invoices, plain text) and persists that
// tokenization in a compact binary form that can be replayed later
// without re-running the tokenizer and without copying the content.
//
// All spans index into the owning note's content buffer. When the
// content buffer is borrowed from an open read transaction, every
// Blocks and Iterator obtained through that transaction is valid only
// while the transaction stays open; access after close is rejected
// with ErrTxnClosed.
package blocks

import (
	"errors"
	"fmt"
	"unsafe"
)

// BlockType tags one classified segment of a note's content. The set
// is closed; decode rejects anything outside it.
type BlockType uint8

const (
	BlockHashtag BlockType = iota + 1
	BlockText
	BlockMentionIndex
	BlockMentionBech32
	BlockURL
	BlockInvoice
)

func (t BlockType) valid() bool {
	return t >= BlockHashtag && t <= BlockInvoice
}

func (t BlockType) String() string {
	switch t {
	case BlockHashtag:
		return "hashtag"
	case BlockText:
		return "text"
	case BlockMentionIndex:
		return "mention_index"
	case BlockMentionBech32:
		return "mention_bech32"
	case BlockURL:
		return "url"
	case BlockInvoice:
		return "invoice"
	default:
		return fmt.Sprintf("BlockType(%d)", uint8(t))
	}
}

var (
	// ErrMalformedEncoding reports a truncated, corrupt or
	// out-of-range persisted blocks value.
	ErrMalformedEncoding = errors.New("blocks: malformed encoding")
	// ErrInvalidBlockType reports a persisted tag value outside the
	// closed BlockType set.
	ErrInvalidBlockType = errors.New("blocks: invalid block type")
	// ErrTxnClosed reports use of a transaction-scoped value after
	// its transaction was closed.
	ErrTxnClosed = errors.New("blocks: transaction closed")
)

// Span locates a segment of a content buffer. Spans of one note's
// block sequence are contiguous, non-overlapping and jointly cover
// the whole buffer.
type Span struct {
	Start uint32
	Len   uint32
}

func (s Span) End() uint32 { return s.Start + s.Len }

func span(start, end int) Span {
	return Span{Start: uint32(start), Len: uint32(end - start)}
}

// Block is one classified segment. Mention is the resolved tag-array
// index and is meaningful only for BlockMentionIndex.
type Block struct {
	Type    BlockType
	Span    Span
	Mention uint32
}

// Text returns the renderable text of the block as a string view into
// content, without copying. The leading '#' of a hashtag and the
// "nostr:" prefix of a bech32 mention are stripped; every other type
// returns the raw span.
func (b Block) Text(content []byte) string {
	if b.Span.End() > uint32(len(content)) {
		return ""
	}
	raw := content[b.Span.Start:b.Span.End()]
	switch b.Type {
	case BlockHashtag:
		if len(raw) > 0 && raw[0] == '#' {
			raw = raw[1:]
		}
	case BlockMentionBech32:
		if len(raw) >= len(mentionPrefix) {
			raw = raw[len(mentionPrefix):]
		}
	}
	return byteString(raw)
}

// byteString views b as a string without allocating. The caller must
// not outlive the buffer b points into.
func byteString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(&b[0], len(b))
}

// Txn is the capability a transaction-scoped Blocks value holds on
// its read transaction. It is used for validity checking only.
type Txn interface {
	Active() bool
}

// Blocks is the persisted block sequence of one note, either borrowed
// from an open transaction or owned by the caller.
type Blocks struct {
	encoded []byte
	body    []byte
	count   int
	txn     Txn
}

// FromEncoded wraps a persisted encoding. The header and checksum are
// verified up front; per-descriptor validation happens while
// iterating. txn may be nil for caller-owned encodings.
func FromEncoded(encoded []byte, txn Txn) (*Blocks, error) {
	count, body, err := validateEncoded(encoded)
	if err != nil {
		return nil, err
	}

	return &Blocks{encoded: encoded, body: body, count: count, txn: txn}, nil
}

// Parse tokenizes caller-owned content and returns the resulting
// block sequence, already in its persisted form. tagCount is the
// length of the note's tag array, used to resolve mention indices.
func Parse(content []byte, tagCount int) *Blocks {
	blks := Tokenize(content, tagCount)
	encoded := Encode(blks)
	body := encoded[headerSize : len(encoded)-trailerSize]

	return &Blocks{encoded: encoded, body: body, count: len(blks)}
}

// Count returns the number of persisted blocks.
func (b *Blocks) Count() int { return b.count }

// Encoded returns the persisted form, suitable for storing.
func (b *Blocks) Encoded() []byte { return b.encoded }
