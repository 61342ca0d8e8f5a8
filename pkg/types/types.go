// Package types holds the note record and the identifiers the store
// keys it by.
package types

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
)

// NoteKey is the store-internal key of a note, assigned at ingest.
// Zero is never a valid key.
type NoteKey uint64

// Bytes returns the key in its fixed on-disk form (big endian, so
// keys sort in assignment order).
func (k NoteKey) Bytes() []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(k))
	return b[:]
}

func NoteKeyFromBytes(b []byte) (NoteKey, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("types: note key must be 8 bytes, got %d", len(b))
	}
	return NoteKey(binary.BigEndian.Uint64(b)), nil
}

// NoteID is the protocol-level event id.
type NoteID [32]byte

func (id NoteID) String() string { return hex.EncodeToString(id[:]) }

func NoteIDFromHex(s string) (NoteID, error) {
	var id NoteID
	if len(s) != 64 {
		return id, fmt.Errorf("types: note id must be 64 hex chars, got %d", len(s))
	}
	if _, err := hex.Decode(id[:], []byte(s)); err != nil {
		return id, fmt.Errorf("types: decoding note id: %w", err)
	}
	return id, nil
}

// Pubkey is the author's public key.
type Pubkey [32]byte

func (p Pubkey) String() string { return hex.EncodeToString(p[:]) }

// Sig is the note's signature. Verification is external to the store.
type Sig [64]byte

func (s Sig) String() string { return hex.EncodeToString(s[:]) }

// Tag is one entry of a note's tag array, e.g. ["p", "<pubkey>"].
type Tag []string

// Key returns the tag's leading element, or "" for an empty tag.
func (t Tag) Key() string {
	if len(t) == 0 {
		return ""
	}
	return t[0]
}

// Note is a signed, immutable event record. Content is a byte slice
// so that read paths can hand out the store's buffer directly; it is
// only valid as long as the transaction that produced it.
type Note struct {
	ID        NoteID
	Pubkey    Pubkey
	CreatedAt int64
	Kind      uint32
	Tags      []Tag
	Content   []byte
	Sig       Sig
}

// Tag returns the i-th tag, if present.
func (n *Note) Tag(i int) (Tag, bool) {
	if i < 0 || i >= len(n.Tags) {
		return nil, false
	}
	return n.Tags[i], true
}

var errEmptyTag = errors.New("types: empty tag")

// Validate checks the structural shape of the note. It does not
// verify the signature or the id derivation.
func (n *Note) Validate() error {
	if n.ID == (NoteID{}) {
		return errors.New("types: note id is zero")
	}
	if n.Pubkey == (Pubkey{}) {
		return errors.New("types: note pubkey is zero")
	}
	if n.CreatedAt < 0 {
		return fmt.Errorf("types: negative created_at %d", n.CreatedAt)
	}
	for i, tag := range n.Tags {
		if len(tag) == 0 {
			return fmt.Errorf("%w at index %d", errEmptyTag, i)
		}
	}

	return nil
}
