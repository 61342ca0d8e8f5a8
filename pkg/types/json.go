package types

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// noteJSON is the protocol wire shape of a note.
type noteJSON struct {
	ID        string     `json:"id"`
	Pubkey    string     `json:"pubkey"`
	CreatedAt int64      `json:"created_at"`
	Kind      uint32     `json:"kind"`
	Tags      [][]string `json:"tags"`
	Content   string     `json:"content"`
	Sig       string     `json:"sig"`
}

func (n *Note) MarshalJSON() ([]byte, error) {
	tags := make([][]string, len(n.Tags))
	for i, t := range n.Tags {
		tags[i] = []string(t)
	}
	return json.Marshal(&noteJSON{
		ID:        n.ID.String(),
		Pubkey:    n.Pubkey.String(),
		CreatedAt: n.CreatedAt,
		Kind:      n.Kind,
		Tags:      tags,
		Content:   string(n.Content),
		Sig:       n.Sig.String(),
	})
}

func (n *Note) UnmarshalJSON(data []byte) error {
	var raw noteJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("types: decoding note: %w", err)
	}

	id, err := NoteIDFromHex(raw.ID)
	if err != nil {
		return err
	}
	if len(raw.Pubkey) != 64 {
		return fmt.Errorf("types: pubkey must be 64 hex chars, got %d", len(raw.Pubkey))
	}
	var pubkey Pubkey
	if _, err := hex.Decode(pubkey[:], []byte(raw.Pubkey)); err != nil {
		return fmt.Errorf("types: decoding pubkey: %w", err)
	}
	if len(raw.Sig) != 128 {
		return fmt.Errorf("types: sig must be 128 hex chars, got %d", len(raw.Sig))
	}
	var sig Sig
	if _, err := hex.Decode(sig[:], []byte(raw.Sig)); err != nil {
		return fmt.Errorf("types: decoding sig: %w", err)
	}

	tags := make([]Tag, len(raw.Tags))
	for i, t := range raw.Tags {
		tags[i] = Tag(t)
	}

	*n = Note{
		ID:        id,
		Pubkey:    pubkey,
		CreatedAt: raw.CreatedAt,
		Kind:      raw.Kind,
		Tags:      tags,
		Content:   []byte(raw.Content),
		Sig:       sig,
	}

	return nil
}

// ParseEvent decodes either a bare note object or a relay envelope of
// the form ["EVENT", <subscription>, {note}]; the note is always the
// last element of the envelope.
func ParseEvent(data []byte) (*Note, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("types: empty event")
	}

	if data[0] == '[' {
		var parts []json.RawMessage
		if err := json.Unmarshal(data, &parts); err != nil {
			return nil, fmt.Errorf("types: decoding envelope: %w", err)
		}
		if len(parts) < 2 {
			return nil, fmt.Errorf("types: envelope has %d elements, want at least 2", len(parts))
		}
		var label string
		if err := json.Unmarshal(parts[0], &label); err != nil || label != "EVENT" {
			return nil, fmt.Errorf("types: envelope is not an EVENT")
		}
		data = parts[len(parts)-1]
	}

	var note Note
	if err := json.Unmarshal(data, &note); err != nil {
		return nil, err
	}

	return &note, nil
}
