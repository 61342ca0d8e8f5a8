package storage

import "github.com/notedb/notedb/pkg/types"

// Key scheme. Every note owns four keys; re-ingest overwrites them in
// place and delete removes them together.
var (
	prefixNote    = []byte("note:")
	prefixContent = []byte("content:")
	prefixBlocks  = []byte("blocks:")
	prefixID      = []byte("id:")
)

func noteKey(key types.NoteKey) []byte    { return append(append([]byte{}, prefixNote...), key.Bytes()...) }
func contentKey(key types.NoteKey) []byte { return append(append([]byte{}, prefixContent...), key.Bytes()...) }
func blocksKey(key types.NoteKey) []byte  { return append(append([]byte{}, prefixBlocks...), key.Bytes()...) }
func idKey(id types.NoteID) []byte        { return append(append([]byte{}, prefixID...), id[:]...) }
