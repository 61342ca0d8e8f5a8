package notedb

import (
	"fmt"
	"io"

	"github.com/ulikunitz/xz/lzma"
)

// Backup streams a full, lzma-compressed backup of the store to w.
// Backup runs against a consistent snapshot; writes may proceed
// concurrently.
func (db *DB) Backup(w io.Writer) error {
	zw, err := lzma.NewWriter(w)
	if err != nil {
		return fmt.Errorf("notedb: creating backup writer: %w", err)
	}
	if err := db.kv.Backup(zw); err != nil {
		return fmt.Errorf("notedb: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("notedb: flushing backup: %w", err)
	}

	return nil
}

// Restore loads a backup stream produced by Backup into the open
// store. Existing keys present in the stream are overwritten.
func (db *DB) Restore(r io.Reader) error {
	zr, err := lzma.NewReader(r)
	if err != nil {
		return fmt.Errorf("notedb: opening backup stream: %w", err)
	}
	if err := db.kv.Load(zr); err != nil {
		return fmt.Errorf("notedb: %w", err)
	}

	return nil
}
