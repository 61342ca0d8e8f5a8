// Package storage is the persistence layer above the key-value
// engine: it writes note records, content payloads and block
// encodings at ingest and serves them back through read transactions.
package storage

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/klauspost/compress/zstd"
	"github.com/sirupsen/logrus"

	"github.com/notedb/notedb/internal/keyvalstore"
	"github.com/notedb/notedb/pkg/blocks"
	"github.com/notedb/notedb/pkg/types"
)

type Storage struct {
	kv   *keyvalstore.Store
	log  *logrus.Logger
	zenc *zstd.Encoder
	zdec *zstd.Decoder
}

func New(kv *keyvalstore.Store, log *logrus.Logger) (*Storage, error) {
	zenc, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("storage: creating zstd encoder: %w", err)
	}
	zdec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("storage: creating zstd decoder: %w", err)
	}

	return &Storage{kv: kv, log: log, zenc: zenc, zdec: zdec}, nil
}

func (s *Storage) Close() {
	_ = s.zenc.Close()
	s.zdec.Close()
}

// BeginRead opens a read transaction on the underlying store.
func (s *Storage) BeginRead() *keyvalstore.Txn {
	return s.kv.BeginRead()
}

// SaveNote tokenizes the note's content and writes the note record,
// content payload, block encoding and id index in one transaction.
// Re-ingesting an existing id keeps its note key and fully replaces
// the stored values; concurrent readers observe either the old or the
// new encoding, never a mix.
func (s *Storage) SaveNote(n *types.Note) (types.NoteKey, error) {
	blks := blocks.Tokenize(n.Content, len(n.Tags))
	encoded := blocks.Encode(blks)

	var key types.NoteKey
	err := s.kv.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(idKey(n.ID))
		switch {
		case err == nil:
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			key, err = types.NoteKeyFromBytes(val)
			if err != nil {
				return err
			}
		case errors.Is(err, badger.ErrKeyNotFound):
			raw, err := s.kv.NextNoteKey()
			if err != nil {
				return err
			}
			key = types.NoteKey(raw)
		default:
			return err
		}

		if err := txn.Set(idKey(n.ID), key.Bytes()); err != nil {
			return err
		}
		if err := txn.Set(noteKey(key), encodeNoteRecord(n)); err != nil {
			return err
		}
		if err := txn.Set(contentKey(key), s.encodePayload(n.Content)); err != nil {
			return err
		}
		return txn.Set(blocksKey(key), encoded)
	})
	if err != nil {
		return 0, fmt.Errorf("storage: saving note %s: %w", n.ID, err)
	}

	s.log.WithFields(logrus.Fields{
		"id":     n.ID.String(),
		"key":    uint64(key),
		"blocks": len(blks),
	}).Debug("note saved")

	return key, nil
}

// NoteKeyByID resolves a note id to its store key.
func (s *Storage) NoteKeyByID(txn *keyvalstore.Txn, id types.NoteID) (types.NoteKey, error) {
	val, err := txn.Get(idKey(id))
	if err != nil {
		return 0, err
	}

	return types.NoteKeyFromBytes(val)
}

// Note loads the note record and attaches its content buffer. The
// content is borrowed from the transaction when stored raw.
func (s *Storage) Note(txn *keyvalstore.Txn, key types.NoteKey) (*types.Note, error) {
	rec, err := txn.Get(noteKey(key))
	if err != nil {
		return nil, err
	}
	n, err := decodeNoteRecord(rec)
	if err != nil {
		return nil, err
	}
	n.Content, err = s.Content(txn, key)
	if err != nil {
		return nil, err
	}

	return n, nil
}

// Content returns the note's content buffer, valid while txn is open.
func (s *Storage) Content(txn *keyvalstore.Txn, key types.NoteKey) ([]byte, error) {
	p, err := txn.Get(contentKey(key))
	if err != nil {
		return nil, err
	}

	return s.decodePayload(p)
}

// Blocks returns the note's persisted block encoding, valid while txn
// is open. keyvalstore.ErrNotFound means the note was never tokenized
// or has been deleted.
func (s *Storage) Blocks(txn *keyvalstore.Txn, key types.NoteKey) ([]byte, error) {
	return txn.Get(blocksKey(key))
}

// DeleteNote removes the note and everything derived from it in one
// transaction.
func (s *Storage) DeleteNote(id types.NoteID) error {
	err := s.kv.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(idKey(id))
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		key, err := types.NoteKeyFromBytes(val)
		if err != nil {
			return err
		}

		for _, k := range [][]byte{noteKey(key), contentKey(key), blocksKey(key), idKey(id)} {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return keyvalstore.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("storage: deleting note %s: %w", id, err)
	}

	s.log.WithField("id", id.String()).Debug("note deleted")

	return nil
}
