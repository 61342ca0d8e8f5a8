// Package notedb is an embedded, local-first store for signed,
// immutable protocol events ("notes"). At ingest it tokenizes each
// note's content into typed blocks and persists the tokenization next
// to the note; at read time it replays those blocks as zero-copy
// spans scoped to an open read transaction.
package notedb

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/notedb/notedb/internal/keyvalstore"
	"github.com/notedb/notedb/internal/storage"
	"github.com/notedb/notedb/pkg/blocks"
	"github.com/notedb/notedb/pkg/types"
)

// ErrNotFound reports a note or blocks value that is not in the
// store.
var ErrNotFound = keyvalstore.ErrNotFound

// Txn is a read-only, snapshot-isolated view of the store. Content
// buffers, blocks and spans obtained through a Txn are valid only
// while it is open.
type Txn = keyvalstore.Txn

// Verifier checks a note before it is admitted. Cryptographic
// signature and id verification live outside this store; the default
// verifier only checks structural shape.
type Verifier interface {
	Verify(n *types.Note) error
}

type shapeVerifier struct{}

func (shapeVerifier) Verify(n *types.Note) error { return n.Validate() }

type DB struct {
	kv       *keyvalstore.Store
	ss       *storage.Storage
	log      *logrus.Logger
	verifier Verifier
	gcStop   chan struct{}
	gcDone   chan struct{}
}

// Open opens (or creates) a database under cfg.Paths[0].
func Open(cfg Config) (*DB, error) {
	if err := cfg.check(); err != nil {
		return nil, err
	}
	log := cfg.Logger
	if log == nil {
		log = defaultLogger()
	}

	kv, err := keyvalstore.Open(keyvalstore.Config{
		Path:          cfg.Paths[0],
		MinimumFreeGB: cfg.MinimumFreeGB,
		Logger:        log,
	})
	if err != nil {
		return nil, fmt.Errorf("notedb: opening store: %w", err)
	}

	ss, err := storage.New(kv, log)
	if err != nil {
		_ = kv.Close()
		return nil, fmt.Errorf("notedb: %w", err)
	}

	verifier := cfg.Verifier
	if verifier == nil {
		verifier = shapeVerifier{}
	}

	db := &DB{
		kv:       kv,
		ss:       ss,
		log:      log,
		verifier: verifier,
		gcStop:   make(chan struct{}),
		gcDone:   make(chan struct{}),
	}
	go db.gcLoop(time.Duration(cfg.GCIntervalMinutes) * time.Minute)

	return db, nil
}

func (db *DB) Close() error {
	close(db.gcStop)
	<-db.gcDone
	db.ss.Close()

	return db.kv.Close()
}

func (db *DB) gcLoop(interval time.Duration) {
	defer close(db.gcDone)
	if interval == 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-db.gcStop:
			return
		case <-ticker.C:
			if err := db.kv.RunGC(); err != nil {
				db.log.WithError(err).Warn("value log gc failed")
			}
		}
	}
}

// ProcessEvent ingests a note from its JSON wire form, either a bare
// note object or an ["EVENT", ...] relay envelope. Ingest is an
// upsert: re-processing the same note fully replaces its stored
// values and is byte-for-byte idempotent.
func (db *DB) ProcessEvent(event []byte) (types.NoteKey, error) {
	note, err := types.ParseEvent(event)
	if err != nil {
		return 0, fmt.Errorf("notedb: %w", err)
	}
	if err := db.verifier.Verify(note); err != nil {
		return 0, fmt.Errorf("notedb: rejecting note %s: %w", note.ID, err)
	}

	return db.ss.SaveNote(note)
}

// BeginRead opens a read transaction. The caller must call Done on it
// and must not use anything obtained through it afterwards.
func (db *DB) BeginRead() *Txn {
	return db.kv.BeginRead()
}

// GetNoteByID loads a note by its protocol id. The note's content is
// valid while txn is open.
func (db *DB) GetNoteByID(txn *Txn, id types.NoteID) (*types.Note, types.NoteKey, error) {
	key, err := db.ss.NoteKeyByID(txn, id)
	if err != nil {
		return nil, 0, err
	}
	note, err := db.ss.Note(txn, key)
	if err != nil {
		return nil, 0, err
	}

	return note, key, nil
}

// GetNoteByKey loads a note by its store key.
func (db *DB) GetNoteByKey(txn *Txn, key types.NoteKey) (*types.Note, error) {
	return db.ss.Note(txn, key)
}

// GetBlocksByKey loads the persisted block sequence of a note. The
// returned Blocks carries the transaction and refuses iteration once
// it is closed. ErrNotFound means the note was never tokenized or has
// been deleted.
func (db *DB) GetBlocksByKey(txn *Txn, key types.NoteKey) (*blocks.Blocks, error) {
	encoded, err := db.ss.Blocks(txn, key)
	if err != nil {
		return nil, err
	}

	return blocks.FromEncoded(encoded, txn)
}

// BlocksFor is the combined lookup: the note's blocks together with
// the content buffer and tag count needed to iterate them.
func (db *DB) BlocksFor(txn *Txn, key types.NoteKey) (*blocks.Blocks, *types.Note, error) {
	note, err := db.ss.Note(txn, key)
	if err != nil {
		return nil, nil, err
	}
	blks, err := db.GetBlocksByKey(txn, key)
	if err != nil {
		return nil, nil, err
	}

	return blks, note, nil
}

// DeleteNote removes a note and its derived values.
func (db *DB) DeleteNote(id types.NoteID) error {
	err := db.ss.DeleteNote(id)
	if errors.Is(err, keyvalstore.ErrNotFound) {
		return ErrNotFound
	}

	return err
}
