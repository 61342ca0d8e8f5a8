// Package keyvalstore wraps the badger key-value engine: lifecycle,
// write batches, snapshot read transactions, sequence allocation,
// backup streams and value-log garbage collection.
package keyvalstore

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/shirou/gopsutil/disk"
	"github.com/sirupsen/logrus"
)

var (
	// ErrNotFound reports a key that is not in the store.
	ErrNotFound = errors.New("keyvalstore: key not found")
	// ErrTxnClosed reports a read through an already-closed
	// transaction.
	ErrTxnClosed = errors.New("keyvalstore: transaction closed")
	// ErrUnavailable wraps engine-level failures.
	ErrUnavailable = errors.New("keyvalstore: store unavailable")
)

type Config struct {
	// Path is the data directory.
	Path string
	// MinimumFreeGB refuses to open the store when the free space on
	// Path's filesystem is below this threshold. Zero disables the
	// check.
	MinimumFreeGB uint64
	// Logger is optional; nil gets a default stderr logger.
	Logger *logrus.Logger
}

type Store struct {
	db  *badger.DB
	seq *badger.Sequence
	log *logrus.Logger
}

// Open opens (or creates) the store at cfg.Path.
func Open(cfg Config) (*Store, error) {
	log := cfg.Logger
	if log == nil {
		log = logrus.New()
	}
	if cfg.Path == "" {
		return nil, errors.New("keyvalstore: no data path configured")
	}
	if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
		return nil, fmt.Errorf("keyvalstore: creating data dir: %w", err)
	}
	if err := checkFreeSpace(cfg.Path, cfg.MinimumFreeGB, log); err != nil {
		return nil, err
	}

	opts := badger.DefaultOptions(cfg.Path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: opening badger at %s: %w", ErrUnavailable, cfg.Path, err)
	}

	seq, err := db.GetSequence([]byte("meta:noteseq"), 128)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: opening note sequence: %w", ErrUnavailable, err)
	}

	log.WithFields(logrus.Fields{"path": cfg.Path}).Info("key-value store opened")

	return &Store{db: db, seq: seq, log: log}, nil
}

// checkFreeSpace fails when the filesystem holding path has less than
// minGB gigabytes free.
func checkFreeSpace(path string, minGB uint64, log *logrus.Logger) error {
	if minGB == 0 {
		return nil
	}
	usage, err := disk.Usage(path)
	if err != nil {
		return fmt.Errorf("keyvalstore: reading disk usage for %s: %w", path, err)
	}
	freeGB := usage.Free / (1 << 30)
	log.WithFields(logrus.Fields{
		"path":    path,
		"free_gb": freeGB,
	}).Debug("disk usage")
	if freeGB < minGB {
		return fmt.Errorf("keyvalstore: %d GB free on %s, need at least %d GB", freeGB, path, minGB)
	}

	return nil
}

func (s *Store) Close() error {
	if err := s.seq.Release(); err != nil {
		s.log.WithError(err).Warn("releasing note sequence")
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("keyvalstore: closing badger: %w", err)
	}

	return nil
}

// NextNoteKey allocates the next note key. Keys start at 1; a burned
// key on a failed ingest is acceptable.
func (s *Store) NextNoteKey() (uint64, error) {
	n, err := s.seq.Next()
	if err != nil {
		return 0, fmt.Errorf("%w: allocating note key: %w", ErrUnavailable, err)
	}

	return n + 1, nil
}

// Update runs fn inside one read-write transaction. Badger enforces
// the single-writer discipline; readers observe either none or all of
// the transaction's writes.
func (s *Store) Update(fn func(txn *badger.Txn) error) error {
	err := s.db.Update(fn)
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	return err
}

// Backup writes a full backup stream of the store to w.
func (s *Store) Backup(w io.Writer) error {
	if _, err := s.db.Backup(w, 0); err != nil {
		return fmt.Errorf("%w: backup: %w", ErrUnavailable, err)
	}

	return nil
}

// Load restores a backup stream previously produced by Backup.
func (s *Store) Load(r io.Reader) error {
	if err := s.db.Load(r, 16); err != nil {
		return fmt.Errorf("%w: restore: %w", ErrUnavailable, err)
	}

	return nil
}

// RunGC triggers one round of value-log garbage collection. A round
// that found nothing to rewrite is not an error.
func (s *Store) RunGC() error {
	err := s.db.RunValueLogGC(0.5)
	if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
		return fmt.Errorf("%w: value log gc: %w", ErrUnavailable, err)
	}

	return nil
}
