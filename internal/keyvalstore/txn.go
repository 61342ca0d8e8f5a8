package keyvalstore

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// Txn is a snapshot-isolated, read-only view of the store. Byte
// slices returned by Get are borrowed from the engine and stay valid
// only while the transaction is open; once Done is called the
// underlying memory may be reused.
//
// A Txn is meant to be used from one goroutine, matching badger's own
// transaction contract.
type Txn struct {
	txn  *badger.Txn
	open bool
}

// BeginRead opens a read transaction pinning a consistent snapshot.
func (s *Store) BeginRead() *Txn {
	return &Txn{txn: s.db.NewTransaction(false), open: true}
}

// Active reports whether the transaction is still open. Values
// borrowed through this transaction are valid exactly while Active
// returns true.
func (t *Txn) Active() bool {
	return t != nil && t.open
}

// Done closes the transaction. Idempotent.
func (t *Txn) Done() {
	if t.open {
		t.txn.Discard()
		t.open = false
	}
}

// Get returns the value for key, borrowed from the transaction's
// snapshot. Returns ErrNotFound for missing keys and ErrTxnClosed
// after Done.
func (t *Txn) Get(key []byte) ([]byte, error) {
	if !t.Active() {
		return nil, ErrTxnClosed
	}

	item, err := t.txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get: %w", ErrUnavailable, err)
	}

	var val []byte
	if err := item.Value(func(v []byte) error {
		val = v
		return nil
	}); err != nil {
		return nil, fmt.Errorf("%w: value: %w", ErrUnavailable, err)
	}

	return val, nil
}
