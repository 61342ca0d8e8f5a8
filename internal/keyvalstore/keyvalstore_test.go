package keyvalstore_test

import (
	"bytes"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notedb/notedb/internal/keyvalstore"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	return log
}

func openTestStore(t *testing.T) *keyvalstore.Store {
	t.Helper()

	s, err := keyvalstore.Open(keyvalstore.Config{
		Path:   t.TempDir(),
		Logger: testLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func put(t *testing.T, s *keyvalstore.Store, key, val string) {
	t.Helper()
	require.NoError(t, s.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), []byte(val))
	}))
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := keyvalstore.Open(keyvalstore.Config{Logger: testLogger()})
	assert.Error(t, err)
}

func TestPutGet(t *testing.T) {
	s := openTestStore(t)
	put(t, s, "k1", "v1")

	txn := s.BeginRead()
	defer txn.Done()

	val, err := txn.Get([]byte("k1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), val)

	_, err = txn.Get([]byte("missing"))
	assert.ErrorIs(t, err, keyvalstore.ErrNotFound)
}

func TestTxnSnapshotIsolation(t *testing.T) {
	s := openTestStore(t)
	put(t, s, "k", "old")

	txn := s.BeginRead()
	defer txn.Done()

	// A write after the snapshot was taken must not be visible.
	put(t, s, "k", "new")

	val, err := txn.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("old"), val)

	// A fresh transaction sees the new value.
	txn2 := s.BeginRead()
	defer txn2.Done()
	val, err = txn2.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), val)
}

func TestTxnUseAfterDone(t *testing.T) {
	s := openTestStore(t)
	put(t, s, "k", "v")

	txn := s.BeginRead()
	require.True(t, txn.Active())

	txn.Done()
	assert.False(t, txn.Active())

	_, err := txn.Get([]byte("k"))
	assert.ErrorIs(t, err, keyvalstore.ErrTxnClosed)

	// Done is idempotent.
	txn.Done()
}

func TestNextNoteKeyMonotonic(t *testing.T) {
	s := openTestStore(t)

	a, err := s.NextNoteKey()
	require.NoError(t, err)
	b, err := s.NextNoteKey()
	require.NoError(t, err)

	assert.Greater(t, a, uint64(0))
	assert.Greater(t, b, a)
}

func TestBackupLoadRoundTrip(t *testing.T) {
	src := openTestStore(t)
	put(t, src, "k1", "v1")
	put(t, src, "k2", "v2")

	var buf bytes.Buffer
	require.NoError(t, src.Backup(&buf))

	dst := openTestStore(t)
	require.NoError(t, dst.Load(&buf))

	txn := dst.BeginRead()
	defer txn.Done()
	val, err := txn.Get([]byte("k2"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), val)
}

func TestRunGC(t *testing.T) {
	s := openTestStore(t)
	put(t, s, "k", "v")

	// Nothing to rewrite is not an error.
	assert.NoError(t, s.RunGC())
}
