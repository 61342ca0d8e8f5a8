package notedb_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notedb/notedb"
	"github.com/notedb/notedb/pkg/blocks"
	"github.com/notedb/notedb/pkg/types"
)

const (
	eventID   = "d28ac02e277c3cf2744b562a414fd92d5fea554a737901364735bfe74577f304"
	eventJSON = `["EVENT","s",{"id":"d28ac02e277c3cf2744b562a414fd92d5fea554a737901364735bfe74577f304",` +
		`"pubkey":"b5b1b5d2914daa2eda99af22ae828effe98730bf69dcca000fa37bfb9e395e32",` +
		`"created_at":1703989205,"kind":1,"tags":[],` +
		`"content":"#hashtags, are neat nostr:nprofile1qqsr9cvzwc652r4m83d86ykplrnm9dg5gwdvzzn8ameanlvut35wy3gpz3mhxue69uhhyetvv9ujuerpd46hxtnfduyu75sw https://github.com/damus-io",` +
		`"sig":"07af3062616a17ef392769cadb170ac855c817c103e007c72374499bbadb2fe8917a0cc5b3fdc5aa5d56de086e128b3aeaa8868f6fe42a409767241b6a29cc94"}]`
)

func openTestDB(t *testing.T) *notedb.DB {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	db, err := notedb.Open(notedb.Config{
		Paths:  []string{t.TempDir()},
		Logger: log,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func TestNoteBlocksWork(t *testing.T) {
	db := openTestDB(t)

	_, err := db.ProcessEvent([]byte(eventJSON))
	require.NoError(t, err)

	id, err := types.NoteIDFromHex(eventID)
	require.NoError(t, err)

	txn := db.BeginRead()
	defer txn.Done()

	note, key, err := db.GetNoteByID(txn, id)
	require.NoError(t, err)

	blks, err := db.GetBlocksByKey(txn, key)
	require.NoError(t, err)

	type pair struct {
		typ  blocks.BlockType
		text string
	}
	var got []pair
	it := blks.Iterate(note.Content, len(note.Tags))
	for it.Next() {
		got = append(got, pair{it.Type(), it.Text()})
	}
	require.NoError(t, it.Err())

	assert.Equal(t, []pair{
		{blocks.BlockHashtag, "hashtags"},
		{blocks.BlockText, ", are neat "},
		{blocks.BlockMentionBech32, "nprofile1qqsr9cvzwc652r4m83d86ykplrnm9dg5gwdvzzn8ameanlvut35wy3gpz3mhxue69uhhyetvv9ujuerpd46hxtnfduyu75sw"},
		{blocks.BlockText, " "},
		{blocks.BlockURL, "https://github.com/damus-io"},
	}, got)
}

func TestIterateAfterTxnDone(t *testing.T) {
	db := openTestDB(t)

	key, err := db.ProcessEvent([]byte(eventJSON))
	require.NoError(t, err)

	txn := db.BeginRead()
	blks, note, err := db.BlocksFor(txn, key)
	require.NoError(t, err)

	it := blks.Iterate(note.Content, len(note.Tags))
	require.True(t, it.Next())

	// Once the transaction closes, the borrowed buffers are gone;
	// the iterator must reject further use instead of reading them.
	txn.Done()
	assert.False(t, it.Next())
	assert.ErrorIs(t, it.Err(), blocks.ErrTxnClosed)
}

func TestProcessEventIdempotent(t *testing.T) {
	db := openTestDB(t)

	key1, err := db.ProcessEvent([]byte(eventJSON))
	require.NoError(t, err)
	key2, err := db.ProcessEvent([]byte(eventJSON))
	require.NoError(t, err)
	assert.Equal(t, key1, key2)
}

func TestProcessEventRejectsGarbage(t *testing.T) {
	db := openTestDB(t)

	_, err := db.ProcessEvent([]byte("not json"))
	assert.Error(t, err)

	_, err = db.ProcessEvent([]byte(`{"id":"00"}`))
	assert.Error(t, err)
}

type rejectAll struct{}

func (rejectAll) Verify(*types.Note) error { return errors.New("nope") }

func TestCustomVerifier(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	db, err := notedb.Open(notedb.Config{
		Paths:    []string{t.TempDir()},
		Logger:   log,
		Verifier: rejectAll{},
	})
	require.NoError(t, err)
	defer db.Close()

	_, err = db.ProcessEvent([]byte(eventJSON))
	assert.Error(t, err)
}

func TestDeleteNote(t *testing.T) {
	db := openTestDB(t)

	key, err := db.ProcessEvent([]byte(eventJSON))
	require.NoError(t, err)

	id, err := types.NoteIDFromHex(eventID)
	require.NoError(t, err)
	require.NoError(t, db.DeleteNote(id))

	txn := db.BeginRead()
	defer txn.Done()

	_, _, err = db.GetNoteByID(txn, id)
	assert.ErrorIs(t, err, notedb.ErrNotFound)
	_, err = db.GetBlocksByKey(txn, key)
	assert.ErrorIs(t, err, notedb.ErrNotFound)

	assert.ErrorIs(t, db.DeleteNote(id), notedb.ErrNotFound)
}

func TestBackupRestore(t *testing.T) {
	src := openTestDB(t)
	_, err := src.ProcessEvent([]byte(eventJSON))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, src.Backup(&buf))

	dst := openTestDB(t)
	require.NoError(t, dst.Restore(&buf))

	id, err := types.NoteIDFromHex(eventID)
	require.NoError(t, err)

	txn := dst.BeginRead()
	defer txn.Done()
	note, _, err := dst.GetNoteByID(txn, id)
	require.NoError(t, err)
	assert.Contains(t, string(note.Content), "#hashtags")
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notedb.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"paths:\n  - /var/lib/notedb\nminimum_free_gb: 2\ngc_interval_minutes: 5\n"), 0o644))

	cfg, err := notedb.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"/var/lib/notedb"}, cfg.Paths)
	assert.Equal(t, uint64(2), cfg.MinimumFreeGB)
	assert.Equal(t, uint(5), cfg.GCIntervalMinutes)

	_, err = notedb.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestOpenRejectsEmptyConfig(t *testing.T) {
	_, err := notedb.Open(notedb.Config{})
	assert.Error(t, err)
}
