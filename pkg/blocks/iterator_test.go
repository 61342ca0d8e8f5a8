package blocks_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notedb/notedb/pkg/blocks"
)

// fakeTxn stands in for a store read transaction.
type fakeTxn struct {
	active bool
}

func (t *fakeTxn) Active() bool { return t.active }

func TestIteratorStopsWhenTxnCloses(t *testing.T) {
	content := []byte("#one #two #three")
	txn := &fakeTxn{active: true}

	blks, err := blocks.FromEncoded(blocks.Parse(content, 0).Encoded(), txn)
	require.NoError(t, err)

	it := blks.Iterate(content, 0)
	require.True(t, it.Next())
	assert.Equal(t, "one", it.Text())

	// Closing the transaction invalidates every borrowed span; the
	// iterator must refuse to go on.
	txn.active = false
	assert.False(t, it.Next())
	assert.ErrorIs(t, it.Err(), blocks.ErrTxnClosed)

	// And it stays stopped.
	assert.False(t, it.Next())
	assert.ErrorIs(t, it.Err(), blocks.ErrTxnClosed)
}

func TestIteratorClosedTxnYieldsNothing(t *testing.T) {
	content := []byte("hello")
	txn := &fakeTxn{active: false}

	blks, err := blocks.FromEncoded(blocks.Parse(content, 0).Encoded(), txn)
	require.NoError(t, err)

	it := blks.Iterate(content, 0)
	assert.False(t, it.Next())
	assert.ErrorIs(t, it.Err(), blocks.ErrTxnClosed)
}

func TestIteratorNotRestartable(t *testing.T) {
	content := []byte("#a b")
	blks := blocks.Parse(content, 0)

	it := blks.Iterate(content, 0)
	n := 0
	for it.Next() {
		n++
	}
	require.NoError(t, it.Err())
	require.Equal(t, 2, n)

	// Exhausted iterators stay exhausted; a fresh one replays from
	// the start.
	assert.False(t, it.Next())

	it2 := blks.Iterate(content, 0)
	assert.True(t, it2.Next())
	assert.Equal(t, blocks.BlockHashtag, it2.Type())
}

func TestBlocksAll(t *testing.T) {
	content := []byte("#tag text")
	blks := blocks.Parse(content, 0)

	var types []blocks.BlockType
	var texts []string
	for typ, text := range blks.All(content, 0) {
		types = append(types, typ)
		texts = append(texts, text)
	}

	assert.Equal(t, []blocks.BlockType{blocks.BlockHashtag, blocks.BlockText}, types)
	assert.Equal(t, []string{"tag", " text"}, texts)
}

func TestBlockTypeString(t *testing.T) {
	assert.Equal(t, "hashtag", blocks.BlockHashtag.String())
	assert.Equal(t, "mention_bech32", blocks.BlockMentionBech32.String())
	assert.Equal(t, "BlockType(99)", blocks.BlockType(99).String())
}
