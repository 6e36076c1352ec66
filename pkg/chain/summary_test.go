package chain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPubKey(b byte) PubKey {
	var k PubKey
	k[0] = b
	return k
}

func TestSummaryFromLeaf(t *testing.T) {
	leaf := &Leaf{
		Header: Header{
			Hash:         Hash{0x01},
			Height:       42,
			Timestamp:    1700000000,
			Proposer:     testPubKey(0xaa),
			FeeRecipient: testPubKey(0xbb),
			FeeBalance:   1250,
		},
		Payload: &Payload{
			Transactions: []Transaction{
				[]byte("first"),
				[]byte("second tx"),
				[]byte{},
			},
		},
	}

	s := SummaryFromLeaf(leaf)

	assert.Equal(t, Hash{0x01}, s.Hash)
	assert.Equal(t, uint64(42), s.Height)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), s.Time)
	assert.Equal(t, testPubKey(0xaa), s.Proposer)
	assert.Equal(t, uint64(3), s.NumTransactions)
	assert.Equal(t, []uint64{1250}, s.BlockReward)
	assert.Equal(t, testPubKey(0xbb), s.FeeRecipient)
	assert.Equal(t, uint64(len("first")+len("second tx")), s.Size)
}

func TestSummaryFromLeafNoPayload(t *testing.T) {
	leaf := &Leaf{
		Header: Header{Height: 0, Timestamp: 1700000000},
	}

	s := SummaryFromLeaf(leaf)

	assert.Equal(t, uint64(0), s.NumTransactions)
	assert.Equal(t, uint64(0), s.Size)
}

func TestSummaryFromLeafTimestampFallback(t *testing.T) {
	leaf := &Leaf{
		Header: Header{Timestamp: math.MaxUint64},
	}

	s := SummaryFromLeaf(leaf)

	// Out-of-range timestamps fall back to the unix epoch instead of failing.
	assert.Equal(t, time.Unix(0, 0).UTC(), s.Time)
}

func TestPubKeyHexRoundTrip(t *testing.T) {
	k := testPubKey(0x42)

	parsed, err := PubKeyFromHex(k.Hex())
	require.NoError(t, err)
	assert.Equal(t, k, parsed)

	_, err = PubKeyFromHex("abcd")
	assert.Error(t, err)

	_, err = PubKeyFromHex("zz")
	assert.Error(t, err)
}

func TestEpochStakeTableEntries(t *testing.T) {
	entries := []StakeTableEntry{
		{PublicKey: testPubKey(1), Stake: 100},
		{PublicKey: testPubKey(2), Stake: 200},
	}
	table := NewEpochStakeTable(entries)

	got, err := table.Entries(SnapshotLastEpochStart)
	require.NoError(t, err)
	assert.Equal(t, entries, got)

	got, err = table.Entries(SnapshotHead)
	require.NoError(t, err)
	assert.Equal(t, entries, got)

	empty := &EpochStakeTable{}
	_, err = empty.Entries(SnapshotLastEpochStart)
	assert.ErrorIs(t, err, ErrSnapshotUnavailable)
}
