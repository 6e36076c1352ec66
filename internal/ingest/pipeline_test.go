package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/prysmaticlabs/go-bitfield"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sveitser/node-telemetry/internal/state"
	"github.com/sveitser/node-telemetry/pkg/chain"
)

func testPubKey(b byte) chain.PubKey {
	var k chain.PubKey
	k[0] = b
	return k
}

func bits(vals ...bool) bitfield.Bitlist {
	b := bitfield.NewBitlist(uint64(len(vals)))
	for i, v := range vals {
		b.SetBitAt(uint64(i), v)
	}
	return b
}

func leafAt(height uint64, signers bitfield.Bitlist) chain.Leaf {
	return chain.Leaf{
		Header: chain.Header{Height: height, Timestamp: 1700000000 + height},
		QC:     chain.QuorumCertificate{Signers: signers},
	}
}

func recv[T any](t *testing.T, ch <-chan T, what string) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for %s", what)
		panic("unreachable")
	}
}

func waitErr(t *testing.T, errCh <-chan error) error {
	t.Helper()
	select {
	case err := <-errCh:
		return err
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for pipeline to stop")
		panic("unreachable")
	}
}

func TestOutputSendRecv(t *testing.T) {
	out := NewOutput[int](1)

	require.NoError(t, out.Send(context.Background(), 7))
	assert.Equal(t, 7, recv(t, out.Recv(), "value"))
}

func TestOutputSendAfterClose(t *testing.T) {
	out := NewOutput[int](4)
	out.Close()
	out.Close() // idempotent

	err := out.Send(context.Background(), 1)
	assert.ErrorIs(t, err, ErrReceiverClosed)
}

func TestOutputSendCancelled(t *testing.T) {
	out := NewOutput[int](0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := out.Send(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOutputBufferedAfterClose(t *testing.T) {
	out := NewOutput[int](1)
	require.NoError(t, out.Send(context.Background(), 9))
	out.Close()

	// Values buffered before the close stay readable.
	assert.Equal(t, 9, recv(t, out.Recv(), "buffered value"))
}

func TestPipelineEndToEnd(t *testing.T) {
	st := state.New()
	st.RegisterIdentity(chain.NodeIdentity{PublicKey: testPubKey(1)})
	st.RegisterIdentity(chain.NodeIdentity{PublicKey: testPubKey(2)})

	leaves := make(chan chain.Leaf, 1)
	blocks := NewOutput[chain.BlockSummary](1)
	voters := NewOutput[bitfield.Bitlist](1)
	p := NewPipeline(st, leaves, blocks, voters)

	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(context.Background()) }()

	// A genesis-like leaf carries no signer bitmap at all.
	leaves <- leafAt(0, nil)

	summary := recv(t, blocks.Recv(), "block summary")
	assert.Equal(t, uint64(0), summary.Height)

	bitmap := recv(t, voters.Recv(), "voter bitmap")
	assert.Equal(t, uint64(2), bitmap.Len())
	assert.Equal(t, uint64(0), bitmap.Count())

	assert.Len(t, st.LatestBlocks(), 1)
	assert.Len(t, st.LatestVoters(), 1)

	close(leaves)
	assert.NoError(t, waitErr(t, errCh))
}

func TestPipelineCleanShutdown(t *testing.T) {
	st := state.New()
	leaves := make(chan chain.Leaf)
	p := NewPipeline(st, leaves, NewOutput[chain.BlockSummary](1), NewOutput[bitfield.Bitlist](1))

	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(context.Background()) }()

	close(leaves)

	assert.NoError(t, waitErr(t, errCh))
	assert.Empty(t, st.LatestBlocks())
	assert.Empty(t, st.LatestVoters())
}

func TestPipelineTerminatesOnClosedSubscriber(t *testing.T) {
	st := state.New()
	leaves := make(chan chain.Leaf, 1)
	blocks := NewOutput[chain.BlockSummary](1)
	voters := NewOutput[bitfield.Bitlist](1)
	p := NewPipeline(st, leaves, blocks, voters)

	// Both subscribers are gone before any leaf arrives.
	blocks.Close()
	voters.Close()

	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(context.Background()) }()

	leaves <- leafAt(1, bits(true))

	err := waitErr(t, errCh)
	assert.ErrorIs(t, err, ErrReceiverClosed)

	// The store mutation happens before the send, so exactly one commit
	// survives; it is not rolled back.
	assert.Len(t, st.LatestBlocks(), 1)
	assert.Len(t, st.LatestVoters(), 1)
}

func TestPipelineVoterSendFailureStillStops(t *testing.T) {
	st := state.New()
	leaves := make(chan chain.Leaf, 1)
	blocks := NewOutput[chain.BlockSummary](1)
	voters := NewOutput[bitfield.Bitlist](1)
	p := NewPipeline(st, leaves, blocks, voters)

	// Only the voter subscriber is gone; the block send succeeds first.
	voters.Close()

	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(context.Background()) }()

	leaves <- leafAt(1, nil)

	err := waitErr(t, errCh)
	assert.ErrorIs(t, err, ErrReceiverClosed)
	assert.Len(t, st.LatestBlocks(), 1)
}

func TestPipelinePreservesOrder(t *testing.T) {
	st := state.New()
	leaves := make(chan chain.Leaf, 3)
	blocks := NewOutput[chain.BlockSummary](3)
	voters := NewOutput[bitfield.Bitlist](3)
	p := NewPipeline(st, leaves, blocks, voters)

	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(context.Background()) }()

	for h := uint64(1); h <= 3; h++ {
		leaves <- leafAt(h, nil)
	}

	for h := uint64(1); h <= 3; h++ {
		summary := recv(t, blocks.Recv(), "block summary")
		assert.Equal(t, h, summary.Height)
		recv(t, voters.Recv(), "voter bitmap")
	}

	close(leaves)
	assert.NoError(t, waitErr(t, errCh))

	stored := st.LatestBlocks()
	require.Len(t, stored, 3)
	for i, s := range stored {
		assert.Equal(t, uint64(i+1), s.Height)
	}
}

func TestPipelineRemapsThroughCurrentStakeTable(t *testing.T) {
	keyA, keyB, keyC := testPubKey('a'), testPubKey('b'), testPubKey('c')

	st := state.New()
	st.RegisterIdentity(chain.NodeIdentity{PublicKey: keyC})
	st.RegisterIdentity(chain.NodeIdentity{PublicKey: keyA})
	st.RegisterIdentity(chain.NodeIdentity{PublicKey: keyB})
	st.ReplaceStakeTable(chain.NewEpochStakeTable([]chain.StakeTableEntry{
		{PublicKey: keyA},
		{PublicKey: keyB},
		{PublicKey: keyC},
	}))

	leaves := make(chan chain.Leaf, 1)
	blocks := NewOutput[chain.BlockSummary](1)
	voters := NewOutput[bitfield.Bitlist](1)
	p := NewPipeline(st, leaves, blocks, voters)

	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(context.Background()) }()

	leaves <- leafAt(5, bits(true, false, true))

	recv(t, blocks.Recv(), "block summary")
	bitmap := recv(t, voters.Recv(), "voter bitmap")

	assert.True(t, bitmap.BitAt(0))  // C voted
	assert.True(t, bitmap.BitAt(1))  // A voted
	assert.False(t, bitmap.BitAt(2)) // B did not

	close(leaves)
	assert.NoError(t, waitErr(t, errCh))
}
