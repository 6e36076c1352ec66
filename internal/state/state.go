// Package state holds the shared in-memory telemetry state: a bounded
// history of recent block summaries and voter participation bitmaps, the
// current stake-table snapshot, and the node identity registry.
package state

import (
	"sync"

	"github.com/prysmaticlabs/go-bitfield"
	"github.com/sveitser/node-telemetry/pkg/chain"
)

// MaxHistory is the number of recent blocks and voter bitmaps retained.
// Older entries are evicted FIFO.
const MaxHistory = 50

// State is the single shared mutable object of the service. Readers (the
// API layer) and writers (the ingestion pipeline, the stake-table and node
// directory collaborators) all go through its RWMutex; no caller performs
// I/O while holding it.
type State struct {
	mu sync.RWMutex

	latestBlocks []chain.BlockSummary
	latestVoters []bitfield.Bitlist
	stakeTable   chain.StakeTable
	identities   []chain.NodeIdentity
}

// New creates an empty State.
func New() *State {
	return &State{}
}

// LatestBlocks returns the retained block summaries, oldest first.
func (s *State) LatestBlocks() []chain.BlockSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]chain.BlockSummary, len(s.latestBlocks))
	copy(out, s.latestBlocks)
	return out
}

// LatestVoters returns the retained identity-order voter bitmaps, oldest
// first, positionally aligned with LatestBlocks. The bitmaps are copies:
// setting bits on them does not touch the stored history.
func (s *State) LatestVoters() []bitfield.Bitlist {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]bitfield.Bitlist, len(s.latestVoters))
	for i, v := range s.latestVoters {
		out[i] = cloneBitlist(v)
	}
	return out
}

// StakeTable returns the current stake-table snapshot, or nil if none has
// been installed yet.
func (s *State) StakeTable() chain.StakeTable {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stakeTable
}

// Identities returns the node identity registry in insertion order.
func (s *State) Identities() []chain.NodeIdentity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]chain.NodeIdentity, len(s.identities))
	copy(out, s.identities)
	return out
}

// AppendBlock appends a block summary to the bounded history, evicting the
// oldest entry when at capacity.
func (s *State) AppendBlock(summary chain.BlockSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latestBlocks = appendBounded(s.latestBlocks, summary)
}

// AppendVoters appends an identity-order voter bitmap to the bounded
// history, evicting the oldest entry when at capacity.
func (s *State) AppendVoters(voters bitfield.Bitlist) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latestVoters = appendBounded(s.latestVoters, voters)
}

// ReplaceStakeTable swaps the current stake-table snapshot wholesale.
// Already-stored voter history is not recomputed.
func (s *State) ReplaceStakeTable(table chain.StakeTable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stakeTable = table
}

// RegisterIdentity appends a node identity to the registry. The registry is
// append-only: removing or reordering entries would invalidate the bit
// positions of stored voter bitmaps. Duplicate keys are not rejected here;
// deduplication is the caller's concern.
func (s *State) RegisterIdentity(identity chain.NodeIdentity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identities = append(s.identities, identity)
}

// CommitLeaf performs the per-leaf mutation as one exclusive critical
// section: it reads the current stake table and identity registry, remaps
// the raw stake-table-order signer bitmap to identity order, and appends
// the summary and the remapped bitmap to their histories in lockstep. The
// remap must happen under the same lock as the appends, since the table or
// registry could otherwise change mid-remap. Returns the identity-order
// bitmap for fan-out.
func (s *State) CommitLeaf(summary chain.BlockSummary, rawSigners bitfield.Bitlist) bitfield.Bitlist {
	s.mu.Lock()
	defer s.mu.Unlock()

	voters := RemapVoters(rawSigners, currentEntries(s.stakeTable), s.identities)

	// The history keeps its own copy; the returned bitmap goes to
	// subscribers, which must not be able to flip stored bits.
	s.latestBlocks = appendBounded(s.latestBlocks, summary)
	s.latestVoters = appendBounded(s.latestVoters, cloneBitlist(voters))

	return voters
}

func cloneBitlist(b bitfield.Bitlist) bitfield.Bitlist {
	return append(bitfield.Bitlist(nil), b...)
}

// currentEntries enumerates the stake table at the last epoch start. A
// missing table or unavailable snapshot counts as an empty enumeration.
func currentEntries(table chain.StakeTable) []chain.StakeTableEntry {
	if table == nil {
		return nil
	}
	entries, err := table.Entries(chain.SnapshotLastEpochStart)
	if err != nil {
		return nil
	}
	return entries
}

func appendBounded[T any](buf []T, v T) []T {
	if len(buf) >= MaxHistory {
		copy(buf, buf[len(buf)-MaxHistory+1:])
		buf = buf[:MaxHistory-1]
	}
	return append(buf, v)
}
