package chain

import "errors"

// SnapshotVersion names a point in time at which a stake table can be
// enumerated. Entry order is stable within one snapshot but may change
// across epochs.
type SnapshotVersion int

const (
	// SnapshotHead is the live view of the stake table.
	SnapshotHead SnapshotVersion = iota
	// SnapshotLastEpochStart is the table as frozen at the last epoch
	// boundary. Quorum certificate signer bitmaps are expressed against
	// this version's order.
	SnapshotLastEpochStart
)

// ErrSnapshotUnavailable is returned by a stake table that cannot produce
// an enumeration for the requested version (e.g. not yet initialized).
var ErrSnapshotUnavailable = errors.New("stake table snapshot unavailable")

// StakeTableEntry is one row of a stake-table enumeration.
type StakeTableEntry struct {
	PublicKey PubKey `json:"public_key"`
	Stake     uint64 `json:"stake"`
	StateKey  string `json:"state_key,omitempty"`
}

// StakeTable is an opaque, versioned view of the validator set.
type StakeTable interface {
	// Entries enumerates the table as of the given snapshot version, in the
	// table's defined order. Returns ErrSnapshotUnavailable when no snapshot
	// exists for the version.
	Entries(version SnapshotVersion) ([]StakeTableEntry, error)
}

// EpochStakeTable is a StakeTable backed by per-version entry slices. It is
// replaced wholesale in the store whenever the collaborator fetches a fresh
// table; it is never mutated in place.
type EpochStakeTable struct {
	Head           []StakeTableEntry `json:"head"`
	LastEpochStart []StakeTableEntry `json:"last_epoch_start"`
}

// NewEpochStakeTable builds a table whose head and last-epoch-start views
// are both the given entries.
func NewEpochStakeTable(entries []StakeTableEntry) *EpochStakeTable {
	return &EpochStakeTable{Head: entries, LastEpochStart: entries}
}

// Entries implements StakeTable.
func (t *EpochStakeTable) Entries(version SnapshotVersion) ([]StakeTableEntry, error) {
	switch version {
	case SnapshotHead:
		if t.Head == nil {
			return nil, ErrSnapshotUnavailable
		}
		return t.Head, nil
	case SnapshotLastEpochStart:
		if t.LastEpochStart == nil {
			return nil, ErrSnapshotUnavailable
		}
		return t.LastEpochStart, nil
	default:
		return nil, ErrSnapshotUnavailable
	}
}
