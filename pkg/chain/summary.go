package chain

import (
	"math"
	"time"
)

// BlockSummary is the compact record kept for one finalized block. It is
// created once per leaf and never mutated afterwards.
type BlockSummary struct {
	Hash            Hash      `json:"hash"`
	Height          uint64    `json:"height"`
	Time            time.Time `json:"time"`
	Proposer        PubKey    `json:"proposer"`
	NumTransactions uint64    `json:"num_transactions"`
	BlockReward     []uint64  `json:"block_reward"`
	FeeRecipient    PubKey    `json:"fee_recipient"`
	Size            uint64    `json:"size"`
}

// SummaryFromLeaf converts a finalized leaf to its BlockSummary. It has no
// failure mode: a leaf without a payload counts as the empty payload, and a
// timestamp outside the representable range falls back to the unix epoch.
func SummaryFromLeaf(leaf *Leaf) BlockSummary {
	h := leaf.Header

	payload := leaf.Payload
	if payload == nil {
		payload = EmptyPayload()
	}

	var size uint64
	for _, tx := range payload.Transactions {
		size += uint64(len(tx))
	}

	return BlockSummary{
		Hash:            h.Hash,
		Height:          h.Height,
		Time:            timeFromUnix(h.Timestamp),
		Proposer:        h.Proposer,
		NumTransactions: uint64(len(payload.Transactions)),
		BlockReward:     []uint64{h.FeeBalance},
		FeeRecipient:    h.FeeRecipient,
		Size:            size,
	}
}

// timeFromUnix converts raw epoch seconds to UTC time. The fallback is a
// display concern only, so it never reports an error.
func timeFromUnix(sec uint64) time.Time {
	if sec > math.MaxInt64 {
		return time.Unix(0, 0).UTC()
	}
	return time.Unix(int64(sec), 0).UTC()
}
